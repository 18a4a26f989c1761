// Package bytecode provides the program representation executed by the
// actionvm engine.
//
// A [Program] is a unit of action code: a frame script, an event handler,
// or a nested body of a function, with or try block. Programs carry either
// raw action bytes plus an [Analyzer] that decodes them, or an already
// decoded list of [Instruction] values. The first execution analyzes the
// program into an [IR]: the instruction items with resolved control-flow
// successors, grouped into basic blocks. The IR is memoized on the Program
// so that every later execution, in any engine context, reuses it.
//
// # Key Types
//
//   - [Program]: a lazily analyzed action list with a stable identifier
//   - [Instruction]: an action code with its decoded operands
//   - [IR]: analysis result with items, basic blocks and constant pool facts
//   - [FunctionDef]: operands of DefineFunction and DefineFunction2
//   - [TryDef]: operands of Try
//
// # Usage
//
//	prog := bytecode.NewProgram(bytecode.ProgramParams{
//	    Instructions: []bytecode.Instruction{
//	        {Code: op.Push, Push: bytecode.Values(object.Number(5), object.Number(3))},
//	        {Code: op.Add2},
//	    },
//	})
//	ir, err := prog.IR(7, 4)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(len(ir.Blocks))
//
// # Package Dependencies
//
// This package depends on [github.com/deepnoodle-ai/actionvm/op] and on the
// value model in [github.com/deepnoodle-ai/actionvm/object] for literal
// push operands and constant pools.
package bytecode
