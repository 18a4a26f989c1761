package vm

import (
	"context"
	"testing"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
	"github.com/stretchr/testify/require"
)

// countingLoop traces 0 through 4 and then "done".
func countingLoop() []bytecode.Instruction {
	return []bytecode.Instruction{
		push("i", 0),        // 0
		act(op.SetVariable), // 1
		push("i"),           // 2
		act(op.GetVariable), // 3
		push(5),             // 4
		act(op.Less2),       // 5
		act(op.Not),         // 6
		jump(op.If, 16),     // 7
		push("i"),           // 8
		act(op.GetVariable), // 9
		act(op.Trace),       // 10
		push("i", "i"),      // 11
		act(op.GetVariable), // 12
		act(op.Increment),   // 13
		act(op.SetVariable), // 14
		jump(op.Jump, 2),    // 15
		push("done"),        // 16
		act(op.Trace),       // 17
	}
}

func TestCompiledMatchesInterpreted(t *testing.T) {
	var results [][]string
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile))
		h.exec(t, countingLoop()...)
		require.Equal(t, []string{"0", "1", "2", "3", "4", "done"}, h.actions.traces)
		results = append(results, h.actions.traces)
	})
	require.Len(t, results, 2)
	require.Equal(t, results[0], results[1])
}

func TestCompileCache(t *testing.T) {
	h := newHarness()
	prog := program(countingLoop()...)
	_, err := h.vm.Execute(context.Background(), prog, h.root)
	require.NoError(t, err)

	ir := prog.Analyzed()
	require.NotNil(t, ir)
	cp, ok := h.vm.compiled[ir]
	require.True(t, ok)
	require.NotNil(t, cp)
	require.Len(t, cp.blocks, ir.End())

	_, err = h.vm.Execute(context.Background(), prog, h.root)
	require.NoError(t, err)
	require.Len(t, h.vm.compiled, 1)
	require.Same(t, cp, h.vm.compiled[ir])
}

func TestTraceForcesInterpreter(t *testing.T) {
	h := newHarness(WithTrace(true))
	v := h.exec(t, push(1, 2), act(op.Add2))
	require.Equal(t, object.Number(3), v)
	require.Empty(t, h.vm.compiled)
}

// staticAnalyzer returns a prepared IR regardless of the input bytes.
type staticAnalyzer struct {
	ir *bytecode.IR
}

func (a staticAnalyzer) Analyze(data []byte, version, registersLimit int, parent *bytecode.IR) (*bytecode.IR, error) {
	return a.ir, nil
}

func TestCompileFallback(t *testing.T) {
	ir, err := bytecode.BuildIR("broken", []bytecode.Instruction{
		push(1), push(2), act(op.Add2),
	}, DefaultRegisters, nil)
	require.NoError(t, err)
	// A block whose jump lands inside another block cannot be compiled.
	ir.Blocks[0].Jump = 1

	_, err = compileIR(ir)
	require.Error(t, err)

	h := newHarness()
	prog := bytecode.NewProgram(bytecode.ProgramParams{
		Data:     []byte{0},
		Analyzer: staticAnalyzer{ir: ir},
	})
	v, err := h.vm.Execute(context.Background(), prog, h.root)
	require.NoError(t, err)
	require.Equal(t, object.Number(3), v)

	cp, ok := h.vm.compiled[ir]
	require.True(t, ok)
	require.Nil(t, cp)
}

func TestCompileRejectsUnknownAction(t *testing.T) {
	ir := &bytecode.IR{
		ID: "unknown",
		Items: []bytecode.Item{{
			Instruction: bytecode.Instruction{Code: op.Code(0x02)},
			Next:        1,
			Branch:      1,
		}},
	}
	ir.Blocks = []bytecode.Block{{Label: 0, Items: ir.Items, Jump: 1}}
	_, err := compileIR(ir)
	require.Error(t, err)
}

func TestInlinePush(t *testing.T) {
	ir := &bytecode.IR{SingleConstantPool: bytecode.ConstantValues([]string{"a", "b"})}
	item := &bytecode.Item{Instruction: push(1, bytecode.Constant(1))}
	values, ok := inlinePush(ir, item)
	require.True(t, ok)
	require.Equal(t, []object.Value{object.Number(1), object.String("b")}, values)

	item = &bytecode.Item{Instruction: push(bytecode.Register(0))}
	_, ok = inlinePush(ir, item)
	require.False(t, ok)

	item = &bytecode.Item{Instruction: push(bytecode.Constant(7))}
	_, ok = inlinePush(ir, item)
	require.False(t, ok)
}
