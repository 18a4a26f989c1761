package asm

import (
	"fmt"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const maxRegisters = 255

type assembler struct {
	errs *multierror.Error
}

func (a *assembler) errorf(path, format string, args ...any) {
	a.errs = multierror.Append(a.errs, fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...)))
}

// code assembles one code list. Labels are local to the list and refer
// to the index of the instruction that follows them.
func (a *assembler) code(path string, entries []entryYAML, name string) *bytecode.Program {
	labels := map[string]int{}
	index := 0
	for i, e := range entries {
		if e.Op == "" && e.Push == nil && e.Label != "" {
			if _, dup := labels[e.Label]; dup {
				a.errorf(fmt.Sprintf("%s[%d]", path, i), "duplicate label %q", e.Label)
			}
			labels[e.Label] = index
			continue
		}
		index++
	}

	insts := make([]bytecode.Instruction, 0, index)
	for i, e := range entries {
		if e.Op == "" && e.Push == nil && e.Label != "" {
			continue
		}
		insts = append(insts, a.instruction(fmt.Sprintf("%s[%d]", path, i), e, labels))
	}
	prog := bytecode.NewProgram(bytecode.ProgramParams{
		Name:         name,
		Instructions: insts,
	})
	for _, inst := range insts {
		for _, body := range inst.Bodies() {
			body.SetParent(prog)
		}
	}
	return prog
}

func (a *assembler) instruction(path string, e entryYAML, labels map[string]int) bytecode.Instruction {
	name := e.Op
	if name == "" {
		if e.Push == nil {
			a.errorf(path, "entry needs an op, push or label")
			return bytecode.Instruction{Code: op.End}
		}
		name = "Push"
	}
	code, ok := op.Lookup(name)
	if !ok {
		a.errorf(path, "unknown op %q", name)
		return bytecode.Instruction{Code: op.End}
	}
	if e.Label != "" {
		a.errorf(path, "label %q cannot be combined with an op", e.Label)
	}

	inst := bytecode.Instruction{Code: code}
	switch code {
	case op.Push:
		inst.Push = a.pushItems(path, e.Push)
	case op.Jump, op.If:
		if e.Target == "" {
			a.errorf(path, "%s needs a target", code)
			break
		}
		target, ok := labels[e.Target]
		if !ok {
			a.errorf(path, "unknown label %q", e.Target)
		}
		inst.Target = target
	case op.GotoFrame:
		inst.Int = a.frame(path, e.Frame)
		inst.Bool = e.Play
	case op.GoToLabel:
		if e.FrameLabel == "" {
			a.errorf(path, "GoToLabel needs a frame_label")
		}
		inst.Str = e.FrameLabel
		inst.Bool = e.Play
	case op.GetURL:
		inst.Str = e.URL
		inst.Str2 = e.Window
	case op.WaitForFrame:
		inst.Int = a.frame(path, e.Frame)
		inst.Int2 = a.skip(path, e.Skip)
	case op.WaitForFrame2:
		inst.Int2 = a.skip(path, e.Skip)
	case op.SetTarget:
		inst.Str = e.Path
	case op.GetURL2:
		inst.Int = e.Flags
	case op.GotoFrame2:
		inst.Int = e.Flags
		if e.Play {
			inst.Int |= 1
		}
		if e.Bias != 0 {
			inst.Int |= 2
			inst.Int2 = e.Bias
		}
	case op.StoreRegister:
		if e.Register < 0 || e.Register > maxRegisters {
			a.errorf(path, "register %d is out of range", e.Register)
		}
		inst.Int = e.Register
	case op.ConstantPool:
		inst.Strings = e.Strings
	case op.StrictMode:
		inst.Int = e.Mode
	case op.With:
		inst.Body = a.code(path+".body", e.Body, "")
	case op.DefineFunction, op.DefineFunction2:
		inst.Function = a.function(path, code, e)
	case op.Try:
		inst.Try = a.try(path, e)
	}
	return inst
}

// frame converts a one-based frame number to the zero-based operand.
func (a *assembler) frame(path string, frame int) int {
	if frame < 1 {
		a.errorf(path, "frame must be at least 1")
		return 0
	}
	return frame - 1
}

func (a *assembler) skip(path string, skip int) int {
	if skip < 0 || skip > 255 {
		a.errorf(path, "skip %d is out of range", skip)
		return 0
	}
	return skip
}

func (a *assembler) function(path string, code op.Code, e entryYAML) *bytecode.FunctionDef {
	def := &bytecode.FunctionDef{
		Name:          e.Name,
		Params:        e.Params,
		RegisterCount: e.Registers,
	}
	if code == op.DefineFunction {
		if e.Registers != 0 || len(e.Allocation) > 0 || len(e.Suppress) > 0 {
			a.errorf(path, "DefineFunction does not take registers")
		}
		def.Body = a.code(path+".body", e.Body, e.Name)
		return def
	}
	if e.Registers < 0 || e.Registers > maxRegisters {
		a.errorf(path, "registers %d is out of range", e.Registers)
	}
	for i, b := range e.Allocation {
		kind := bytecode.BindNone
		if b.Kind != "" {
			k, ok := bytecode.ParseBindingKind(b.Kind)
			if !ok {
				a.errorf(fmt.Sprintf("%s.allocation[%d]", path, i), "unknown binding %q", b.Kind)
			}
			kind = k
		}
		if kind == bytecode.BindArgument && (b.Index < 0 || b.Index >= len(e.Params)) {
			a.errorf(fmt.Sprintf("%s.allocation[%d]", path, i), "argument %d is not a parameter", b.Index)
		}
		def.Allocation = append(def.Allocation, bytecode.RegisterBinding{Kind: kind, Index: b.Index})
	}
	if e.Registers > 0 && len(def.Allocation) > e.Registers {
		a.errorf(path, "allocation uses %d registers but only %d are requested", len(def.Allocation), e.Registers)
	}
	for _, s := range e.Suppress {
		switch s {
		case "arguments":
			def.Suppress |= bytecode.SuppressArguments
		case "this":
			def.Suppress |= bytecode.SuppressThis
		case "super":
			def.Suppress |= bytecode.SuppressSuper
		default:
			a.errorf(path, "unknown suppress flag %q", s)
		}
	}
	def.Body = a.code(path+".body", e.Body, e.Name)
	return def
}

func (a *assembler) try(path string, e entryYAML) *bytecode.TryDef {
	def := &bytecode.TryDef{CatchName: e.CatchName}
	if e.CatchRegister != nil {
		if e.CatchName != "" {
			a.errorf(path, "catch_name and catch_register are exclusive")
		}
		if *e.CatchRegister < 0 || *e.CatchRegister > maxRegisters {
			a.errorf(path, "catch_register %d is out of range", *e.CatchRegister)
		}
		def.CatchRegister = *e.CatchRegister
		def.CatchInRegister = true
	}
	def.Try = a.code(path+".try", e.Try, "")
	if e.Catch != nil {
		def.Catch = a.code(path+".catch", e.Catch, "")
	}
	if e.Finally != nil {
		def.Finally = a.code(path+".finally", e.Finally, "")
	}
	return def
}

func (a *assembler) pushItems(path string, nodes []yaml.Node) []bytecode.PushItem {
	items := make([]bytecode.PushItem, 0, len(nodes))
	for i := range nodes {
		item, err := pushItem(&nodes[i])
		if err != nil {
			a.errorf(fmt.Sprintf("%s.push[%d]", path, i), "%s", err)
			continue
		}
		items = append(items, item)
	}
	return items
}

// pushItem converts one push operand. Plain scalars follow the YAML
// core schema; an unquoted undefined is the undefined value and the
// mappings {const: N} and {reg: N} read the constant pool and registers.
func pushItem(n *yaml.Node) (bytecode.PushItem, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return bytecode.PushItem{}, err
			}
			return bytecode.PushItem{Value: object.Number(f)}, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return bytecode.PushItem{}, err
			}
			return bytecode.PushItem{Value: object.Bool(b)}, nil
		case "!!null":
			return bytecode.PushItem{Value: object.Null}, nil
		case "!!str":
			if n.Style == 0 && n.Value == "undefined" {
				return bytecode.PushItem{Value: object.Undefined}, nil
			}
			return bytecode.PushItem{Value: object.String(n.Value)}, nil
		}
		return bytecode.PushItem{}, fmt.Errorf("unsupported value %q", n.Value)
	case yaml.MappingNode:
		var ref struct {
			Const *int `yaml:"const"`
			Reg   *int `yaml:"reg"`
		}
		if err := n.Decode(&ref); err != nil {
			return bytecode.PushItem{}, err
		}
		switch {
		case ref.Const != nil && ref.Reg == nil:
			if *ref.Const < 0 || *ref.Const > 0xFFFF {
				return bytecode.PushItem{}, fmt.Errorf("constant %d is out of range", *ref.Const)
			}
			return bytecode.Constant(*ref.Const), nil
		case ref.Reg != nil && ref.Const == nil:
			if *ref.Reg < 0 || *ref.Reg > maxRegisters {
				return bytecode.PushItem{}, fmt.Errorf("register %d is out of range", *ref.Reg)
			}
			return bytecode.Register(*ref.Reg), nil
		}
		return bytecode.PushItem{}, fmt.Errorf("operand needs exactly one of const or reg")
	}
	return bytecode.PushItem{}, fmt.Errorf("unsupported operand")
}
