package vm

import (
	"context"
	"testing"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/errz"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
	"github.com/stretchr/testify/require"
)

// testClip is a minimal display target.
type testClip struct {
	*object.PlainObject
	name     string
	parent   *testClip
	children map[string]*testClip
}

func newClip(name string, parent *testClip) *testClip {
	c := &testClip{
		PlainObject: object.NewPlainObject(nil),
		name:        name,
		parent:      parent,
		children:    map[string]*testClip{},
	}
	if parent != nil {
		parent.children[name] = c
	}
	return c
}

func (c *testClip) ChildByName(name string) (object.Target, bool) {
	child, ok := c.children[name]
	if !ok {
		return nil, false
	}
	return child, true
}

func (c *testClip) Parent() object.Target {
	if c.parent == nil {
		return nil
	}
	return c.parent
}

func (c *testClip) TargetPath() string {
	if c.parent == nil {
		return "/"
	}
	parent := c.parent.TargetPath()
	if parent == "/" {
		return "/" + c.name
	}
	return parent + "/" + c.name
}

type recordingActions struct {
	*BaseActions
	traces []string
	gotos  []string
}

func (a *recordingActions) Trace(msg string) error {
	a.traces = append(a.traces, msg)
	return nil
}

func (a *recordingActions) Goto(frame object.Value, sceneBias int, play bool) error {
	s, _ := object.ToString(frame, 7)
	if play {
		s += " play"
	}
	a.gotos = append(a.gotos, s)
	return nil
}

type recordingReporter struct {
	warnings []*errz.Warning
	errors   []error
}

func (r *recordingReporter) Warning(w *errz.Warning) {
	r.warnings = append(r.warnings, w)
}

func (r *recordingReporter) Error(err error) {
	r.errors = append(r.errors, err)
}

type harness struct {
	vm       *VirtualMachine
	root     *testClip
	actions  *recordingActions
	reporter *recordingReporter
}

func newHarness(opts ...Option) *harness {
	h := &harness{
		root:     newClip("", nil),
		actions:  &recordingActions{BaseActions: NewBaseActions(DefaultVersion)},
		reporter: &recordingReporter{},
	}
	all := []Option{WithRoot(h.root), WithActions(h.actions), WithReporter(h.reporter)}
	h.vm = New(append(all, opts...)...)
	h.actions.Version = h.vm.Version()
	return h
}

func (h *harness) run(insts ...bytecode.Instruction) (object.Value, error) {
	return h.vm.Execute(context.Background(), program(insts...), h.root)
}

func (h *harness) exec(t *testing.T, insts ...bytecode.Instruction) object.Value {
	t.Helper()
	v, err := h.run(insts...)
	require.NoError(t, err)
	return v
}

// bothModes runs fn with the compiler enabled and disabled.
func bothModes(t *testing.T, fn func(t *testing.T, compile bool)) {
	for _, compile := range []bool{true, false} {
		name := "interpreted"
		if compile {
			name = "compiled"
		}
		t.Run(name, func(t *testing.T) {
			fn(t, compile)
		})
	}
}

func program(insts ...bytecode.Instruction) *bytecode.Program {
	return bytecode.NewProgram(bytecode.ProgramParams{Instructions: insts})
}

func push(values ...any) bytecode.Instruction {
	items := make([]bytecode.PushItem, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case bytecode.PushItem:
			items[i] = v
		case int:
			items[i] = bytecode.PushItem{Value: object.Number(v)}
		case float64:
			items[i] = bytecode.PushItem{Value: object.Number(v)}
		case string:
			items[i] = bytecode.PushItem{Value: object.String(v)}
		case bool:
			items[i] = bytecode.PushItem{Value: object.Bool(v)}
		case object.Value:
			items[i] = bytecode.PushItem{Value: v}
		default:
			items[i] = bytecode.PushItem{Value: object.Undefined}
		}
	}
	return bytecode.Instruction{Code: op.Push, Push: items}
}

func act(code op.Code) bytecode.Instruction {
	return bytecode.Instruction{Code: code}
}

func jump(code op.Code, target int) bytecode.Instruction {
	return bytecode.Instruction{Code: code, Target: target}
}

func setVar(name string, value any) []bytecode.Instruction {
	return []bytecode.Instruction{push(name, value), act(op.SetVariable)}
}

func getVar(name string) []bytecode.Instruction {
	return []bytecode.Instruction{push(name), act(op.GetVariable)}
}

func trace(name string) []bytecode.Instruction {
	return append(getVar(name), act(op.Trace))
}

// seq flattens instruction groups.
func seq(groups ...any) []bytecode.Instruction {
	var out []bytecode.Instruction
	for _, g := range groups {
		switch g := g.(type) {
		case bytecode.Instruction:
			out = append(out, g)
		case []bytecode.Instruction:
			out = append(out, g...)
		}
	}
	return out
}

func function2(name string, params []string, body ...bytecode.Instruction) bytecode.Instruction {
	return bytecode.Instruction{
		Code: op.DefineFunction2,
		Function: &bytecode.FunctionDef{
			Name:          name,
			Params:        params,
			RegisterCount: 4,
			Body:          program(body...),
		},
	}
}

// call pushes the arguments in reverse and calls a function by name.
func call(name string, args ...any) []bytecode.Instruction {
	values := make([]any, 0, len(args)+2)
	for i := len(args) - 1; i >= 0; i-- {
		values = append(values, args[i])
	}
	values = append(values, len(args), name)
	return []bytecode.Instruction{push(values...), act(op.CallFunction)}
}
