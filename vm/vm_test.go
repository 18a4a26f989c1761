package vm

import (
	"context"
	"math"
	"testing"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
	"github.com/stretchr/testify/require"
)

func TestAddNumbers(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile))
		v := h.exec(t, push(5, 3), act(op.Add2))
		require.Equal(t, object.Number(8), v)
	})
}

func TestStringConcatenation(t *testing.T) {
	h := newHarness()
	v := h.exec(t, push("a", 1), act(op.Add2))
	require.Equal(t, object.String("a1"), v)

	v = h.exec(t, push("a", "b"), act(op.StringAdd))
	require.Equal(t, object.String("ab"), v)
}

func TestDivideByZero(t *testing.T) {
	h := newHarness(WithVersion(4))
	v := h.exec(t, push(3, 0), act(op.Divide))
	require.Equal(t, object.String("#ERROR#"), v)

	h = newHarness(WithVersion(7))
	v = h.exec(t, push(3, 0), act(op.Divide))
	n, ok := v.(object.Number)
	require.True(t, ok)
	require.True(t, math.IsInf(float64(n), 1))
}

func TestLegacyBooleans(t *testing.T) {
	h := newHarness(WithVersion(4))
	v := h.exec(t, push(1, 2), act(op.Less))
	require.Equal(t, object.Number(1), v)

	h = newHarness(WithVersion(6))
	v = h.exec(t, push(1, 2), act(op.Less))
	require.Equal(t, object.Bool(true), v)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		code op.Code
		a, b int
		want object.Value
	}{
		{"subtract", op.Subtract, 10, 4, object.Number(6)},
		{"multiply", op.Multiply, 6, 7, object.Number(42)},
		{"modulo", op.Modulo, -7, 3, object.Number(-1)},
		{"bitand", op.BitAnd, 12, 10, object.Number(8)},
		{"lshift", op.BitLShift, 1, 4, object.Number(16)},
		{"urshift", op.BitURShift, -1, 28, object.Number(15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			v := h.exec(t, push(tt.a, tt.b), act(tt.code))
			require.Equal(t, tt.want, v)
		})
	}
}

func TestStringExtract(t *testing.T) {
	h := newHarness()
	v := h.exec(t, push("hello", 2, 3), act(op.StringExtract))
	require.Equal(t, object.String("ell"), v)

	v = h.exec(t, push("hello"), act(op.StringLength))
	require.Equal(t, object.Number(5), v)

	v = h.exec(t, push("A"), act(op.CharToAscii))
	require.Equal(t, object.Number(65), v)

	v = h.exec(t, push(66), act(op.AsciiToChar))
	require.Equal(t, object.String("B"), v)
}

func TestVariables(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile))
		v := h.exec(t, seq(setVar("x", 42), getVar("x"))...)
		require.Equal(t, object.Number(42), v)
		require.Equal(t, object.Number(42), h.root.Get("x"))
		require.Empty(t, h.reporter.warnings)
	})
}

func TestUndefinedVariableWarnsOnce(t *testing.T) {
	h := newHarness()
	v := h.exec(t, getVar("missing")...)
	require.Equal(t, object.Undefined, v)
	require.Len(t, h.reporter.warnings, 1)
	require.Contains(t, h.reporter.warnings[0].Message, "missing")
}

func TestRegisters(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile))
		v := h.exec(t, push(bytecode.Register(10)))
		require.Equal(t, object.Undefined, v)

		v = h.exec(t,
			push(7),
			bytecode.Instruction{Code: op.StoreRegister, Int: 10},
			bytecode.Instruction{Code: op.StoreRegister, Int: 1},
			act(op.Pop),
			push(bytecode.Register(1)),
		)
		require.Equal(t, object.Number(7), v)
	})
}

func TestConstantPool(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile))
		h.exec(t,
			bytecode.Instruction{Code: op.ConstantPool, Strings: []string{"greeting", "hello"}},
			push(bytecode.Constant(0), bytecode.Constant(1)),
			act(op.SetVariable),
			push(bytecode.Constant(5)),
			act(op.Trace),
		)
		require.Equal(t, object.String("hello"), h.root.Get("greeting"))
		require.Equal(t, []string{"undefined"}, h.actions.traces)
	})
}

func TestStackSwapAndDuplicate(t *testing.T) {
	h := newHarness()
	h.exec(t, push(1, 2), act(op.StackSwap), act(op.Trace), act(op.PushDuplicate), act(op.Trace), act(op.Trace))
	require.Equal(t, []string{"1", "2", "2"}, h.actions.traces)
}

func TestInitObjectAndEnumerate(t *testing.T) {
	h := newHarness()
	h.exec(t,
		push("a", 1, "b", 2, 2),
		act(op.InitObject),
		act(op.Enumerate2),
		act(op.Trace), act(op.Trace), act(op.Trace),
	)
	require.Equal(t, []string{"a", "b", "null"}, h.actions.traces)
}

func TestInitArray(t *testing.T) {
	h := newHarness()
	v := h.exec(t, push(3, 2, 1, 3), act(op.InitArray))
	arr, ok := v.(*object.PlainObject)
	require.True(t, ok)
	require.True(t, arr.IsArray())
	require.Equal(t, []object.Value{object.Number(1), object.Number(2), object.Number(3)}, arr.Values())
}

func TestGotoActions(t *testing.T) {
	h := newHarness()
	h.exec(t,
		bytecode.Instruction{Code: op.GotoFrame, Int: 4},
		bytecode.Instruction{Code: op.GoToLabel, Str: "intro", Bool: true},
		push(9),
		bytecode.Instruction{Code: op.GotoFrame2, Int: 1},
	)
	require.Equal(t, []string{"5", "intro play", "9 play"}, h.actions.gotos)
}

func TestWith(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile))
		h.exec(t,
			push("a", 1, 1),
			act(op.InitObject),
			bytecode.Instruction{Code: op.With, Body: program(trace("a")...)},
		)
		require.Equal(t, []string{"1"}, h.actions.traces)
	})
}

func TestTryCatchFinally(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile))
		h.exec(t, bytecode.Instruction{Code: op.Try, Try: &bytecode.TryDef{
			CatchName: "e",
			Try:       program(push("boom"), act(op.Throw), push("unreached"), act(op.Trace)),
			Catch:     program(seq(push("caught"), getVar("e"), act(op.SetVariable))...),
			Finally:   program(setVar("fin", true)...),
		}})
		require.Equal(t, object.String("boom"), h.root.Get("caught"))
		require.Equal(t, object.Bool(true), h.root.Get("fin"))
		require.Empty(t, h.actions.traces)
		require.False(t, h.vm.Prohibited())
	})
}

func TestCatchInRegister(t *testing.T) {
	h := newHarness()
	v := h.exec(t,
		bytecode.Instruction{Code: op.Try, Try: &bytecode.TryDef{
			CatchInRegister: true,
			CatchRegister:   2,
			Try:             program(push(5), act(op.Throw)),
			Catch:           program(),
		}},
		push(bytecode.Register(2)),
	)
	require.Equal(t, object.Number(5), v)
}

func TestUncaughtThrowRunsFinally(t *testing.T) {
	h := newHarness()
	_, err := h.run(bytecode.Instruction{Code: op.Try, Try: &bytecode.TryDef{
		Try:     program(push("boom"), act(op.Throw)),
		Finally: program(setVar("fin", 1)...),
	}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
	require.Equal(t, object.Number(1), h.root.Get("fin"))
	require.False(t, h.vm.Prohibited())
}

func TestExecuteWithoutTarget(t *testing.T) {
	vm := New()
	_, err := vm.Execute(context.Background(), program(), nil)
	require.Error(t, err)
}

func TestGlobals(t *testing.T) {
	h := newHarness(WithGlobals(map[string]object.Value{"answer": object.Number(42)}))
	v := h.exec(t, getVar("answer")...)
	require.Equal(t, object.Number(42), v)

	v = h.exec(t, getVar("_global")...)
	require.Same(t, h.vm.Globals(), v)

	v = h.exec(t, push(0, "Object"), act(op.NewObject))
	obj, ok := v.(*object.PlainObject)
	require.True(t, ok)
	require.Equal(t, object.ClassObject, obj.Class())
}
