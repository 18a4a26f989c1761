package vm

import (
	"context"
	"testing"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
	"github.com/stretchr/testify/require"
)

type clipTree struct {
	*harness
	a, b *testClip
}

func newClipTree(opts ...Option) *clipTree {
	h := newHarness(opts...)
	a := newClip("a", h.root)
	b := newClip("b", a)
	b.Put("x", object.Number(5))
	return &clipTree{harness: h, a: a, b: b}
}

func TestTargetPathVariables(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"absolute", "/a/b:x"},
		{"relative", "a/b:x"},
		{"dotted", "_root.a.b:x"},
		{"level", "_level0.a.b:x"},
		{"slash only", "/a/b/x"},
		{"parent", "/a/b/../b:x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newClipTree()
			v := h.exec(t, getVar(tt.path)...)
			require.Equal(t, object.Number(5), v)
			require.Empty(t, h.reporter.warnings)
		})
	}
}

func TestSetPathVariable(t *testing.T) {
	h := newClipTree()
	h.exec(t, setVar("/a:y", 1)...)
	require.Equal(t, object.Number(1), h.a.Get("y"))
	require.False(t, h.root.HasProperty("y"))
}

func TestMissingTargetWarns(t *testing.T) {
	h := newClipTree()
	v := h.exec(t, getVar("/nope:x")...)
	require.Equal(t, object.Undefined, v)
	require.Len(t, h.reporter.warnings, 1)
	require.Contains(t, h.reporter.warnings[0].Message, "nope")
}

func TestDottedVariables(t *testing.T) {
	h := newHarness()
	v := h.exec(t, seq(
		push("obj"), push("y", 3, 1), act(op.InitObject), act(op.SetVariable),
		getVar("obj.y"),
	)...)
	require.Equal(t, object.Number(3), v)

	v = h.exec(t, seq(setVar("obj.y", 4), getVar("obj.y"))...)
	require.Equal(t, object.Number(4), v)

	v = h.exec(t, getVar("obj.z.w")...)
	require.Equal(t, object.Undefined, v)
	require.Len(t, h.reporter.warnings, 2)
}

func TestResolveTarget(t *testing.T) {
	h := newClipTree()
	obj, err := h.vm.ResolveTarget(object.String("/a/b"))
	require.NoError(t, err)
	require.Same(t, h.b, obj)

	obj, err = h.vm.ResolveTarget(h.a)
	require.NoError(t, err)
	require.Same(t, h.a, obj)

	_, err = h.vm.ResolveTarget(object.String("/a/missing"))
	require.Error(t, err)

	obj, err = h.vm.ResolveTarget(object.Undefined)
	require.NoError(t, err)
	require.Nil(t, obj)
}

func TestSetTarget(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newClipTree(WithCompile(compile))
		h.exec(t, seq(
			bytecode.Instruction{Code: op.SetTarget, Str: "a"},
			setVar("v", 1),
			bytecode.Instruction{Code: op.SetTarget, Str: "a/b"},
			setVar("v", 2),
			bytecode.Instruction{Code: op.SetTarget, Str: ""},
			setVar("v", 3),
			push("/a/b"), act(op.SetTarget2),
			setVar("w", 4),
		)...)
		require.Equal(t, object.Number(1), h.a.Get("v"))
		require.Equal(t, object.Number(2), h.b.Get("v"))
		require.Equal(t, object.Number(3), h.root.Get("v"))
		require.Equal(t, object.Number(4), h.b.Get("w"))
		require.Nil(t, h.vm.CurrentTarget())
	})
}

func TestThisTargetPath(t *testing.T) {
	h := newClipTree()
	v := h.exec(t, getVar("this")...)
	require.Same(t, h.root, v)

	v = h.exec(t, seq(getVar("this"), act(op.TargetPath))...)
	require.Equal(t, object.String("/"), v)

	v, err := h.vm.Execute(context.Background(), program(seq(getVar("this"), act(op.TargetPath))...), h.b)
	require.NoError(t, err)
	require.Equal(t, object.String("/a/b"), v)
}

type eventRecorder struct {
	names []string
}

func (r *eventRecorder) OnEventPropertyModified(name string) {
	r.names = append(r.names, name)
}

func TestEventObservers(t *testing.T) {
	h := newHarness()
	rec := &eventRecorder{}
	h.vm.RegisterEventObserver("onEnterFrame", rec)
	h.exec(t, seq(
		setVar("onEnterFrame", 1),
		setVar("OnEnterFrame", 2),
		setVar("other", 3),
		push("onEnterFrame"), act(op.Delete2), act(op.Pop),
	)...)
	require.Equal(t, []string{"onEnterFrame", "onEnterFrame"}, rec.names)

	h.vm.UnregisterEventObserver("onEnterFrame", rec)
	h.exec(t, setVar("onEnterFrame", 4)...)
	require.Len(t, rec.names, 2)
}

func TestEventObserversCaseInsensitive(t *testing.T) {
	h := newHarness(WithVersion(6))
	rec := &eventRecorder{}
	h.vm.RegisterEventObserver("onEnterFrame", rec)
	h.exec(t, setVar("ONENTERFRAME", 1)...)
	require.Equal(t, []string{"ONENTERFRAME"}, rec.names)
}

type symbolTable map[int]string

func (s symbolTable) SymbolByID(id int) (any, bool) {
	v, ok := s[id]
	return v, ok
}

func TestAssets(t *testing.T) {
	h := newHarness(WithSymbolResolver(symbolTable{3: "ball"}))
	require.NoError(t, h.vm.RegisterAsset("Ball", 3))
	require.Error(t, h.vm.RegisterAsset("Paddle", 9))

	asset, ok := h.vm.GetAsset("Ball")
	require.True(t, ok)
	require.Equal(t, "ball", asset.Symbol)

	ctor := object.NewNativeFunction("Ball", func(object.Value, []object.Value) (object.Value, error) {
		return object.Undefined, nil
	})
	h.vm.BindClass("Ball", ctor)
	require.Same(t, ctor, asset.Class)

	h.vm.BindClass("Paddle", ctor)
	require.Len(t, h.reporter.warnings, 1)

	_, ok = h.vm.GetAsset("ball")
	require.False(t, ok)

	legacy := newHarness(WithVersion(6))
	require.NoError(t, legacy.vm.RegisterAsset("Ball", 1))
	_, ok = legacy.vm.GetAsset("ball")
	require.True(t, ok)
}

func TestResolveLevel(t *testing.T) {
	h := newHarness()
	root, err := h.vm.ResolveLevel(0)
	require.NoError(t, err)
	require.Same(t, h.root, root)

	_, err = h.vm.ResolveLevel(1)
	require.EqualError(t, err, "level 1 is not loaded")

	other := newClip("", nil)
	h.vm.SetRoot(other)
	root, err = h.vm.ResolveLevel(0)
	require.NoError(t, err)
	require.Same(t, other, root)
	require.Same(t, other, h.vm.Root())
}
