package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlainObjectProperties(t *testing.T) {
	proto := NewPlainObject(nil)
	proto.Put("inherited", Number(1))

	obj := NewPlainObject(proto)
	obj.Put("b", String("x"))
	obj.Put("a", String("y"))
	obj.DefineOwn("hidden", True, DontEnum)

	require.True(t, obj.HasOwnProperty("a"))
	require.False(t, obj.HasOwnProperty("inherited"))
	require.True(t, obj.HasProperty("inherited"))
	require.Equal(t, Number(1), obj.Get("inherited"))
	require.Equal(t, Undefined, obj.Get("missing"))
	require.Equal(t, []string{"b", "a", "inherited"}, obj.Enumerate())

	require.True(t, obj.Delete("b"))
	require.False(t, obj.Delete("b"))
	require.Equal(t, []string{"a", "inherited"}, obj.Enumerate())
}

func TestPlainObjectFlags(t *testing.T) {
	obj := NewPlainObject(nil)
	obj.DefineOwn("fixed", Number(1), ReadOnly|DontDelete)
	obj.Put("fixed", Number(2))
	require.Equal(t, Number(1), obj.Get("fixed"))
	require.False(t, obj.Delete("fixed"))
}

func TestPlainObjectProtoProperty(t *testing.T) {
	proto := NewPlainObject(nil)
	obj := NewPlainObject(nil)
	require.Equal(t, Undefined, obj.Get("__proto__"))

	obj.Put("__proto__", proto)
	require.Equal(t, proto, obj.Proto())
	require.Equal(t, proto, obj.Get("__proto__"))

	obj.Put("__proto__", Null)
	require.Nil(t, obj.Proto())
}

func TestArray(t *testing.T) {
	arr := NewArray(nil, []Value{Number(1), Number(2)})
	require.True(t, arr.IsArray())
	require.Equal(t, Number(2), arr.Get("length"))
	require.Equal(t, []string{"0", "1"}, arr.Enumerate())

	arr.Put("4", String("e"))
	require.Equal(t, Number(5), arr.Get("length"))
	require.Len(t, arr.Values(), 5)
	require.Equal(t, "[1, 2, undefined, undefined, \"e\"]", arr.Inspect())
}

func TestFunctionPrototype(t *testing.T) {
	fn := NewNativeFunction("Point", func(this Value, args []Value) (Value, error) {
		return Number(len(args)), nil
	})
	require.Equal(t, "Point", fn.Name())
	proto := fn.Prototype()
	require.NotNil(t, proto)
	require.Equal(t, fn, proto.Get("constructor"))
	require.Empty(t, proto.Enumerate())

	result, err := fn.Call(Undefined, []Value{Null, Null})
	require.NoError(t, err)
	require.Equal(t, Number(2), result)
}

func TestBoxedString(t *testing.T) {
	boxed := NewBoxed(nil, String("héllo"))
	require.Equal(t, ClassString, boxed.Class())
	require.Equal(t, Number(5), boxed.Get("length"))
	require.Equal(t, String("héllo"), boxed.Primitive())
}
