package vm

import (
	"math"

	"github.com/deepnoodle-ai/actionvm/errz"
	"github.com/deepnoodle-ai/actionvm/object"
)

// initGlobals builds the global object with the Object and Array
// constructors and the host supplied globals.
func (vm *VirtualMachine) initGlobals() {
	objectProto := object.NewPlainObject(nil)
	arrayProto := object.NewPlainObject(objectProto)
	vm.objectProto = objectProto
	vm.arrayProto = arrayProto

	objectCtor := object.NewNativeFunction("Object", func(this object.Value, args []object.Value) (object.Value, error) {
		if len(args) > 0 {
			if obj := object.ToObject(args[0]); obj != nil {
				return obj, nil
			}
		}
		return object.NewPlainObject(objectProto), nil
	})
	bindPrototype(objectCtor, objectProto)

	arrayCtor := object.NewNativeFunction("Array", func(this object.Value, args []object.Value) (object.Value, error) {
		if len(args) == 1 {
			if n, ok := args[0].(object.Number); ok {
				length := float64(n)
				if length < 0 || length != math.Trunc(length) || length > math.MaxInt32 {
					return nil, errz.NewRuntimeErrorf("invalid array length %v", length)
				}
				arr := object.NewArray(arrayProto, nil)
				arr.DefineOwn("length", n, object.DontEnum|object.DontDelete)
				return arr, nil
			}
		}
		return object.NewArray(arrayProto, args), nil
	})
	bindPrototype(arrayCtor, arrayProto)

	g := object.NewPlainObject(objectProto)
	g.DefineOwn("Object", objectCtor, object.DontEnum)
	g.DefineOwn("Array", arrayCtor, object.DontEnum)
	g.DefineOwn("_global", g, object.DontEnum)
	g.DefineOwn("NaN", object.NaN, object.DontEnum|object.DontDelete)
	g.DefineOwn("Infinity", object.Number(math.Inf(1)), object.DontEnum|object.DontDelete)
	for name, value := range vm.inputGlobals {
		g.Put(name, value)
	}
	vm.globals = g
}

func bindPrototype(ctor *object.Function, proto *object.PlainObject) {
	ctor.DefineOwn("prototype", proto, object.DontEnum|object.DontDelete)
	proto.DefineOwn("constructor", ctor, object.DontEnum)
}
