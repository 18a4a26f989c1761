package vm

import (
	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/errz"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
)

func registerClassOps() {
	register(op.Extends, opExtends)
	register(op.CastOp, opCastOp)
	register(op.ImplementsOp, opImplementsOp)
	register(op.Throw, func(ex *execution, _ *bytecode.Item) (bool, error) {
		return false, errz.NewScriptError(ex.pop(), ex.version())
	})
	register(op.Try, opTry)
}

// opExtends links the prototype of a constructor to the prototype of its
// superclass.
func opExtends(ex *execution, _ *bytecode.Item) (bool, error) {
	superCtor, ok := ex.pop().(*object.Function)
	if !ok {
		return false, errz.NewRuntimeErrorf("superclass is not a function")
	}
	ctor, ok := ex.pop().(*object.Function)
	if !ok {
		return false, errz.NewRuntimeErrorf("subclass is not a function")
	}
	proto := ctor.Prototype()
	if proto == nil {
		proto = object.NewPlainObject(nil)
		ctor.DefineOwn("prototype", proto, object.DontEnum)
	}
	if superProto := superCtor.Prototype(); superProto != nil {
		proto.SetProto(superProto)
	}
	proto.DefineOwn("__constructor__", superCtor, object.DontEnum)
	return false, nil
}

func opCastOp(ex *execution, _ *bytecode.Item) (bool, error) {
	obj := ex.pop()
	ctor := ex.pop()
	if instanceOf(obj, ctor) {
		ex.push(obj)
	} else {
		ex.push(object.Null)
	}
	return false, nil
}

// opImplementsOp records the interfaces a constructor implements.
func opImplementsOp(ex *execution, _ *bytecode.Item) (bool, error) {
	ctor := ex.pop()
	n, err := ex.popNumber()
	if err != nil {
		return false, err
	}
	count := ex.clampCount(n, len(ex.stack))
	interfaces := make([]object.Object, 0, count)
	for i := 0; i < count; i++ {
		if iface, ok := ex.pop().(object.Object); ok {
			interfaces = append(interfaces, iface)
		}
	}
	fn, ok := ctor.(*object.Function)
	if !ok {
		return false, errz.NewRuntimeErrorf("cannot register interfaces on a non-function")
	}
	fn.Interfaces = interfaces
	return false, nil
}

// opTry runs the try block, then the catch block for script exceptions,
// then the finally block. The finally block is skipped when execution
// is being torn down by a fatal error, cancellation or an observer halt.
func opTry(ex *execution, item *bytecode.Item) (bool, error) {
	vm := ex.vm
	def := item.Try
	if def == nil {
		return false, nil
	}

	saved := vm.tryListening
	vm.tryListening = true
	value, returned, err := ex.runNested(def.Try, ex.scopes)
	vm.tryListening = saved

	if err != nil && def.Catch != nil {
		if scriptErr, ok := errz.AsScriptError(err); ok {
			ex.bindCatch(def, scriptErr.Value)
			value, returned, err = ex.runNested(def.Catch, ex.scopes)
		}
	}

	if def.Finally != nil && (err == nil || !unwindsPastFinally(err)) {
		fvalue, freturned, ferr := ex.runNested(def.Finally, ex.scopes)
		if ferr != nil {
			return false, ferr
		}
		if freturned {
			value, returned, err = fvalue, true, nil
		}
	}
	if err != nil {
		return false, err
	}
	if returned {
		ex.propagateReturn(value)
	}
	return false, nil
}

func unwindsPastFinally(err error) bool {
	if _, ok := errz.AsScriptError(err); ok {
		return false
	}
	return unwinds(err)
}

func (ex *execution) bindCatch(def *bytecode.TryDef, value object.Value) {
	if def.CatchInRegister {
		if def.CatchRegister >= 0 && def.CatchRegister < len(ex.registers) {
			ex.registers[def.CatchRegister] = value
		}
		return
	}
	ex.scope().Put(def.CatchName, value)
}
