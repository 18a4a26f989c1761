package vm

import (
	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
)

func registerObjectOps() {
	register(op.GetVariable, opGetVariable)
	register(op.SetVariable, opSetVariable)
	register(op.DefineLocal, opDefineLocal)
	register(op.DefineLocal2, opDefineLocal2)
	register(op.Delete, opDelete)
	register(op.Delete2, opDelete2)
	register(op.CallFunction, opCallFunction)
	register(op.CallMethod, opCallMethod)
	register(op.NewObject, opNewObject)
	register(op.NewMethod, opNewMethod)
	register(op.GetMember, opGetMember)
	register(op.SetMember, opSetMember)
	register(op.InitArray, opInitArray)
	register(op.InitObject, opInitObject)
	register(op.Enumerate, opEnumerate)
	register(op.Enumerate2, opEnumerate2)
	register(op.TargetPath, opTargetPath)
	register(op.With, opWith)
	register(op.DefineFunction, opDefineFunction)
	register(op.DefineFunction2, opDefineFunction)
	register(op.InstanceOf, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ctor := ex.pop()
		obj := ex.pop()
		ex.push(object.Bool(instanceOf(obj, ctor)))
		return false, nil
	})
}

// opGetVariable pushes undefined with a warning when the variable cannot
// be resolved.
func opGetVariable(ex *execution, _ *bytecode.Item) (bool, error) {
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	holder, prop := ex.lookupGet(name)
	if holder == nil {
		ex.vm.warn("cannot look up variable '%s'", name)
		ex.push(object.Undefined)
		return false, nil
	}
	ex.push(holder.Get(prop))
	return false, nil
}

func opSetVariable(ex *execution, _ *bytecode.Item) (bool, error) {
	value := ex.pop()
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	holder, prop := ex.lookupSet(name)
	if holder == nil {
		return false, nil
	}
	holder.Put(prop, value)
	ex.vm.notifyPropertyChanged(prop)
	return false, nil
}

func opDefineLocal(ex *execution, _ *bytecode.Item) (bool, error) {
	value := ex.pop()
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	ex.scope().Put(name, value)
	return false, nil
}

func opDefineLocal2(ex *execution, _ *bytecode.Item) (bool, error) {
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	ex.scope().Put(name, object.Undefined)
	return false, nil
}

func opDelete(ex *execution, _ *bytecode.Item) (bool, error) {
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	obj := object.ToObject(ex.pop())
	deleted := obj != nil && obj.Delete(name)
	ex.push(object.Bool(deleted))
	if deleted {
		ex.vm.notifyPropertyChanged(name)
	}
	return false, nil
}

func opDelete2(ex *execution, _ *bytecode.Item) (bool, error) {
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	holder, prop := ex.lookupGet(name)
	if holder == nil {
		ex.vm.warn("cannot look up variable '%s'", name)
		ex.push(object.Bool(false))
		return false, nil
	}
	deleted := holder.Delete(prop)
	ex.push(object.Bool(deleted))
	if deleted {
		ex.vm.notifyPropertyChanged(prop)
	}
	return false, nil
}

// opCallFunction calls a function found by name. The object holding the
// variable becomes the receiver.
func opCallFunction(ex *execution, _ *bytecode.Item) (bool, error) {
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	args, err := ex.popArgs()
	if err != nil {
		return false, err
	}
	ex.push(object.Undefined)
	resultIndex := len(ex.stack) - 1
	holder, prop := ex.lookupGet(name)
	if holder == nil {
		ex.vm.warn("function '%s' is not defined", name)
		return false, nil
	}
	fn, ok := holder.Get(prop).(*object.Function)
	if !ok {
		ex.vm.warn("function '%s' is not callable", name)
		return false, nil
	}
	result, err := fn.Call(holder, args)
	if err != nil {
		return false, err
	}
	ex.stack[resultIndex] = orUndefined(result)
	return false, nil
}

// opCallMethod calls a method of an object. A blank method name calls the
// object itself; on a super reference it calls the parent constructor.
func opCallMethod(ex *execution, _ *bytecode.Item) (bool, error) {
	vm := ex.vm
	nameValue := ex.pop()
	target := ex.pop()
	args, err := ex.popArgs()
	if err != nil {
		return false, err
	}
	ex.push(object.Undefined)
	resultIndex := len(ex.stack) - 1

	if object.IsNullOrUndefined(target) {
		vm.warn("cannot call method on undefined object")
		return false, nil
	}
	blank := object.IsNullOrUndefined(nameValue)
	var name string
	if !blank {
		if name, err = ex.toString(nameValue); err != nil {
			return false, err
		}
		blank = name == ""
	}

	var (
		fn    *object.Function
		this  object.Object
		super object.Object
	)
	if sup, ok := target.(*object.Super); ok {
		frame, _ := sup.Frame.(*callFrame)
		if frame == nil {
			vm.warn("super is not bound to a call frame")
			return false, nil
		}
		lookup := name
		if blank {
			lookup = "__constructor__"
		}
		super = vm.findSuperOwner(frame, lookup)
		if super == nil {
			vm.warn("super method '%s' is not found", lookup)
			return false, nil
		}
		fn, _ = super.Get(lookup).(*object.Function)
		this = frame.CurrentThis()
	} else if blank {
		// A blank name calls the container with itself as this.
		fn, _ = target.(*object.Function)
		if fn != nil {
			this = fn
		}
	} else {
		obj := object.ToObject(target)
		fn, _ = obj.Get(name).(*object.Function)
		this = obj
	}
	if fn == nil {
		vm.warn("method '%s' is not callable", name)
		return false, nil
	}

	frame := vm.frame
	if frame != nil {
		frame.setCallee(this, super, fn, args)
		defer frame.resetCallee()
	}
	var thisArg object.Value = object.Undefined
	if this != nil {
		thisArg = this
	}
	result, err := fn.Call(thisArg, args)
	if err != nil {
		return false, err
	}
	ex.stack[resultIndex] = orUndefined(result)
	return false, nil
}

func opNewObject(ex *execution, _ *bytecode.Item) (bool, error) {
	vm := ex.vm
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	args, err := ex.popArgs()
	if err != nil {
		return false, err
	}
	holder, prop := ex.lookupGet(name)
	if holder == nil {
		vm.warn("constructor '%s' is not defined", name)
		ex.push(object.Undefined)
		return false, nil
	}
	result, err := vm.construct(holder.Get(prop), args)
	if err != nil {
		return false, err
	}
	if result == nil {
		vm.warn("'%s' is not a constructor", name)
		result = object.Undefined
	}
	ex.push(result)
	return false, nil
}

func opNewMethod(ex *execution, _ *bytecode.Item) (bool, error) {
	vm := ex.vm
	nameValue := ex.pop()
	target := ex.pop()
	args, err := ex.popArgs()
	if err != nil {
		return false, err
	}
	obj := object.ToObject(target)
	if obj == nil {
		vm.warn("cannot construct a method of undefined object")
		ex.push(object.Undefined)
		return false, nil
	}
	ctor := object.Value(obj)
	name := ""
	if !object.IsNullOrUndefined(nameValue) {
		if name, err = ex.toString(nameValue); err != nil {
			return false, err
		}
	}
	if name != "" {
		ctor = obj.Get(name)
	}
	result, err := vm.construct(ctor, args)
	if err != nil {
		return false, err
	}
	if result == nil {
		vm.warn("method '%s' is not a constructor", name)
		result = object.Undefined
	}
	ex.push(result)
	return false, nil
}

// opGetMember reads a property. Reads through a super reference start at
// the prototype above the method owner.
func opGetMember(ex *execution, _ *bytecode.Item) (bool, error) {
	vm := ex.vm
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	target := ex.pop()
	if sup, ok := target.(*object.Super); ok {
		frame, _ := sup.Frame.(*callFrame)
		if owner := vm.findSuperOwner(frame, name); owner != nil {
			ex.push(owner.Get(name))
		} else {
			ex.push(object.Undefined)
		}
		return false, nil
	}
	obj := object.ToObject(target)
	if obj == nil {
		vm.warn("cannot get member '%s' of undefined object", name)
		ex.push(object.Undefined)
		return false, nil
	}
	ex.push(obj.Get(name))
	return false, nil
}

func opSetMember(ex *execution, _ *bytecode.Item) (bool, error) {
	vm := ex.vm
	value := ex.pop()
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	target := ex.pop()
	if _, ok := target.(*object.Super); ok {
		vm.warn("cannot set member '%s' of super", name)
		return false, nil
	}
	obj, ok := target.(object.Object)
	if !ok {
		if object.IsNullOrUndefined(target) {
			vm.warn("cannot set member '%s' of undefined object", name)
		}
		return false, nil
	}
	obj.Put(name, value)
	vm.notifyPropertyChanged(name)
	return false, nil
}

func opInitArray(ex *execution, _ *bytecode.Item) (bool, error) {
	args, err := ex.popArgs()
	if err != nil {
		return false, err
	}
	ex.push(object.NewArray(ex.vm.arrayProto, args))
	return false, nil
}

// opInitObject pops a count followed by value and name pairs.
func opInitObject(ex *execution, _ *bytecode.Item) (bool, error) {
	n, err := ex.popNumber()
	if err != nil {
		return false, err
	}
	count := ex.clampCount(n, len(ex.stack)/2)
	obj := object.NewPlainObject(ex.vm.objectProto)
	for i := 0; i < count; i++ {
		value := ex.pop()
		name, err := ex.popString()
		if err != nil {
			return false, err
		}
		obj.Put(name, value)
	}
	ex.push(obj)
	return false, nil
}

// opEnumerate pushes a null marker followed by the enumerable property
// names of a variable's value.
func opEnumerate(ex *execution, _ *bytecode.Item) (bool, error) {
	name, err := ex.popString()
	if err != nil {
		return false, err
	}
	ex.push(object.Null)
	holder, prop := ex.lookupGet(name)
	if holder == nil {
		ex.vm.warn("cannot look up variable '%s'", name)
		return false, nil
	}
	ex.pushNames(object.ToObject(holder.Get(prop)))
	return false, nil
}

func opEnumerate2(ex *execution, _ *bytecode.Item) (bool, error) {
	target := ex.pop()
	ex.push(object.Null)
	obj := object.ToObject(target)
	if obj == nil {
		ex.vm.warn("cannot enumerate properties of undefined object")
		return false, nil
	}
	ex.pushNames(obj)
	return false, nil
}

func (ex *execution) pushNames(obj object.Object) {
	if obj == nil {
		return
	}
	seen := map[string]bool{}
	for _, name := range obj.Enumerate() {
		if seen[name] {
			continue
		}
		seen[name] = true
		ex.push(object.String(name))
	}
}

func opTargetPath(ex *execution, _ *bytecode.Item) (bool, error) {
	if t, ok := ex.pop().(object.Target); ok {
		ex.push(object.String(t.TargetPath()))
	} else {
		ex.push(object.Undefined)
	}
	return false, nil
}

// opWith runs the body with the object pushed onto the scope chain.
func opWith(ex *execution, item *bytecode.Item) (bool, error) {
	obj := object.ToObject(ex.pop())
	if obj == nil {
		obj = object.NewPlainObject(ex.vm.objectProto)
	}
	value, returned, err := ex.runNested(item.Body, ex.scopes.create(obj))
	if err != nil {
		return false, err
	}
	if returned {
		ex.propagateReturn(value)
	}
	return false, nil
}

func opDefineFunction(ex *execution, item *bytecode.Item) (bool, error) {
	def := item.Function
	if def == nil {
		def = &bytecode.FunctionDef{}
	}
	fn := ex.defineFunction(item.Code, def)
	if def.Name != "" {
		ex.scope().Put(def.Name, fn)
	} else {
		ex.push(fn)
	}
	return false, nil
}

func orUndefined(v object.Value) object.Value {
	if v == nil {
		return object.Undefined
	}
	return v
}
