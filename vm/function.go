package vm

import (
	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/errz"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
)

// registerPool recycles register files of one closure.
type registerPool struct {
	size int
	free [][]object.Value
}

func (p *registerPool) get() []object.Value {
	if n := len(p.free); n > 0 {
		regs := p.free[n-1]
		p.free = p.free[:n-1]
		return regs
	}
	return make([]object.Value, p.size)
}

func (p *registerPool) put(regs []object.Value) {
	clear(regs)
	if len(p.free) >= maxCachedRegisters {
		return
	}
	p.free = append(p.free, regs)
}

// closure is a script function. It captures the scope chain, constant
// pool and innermost scope of the code that defined it.
type closure struct {
	vm           *VirtualMachine
	def          *bytecode.FunctionDef
	fn           *object.Function
	scopes       *scopeLink
	constantPool []object.Value
	skipArgs     map[int]bool
	registers    registerPool
}

// defineFunction creates the function object for a DefineFunction or
// DefineFunction2 action executed in ex.
func (ex *execution) defineFunction(code op.Code, def *bytecode.FunctionDef) *object.Function {
	size := DefaultRegisters
	if code == op.DefineFunction2 {
		size = min(def.RegisterCount, MaxRegisters)
		size = max(size, len(def.Allocation)+1)
	}
	c := &closure{
		vm:           ex.vm,
		def:          def,
		scopes:       ex.scopes,
		constantPool: ex.constantPool,
		registers:    registerPool{size: size},
	}
	for _, binding := range def.Allocation {
		if binding.Kind == bytecode.BindArgument {
			if c.skipArgs == nil {
				c.skipArgs = map[int]bool{}
			}
			c.skipArgs[binding.Index] = true
		}
	}
	c.fn = object.NewFunction(def.Name, c)
	if proto := c.fn.Prototype(); proto != nil {
		proto.SetProto(ex.vm.objectProto)
	}
	return c.fn
}

// Call runs the function body in a fresh activation.
func (c *closure) Call(this object.Value, args []object.Value) (object.Value, error) {
	vm := c.vm
	if vm.prohibited {
		return object.Undefined, nil
	}
	if vm.stackDepth+1 >= vm.config.MaxRecursion {
		return nil, errz.NewFatalError(errz.RecursionLimit)
	}
	vm.stackDepth++
	defer func() { vm.stackDepth-- }()

	def := c.def
	thisObj := c.receiver(this)
	frame := vm.pushFrame(thisObj, c.fn, args)
	defer vm.popFrame()

	activation := object.NewPlainObject(nil)
	if def.Suppress&bytecode.SuppressArguments == 0 {
		activation.Put("arguments", object.NewArray(vm.arrayProto, args))
	}
	if def.Suppress&bytecode.SuppressThis == 0 {
		activation.Put("this", thisObj)
	}
	var super *object.Super
	if def.Suppress&bytecode.SuppressSuper == 0 {
		super = object.NewSuper(frame)
		activation.Put("super", super)
	}
	scopes := c.scopes.create(activation)

	registers := c.registers.get()
	defer c.registers.put(registers)
	for i, binding := range def.Allocation {
		if i >= len(registers) {
			break
		}
		switch binding.Kind {
		case bytecode.BindArgument:
			if binding.Index < len(args) {
				registers[i] = args[binding.Index]
			}
		case bytecode.BindThis:
			registers[i] = thisObj
		case bytecode.BindArguments:
			registers[i] = object.NewArray(vm.arrayProto, args)
		case bytecode.BindSuper:
			if super == nil {
				super = object.NewSuper(frame)
			}
			registers[i] = super
		case bytecode.BindGlobal:
			registers[i] = vm.globals
		case bytecode.BindParent:
			registers[i] = c.scopes.scope.Get("_parent")
		case bytecode.BindRoot:
			if root, err := vm.ResolveLevel(0); err == nil {
				registers[i] = root
			}
		}
	}
	for i, name := range def.Params {
		if c.skipArgs[i] {
			continue
		}
		var arg object.Value = object.Undefined
		if i < len(args) {
			arg = args[i]
		}
		activation.Put(name, arg)
	}

	savedCurrent := vm.currentTarget
	vm.currentTarget = nil
	defer func() { vm.currentTarget = savedCurrent }()

	if !vm.observeCall(def.Name, len(args)) {
		return nil, ErrHalted
	}
	result, _, err := vm.run(def.Body, scopes, c.constantPool, registers)
	if err != nil {
		return nil, err
	}
	if !vm.observeReturn(def.Name) {
		return nil, ErrHalted
	}
	if result == nil {
		result = object.Undefined
	}
	return result, nil
}

// receiver picks the activation's this. Calls without a receiver, or
// with the global object, use the innermost scope of the defining code.
func (c *closure) receiver(this object.Value) object.Object {
	switch t := this.(type) {
	case nil, object.UndefinedType, object.NullType:
		return c.scopes.scope
	case *object.PlainObject:
		if t == c.vm.globals {
			return c.scopes.scope
		}
		return t
	case object.Object:
		return t
	default:
		return object.ToObject(this)
	}
}

func (vm *VirtualMachine) observeCall(name string, argc int) bool {
	if vm.observer == nil || !vm.obsCfg.ObserveCalls {
		return true
	}
	return vm.observer.OnCall(CallEvent{
		FunctionName: name,
		ArgCount:     argc,
		FrameDepth:   vm.frameDepth,
	})
}

func (vm *VirtualMachine) observeReturn(name string) bool {
	if vm.observer == nil || !vm.obsCfg.ObserveReturns {
		return true
	}
	return vm.observer.OnReturn(ReturnEvent{
		FunctionName: name,
		FrameDepth:   vm.frameDepth - 1,
	})
}

// construct creates an instance with ctor. Non-function constructors
// yield nil.
func (vm *VirtualMachine) construct(ctor object.Value, args []object.Value) (object.Value, error) {
	fn, ok := ctor.(*object.Function)
	if !ok {
		return nil, nil
	}
	proto := fn.Prototype()
	if proto == nil {
		proto = vm.objectProto
	}
	obj := object.NewPlainObject(proto)
	obj.DefineOwn("__constructor__", fn, object.DontEnum)
	result, err := fn.Call(obj, args)
	if err != nil {
		return nil, err
	}
	if r, ok := result.(object.Object); ok {
		return r, nil
	}
	return obj, nil
}

// instanceOf walks the prototype chain of v looking for the prototype of
// ctor, then checks the interfaces registered on the constructors found
// along the chain.
func instanceOf(v object.Value, ctor object.Value) bool {
	obj, ok := v.(object.Object)
	if !ok {
		return false
	}
	fn, ok := ctor.(*object.Function)
	if !ok {
		return false
	}
	target := fn.Prototype()
	if target == nil {
		return false
	}
	for p := obj.Proto(); p != nil; p = p.Proto() {
		if p == target {
			return true
		}
	}
	seen := map[*object.Function]bool{}
	for p := obj.Proto(); p != nil; p = p.Proto() {
		c, ok := p.Get("constructor").(*object.Function)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		for _, iface := range c.Interfaces {
			if iface == object.Object(fn) {
				return true
			}
		}
	}
	return false
}
