package vm

import (
	"github.com/deepnoodle-ai/actionvm/object"
)

// callFrame records one invocation. The callee fields describe the method
// call the frame is currently making and let a super call made by the
// callee continue the lookup one prototype further up.
type callFrame struct {
	prev       *callFrame
	this       object.Object
	fn         *object.Function
	args       []object.Value
	inSequence bool

	calleeThis  object.Object
	calleeSuper object.Object
	calleeFn    *object.Function
	calleeArgs  []object.Value
}

// CurrentThis returns the receiver of the invocation.
func (f *callFrame) CurrentThis() object.Object {
	return f.this
}

func (f *callFrame) setCallee(this, super object.Object, fn *object.Function, args []object.Value) {
	f.calleeThis = this
	f.calleeSuper = super
	f.calleeFn = fn
	f.calleeArgs = args
}

func (f *callFrame) resetCallee() {
	f.calleeThis = nil
	f.calleeSuper = nil
	f.calleeFn = nil
	f.calleeArgs = nil
}

func (vm *VirtualMachine) pushFrame(this object.Object, fn *object.Function, args []object.Value) *callFrame {
	prev := vm.frame
	f := &callFrame{
		prev: prev,
		this: this,
		fn:   fn,
		args: args,
	}
	f.inSequence = prev != nil && fn != nil &&
		prev.calleeThis == this && prev.calleeFn == fn
	vm.frame = f
	vm.frameDepth++
	return f
}

func (vm *VirtualMachine) popFrame() {
	if vm.frame != nil {
		vm.frame = vm.frame.prev
		vm.frameDepth--
	}
}

// findSuperOwner returns the prototype a super reference made in frame
// starts its lookup from. Before content version 6 super is unsupported.
func (vm *VirtualMachine) findSuperOwner(frame *callFrame, name string) object.Object {
	if vm.config.Version < 6 || frame == nil {
		return nil
	}
	var proto object.Object
	if frame.inSequence && frame.prev != nil {
		proto = frame.prev.calleeSuper
	}
	if proto == nil {
		proto = frame.this
		for proto != nil && !proto.HasOwnProperty(name) {
			proto = proto.Proto()
		}
		if proto == nil {
			return nil
		}
	}
	return proto.Proto()
}
