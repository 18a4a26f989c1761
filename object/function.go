package object

import "fmt"

// Function is a callable object. Its behavior is supplied by a Callable,
// which is either a script closure or a native Go function.
type Function struct {
	*PlainObject
	name string
	fn   Callable

	// Interfaces lists the interface constructors registered with the
	// ImplementsOp action.
	Interfaces []Object
}

// NewFunction returns a function object with a fresh prototype object
// whose constructor property points back at the function.
func NewFunction(name string, fn Callable) *Function {
	f := &Function{
		PlainObject: NewPlainObject(nil),
		name:        name,
		fn:          fn,
	}
	f.class = "Function"
	proto := NewPlainObject(nil)
	proto.DefineOwn("constructor", f, DontEnum)
	f.DefineOwn("prototype", proto, DontEnum)
	return f
}

// NewNativeFunction wraps a Go function.
func NewNativeFunction(name string, fn func(this Value, args []Value) (Value, error)) *Function {
	return NewFunction(name, CallableFunc(fn))
}

func (f *Function) Type() Type {
	return FUNCTION
}

func (f *Function) Inspect() string {
	if f.name == "" {
		return "function()"
	}
	return fmt.Sprintf("function %s()", f.name)
}

// Name returns the declared name, which may be empty.
func (f *Function) Name() string {
	return f.name
}

// Callable returns the underlying implementation.
func (f *Function) Callable() Callable {
	return f.fn
}

// Call invokes the function with the given receiver and arguments.
func (f *Function) Call(this Value, args []Value) (Value, error) {
	if f.fn == nil {
		return Undefined, nil
	}
	return f.fn.Call(this, args)
}

// Prototype returns the object stored in the prototype property, or nil.
func (f *Function) Prototype() Object {
	if proto, ok := f.Get("prototype").(Object); ok {
		return proto
	}
	return nil
}

// SuperFrame is the call frame a Super reference was created in.
type SuperFrame interface {
	// CurrentThis returns the receiver of the frame's invocation.
	CurrentThis() Object
}

// Super is the implicit super reference passed to a function. Member
// access on it is resolved by the engine relative to Frame.
type Super struct {
	*PlainObject
	Frame SuperFrame
}

// NewSuper returns a super reference bound to frame.
func NewSuper(frame SuperFrame) *Super {
	return &Super{
		PlainObject: NewPlainObject(nil),
		Frame:       frame,
	}
}

func (s *Super) Inspect() string {
	return "super"
}
