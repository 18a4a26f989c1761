// Package object provides the value model of the actionvm engine.
//
// Primitive values are the Go types Bool, Number and String plus the
// Undefined and Null singletons. Everything else satisfies the Object
// capability interface and is one of a closed set of variants:
//
//	switch obj := v.(type) {
//	case *object.Function:
//		// callable
//	case *object.Super:
//		// super reference bound to a call frame
//	case object.Target:
//		// addressable clip in the target hierarchy
//	case *object.PlainObject:
//		// plain objects, arrays and boxed primitives
//	}
package object

import (
	"math"
	"strconv"
)

// Type of a value as a string.
type Type string

// Type constants. The values match what the TypeOf action reports.
const (
	UNDEFINED Type = "undefined"
	NULL      Type = "null"
	BOOLEAN   Type = "boolean"
	NUMBER    Type = "number"
	STRING    Type = "string"
	OBJECT    Type = "object"
	FUNCTION  Type = "function"
	MOVIECLIP Type = "movieclip"
)

// Value is implemented by every value the engine manipulates.
type Value interface {
	// Type of the value.
	Type() Type

	// Inspect returns a debug representation of the value.
	Inspect() string
}

// PropFlags are attribute flags attached to an own property.
type PropFlags uint8

const (
	DontEnum PropFlags = 1 << iota
	DontDelete
	ReadOnly
)

// Object is the capability interface shared by all object variants.
// Property names are compared exactly.
type Object interface {
	Value

	// HasProperty reports whether the object or its prototype chain has
	// the named property.
	HasProperty(name string) bool

	// HasOwnProperty reports whether the object itself has the property.
	HasOwnProperty(name string) bool

	// Get returns the property value found on the object or its
	// prototype chain, or Undefined.
	Get(name string) Value

	// Put assigns an own property.
	Put(name string, value Value)

	// Delete removes an own property and reports whether it was removed.
	Delete(name string) bool

	// Enumerate returns the enumerable property names of the object
	// followed by those of its prototype chain. Names may repeat.
	Enumerate() []string

	// Proto returns the prototype, or nil.
	Proto() Object

	// SetProto replaces the prototype.
	SetProto(proto Object)

	// DefineOwn assigns an own property with the given flags.
	DefineOwn(name string, value Value, flags PropFlags)
}

// Target is an addressable node in the clip hierarchy.
type Target interface {
	Object

	// ChildByName returns the named child clip.
	ChildByName(name string) (Target, bool)

	// Parent returns the parent clip, or nil for a root.
	Parent() Target

	// TargetPath returns the slash path of the clip ("/" for a root).
	TargetPath() string
}

// Callable is implemented by values that can be invoked as functions.
type Callable interface {
	Call(this Value, args []Value) (Value, error)
}

// CallableFunc adapts a Go function to the Callable interface.
type CallableFunc func(this Value, args []Value) (Value, error)

// Call invokes f.
func (f CallableFunc) Call(this Value, args []Value) (Value, error) {
	return f(this, args)
}

// UndefinedType is the type of the Undefined singleton.
type UndefinedType struct{}

func (UndefinedType) Type() Type      { return UNDEFINED }
func (UndefinedType) Inspect() string { return "undefined" }

// NullType is the type of the Null singleton.
type NullType struct{}

func (NullType) Type() Type      { return NULL }
func (NullType) Inspect() string { return "null" }

var (
	Undefined = UndefinedType{}
	Null      = NullType{}
	True      = Bool(true)
	False     = Bool(false)
)

// Bool is a boolean primitive.
type Bool bool

func (b Bool) Type() Type { return BOOLEAN }

func (b Bool) Inspect() string {
	if b {
		return "true"
	}
	return "false"
}

// Number is a numeric primitive. All numbers are IEEE-754 doubles.
type Number float64

func (n Number) Type() Type { return NUMBER }

func (n Number) Inspect() string {
	return FormatNumber(float64(n))
}

// String is a string primitive.
type String string

func (s String) Type() Type { return STRING }

func (s String) Inspect() string {
	return strconv.Quote(string(s))
}

// NaN is the not-a-number Number.
var NaN = Number(math.NaN())

// IsNullOrUndefined reports whether v is Null, Undefined or a Go nil.
func IsNullOrUndefined(v Value) bool {
	switch v.(type) {
	case nil, UndefinedType, NullType:
		return true
	}
	return false
}

// IsPrimitive reports whether v is not an Object.
func IsPrimitive(v Value) bool {
	_, isObj := v.(Object)
	return !isObj
}

