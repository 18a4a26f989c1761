package object

import (
	"fmt"
	"strconv"
	"strings"
)

// Class names used by PlainObject.
const (
	ClassObject  = "Object"
	ClassArray   = "Array"
	ClassBoolean = "Boolean"
	ClassNumber  = "Number"
	ClassString  = "String"
)

type property struct {
	value Value
	flags PropFlags
}

// PlainObject is an ordered property bag with a prototype link. Arrays
// and boxed primitives are PlainObjects with a different class.
type PlainObject struct {
	class     string
	keys      []string
	props     map[string]*property
	proto     Object
	primitive Value
}

// NewPlainObject returns an empty object with the given prototype.
func NewPlainObject(proto Object) *PlainObject {
	return &PlainObject{
		class: ClassObject,
		props: map[string]*property{},
		proto: proto,
	}
}

// NewArray returns an array holding the given values.
func NewArray(proto Object, values []Value) *PlainObject {
	arr := NewPlainObject(proto)
	arr.class = ClassArray
	for i, v := range values {
		arr.Put(strconv.Itoa(i), v)
	}
	arr.DefineOwn("length", Number(len(values)), DontEnum|DontDelete)
	return arr
}

// NewBoxed wraps a primitive value in an object.
func NewBoxed(proto Object, primitive Value) *PlainObject {
	obj := NewPlainObject(proto)
	obj.primitive = primitive
	switch primitive.(type) {
	case Bool:
		obj.class = ClassBoolean
	case Number:
		obj.class = ClassNumber
	case String:
		obj.class = ClassString
		obj.DefineOwn("length", Number(len([]rune(string(primitive.(String))))), DontEnum|DontDelete)
	}
	return obj
}

// Class returns the class name of the object.
func (o *PlainObject) Class() string {
	return o.class
}

// Primitive returns the boxed primitive, or nil.
func (o *PlainObject) Primitive() Value {
	return o.primitive
}

// IsArray reports whether the object was created as an array.
func (o *PlainObject) IsArray() bool {
	return o.class == ClassArray
}

// Values returns the array elements from 0 to length-1.
func (o *PlainObject) Values() []Value {
	n, ok := o.Get("length").(Number)
	if !ok || n <= 0 {
		return nil
	}
	values := make([]Value, int(n))
	for i := range values {
		values[i] = o.Get(strconv.Itoa(i))
	}
	return values
}

func (o *PlainObject) Type() Type {
	return OBJECT
}

func (o *PlainObject) Inspect() string {
	if o.primitive != nil {
		return fmt.Sprintf("%s(%s)", o.class, o.primitive.Inspect())
	}
	if o.IsArray() {
		var items []string
		for _, v := range o.Values() {
			items = append(items, v.Inspect())
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
	var items []string
	for _, k := range o.keys {
		p := o.props[k]
		if p.flags&DontEnum != 0 {
			continue
		}
		items = append(items, fmt.Sprintf("%s: %s", k, inspectShallow(p.value)))
	}
	return "{" + strings.Join(items, ", ") + "}"
}

func inspectShallow(v Value) string {
	switch v := v.(type) {
	case *PlainObject:
		if v.IsArray() || v.primitive != nil {
			return v.Inspect()
		}
		return "[object Object]"
	case nil:
		return "undefined"
	default:
		return v.Inspect()
	}
}

func (o *PlainObject) HasProperty(name string) bool {
	if o.HasOwnProperty(name) {
		return true
	}
	return o.proto != nil && o.proto.HasProperty(name)
}

func (o *PlainObject) HasOwnProperty(name string) bool {
	if name == "__proto__" {
		return o.proto != nil
	}
	_, ok := o.props[name]
	return ok
}

func (o *PlainObject) Get(name string) Value {
	if p, ok := o.props[name]; ok {
		return p.value
	}
	if name == "__proto__" {
		if o.proto == nil {
			return Undefined
		}
		return o.proto
	}
	if o.proto != nil {
		return o.proto.Get(name)
	}
	return Undefined
}

func (o *PlainObject) Put(name string, value Value) {
	if name == "__proto__" {
		if proto, ok := value.(Object); ok {
			o.proto = proto
		} else if IsNullOrUndefined(value) {
			o.proto = nil
		}
		return
	}
	if p, ok := o.props[name]; ok {
		if p.flags&ReadOnly == 0 {
			p.value = value
		}
	} else {
		o.keys = append(o.keys, name)
		o.props[name] = &property{value: value}
	}
	if o.IsArray() {
		o.growLength(name)
	}
}

func (o *PlainObject) growLength(name string) {
	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 {
		return
	}
	p, ok := o.props["length"]
	if !ok {
		return
	}
	if n, ok := p.value.(Number); ok && float64(idx) >= float64(n) {
		p.value = Number(idx + 1)
	}
}

func (o *PlainObject) Delete(name string) bool {
	p, ok := o.props[name]
	if !ok || p.flags&DontDelete != 0 {
		return false
	}
	delete(o.props, name)
	for i, k := range o.keys {
		if k == name {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

func (o *PlainObject) Enumerate() []string {
	var names []string
	for _, k := range o.keys {
		if o.props[k].flags&DontEnum == 0 {
			names = append(names, k)
		}
	}
	if o.proto != nil {
		names = append(names, o.proto.Enumerate()...)
	}
	return names
}

func (o *PlainObject) Proto() Object {
	return o.proto
}

func (o *PlainObject) SetProto(proto Object) {
	o.proto = proto
}

func (o *PlainObject) DefineOwn(name string, value Value, flags PropFlags) {
	if p, ok := o.props[name]; ok {
		p.value = value
		p.flags = flags
		return
	}
	o.keys = append(o.keys, name)
	o.props[name] = &property{value: value, flags: flags}
}
