package object

import (
	"math"
	"strconv"
	"strings"
)

// Hint selects the preferred result of ToPrimitive.
type Hint int

const (
	HintNone Hint = iota
	HintNumber
	HintString
)

// *****************************************************************************
// Primitive conversion
// *****************************************************************************

// ToPrimitive converts v to a primitive value. Objects are converted by
// calling their valueOf and toString methods in hint order; values that
// have neither fall back to a default representation.
func ToPrimitive(v Value, hint Hint, version int) (Value, error) {
	obj, ok := v.(Object)
	if !ok {
		if v == nil {
			return Undefined, nil
		}
		return v, nil
	}
	if plain, ok := obj.(*PlainObject); ok && plain.primitive != nil {
		return plain.primitive, nil
	}
	methods := []string{"valueOf", "toString"}
	if hint == HintString {
		methods = []string{"toString", "valueOf"}
	}
	for _, name := range methods {
		fn, ok := obj.Get(name).(*Function)
		if !ok {
			continue
		}
		result, err := fn.Call(obj, nil)
		if err != nil {
			return nil, err
		}
		if IsPrimitive(result) {
			if result == nil {
				return Undefined, nil
			}
			return result, nil
		}
	}
	return defaultPrimitive(obj, version)
}

func defaultPrimitive(obj Object, version int) (Value, error) {
	switch obj := obj.(type) {
	case Target:
		return String(DotPath(obj)), nil
	case *Function:
		return String("[type Function]"), nil
	case *PlainObject:
		if obj.IsArray() {
			parts := make([]string, 0)
			for _, item := range obj.Values() {
				if IsNullOrUndefined(item) {
					parts = append(parts, "")
					continue
				}
				s, err := ToString(item, version)
				if err != nil {
					return nil, err
				}
				parts = append(parts, s)
			}
			return String(strings.Join(parts, ",")), nil
		}
	}
	return String("[object Object]"), nil
}

// DotPath returns the dot-separated form of a target's path, rooted at
// _level0.
func DotPath(t Target) string {
	path := t.TargetPath()
	if path == "/" || path == "" {
		return "_level0"
	}
	return "_level0" + strings.ReplaceAll(path, "/", ".")
}

// *****************************************************************************
// Number conversion
// *****************************************************************************

// ToNumber converts v to a number using the rules of the given content
// version.
func ToNumber(v Value, version int) (float64, error) {
	switch v := v.(type) {
	case Number:
		return float64(v), nil
	case Bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case String:
		return ParseNumber(string(v), version), nil
	case nil, UndefinedType, NullType:
		if version >= 7 {
			return math.NaN(), nil
		}
		return 0, nil
	}
	prim, err := ToPrimitive(v, HintNumber, version)
	if err != nil {
		return 0, err
	}
	if _, isObj := prim.(Object); isObj {
		return math.NaN(), nil
	}
	return ToNumber(prim, version)
}

// ParseNumber converts a string to a number. Unparseable strings are NaN
// from version 5 onward and zero before it.
func ParseNumber(s string, version int) float64 {
	t := strings.TrimSpace(s)
	if t == "" {
		if version >= 7 {
			return math.NaN()
		}
		return 0
	}
	invalid := math.NaN()
	if version < 5 {
		invalid = 0
	}
	switch t {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	lower := strings.ToLower(t)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(lower, "_") {
		return invalid
	}
	if strings.HasPrefix(lower, "0x") {
		n, err := strconv.ParseInt(t[2:], 16, 64)
		if err != nil {
			return invalid
		}
		return float64(n)
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return invalid
	}
	return f
}

// ToInt32 converts v to a signed 32-bit integer.
func ToInt32(v Value, version int) (int32, error) {
	f, err := ToNumber(v, version)
	if err != nil {
		return 0, err
	}
	return Int32(f), nil
}

// Int32 applies the ECMAScript ToInt32 wrapping to f.
func Int32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	f = math.Mod(f, 4294967296)
	if f < 0 {
		f += 4294967296
	}
	return int32(uint32(f))
}

// ToInteger truncates the numeric value of v toward zero.
func ToInteger(v Value, version int) (float64, error) {
	f, err := ToNumber(v, version)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, nil
	}
	return math.Trunc(f), nil
}

// FormatNumber renders a number the way script code prints it.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// *****************************************************************************
// String and boolean conversion
// *****************************************************************************

// ToString converts v to a string using the rules of the given content
// version.
func ToString(v Value, version int) (string, error) {
	switch v := v.(type) {
	case String:
		return string(v), nil
	case Number:
		return FormatNumber(float64(v)), nil
	case Bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case nil, UndefinedType:
		if version >= 7 {
			return "undefined", nil
		}
		return "", nil
	case NullType:
		return "null", nil
	}
	prim, err := ToPrimitive(v, HintString, version)
	if err != nil {
		return "", err
	}
	if _, isObj := prim.(Object); isObj {
		return "[object Object]", nil
	}
	return ToString(prim, version)
}

// ToBoolean converts v to a boolean. Before version 7 strings are true
// only when their numeric value is non-zero.
func ToBoolean(v Value, version int) bool {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Number:
		f := float64(v)
		return f != 0 && !math.IsNaN(f)
	case String:
		if version >= 7 {
			return v != ""
		}
		f := ParseNumber(string(v), version)
		return f != 0 && !math.IsNaN(f)
	case nil, UndefinedType, NullType:
		return false
	}
	return true
}

// ToObject boxes primitives. Null and undefined yield nil.
func ToObject(v Value) Object {
	switch v := v.(type) {
	case Object:
		return v
	case nil, UndefinedType, NullType:
		return nil
	default:
		return NewBoxed(nil, v)
	}
}

// *****************************************************************************
// Equality, ordering and typeof
// *****************************************************************************

// StrictEquals compares without coercion.
func StrictEquals(a, b Value) bool {
	if a == nil {
		a = Undefined
	}
	if b == nil {
		b = Undefined
	}
	if a.Type() != b.Type() {
		return false
	}
	return a == b
}

// Equals2 implements the coercing equality comparison.
func Equals2(a, b Value, version int) (bool, error) {
	if a == nil {
		a = Undefined
	}
	if b == nil {
		b = Undefined
	}
	if a.Type() == b.Type() {
		return a == b, nil
	}
	if IsNullOrUndefined(a) && IsNullOrUndefined(b) {
		return true, nil
	}
	if IsNullOrUndefined(a) || IsNullOrUndefined(b) {
		return false, nil
	}
	if _, ok := a.(Bool); ok {
		n, _ := ToNumber(a, version)
		return Equals2(Number(n), b, version)
	}
	if _, ok := b.(Bool); ok {
		n, _ := ToNumber(b, version)
		return Equals2(a, Number(n), version)
	}
	aObj, aIsObj := a.(Object)
	bObj, bIsObj := b.(Object)
	switch {
	case aIsObj && bIsObj:
		return aObj == bObj, nil
	case aIsObj:
		prim, err := ToPrimitive(aObj, HintNone, version)
		if err != nil {
			return false, err
		}
		if !IsPrimitive(prim) {
			return false, nil
		}
		return Equals2(prim, b, version)
	case bIsObj:
		prim, err := ToPrimitive(bObj, HintNone, version)
		if err != nil {
			return false, err
		}
		if !IsPrimitive(prim) {
			return false, nil
		}
		return Equals2(a, prim, version)
	}
	// Remaining cases mix a number and a string.
	an, err := ToNumber(a, version)
	if err != nil {
		return false, err
	}
	bn, err := ToNumber(b, version)
	if err != nil {
		return false, err
	}
	return an == bn, nil
}

// Compare implements the abstract relational comparison a < b. The
// result is Undefined when either operand converts to NaN.
func Compare(a, b Value, version int) (Value, error) {
	pa, err := ToPrimitive(a, HintNumber, version)
	if err != nil {
		return nil, err
	}
	pb, err := ToPrimitive(b, HintNumber, version)
	if err != nil {
		return nil, err
	}
	sa, aIsStr := pa.(String)
	sb, bIsStr := pb.(String)
	if aIsStr && bIsStr {
		return Bool(sa < sb), nil
	}
	na, err := ToNumber(pa, version)
	if err != nil {
		return nil, err
	}
	nb, err := ToNumber(pb, version)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(na) || math.IsNaN(nb) {
		return Undefined, nil
	}
	return Bool(na < nb), nil
}

// TypeOf returns the type name reported by the TypeOf action.
func TypeOf(v Value) Type {
	switch v.(type) {
	case nil:
		return UNDEFINED
	case Target:
		return MOVIECLIP
	}
	return v.Type()
}
