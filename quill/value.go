package quill

import (
	"math"
	"strconv"
	"strings"
)

type ValueKind int

const (
	KindUndefined ValueKind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindObject
	KindFunction
)

func (k ValueKind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Value is a script value. The zero Value is undefined. Objects and functions
// share the *Object representation and differ only in kind.
type Value struct {
	kind ValueKind
	data any
}

func Undefined() Value          { return Value{} }
func Null() Value               { return Value{kind: KindNull} }
func NewBool(b bool) Value      { return Value{kind: KindBool, data: b} }
func NewNumber(f float64) Value { return Value{kind: KindNumber, data: f} }
func NewString(s string) Value  { return Value{kind: KindString, data: s} }

// NewObjectValue wraps obj, reporting KindFunction for callable objects.
func NewObjectValue(obj *Object) Value {
	if obj == nil {
		return Null()
	}
	if obj.fn != nil {
		return Value{kind: KindFunction, data: obj}
	}
	return Value{kind: KindObject, data: obj}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

func (v Value) IsNullish() bool { return v.kind == KindUndefined || v.kind == KindNull }

// IsObject reports whether v references an object, including functions.
func (v Value) IsObject() bool { return v.kind == KindObject || v.kind == KindFunction }

func (v Value) IsCallable() bool { return v.kind == KindFunction }

func (v Value) Bool() bool {
	if v.kind == KindBool {
		return v.data.(bool)
	}
	return false
}

func (v Value) Number() float64 {
	if v.kind == KindNumber {
		return v.data.(float64)
	}
	return math.NaN()
}

// Str returns the contents of a string value and "" for every other kind.
func (v Value) Str() string {
	if v.kind == KindString {
		return v.data.(string)
	}
	return ""
}

func (v Value) Object() *Object {
	if v.kind == KindObject || v.kind == KindFunction {
		return v.data.(*Object)
	}
	return nil
}

// String renders v the way the script-level String() conversion would for
// primitives; objects render a short inspection form.
func (v Value) String() string {
	if v.IsObject() {
		return v.inspect(0, nil)
	}
	return primitiveToString(v)
}

// describe is used in Go-facing error messages.
func (v Value) describe() string {
	if obj := v.Object(); obj != nil && obj.Class == classError {
		name := primitiveToString(obj.get("name"))
		msg := primitiveToString(obj.get("message"))
		if msg == "" {
			return name
		}
		return name + ": " + msg
	}
	return v.String()
}

// Export converts v to plain Go data: nil, bool, float64, string, []any or
// map[string]any. Functions export as nil.
func (v Value) Export() any {
	return v.export(nil)
}

func (v Value) export(seen map[*Object]bool) any {
	switch v.kind {
	case KindBool:
		return v.Bool()
	case KindNumber:
		return v.Number()
	case KindString:
		return v.Str()
	case KindObject:
		obj := v.Object()
		if seen[obj] {
			return nil
		}
		if seen == nil {
			seen = map[*Object]bool{}
		}
		seen[obj] = true
		defer delete(seen, obj)
		if obj.isArrayLike() {
			out := make([]any, len(obj.array))
			for i, elem := range obj.array {
				out[i] = elem.export(seen)
			}
			return out
		}
		out := make(map[string]any, len(obj.keys))
		for _, key := range obj.ownKeys() {
			out[key] = obj.get(key).export(seen)
		}
		return out
	default:
		return nil
	}
}

const inspectDepth = 3

func (v Value) inspect(depth int, seen map[*Object]bool) string {
	switch v.kind {
	case KindString:
		if depth > 0 {
			return strconv.Quote(v.Str())
		}
		return v.Str()
	case KindFunction:
		name := v.Object().fn.Name
		if name == "" {
			return "[Function (anonymous)]"
		}
		return "[Function: " + name + "]"
	case KindObject:
	default:
		return primitiveToString(v)
	}

	obj := v.Object()
	switch obj.Class {
	case classError:
		return v.describe()
	case classDate:
		if t, ok := obj.internal.(float64); ok {
			return formatISODate(t)
		}
	case classRegExp:
		if re, ok := obj.internal.(*regexpData); ok {
			return "/" + re.source + "/" + re.flags
		}
	}
	if seen[obj] {
		return "[Circular]"
	}
	if depth >= inspectDepth {
		if obj.isArrayLike() {
			return "[Array]"
		}
		return "[Object]"
	}
	if seen == nil {
		seen = map[*Object]bool{}
	}
	seen[obj] = true
	defer delete(seen, obj)

	parts := []string{}
	if obj.isArrayLike() {
		for _, elem := range obj.array {
			parts = append(parts, elem.inspect(depth+1, seen))
		}
		for _, key := range obj.keys {
			if obj.props[key].hidden {
				continue
			}
			parts = append(parts, key+": "+obj.props[key].value.inspect(depth+1, seen))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	for _, key := range obj.ownKeys() {
		parts = append(parts, inspectKey(key)+": "+obj.get(key).inspect(depth+1, seen))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func inspectKey(key string) string {
	if key == "" {
		return `""`
	}
	for i, r := range key {
		if !isIdentifierRune(r) || (i == 0 && isDigit(r)) {
			return strconv.Quote(key)
		}
	}
	return key
}
