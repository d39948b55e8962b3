package quill

import (
	"errors"
	"slices"
	"strconv"
)

const (
	classObject    = "Object"
	classArray     = "Array"
	classArguments = "Arguments"
	classFunction  = "Function"
	classError     = "Error"
	classDate      = "Date"
	classRegExp    = "RegExp"
	classBoolean   = "Boolean"
	classNumber    = "Number"
	classString    = "String"
)

const (
	// maxPrototypeDepth bounds every prototype walk. setPrototype already
	// rejects cycles; the bound covers chains built by host code.
	maxPrototypeDepth = 1000
	maxArrayLength    = 1 << 22
)

var (
	errFrozenObject     = errors.New("object is frozen")
	errInvalidLength    = errors.New("invalid array length")
	errPrototypeCycle   = errors.New("cyclic prototype chain")
	errPrototypeTooDeep = errors.New("prototype chain too deep")
)

type property struct {
	value  Value
	hidden bool
}

// Object is the single heap representation for plain objects, arrays,
// functions and built-in instances. Array-like objects keep their elements in
// array; everything else lives in props, with keys preserving insertion order.
type Object struct {
	Class string

	proto    *Object
	props    map[string]*property
	keys     []string
	array    []Value
	fn       *Function
	internal any
	frozen   bool
}

func newObject(proto *Object) *Object {
	return &Object{Class: classObject, proto: proto, props: map[string]*property{}}
}

func newArrayObject(proto *Object, elems []Value) *Object {
	obj := newObject(proto)
	obj.Class = classArray
	obj.array = elems
	if obj.array == nil {
		obj.array = []Value{}
	}
	return obj
}

func (o *Object) isArrayLike() bool {
	return o.Class == classArray || o.Class == classArguments
}

// Proto returns the prototype reference, or nil.
func (o *Object) Proto() *Object { return o.proto }

// Get reads a property through the prototype chain.
func (o *Object) Get(key string) Value { return o.get(key) }

// Set writes an own property. Writes to frozen objects are ignored.
func (o *Object) Set(key string, v Value) { _ = o.put(key, v) }

// Keys lists own enumerable property names in property order.
func (o *Object) Keys() []string { return o.ownKeys() }

// Elements returns a copy of an array's elements, or nil for non-arrays.
func (o *Object) Elements() []Value {
	if !o.isArrayLike() {
		return nil
	}
	return slices.Clone(o.array)
}

// Internal returns the host data attached to the object, if any.
func (o *Object) Internal() any { return o.internal }

func (o *Object) SetInternal(data any) { o.internal = data }

func (o *Object) getOwn(key string) (Value, bool) {
	if o.isArrayLike() {
		if key == "length" {
			return NewNumber(float64(len(o.array))), true
		}
		if idx, ok := arrayIndex(key); ok {
			if idx < len(o.array) {
				return o.array[idx], true
			}
			return Value{}, false
		}
	}
	if o.fn != nil && key == "prototype" && o.fn.Prototype != nil {
		return NewObjectValue(o.fn.Prototype), true
	}
	if prop, ok := o.props[key]; ok {
		return prop.value, true
	}
	return Value{}, false
}

func (o *Object) hasOwn(key string) bool {
	_, ok := o.getOwn(key)
	return ok
}

func (o *Object) get(key string) Value {
	cur := o
	for depth := 0; cur != nil && depth < maxPrototypeDepth; depth++ {
		if v, ok := cur.getOwn(key); ok {
			return v
		}
		cur = cur.proto
	}
	return Value{}
}

func (o *Object) has(key string) bool {
	cur := o
	for depth := 0; cur != nil && depth < maxPrototypeDepth; depth++ {
		if cur.hasOwn(key) {
			return true
		}
		cur = cur.proto
	}
	return false
}

// put creates or overwrites an own property.
func (o *Object) put(key string, v Value) error {
	if o.frozen {
		return errFrozenObject
	}
	if o.isArrayLike() {
		if key == "length" {
			return o.setLength(v)
		}
		if idx, ok := arrayIndex(key); ok {
			return o.setIndex(idx, v)
		}
	}
	if o.fn != nil && key == "prototype" {
		o.fn.Prototype = v.Object()
		if o.fn.Prototype != nil {
			return nil
		}
	}
	if prop, ok := o.props[key]; ok {
		prop.value = v
		return nil
	}
	o.props[key] = &property{value: v}
	o.keys = append(o.keys, key)
	return nil
}

// defineHidden installs a non-enumerable own property, as used for built-in
// methods on prototypes.
func (o *Object) defineHidden(key string, v Value) {
	if prop, ok := o.props[key]; ok {
		prop.value = v
		prop.hidden = true
		return
	}
	o.props[key] = &property{value: v, hidden: true}
	o.keys = append(o.keys, key)
}

func (o *Object) setIndex(idx int, v Value) error {
	if idx < len(o.array) {
		o.array[idx] = v
		return nil
	}
	if idx >= maxArrayLength {
		return errInvalidLength
	}
	for len(o.array) < idx {
		o.array = append(o.array, Value{})
	}
	o.array = append(o.array, v)
	return nil
}

func (o *Object) setLength(v Value) error {
	n := v.Number()
	if v.kind != KindNumber || n < 0 || n != float64(int(n)) || n > maxArrayLength {
		return errInvalidLength
	}
	size := int(n)
	if size <= len(o.array) {
		clear(o.array[size:])
		o.array = o.array[:size]
		return nil
	}
	for len(o.array) < size {
		o.array = append(o.array, Value{})
	}
	return nil
}

func (o *Object) deleteKey(key string) bool {
	if o.frozen {
		return false
	}
	if o.isArrayLike() {
		if key == "length" {
			return false
		}
		if idx, ok := arrayIndex(key); ok {
			if idx < len(o.array) {
				o.array[idx] = Value{}
			}
			return true
		}
	}
	if _, ok := o.props[key]; !ok {
		return true
	}
	delete(o.props, key)
	if i := slices.Index(o.keys, key); i >= 0 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
	return true
}

// ownKeys lists own enumerable keys: array indices, then integer-like keys in
// ascending order, then the remaining keys in insertion order.
func (o *Object) ownKeys() []string {
	out := make([]string, 0, len(o.array)+len(o.keys))
	if o.isArrayLike() {
		for i := range o.array {
			out = append(out, strconv.Itoa(i))
		}
	}
	var integers []int
	for _, key := range o.keys {
		if o.props[key].hidden {
			continue
		}
		if idx, ok := arrayIndex(key); ok {
			integers = append(integers, idx)
		}
	}
	slices.Sort(integers)
	for _, idx := range integers {
		out = append(out, strconv.Itoa(idx))
	}
	for _, key := range o.keys {
		if o.props[key].hidden {
			continue
		}
		if _, ok := arrayIndex(key); ok {
			continue
		}
		out = append(out, key)
	}
	return out
}

// setPrototype rejects any change that would make o reachable from its own
// prototype chain.
func (o *Object) setPrototype(proto *Object) error {
	cur := proto
	for depth := 0; cur != nil; depth++ {
		if cur == o {
			return errPrototypeCycle
		}
		if depth >= maxPrototypeDepth {
			return errPrototypeTooDeep
		}
		cur = cur.proto
	}
	o.proto = proto
	return nil
}

// inherits reports whether proto appears on o's prototype chain.
func (o *Object) inherits(proto *Object) bool {
	cur := o.proto
	for depth := 0; cur != nil && depth < maxPrototypeDepth; depth++ {
		if cur == proto {
			return true
		}
		cur = cur.proto
	}
	return false
}

// arrayIndex parses canonical array index keys ("0", "17"; not "01" or "-1").
func arrayIndex(key string) (int, bool) {
	if key == "" || len(key) > 10 {
		return 0, false
	}
	if len(key) > 1 && key[0] == '0' {
		return 0, false
	}
	n := 0
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n >= 1<<32-1 {
		return 0, false
	}
	return n, true
}
