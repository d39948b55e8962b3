package quill

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// realm holds the intrinsic objects of one Context. Registration is a pure
// function of the realm: nothing is shared between contexts.
type realm struct {
	context *Context
	global  *Object

	objectPrototype   *Object
	functionPrototype *Object
	arrayPrototype    *Object
	stringPrototype   *Object
	numberPrototype   *Object
	booleanPrototype  *Object
	errorPrototype    *Object
	datePrototype     *Object
	regexpPrototype   *Object
	errorPrototypes   map[string]*Object
}

func newRealm(c *Context) *realm {
	r := &realm{context: c, errorPrototypes: map[string]*Object{}}
	r.objectPrototype = newObject(nil)
	r.functionPrototype = newObject(r.objectPrototype)
	r.global = newObject(r.objectPrototype)

	r.installObject()
	r.installFunction()
	r.installArray()
	r.installString()
	r.installNumber()
	r.installBoolean()
	r.installMath()
	r.installJSON()
	r.installDate()
	r.installRegExp()
	r.installErrors()
	r.installGlobals()
	r.installConsole()
	return r
}

func (r *realm) method(obj *Object, name string, arity int, fn NativeFunc) {
	obj.defineHidden(name, r.newNative(name, arity, fn))
}

func (r *realm) defineGlobal(name string, v Value) {
	r.global.defineHidden(name, v)
}

func (r *realm) wrapPrimitive(v Value) *Object {
	var obj *Object
	switch v.kind {
	case KindString:
		obj = newObject(r.stringPrototype)
		obj.Class = classString
		obj.defineHidden("length", NewNumber(float64(utf16Length(v.Str()))))
	case KindNumber:
		obj = newObject(r.numberPrototype)
		obj.Class = classNumber
	default:
		obj = newObject(r.booleanPrototype)
		obj.Class = classBoolean
	}
	obj.internal = v
	return obj
}

// primitiveOf unwraps String, Number and Boolean wrapper objects.
func primitiveOf(v Value) (Value, bool) {
	obj := v.Object()
	if obj == nil {
		return v, true
	}
	switch obj.Class {
	case classString, classNumber, classBoolean:
		if prim, ok := obj.internal.(Value); ok {
			return prim, true
		}
	}
	return v, false
}

func (r *realm) installObject() {
	proto := r.objectPrototype
	ctor := r.newConstructor("Object", 1, proto,
		func(exec *Execution, this Value, args []Value) (Value, error) {
			return objectFromArg(exec, argOr(args, 0))
		},
		func(exec *Execution, this Value, args []Value) (Value, error) {
			return objectFromArg(exec, argOr(args, 0))
		})
	r.defineGlobal("Object", NewObjectValue(ctor))

	r.method(ctor, "create", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		protoArg := argOr(args, 0)
		if protoArg.kind != KindNull && !protoArg.IsObject() {
			return Value{}, exec.throwTypeError("Object prototype may only be an Object or null")
		}
		obj := newObject(protoArg.Object())
		if props := argOr(args, 1); props.IsObject() {
			for _, key := range props.Object().ownKeys() {
				if err := defineFromDescriptor(exec, obj, key, props.Object().get(key)); err != nil {
					return Value{}, err
				}
			}
		}
		return NewObjectValue(obj), nil
	})
	r.method(ctor, "keys", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj, err := exec.toObject(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		return exec.newStringArray(ownKeysOf(obj)), nil
	})
	r.method(ctor, "getOwnPropertyNames", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj, err := exec.toObject(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		keys := ownKeysOf(obj)
		for _, key := range obj.keys {
			if obj.props[key].hidden {
				keys = append(keys, key)
			}
		}
		if obj.isArrayLike() {
			keys = append(keys, "length")
		}
		return exec.newStringArray(keys), nil
	})
	r.method(ctor, "values", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj, err := exec.toObject(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		keys := ownKeysOf(obj)
		vals := make([]Value, len(keys))
		for i, key := range keys {
			vals[i] = obj.get(key)
		}
		return exec.newArray(vals), nil
	})
	r.method(ctor, "entries", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj, err := exec.toObject(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		keys := ownKeysOf(obj)
		entries := make([]Value, len(keys))
		for i, key := range keys {
			entries[i] = exec.newArray([]Value{NewString(key), obj.get(key)})
		}
		return exec.newArray(entries), nil
	})
	r.method(ctor, "fromEntries", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		items, err := exec.iterate(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		obj := newObject(exec.realm.objectPrototype)
		for _, item := range items {
			pair := item.Object()
			if pair == nil {
				return Value{}, exec.throwTypeError("Iterator value %s is not an entry object", primitiveToString(item))
			}
			key, err := exec.toPropertyKey(pair.get("0"))
			if err != nil {
				return Value{}, err
			}
			_ = obj.put(key, pair.get("1"))
		}
		return NewObjectValue(obj), nil
	})
	r.method(ctor, "assign", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		target, err := exec.toObject(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		for _, source := range args[min(1, len(args)):] {
			if source.IsObject() {
				src := source.Object()
				for _, key := range src.ownKeys() {
					if err := target.put(key, src.get(key)); err != nil {
						return Value{}, exec.propertyWriteError(err, key)
					}
				}
				continue
			}
			exec.copyDataProperties(target, source)
		}
		return NewObjectValue(target), nil
	})
	r.method(ctor, "freeze", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		if obj := argOr(args, 0).Object(); obj != nil {
			obj.frozen = true
		}
		return argOr(args, 0), nil
	})
	r.method(ctor, "isFrozen", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj := argOr(args, 0).Object()
		return NewBool(obj == nil || obj.frozen), nil
	})
	r.method(ctor, "getPrototypeOf", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj, err := exec.toObject(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		return NewObjectValue(obj.proto), nil
	})
	r.method(ctor, "setPrototypeOf", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		target, protoArg := argOr(args, 0), argOr(args, 1)
		if protoArg.kind != KindNull && !protoArg.IsObject() {
			return Value{}, exec.throwTypeError("Object prototype may only be an Object or null")
		}
		obj := target.Object()
		if obj == nil {
			return target, nil
		}
		if obj.frozen {
			return Value{}, exec.throwTypeError("Cannot set prototype of a frozen object")
		}
		if err := obj.setPrototype(protoArg.Object()); err != nil {
			return Value{}, exec.throwTypeError("Cyclic __proto__ value")
		}
		return target, nil
	})
	r.method(ctor, "defineProperty", 3, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj := argOr(args, 0).Object()
		if obj == nil {
			return Value{}, exec.throwTypeError("Object.defineProperty called on non-object")
		}
		key, err := exec.toPropertyKey(argOr(args, 1))
		if err != nil {
			return Value{}, err
		}
		if err := defineFromDescriptor(exec, obj, key, argOr(args, 2)); err != nil {
			return Value{}, err
		}
		return argOr(args, 0), nil
	})

	r.method(proto, "hasOwnProperty", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj, err := exec.toObject(this)
		if err != nil {
			return Value{}, err
		}
		key, err := exec.toPropertyKey(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		if this.kind == KindString {
			idx, ok := arrayIndex(key)
			return NewBool(key == "length" || (ok && idx < utf16Length(this.Str()))), nil
		}
		return NewBool(obj.hasOwn(key)), nil
	})
	r.method(proto, "isPrototypeOf", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		self, other := this.Object(), argOr(args, 0).Object()
		if self == nil || other == nil {
			return NewBool(false), nil
		}
		return NewBool(other.inherits(self)), nil
	})
	r.method(proto, "propertyIsEnumerable", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj, err := exec.toObject(this)
		if err != nil {
			return Value{}, err
		}
		key, err := exec.toPropertyKey(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		if prop, ok := obj.props[key]; ok {
			return NewBool(!prop.hidden), nil
		}
		_, isIndex := arrayIndex(key)
		return NewBool(isIndex && obj.isArrayLike() && obj.hasOwn(key)), nil
	})
	r.method(proto, "toString", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		switch this.kind {
		case KindUndefined:
			return NewString("[object Undefined]"), nil
		case KindNull:
			return NewString("[object Null]"), nil
		}
		obj, err := exec.toObject(this)
		if err != nil {
			return Value{}, err
		}
		return NewString("[object " + obj.Class + "]"), nil
	})
	r.method(proto, "toLocaleString", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := exec.toString(this)
		return NewString(s), err
	})
	r.method(proto, "valueOf", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		if prim, ok := primitiveOf(this); ok && !prim.IsObject() {
			return prim, nil
		}
		obj, err := exec.toObject(this)
		if err != nil {
			return Value{}, err
		}
		return NewObjectValue(obj), nil
	})
}

func objectFromArg(exec *Execution, arg Value) (Value, error) {
	if arg.IsNullish() {
		return NewObjectValue(newObject(exec.realm.objectPrototype)), nil
	}
	obj, err := exec.toObject(arg)
	if err != nil {
		return Value{}, err
	}
	return NewObjectValue(obj), nil
}

func ownKeysOf(obj *Object) []string {
	if prim, ok := obj.internal.(Value); ok && obj.Class == classString {
		keys := make([]string, 0, utf16Length(prim.Str()))
		for i := range utf16Length(prim.Str()) {
			keys = append(keys, numberToString(float64(i)))
		}
		return append(keys, obj.ownKeys()...)
	}
	return obj.ownKeys()
}

// defineFromDescriptor supports data descriptors: value, enumerable and
// writable=false (which freezes nothing but the value is still stored).
func defineFromDescriptor(exec *Execution, obj *Object, key string, descriptor Value) error {
	desc := descriptor.Object()
	if desc == nil {
		return exec.throwTypeError("Property description must be an object: %s", primitiveToString(descriptor))
	}
	if desc.has("get") || desc.has("set") {
		return exec.throwTypeError("accessor properties are not supported")
	}
	val := desc.get("value")
	if obj.frozen {
		return exec.throwTypeError("Cannot define property %s, object is not extensible", key)
	}
	if !toBoolean(desc.get("enumerable")) && !obj.isArrayLike() {
		obj.defineHidden(key, val)
		return nil
	}
	if err := obj.put(key, val); err != nil {
		return exec.propertyWriteError(err, key)
	}
	if prop, ok := obj.props[key]; ok {
		prop.hidden = false
	}
	return nil
}

func (exec *Execution) newArray(elems []Value) Value {
	return NewObjectValue(newArrayObject(exec.realm.arrayPrototype, elems))
}

func (exec *Execution) newStringArray(items []string) Value {
	elems := make([]Value, len(items))
	for i, s := range items {
		elems[i] = NewString(s)
	}
	return exec.newArray(elems)
}

func (r *realm) installFunction() {
	proto := r.functionPrototype
	ctor := r.newConstructor("Function", 1, proto,
		func(exec *Execution, this Value, args []Value) (Value, error) {
			return compileFunction(exec, args)
		},
		func(exec *Execution, this Value, args []Value) (Value, error) {
			return compileFunction(exec, args)
		})
	r.defineGlobal("Function", NewObjectValue(ctor))

	r.method(proto, "call", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		var rest []Value
		if len(args) > 1 {
			rest = args[1:]
		}
		return exec.call(this, argOr(args, 0), rest)
	})
	r.method(proto, "apply", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		var callArgs []Value
		if list := argOr(args, 1); !list.IsNullish() {
			obj := list.Object()
			if obj == nil {
				return Value{}, exec.throwTypeError("CreateListFromArrayLike called on non-object")
			}
			callArgs = arrayLikeValues(obj)
		}
		return exec.call(this, argOr(args, 0), callArgs)
	})
	r.method(proto, "bind", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		target := this.Object()
		if target == nil || target.fn == nil {
			return Value{}, exec.throwTypeError("Bind must be called on a function")
		}
		var bound []Value
		if len(args) > 1 {
			bound = append(bound, args[1:]...)
		}
		fn := &Function{Name: "bound " + target.fn.Name, boundTarget: target, boundThis: argOr(args, 0), boundArgs: bound}
		return NewObjectValue(exec.realm.newFunctionObject(fn)), nil
	})
	r.method(proto, "toString", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj := this.Object()
		if obj == nil || obj.fn == nil {
			return Value{}, exec.throwTypeError("Function.prototype.toString requires that 'this' be a Function")
		}
		if obj.fn.Native != nil || obj.fn.boundTarget != nil {
			return NewString("function " + obj.fn.Name + "() { [native code] }"), nil
		}
		params := make([]string, len(obj.fn.Params))
		for i, p := range obj.fn.Params {
			params[i] = p.Name
			if p.Rest {
				params[i] = "..." + p.Name
			}
		}
		return NewString("function " + obj.fn.Name + "(" + strings.Join(params, ", ") + ") { [code] }"), nil
	})
}

// compileFunction implements the Function constructor by parsing a function
// expression from the argument strings.
func compileFunction(exec *Execution, args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		s, err := exec.toString(arg)
		if err != nil {
			return Value{}, err
		}
		parts[i] = s
	}
	body := ""
	if len(parts) > 0 {
		body = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}
	source := "(function anonymous(" + strings.Join(parts, ", ") + "\n) {\n" + body + "\n})"
	program, err := Parse(source)
	if err != nil {
		return Value{}, exec.throwError(KindSyntaxError, "%s", err.Error())
	}
	stmt, ok := program.Statements[0].(*ExprStmt)
	if !ok || len(program.Statements) != 1 {
		return Value{}, exec.throwError(KindSyntaxError, "invalid function source")
	}
	lit, ok := stmt.Expr.(*FunctionLiteral)
	if !ok {
		return Value{}, exec.throwError(KindSyntaxError, "invalid function source")
	}
	return NewObjectValue(exec.realm.newScriptFunction(lit, exec.context.env, false)), nil
}

func arrayLikeValues(obj *Object) []Value {
	if obj.isArrayLike() {
		return obj.array
	}
	n := int(toInteger(primitiveToNumber(obj.get("length"))))
	n = max(0, min(n, maxArrayLength))
	out := make([]Value, n)
	for i := range n {
		out[i] = obj.get(numberToString(float64(i)))
	}
	return out
}

func (r *realm) installGlobals() {
	r.defineGlobal("globalThis", NewObjectValue(r.global))
	r.defineGlobal("undefined", Value{})
	r.defineGlobal("NaN", NewNumber(math.NaN()))
	r.defineGlobal("Infinity", NewNumber(math.Inf(1)))
	r.defineGlobal("parseInt", r.newNative("parseInt", 2, builtinParseInt))
	r.defineGlobal("parseFloat", r.newNative("parseFloat", 1, builtinParseFloat))
	r.defineGlobal("isNaN", r.newNative("isNaN", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		n, err := exec.toNumber(argOr(args, 0))
		return NewBool(math.IsNaN(n)), err
	}))
	r.defineGlobal("isFinite", r.newNative("isFinite", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		n, err := exec.toNumber(argOr(args, 0))
		return NewBool(!math.IsNaN(n) && !math.IsInf(n, 0)), err
	}))
	r.defineGlobal("encodeURIComponent", r.newNative("encodeURIComponent", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := exec.toString(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		return NewString(encodeURIComponent(s)), nil
	}))
	r.defineGlobal("decodeURIComponent", r.newNative("decodeURIComponent", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := exec.toString(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return Value{}, exec.Throw("URIError", "URI malformed")
		}
		return NewString(decoded), nil
	}))

	crypto := newObject(r.objectPrototype)
	r.method(crypto, "randomUUID", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		return NewString(uuid.New().String()), nil
	})
	r.defineGlobal("crypto", NewObjectValue(crypto))
}

// encodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func encodeURIComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte("-_.!~*'()", c) >= 0:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
