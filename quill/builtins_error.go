package quill

import (
	"fmt"
	"strings"
)

var errorConstructors = []string{"TypeError", "RangeError", "ReferenceError", "SyntaxError", "EvalError", "URIError"}

// newError builds an Error instance for the named constructor. Unknown names
// inherit from Error.prototype and carry their own name property.
func (r *realm) newError(name, message string) *Object {
	proto, ok := r.errorPrototypes[name]
	if !ok {
		proto = r.errorPrototype
	}
	obj := newObject(proto)
	obj.Class = classError
	if !ok && name != "" {
		obj.defineHidden("name", NewString(name))
	}
	obj.defineHidden("message", NewString(message))
	obj.defineHidden("stack", NewString(errorHeadline(name, message)))
	return obj
}

func errorHeadline(name, message string) string {
	if message == "" {
		return name
	}
	return name + ": " + message
}

// initError fills in a constructed error from its (message, options)
// arguments and records the script stack at the construction site.
func initError(exec *Execution, obj *Object, args []Value) error {
	obj.Class = classError
	if msg := argOr(args, 0); !msg.IsUndefined() {
		s, err := exec.toString(msg)
		if err != nil {
			return err
		}
		obj.defineHidden("message", NewString(s))
	}
	if opts := argOr(args, 1).Object(); opts != nil && opts.has("cause") {
		obj.defineHidden("cause", opts.get("cause"))
	}

	var b strings.Builder
	b.WriteString(errorHeadline(primitiveToString(obj.get("name")), primitiveToString(obj.get("message"))))
	for _, frame := range exec.frames(exec.pos)[1:] {
		fmt.Fprintf(&b, "\n    at %s (%d:%d)", frame.Function, frame.Pos.Line, frame.Pos.Column)
	}
	obj.defineHidden("stack", NewString(b.String()))
	return nil
}

func (r *realm) installErrors() {
	r.errorPrototype = newObject(r.objectPrototype)
	r.errorPrototypes["Error"] = r.errorPrototype
	base := r.installErrorConstructor("Error", r.errorPrototype)

	r.method(r.errorPrototype, "toString", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj := this.Object()
		if obj == nil {
			return Value{}, exec.throwTypeError("Error.prototype.toString called on non-object")
		}
		name := "Error"
		if v := obj.get("name"); !v.IsUndefined() {
			s, err := exec.toString(v)
			if err != nil {
				return Value{}, err
			}
			name = s
		}
		msg, err := exec.toString(obj.get("message"))
		if err != nil {
			return Value{}, err
		}
		if name == "" {
			return NewString(msg), nil
		}
		return NewString(errorHeadline(name, msg)), nil
	})

	for _, name := range errorConstructors {
		proto := newObject(r.errorPrototype)
		r.errorPrototypes[name] = proto
		ctor := r.installErrorConstructor(name, proto)
		_ = ctor.setPrototype(base)
	}
}

func (r *realm) installErrorConstructor(name string, proto *Object) *Object {
	proto.defineHidden("name", NewString(name))
	proto.defineHidden("message", NewString(""))
	ctor := r.newConstructor(name, 1, proto,
		func(exec *Execution, this Value, args []Value) (Value, error) {
			obj := newObject(proto)
			if err := initError(exec, obj, args); err != nil {
				return Value{}, err
			}
			return NewObjectValue(obj), nil
		},
		func(exec *Execution, this Value, args []Value) (Value, error) {
			if err := initError(exec, this.Object(), args); err != nil {
				return Value{}, err
			}
			return this, nil
		})
	r.defineGlobal(name, NewObjectValue(ctor))
	return ctor
}
