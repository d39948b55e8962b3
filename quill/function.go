package quill

// NativeFunc implements a built-in or host function. this is the receiver as
// bound by the call site.
type NativeFunc func(exec *Execution, this Value, args []Value) (Value, error)

// Function is the shared shape of script and native functions. Script
// functions run Body (or ExprBody for concise arrows) in a child of Env;
// native functions call Native. Construct, when set, handles `new` for native
// constructors.
type Function struct {
	Name      string
	Params    []Param
	Body      []Statement
	ExprBody  Expression
	Env       *Env
	Native    NativeFunc
	Construct NativeFunc
	Arrow     bool
	Strict    bool
	Prototype *Object

	varNames []string

	boundTarget *Object
	boundThis   Value
	boundArgs   []Value
}

func (fn *Function) isConstructor() bool {
	switch {
	case fn.boundTarget != nil:
		return fn.boundTarget.fn.isConstructor()
	case fn.Native != nil:
		return fn.Construct != nil
	default:
		return !fn.Arrow
	}
}

func (fn *Function) arity() int {
	if fn.boundTarget != nil {
		return max(0, fn.boundTarget.fn.arity()-len(fn.boundArgs))
	}
	n := 0
	for _, param := range fn.Params {
		if param.Rest || param.DefaultVal != nil {
			break
		}
		n++
	}
	return n
}

func (r *realm) newFunctionObject(fn *Function) *Object {
	obj := newObject(r.functionPrototype)
	obj.Class = classFunction
	obj.fn = fn
	obj.defineHidden("name", NewString(fn.Name))
	obj.defineHidden("length", NewNumber(float64(fn.arity())))
	return obj
}

// newNative builds a native function value; arity sets its length property.
func (r *realm) newNative(name string, arity int, native NativeFunc) Value {
	obj := r.newFunctionObject(&Function{Name: name, Native: native})
	obj.defineHidden("length", NewNumber(float64(arity)))
	return NewObjectValue(obj)
}

// newConstructor builds a native constructor with its prototype object wired
// in both directions.
func (r *realm) newConstructor(name string, arity int, proto *Object, call, construct NativeFunc) *Object {
	obj := r.newFunctionObject(&Function{Name: name, Native: call, Construct: construct, Prototype: proto})
	obj.defineHidden("length", NewNumber(float64(arity)))
	proto.defineHidden("constructor", NewObjectValue(obj))
	return obj
}

// newScriptFunction creates a closure over env. Non-arrow functions get a
// fresh prototype object for use with `new`.
func (r *realm) newScriptFunction(lit *FunctionLiteral, env *Env, strict bool) *Object {
	fn := &Function{
		Name:     lit.Name,
		Params:   lit.Params,
		Body:     lit.Body,
		ExprBody: lit.ExprBody,
		Env:      env,
		Arrow:    lit.Arrow,
		Strict:   strict || lit.Strict,
		varNames: lit.varNames,
	}
	obj := r.newFunctionObject(fn)
	if !lit.Arrow {
		proto := newObject(r.objectPrototype)
		proto.defineHidden("constructor", NewObjectValue(obj))
		fn.Prototype = proto
	}
	return obj
}

func (fn *Function) displayName() string {
	if fn.Name == "" {
		return "<anonymous>"
	}
	return fn.Name
}
