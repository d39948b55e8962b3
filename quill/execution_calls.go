package quill

import "slices"

func (exec *Execution) call(fn Value, this Value, args []Value) (Value, error) {
	return exec.callAt(fn, this, args, exec.pos)
}

// callAt invokes fn with the given receiver. pos is the call site, recorded
// in the call stack for error frames.
func (exec *Execution) callAt(fnVal Value, this Value, args []Value, pos Position) (Value, error) {
	obj := fnVal.Object()
	if obj == nil || obj.fn == nil {
		return Value{}, exec.throwTypeError("%s is not a function", exec.describeForError(fnVal))
	}
	fn := obj.fn
	if fn.boundTarget != nil {
		return exec.callAt(NewObjectValue(fn.boundTarget), fn.boundThis, concatArgs(fn.boundArgs, args), pos)
	}

	if err := exec.pushFrame(fn.displayName(), pos); err != nil {
		return Value{}, err
	}
	defer exec.popFrame()

	if fn.Native != nil {
		return fn.Native(exec, this, args)
	}
	return exec.invokeScript(fn, this, args)
}

// construct implements `new`: a fresh object inherits from the constructor's
// prototype, runs as `this`, and is the result unless the constructor
// returns an object of its own.
func (exec *Execution) construct(ctorVal Value, args []Value, pos Position) (Value, error) {
	ctor := ctorVal.Object()
	fn := ctor.fn
	if fn.boundTarget != nil {
		return exec.construct(NewObjectValue(fn.boundTarget), concatArgs(fn.boundArgs, args), pos)
	}

	proto := fn.Prototype
	if proto == nil {
		proto = exec.realm.objectPrototype
	}
	instance := NewObjectValue(newObject(proto))

	if err := exec.pushFrame(fn.displayName(), pos); err != nil {
		return Value{}, err
	}
	defer exec.popFrame()

	var (
		result Value
		err    error
	)
	if fn.Native != nil {
		result, err = fn.Construct(exec, instance, args)
	} else {
		result, err = exec.invokeScript(fn, instance, args)
	}
	if err != nil {
		return Value{}, err
	}
	if result.IsObject() {
		return result, nil
	}
	return instance, nil
}

func (exec *Execution) invokeScript(fn *Function, this Value, args []Value) (Value, error) {
	env := newEnv(fn.Env)
	savedStrict := exec.strict
	exec.strict = fn.Strict
	defer func() { exec.strict = savedStrict }()

	if !fn.Arrow {
		if this.IsNullish() && !fn.Strict {
			this = NewObjectValue(exec.realm.global)
		}
		env.values["this"] = &binding{value: this, initialized: true, constant: true}
		arguments := newArrayObject(exec.realm.objectPrototype, slices.Clone(args))
		arguments.Class = classArguments
		env.values["arguments"] = &binding{value: NewObjectValue(arguments), initialized: true}
	}

	for i, param := range fn.Params {
		if param.Rest {
			var rest []Value
			if i < len(args) {
				rest = slices.Clone(args[i:])
			}
			env.Define(param.Name, NewObjectValue(newArrayObject(exec.realm.arrayPrototype, rest)))
			break
		}
		var val Value
		if i < len(args) {
			val = args[i]
		}
		if val.IsUndefined() && param.DefaultVal != nil {
			var err error
			if val, err = exec.eval(param.DefaultVal, env); err != nil {
				return Value{}, err
			}
		}
		env.Define(param.Name, val)
	}

	if fn.ExprBody != nil {
		return exec.eval(fn.ExprBody, env)
	}

	for _, name := range fn.varNames {
		env.declareVar(name)
	}
	exec.hoistDeclarations(fn.Body, env)
	c, err := exec.execStatements(fn.Body, env)
	if err != nil {
		return Value{}, err
	}
	if c.kind == completionReturn {
		return c.value, nil
	}
	return Value{}, nil
}

func concatArgs(bound, args []Value) []Value {
	if len(bound) == 0 {
		return args
	}
	out := make([]Value, 0, len(bound)+len(args))
	out = append(out, bound...)
	return append(out, args...)
}

// argOr returns args[i], or undefined when absent.
func argOr(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Value{}
}
