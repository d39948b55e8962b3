package quill

import (
	"errors"
	"math"
)

func (exec *Execution) eval(expr Expression, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *NumberLiteral:
		return NewNumber(e.Value), nil
	case *StringLiteral:
		return NewString(e.Value), nil
	case *BoolLiteral:
		return NewBool(e.Value), nil
	case *NullLiteral:
		return Null(), nil
	case *Identifier:
		return exec.lookupIdentifier(e, env)
	case *ThisExpr:
		this, _ := env.Get("this")
		return this, nil
	case *RegexLiteral:
		exec.pos = e.position
		obj, err := exec.newRegExp(e.Pattern, e.Flags)
		if err != nil {
			return Value{}, err
		}
		return NewObjectValue(obj), nil
	case *ArrayLiteral:
		return exec.evalArrayLiteral(e, env)
	case *ObjectLiteral:
		return exec.evalObjectLiteral(e, env)
	case *FunctionLiteral:
		return exec.evalFunctionLiteral(e, env, e.Name), nil
	case *UnaryExpr:
		return exec.evalUnary(e, env)
	case *UpdateExpr:
		return exec.evalUpdate(e, env)
	case *BinaryExpr:
		left, err := exec.eval(e.Left, env)
		if err != nil {
			return Value{}, err
		}
		right, err := exec.eval(e.Right, env)
		if err != nil {
			return Value{}, err
		}
		exec.pos = e.position
		return exec.binaryOp(e.Operator, left, right)
	case *LogicalExpr:
		return exec.evalLogical(e, env)
	case *AssignExpr:
		return exec.evalAssign(e, env)
	case *ConditionalExpr:
		cond, err := exec.eval(e.Condition, env)
		if err != nil {
			return Value{}, err
		}
		if toBoolean(cond) {
			return exec.eval(e.Consequent, env)
		}
		return exec.eval(e.Alternate, env)
	case *SequenceExpr:
		var last Value
		for _, item := range e.Expressions {
			val, err := exec.eval(item, env)
			if err != nil {
				return Value{}, err
			}
			last = val
		}
		return last, nil
	case *MemberExpr, *IndexExpr, *CallExpr:
		val, _, _, err := exec.evalChain(expr, env)
		return val, err
	case *NewExpr:
		return exec.evalNew(e, env)
	case *SpreadExpr:
		exec.pos = e.position
		return Value{}, exec.throwError(KindSyntaxError, "unexpected spread element")
	default:
		return Value{}, exec.throwError(KindSyntaxError, "unsupported expression %T", expr)
	}
}

// evalNamed evaluates expr, naming anonymous function literals after the
// binding or property they are assigned to.
func (exec *Execution) evalNamed(expr Expression, name string, env *Env) (Value, error) {
	if lit, ok := expr.(*FunctionLiteral); ok && lit.Name == "" {
		return exec.evalFunctionLiteral(lit, env, name), nil
	}
	return exec.eval(expr, env)
}

func (exec *Execution) evalFunctionLiteral(lit *FunctionLiteral, env *Env, name string) Value {
	if lit.Name != "" && !lit.Arrow {
		// a named function expression sees its own name
		scope := newEnv(env)
		fn := exec.realm.newScriptFunction(lit, scope, exec.strict)
		scope.values[lit.Name] = &binding{value: NewObjectValue(fn), initialized: true}
		return NewObjectValue(fn)
	}
	fn := exec.realm.newScriptFunction(lit, env, exec.strict)
	if name != "" {
		fn.fn.Name = name
		fn.defineHidden("name", NewString(name))
	}
	return NewObjectValue(fn)
}

func (exec *Execution) lookupIdentifier(e *Identifier, env *Env) (Value, error) {
	val, res := env.lookup(e.Name)
	switch res {
	case lookupMissing:
		exec.pos = e.position
		return Value{}, exec.throwReferenceError("%s is not defined", e.Name)
	case lookupUninitialized:
		exec.pos = e.position
		return Value{}, exec.throwReferenceError("Cannot access '%s' before initialization", e.Name)
	}
	return val, nil
}

func (exec *Execution) assignIdentifier(name string, val Value, env *Env) error {
	res, err := env.assign(name, val)
	if err != nil {
		return exec.propertyWriteError(err, name)
	}
	switch res {
	case lookupMissing:
		if exec.strict {
			return exec.throwReferenceError("%s is not defined", name)
		}
		env.global().object.defineGlobal(name, val)
	case lookupUninitialized:
		return exec.throwReferenceError("Cannot access '%s' before initialization", name)
	case lookupConstant:
		return exec.throwTypeError("Assignment to constant variable '%s'", name)
	}
	return nil
}

func (exec *Execution) evalArrayLiteral(e *ArrayLiteral, env *Env) (Value, error) {
	elems := make([]Value, 0, len(e.Elements))
	for _, item := range e.Elements {
		if item == nil {
			elems = append(elems, Value{})
			continue
		}
		if spread, ok := item.(*SpreadExpr); ok {
			val, err := exec.eval(spread.Value, env)
			if err != nil {
				return Value{}, err
			}
			exec.pos = spread.position
			items, err := exec.iterate(val)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, items...)
			continue
		}
		val, err := exec.eval(item, env)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, val)
	}
	if len(elems) > maxArrayLength {
		return Value{}, exec.throwRangeError("Invalid array length")
	}
	return NewObjectValue(newArrayObject(exec.realm.arrayPrototype, elems)), nil
}

func (exec *Execution) evalObjectLiteral(e *ObjectLiteral, env *Env) (Value, error) {
	obj := newObject(exec.realm.objectPrototype)
	for _, prop := range e.Properties {
		if prop.Spread {
			val, err := exec.eval(prop.Value, env)
			if err != nil {
				return Value{}, err
			}
			exec.copyDataProperties(obj, val)
			continue
		}
		key := prop.Key
		if prop.Computed != nil {
			keyVal, err := exec.eval(prop.Computed, env)
			if err != nil {
				return Value{}, err
			}
			if key, err = exec.toPropertyKey(keyVal); err != nil {
				return Value{}, err
			}
		}
		val, err := exec.evalNamed(prop.Value, key, env)
		if err != nil {
			return Value{}, err
		}
		_ = obj.put(key, val)
	}
	return NewObjectValue(obj), nil
}

// copyDataProperties copies own enumerable properties, as object spread and
// Object.assign do.
func (exec *Execution) copyDataProperties(target *Object, source Value) {
	switch {
	case source.kind == KindString:
		for i, unit := range toUTF16(source.Str()) {
			_ = target.put(numberToString(float64(i)), NewString(fromUTF16([]uint16{unit})))
		}
	case source.IsObject():
		src := source.Object()
		for _, key := range src.ownKeys() {
			val, _ := src.getOwn(key)
			_ = target.put(key, val)
		}
	}
}

func (exec *Execution) evalUnary(e *UnaryExpr, env *Env) (Value, error) {
	switch e.Operator {
	case "typeof":
		if ident, ok := e.Operand.(*Identifier); ok {
			val, res := env.lookup(ident.Name)
			switch res {
			case lookupMissing:
				return NewString("undefined"), nil
			case lookupUninitialized:
				exec.pos = ident.position
				return Value{}, exec.throwReferenceError("Cannot access '%s' before initialization", ident.Name)
			}
			return NewString(typeOf(val)), nil
		}
		val, err := exec.eval(e.Operand, env)
		if err != nil {
			return Value{}, err
		}
		return NewString(typeOf(val)), nil
	case "delete":
		return exec.evalDelete(e, env)
	}

	operand, err := exec.eval(e.Operand, env)
	if err != nil {
		return Value{}, err
	}
	exec.pos = e.position
	switch e.Operator {
	case "void":
		return Value{}, nil
	case "!":
		return NewBool(!toBoolean(operand)), nil
	}
	n, err := exec.toNumber(operand)
	if err != nil {
		return Value{}, err
	}
	switch e.Operator {
	case "-":
		return NewNumber(-n), nil
	case "+":
		return NewNumber(n), nil
	case "~":
		return NewNumber(float64(^toInt32(n))), nil
	}
	return Value{}, exec.throwError(KindSyntaxError, "unsupported unary operator %s", e.Operator)
}

func (exec *Execution) evalDelete(e *UnaryExpr, env *Env) (Value, error) {
	var (
		base Value
		key  string
		err  error
	)
	switch target := e.Operand.(type) {
	case *MemberExpr:
		if base, err = exec.eval(target.Object, env); err != nil {
			return Value{}, err
		}
		key = target.Property
	case *IndexExpr:
		if base, err = exec.eval(target.Object, env); err != nil {
			return Value{}, err
		}
		idx, err := exec.eval(target.Index, env)
		if err != nil {
			return Value{}, err
		}
		if key, err = exec.toPropertyKey(idx); err != nil {
			return Value{}, err
		}
	case *Identifier:
		return NewBool(false), nil
	default:
		if _, err := exec.eval(e.Operand, env); err != nil {
			return Value{}, err
		}
		return NewBool(true), nil
	}

	exec.pos = e.position
	if base.IsNullish() {
		return Value{}, exec.throwTypeError("Cannot convert undefined or null to object")
	}
	obj := base.Object()
	if obj == nil {
		return NewBool(true), nil
	}
	ok := obj.deleteKey(key)
	if !ok && exec.strict {
		return Value{}, exec.throwTypeError("Cannot delete property '%s'", key)
	}
	return NewBool(ok), nil
}

func (exec *Execution) evalLogical(e *LogicalExpr, env *Env) (Value, error) {
	left, err := exec.eval(e.Left, env)
	if err != nil {
		return Value{}, err
	}
	switch e.Operator {
	case "&&":
		if !toBoolean(left) {
			return left, nil
		}
	case "||":
		if toBoolean(left) {
			return left, nil
		}
	case "??":
		if !left.IsNullish() {
			return left, nil
		}
	}
	return exec.eval(e.Right, env)
}

// reference is an evaluated assignment target: either a name resolved
// through env or a property of an already evaluated base.
type reference struct {
	name string
	env  *Env
	base Value
	key  string
	prop bool
}

func (exec *Execution) evalReference(target Expression, env *Env) (reference, error) {
	switch t := target.(type) {
	case *Identifier:
		return reference{name: t.Name, env: env}, nil
	case *MemberExpr:
		base, err := exec.eval(t.Object, env)
		if err != nil {
			return reference{}, err
		}
		return reference{base: base, key: t.Property, prop: true}, nil
	case *IndexExpr:
		base, err := exec.eval(t.Object, env)
		if err != nil {
			return reference{}, err
		}
		idx, err := exec.eval(t.Index, env)
		if err != nil {
			return reference{}, err
		}
		key, err := exec.toPropertyKey(idx)
		if err != nil {
			return reference{}, err
		}
		return reference{base: base, key: key, prop: true}, nil
	}
	return reference{}, exec.throwError(KindSyntaxError, "invalid assignment target")
}

func (exec *Execution) getReference(ref reference) (Value, error) {
	if ref.prop {
		return exec.getMember(ref.base, ref.key)
	}
	return exec.lookupIdentifier(&Identifier{Name: ref.name, position: exec.pos}, ref.env)
}

func (exec *Execution) putReference(ref reference, val Value) error {
	if ref.prop {
		return exec.setMember(ref.base, ref.key, val)
	}
	return exec.assignIdentifier(ref.name, val, ref.env)
}

func (exec *Execution) assignTo(target Expression, val Value, env *Env) error {
	ref, err := exec.evalReference(target, env)
	if err != nil {
		return err
	}
	return exec.putReference(ref, val)
}

func (exec *Execution) evalAssign(e *AssignExpr, env *Env) (Value, error) {
	ref, err := exec.evalReference(e.Target, env)
	if err != nil {
		return Value{}, err
	}
	name := ref.key
	if !ref.prop {
		name = ref.name
	}

	if e.Operator == "=" {
		val, err := exec.evalNamed(e.Value, name, env)
		if err != nil {
			return Value{}, err
		}
		exec.pos = e.position
		return val, exec.putReference(ref, val)
	}

	exec.pos = e.position
	current, err := exec.getReference(ref)
	if err != nil {
		return Value{}, err
	}
	switch e.Operator {
	case "&&=", "||=", "??=":
		keep := false
		switch e.Operator {
		case "&&=":
			keep = !toBoolean(current)
		case "||=":
			keep = toBoolean(current)
		case "??=":
			keep = !current.IsNullish()
		}
		if keep {
			return current, nil
		}
		val, err := exec.evalNamed(e.Value, name, env)
		if err != nil {
			return Value{}, err
		}
		exec.pos = e.position
		return val, exec.putReference(ref, val)
	}

	rhs, err := exec.eval(e.Value, env)
	if err != nil {
		return Value{}, err
	}
	exec.pos = e.position
	result, err := exec.binaryOp(e.Operator[:len(e.Operator)-1], current, rhs)
	if err != nil {
		return Value{}, err
	}
	return result, exec.putReference(ref, result)
}

func (exec *Execution) evalUpdate(e *UpdateExpr, env *Env) (Value, error) {
	ref, err := exec.evalReference(e.Target, env)
	if err != nil {
		return Value{}, err
	}
	exec.pos = e.position
	current, err := exec.getReference(ref)
	if err != nil {
		return Value{}, err
	}
	old, err := exec.toNumber(current)
	if err != nil {
		return Value{}, err
	}
	updated := old + 1
	if e.Operator == "--" {
		updated = old - 1
	}
	if err := exec.putReference(ref, NewNumber(updated)); err != nil {
		return Value{}, err
	}
	if e.Prefix {
		return NewNumber(updated), nil
	}
	return NewNumber(old), nil
}

// evalChain evaluates member, index and call chains. It also returns the base
// object (the `this` for a following call) and whether an optional link
// short-circuited, which ends the whole chain with undefined.
func (exec *Execution) evalChain(expr Expression, env *Env) (Value, Value, bool, error) {
	switch e := expr.(type) {
	case *MemberExpr:
		base, _, short, err := exec.evalChain(e.Object, env)
		if err != nil || short {
			return Value{}, Value{}, short, err
		}
		if e.Optional && base.IsNullish() {
			return Value{}, Value{}, true, nil
		}
		exec.pos = e.position
		val, err := exec.getMember(base, e.Property)
		return val, base, false, err
	case *IndexExpr:
		base, _, short, err := exec.evalChain(e.Object, env)
		if err != nil || short {
			return Value{}, Value{}, short, err
		}
		if e.Optional && base.IsNullish() {
			return Value{}, Value{}, true, nil
		}
		idx, err := exec.eval(e.Index, env)
		if err != nil {
			return Value{}, Value{}, false, err
		}
		exec.pos = e.position
		val, err := exec.getIndex(base, idx)
		return val, base, false, err
	case *CallExpr:
		callee, this, short, err := exec.evalChain(e.Callee, env)
		if err != nil || short {
			return Value{}, Value{}, short, err
		}
		if e.Optional && callee.IsNullish() {
			return Value{}, Value{}, true, nil
		}
		args, err := exec.evalArgs(e.Args, env)
		if err != nil {
			return Value{}, Value{}, false, err
		}
		exec.pos = e.position
		if !callee.IsCallable() {
			return Value{}, Value{}, false, exec.throwTypeError("%s is not a function", exprString(e.Callee))
		}
		val, err := exec.callAt(callee, this, args, e.position)
		return val, Value{}, false, err
	default:
		val, err := exec.eval(expr, env)
		return val, Value{}, false, err
	}
}

func (exec *Execution) evalArgs(exprs []Expression, env *Env) ([]Value, error) {
	args := make([]Value, 0, len(exprs))
	for _, item := range exprs {
		if spread, ok := item.(*SpreadExpr); ok {
			val, err := exec.eval(spread.Value, env)
			if err != nil {
				return nil, err
			}
			exec.pos = spread.position
			items, err := exec.iterate(val)
			if err != nil {
				return nil, err
			}
			args = append(args, items...)
			continue
		}
		val, err := exec.eval(item, env)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return args, nil
}

func (exec *Execution) evalNew(e *NewExpr, env *Env) (Value, error) {
	ctor, err := exec.eval(e.Callee, env)
	if err != nil {
		return Value{}, err
	}
	args, err := exec.evalArgs(e.Args, env)
	if err != nil {
		return Value{}, err
	}
	exec.pos = e.position
	if obj := ctor.Object(); obj == nil || obj.fn == nil || !obj.fn.isConstructor() {
		return Value{}, exec.throwTypeError("%s is not a constructor", exprString(e.Callee))
	}
	return exec.construct(ctor, args, e.position)
}

// getIndex is the bracket-access fast path for arrays indexed by numbers.
func (exec *Execution) getIndex(base Value, idx Value) (Value, error) {
	if obj := base.Object(); obj != nil && obj.isArrayLike() && idx.kind == KindNumber {
		n := idx.Number()
		if n >= 0 && n < float64(len(obj.array)) && n == math.Trunc(n) {
			return obj.array[int(n)], nil
		}
	}
	key, err := exec.toPropertyKey(idx)
	if err != nil {
		return Value{}, err
	}
	return exec.getMember(base, key)
}

func (exec *Execution) getMember(base Value, key string) (Value, error) {
	switch base.kind {
	case KindUndefined, KindNull:
		return Value{}, exec.throwTypeError("Cannot read properties of %s (reading '%s')", base.kind, key)
	case KindString:
		s := base.Str()
		if key == "length" {
			return NewNumber(float64(utf16Length(s))), nil
		}
		if idx, ok := arrayIndex(key); ok {
			if isASCII(s) {
				if idx < len(s) {
					return NewString(s[idx : idx+1]), nil
				}
				return Value{}, nil
			}
			units := toUTF16(s)
			if idx < len(units) {
				return NewString(fromUTF16(units[idx : idx+1])), nil
			}
			return Value{}, nil
		}
		return exec.realm.stringPrototype.get(key), nil
	case KindNumber:
		return exec.realm.numberPrototype.get(key), nil
	case KindBool:
		return exec.realm.booleanPrototype.get(key), nil
	}
	return base.Object().get(key), nil
}

func (exec *Execution) setMember(base Value, key string, val Value) error {
	switch base.kind {
	case KindUndefined, KindNull:
		return exec.throwTypeError("Cannot set properties of %s (setting '%s')", base.kind, key)
	case KindObject, KindFunction:
		if err := base.Object().put(key, val); err != nil {
			return exec.propertyWriteError(err, key)
		}
		return nil
	}
	if exec.strict {
		return exec.throwTypeError("Cannot create property '%s' on %s", key, base.kind)
	}
	return nil
}

func (exec *Execution) propertyWriteError(err error, key string) error {
	switch {
	case errors.Is(err, errInvalidLength):
		return exec.throwRangeError("Invalid array length")
	case errors.Is(err, errFrozenObject):
		if exec.strict {
			return exec.throwTypeError("Cannot assign to read only property '%s' of object", key)
		}
		return nil
	}
	return exec.throwTypeError("%s", err.Error())
}

// exprString renders a callee for error messages.
func exprString(expr Expression) string {
	switch e := expr.(type) {
	case *Identifier:
		return e.Name
	case *ThisExpr:
		return "this"
	case *MemberExpr:
		return exprString(e.Object) + "." + e.Property
	case *IndexExpr:
		return exprString(e.Object) + "[...]"
	case *CallExpr:
		return exprString(e.Callee) + "(...)"
	default:
		return "expression"
	}
}

func (exec *Execution) describeForError(v Value) string {
	switch v.kind {
	case KindString:
		return "\"" + v.Str() + "\""
	case KindObject:
		if v.Object().isArrayLike() {
			return "array"
		}
		return "object"
	case KindFunction:
		return "function " + v.Object().fn.displayName()
	}
	return primitiveToString(v)
}
