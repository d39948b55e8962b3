package quill

import "slices"

type completionKind int

const (
	completionNormal completionKind = iota
	completionReturn
	completionBreak
	completionContinue
)

// completion is the structured result of running a statement. Throws travel
// separately as errors.
type completion struct {
	kind   completionKind
	value  Value
	valued bool
	label  string
}

func (exec *Execution) execStatements(stmts []Statement, env *Env) (completion, error) {
	result := completion{}
	for _, stmt := range stmts {
		c, err := exec.execStatement(stmt, env)
		if err != nil {
			return completion{}, err
		}
		if c.valued {
			result.value, result.valued = c.value, true
		}
		if c.kind != completionNormal {
			if c.kind != completionReturn {
				c.value, c.valued = result.value, result.valued
			}
			return c, nil
		}
	}
	return result, nil
}

func (exec *Execution) execStatement(stmt Statement, env *Env) (completion, error) {
	exec.pos = stmt.Pos()
	if err := exec.step(); err != nil {
		return completion{}, err
	}

	switch s := stmt.(type) {
	case *ExprStmt:
		val, err := exec.eval(s.Expr, env)
		return completion{value: val, valued: true}, err
	case *VarDecl:
		return completion{}, exec.execVarDecl(s, env)
	case *FunctionDecl, *EmptyStmt:
		return completion{}, nil
	case *BlockStmt:
		return exec.execBlock(s.Body, env)
	case *IfStmt:
		cond, err := exec.eval(s.Condition, env)
		if err != nil {
			return completion{}, err
		}
		if toBoolean(cond) {
			return exec.execStatement(s.Consequent, env)
		}
		if s.Alternate != nil {
			return exec.execStatement(s.Alternate, env)
		}
		return completion{}, nil
	case *WhileStmt, *DoWhileStmt, *ForStmt, *ForInStmt:
		return exec.execLoop(stmt, env, nil)
	case *LabeledStmt:
		return exec.execLabeled(s, env, nil)
	case *ReturnStmt:
		if s.Value == nil {
			return completion{kind: completionReturn}, nil
		}
		val, err := exec.eval(s.Value, env)
		if err != nil {
			return completion{}, err
		}
		return completion{kind: completionReturn, value: val}, nil
	case *BreakStmt:
		return completion{kind: completionBreak, label: s.Label}, nil
	case *ContinueStmt:
		return completion{kind: completionContinue, label: s.Label}, nil
	case *ThrowStmt:
		val, err := exec.eval(s.Value, env)
		if err != nil {
			return completion{}, err
		}
		exec.pos = s.Pos()
		return completion{}, exec.throwValue(val, "")
	case *TryStmt:
		return exec.execTry(s, env)
	case *SwitchStmt:
		return exec.execSwitch(s, env)
	default:
		return completion{}, exec.throwError(KindSyntaxError, "unsupported statement %T", stmt)
	}
}

// execBlock opens a scope only when the block declares something lexically.
func (exec *Execution) execBlock(stmts []Statement, env *Env) (completion, error) {
	if needsScope(stmts) {
		env = newEnv(env)
		exec.hoistDeclarations(stmts, env)
	}
	return exec.execStatements(stmts, env)
}

func (exec *Execution) execVarDecl(decl *VarDecl, env *Env) error {
	for _, d := range decl.Declarations {
		if d.Init == nil {
			if decl.Kind != "var" {
				env.initialize(d.Name, Value{})
			}
			continue
		}
		val, err := exec.evalNamed(d.Init, d.Name, env)
		if err != nil {
			return err
		}
		exec.pos = d.position
		if decl.Kind != "var" {
			env.initialize(d.Name, val)
			continue
		}
		if err := exec.assignIdentifier(d.Name, val, env); err != nil {
			return err
		}
	}
	return nil
}

func (exec *Execution) execLabeled(s *LabeledStmt, env *Env, labels []string) (completion, error) {
	labels = append(slices.Clone(labels), s.Label)
	var (
		c   completion
		err error
	)
	switch body := s.Body.(type) {
	case *LabeledStmt:
		c, err = exec.execLabeled(body, env, labels)
	case *WhileStmt, *DoWhileStmt, *ForStmt, *ForInStmt:
		exec.pos = body.Pos()
		c, err = exec.execLoop(body, env, labels)
	default:
		c, err = exec.execStatement(body, env)
	}
	if err == nil && c.kind == completionBreak && c.label == s.Label {
		c = completion{value: c.value, valued: c.valued}
	}
	return c, err
}

// loopExit decides whether a loop stops after a body completion and what it
// propagates outward.
func loopExit(c completion, labels []string) (bool, completion) {
	switch c.kind {
	case completionBreak:
		if c.label == "" || slices.Contains(labels, c.label) {
			return true, completion{value: c.value, valued: c.valued}
		}
		return true, c
	case completionContinue:
		if c.label == "" || slices.Contains(labels, c.label) {
			return false, completion{}
		}
		return true, c
	case completionReturn:
		return true, c
	}
	return false, completion{}
}

func (exec *Execution) execLoop(stmt Statement, env *Env, labels []string) (completion, error) {
	switch s := stmt.(type) {
	case *WhileStmt:
		return exec.execWhile(s.Condition, s.Body, false, env, labels)
	case *DoWhileStmt:
		return exec.execWhile(s.Condition, s.Body, true, env, labels)
	case *ForStmt:
		return exec.execFor(s, env, labels)
	case *ForInStmt:
		return exec.execForIn(s, env, labels)
	}
	return completion{}, nil
}

func (exec *Execution) execWhile(condition Expression, body Statement, bodyFirst bool, env *Env, labels []string) (completion, error) {
	result := completion{}
	for first := true; ; first = false {
		if err := exec.step(); err != nil {
			return completion{}, err
		}
		if !(bodyFirst && first) {
			cond, err := exec.eval(condition, env)
			if err != nil {
				return completion{}, err
			}
			if !toBoolean(cond) {
				return result, nil
			}
		}
		c, err := exec.execStatement(body, env)
		if err != nil {
			return completion{}, err
		}
		if c.valued {
			result.value, result.valued = c.value, true
		}
		if stop, out := loopExit(c, labels); stop {
			return out, nil
		}
	}
}

func (exec *Execution) execFor(s *ForStmt, env *Env, labels []string) (completion, error) {
	loopEnv := env
	var perIteration []string
	if decl, ok := s.Init.(*VarDecl); ok && decl.Kind != "var" {
		loopEnv = newEnv(env)
		for _, d := range decl.Declarations {
			loopEnv.declareLexical(d.Name, decl.Kind == "const")
			perIteration = append(perIteration, d.Name)
		}
	}
	if s.Init != nil {
		if _, err := exec.execStatement(s.Init, loopEnv); err != nil {
			return completion{}, err
		}
	}

	result := completion{}
	for {
		if err := exec.step(); err != nil {
			return completion{}, err
		}
		if s.Condition != nil {
			cond, err := exec.eval(s.Condition, loopEnv)
			if err != nil {
				return completion{}, err
			}
			if !toBoolean(cond) {
				return result, nil
			}
		}
		c, err := exec.execStatement(s.Body, loopEnv)
		if err != nil {
			return completion{}, err
		}
		if c.valued {
			result.value, result.valued = c.value, true
		}
		if stop, out := loopExit(c, labels); stop {
			return out, nil
		}
		// closures created in the body keep the binding of their own iteration
		if len(perIteration) > 0 {
			next := newEnv(env)
			for _, name := range perIteration {
				b := loopEnv.values[name]
				next.values[name] = &binding{value: b.value, constant: b.constant, initialized: b.initialized}
			}
			loopEnv = next
		}
		if s.Update != nil {
			if _, err := exec.eval(s.Update, loopEnv); err != nil {
				return completion{}, err
			}
		}
	}
}

func (exec *Execution) execForIn(s *ForInStmt, env *Env, labels []string) (completion, error) {
	iterable, err := exec.eval(s.Iterable, env)
	if err != nil {
		return completion{}, err
	}

	var next func() (Value, bool)
	if s.Of {
		next, err = exec.iterator(iterable)
		if err != nil {
			return completion{}, err
		}
	} else {
		keys := exec.enumerableKeys(iterable)
		obj := iterable.Object()
		i := 0
		next = func() (Value, bool) {
			for i < len(keys) {
				key := keys[i]
				i++
				// keys deleted during the loop are skipped
				if obj != nil && !obj.has(key) {
					continue
				}
				return NewString(key), true
			}
			return Value{}, false
		}
	}

	result := completion{}
	for {
		if err := exec.step(); err != nil {
			return completion{}, err
		}
		item, ok := next()
		if !ok {
			return result, nil
		}
		iterEnv := env
		switch s.DeclKind {
		case "let", "const":
			name := s.Target.(*Identifier).Name
			iterEnv = newEnv(env)
			iterEnv.declareLexical(name, s.DeclKind == "const")
			iterEnv.initialize(name, item)
		default:
			if err := exec.assignTo(s.Target, item, env); err != nil {
				return completion{}, err
			}
		}
		c, err := exec.execStatement(s.Body, iterEnv)
		if err != nil {
			return completion{}, err
		}
		if c.valued {
			result.value, result.valued = c.value, true
		}
		if stop, out := loopExit(c, labels); stop {
			return out, nil
		}
	}
}

// enumerableKeys lists for-in keys: own then inherited enumerable properties,
// each name once.
func (exec *Execution) enumerableKeys(v Value) []string {
	if v.kind == KindString {
		n := utf16Length(v.Str())
		keys := make([]string, n)
		for i := range n {
			keys[i] = numberToString(float64(i))
		}
		return keys
	}
	obj := v.Object()
	if obj == nil {
		return nil
	}
	seen := map[string]bool{}
	var keys []string
	for depth := 0; obj != nil && depth < maxPrototypeDepth; depth++ {
		for _, key := range obj.ownKeys() {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		for _, key := range obj.keys {
			seen[key] = true
		}
		obj = obj.proto
	}
	return keys
}

// iterator supports arrays, arguments objects and strings; arrays are read
// live so elements appended during iteration are visited.
func (exec *Execution) iterator(v Value) (func() (Value, bool), error) {
	if v.kind == KindString {
		runes := []rune(v.Str())
		i := 0
		return func() (Value, bool) {
			if i >= len(runes) {
				return Value{}, false
			}
			i++
			return NewString(string(runes[i-1])), true
		}, nil
	}
	obj := v.Object()
	if obj == nil || !obj.isArrayLike() {
		return nil, exec.throwTypeError("%s is not iterable", exec.describeForError(v))
	}
	i := 0
	return func() (Value, bool) {
		if i >= len(obj.array) {
			return Value{}, false
		}
		i++
		return obj.array[i-1], true
	}, nil
}

// iterate drains iterator into a slice, for spread.
func (exec *Execution) iterate(v Value) ([]Value, error) {
	if obj := v.Object(); obj != nil && obj.isArrayLike() {
		return slices.Clone(obj.array), nil
	}
	next, err := exec.iterator(v)
	if err != nil {
		return nil, err
	}
	var out []Value
	for item, ok := next(); ok; item, ok = next() {
		out = append(out, item)
	}
	return out, nil
}

func (exec *Execution) execSwitch(s *SwitchStmt, env *Env) (completion, error) {
	disc, err := exec.eval(s.Discriminant, env)
	if err != nil {
		return completion{}, err
	}

	var all []Statement
	for _, c := range s.Cases {
		all = append(all, c.Body...)
	}
	if needsScope(all) {
		env = newEnv(env)
		exec.hoistDeclarations(all, env)
	}

	start := -1
	for i, c := range s.Cases {
		if c.Test == nil {
			continue
		}
		exec.pos = c.position
		test, err := exec.eval(c.Test, env)
		if err != nil {
			return completion{}, err
		}
		if strictEquals(disc, test) {
			start = i
			break
		}
	}
	if start < 0 {
		start = slices.IndexFunc(s.Cases, func(c SwitchCase) bool { return c.Test == nil })
		if start < 0 {
			return completion{}, nil
		}
	}

	result := completion{}
	for _, c := range s.Cases[start:] {
		out, err := exec.execStatements(c.Body, env)
		if err != nil {
			return completion{}, err
		}
		if out.valued {
			result.value, result.valued = out.value, true
		}
		switch {
		case out.kind == completionBreak && out.label == "":
			return result, nil
		case out.kind != completionNormal:
			return out, nil
		}
	}
	return result, nil
}

// execTry runs finally blocks for script throws and ordinary completions.
// Engine faults (stack overflow, step quota, cancellation) unwind past both
// catch and finally.
func (exec *Execution) execTry(s *TryStmt, env *Env) (completion, error) {
	c, err := exec.execBlock(s.Block.Body, env)
	if err != nil && s.Handler != nil {
		if thrown, ok := exec.catchable(err); ok {
			catchEnv := newEnv(env)
			if s.Param != "" {
				catchEnv.Define(s.Param, thrown)
			}
			c, err = exec.execBlock(s.Handler.Body, catchEnv)
		}
	}
	if s.Finalizer == nil {
		return c, err
	}
	if err != nil {
		if _, ok := exec.catchable(err); !ok {
			return completion{}, err
		}
	}
	fc, ferr := exec.execBlock(s.Finalizer.Body, env)
	if ferr != nil {
		return completion{}, ferr
	}
	if fc.kind != completionNormal {
		return fc, nil
	}
	return c, err
}
