package quill

type binding struct {
	value       Value
	constant    bool
	initialized bool
}

// Env is one lexical scope. The global Env is backed by the global object, so
// var declarations and implicit globals become properties visible to scripts
// through globalThis.
type Env struct {
	parent *Env
	values map[string]*binding
	object *Object
}

func newEnv(parent *Env) *Env {
	return &Env{parent: parent, values: make(map[string]*binding)}
}

func newGlobalEnv(global *Object) *Env {
	env := newEnv(nil)
	env.object = global
	return env
}

// Get resolves name through the scope chain.
func (e *Env) Get(name string) (Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if b, ok := cur.values[name]; ok {
			return b.value, b.initialized
		}
		if cur.object != nil && cur.object.has(name) {
			return cur.object.get(name), true
		}
	}
	return Value{}, false
}

// Define creates or replaces a mutable binding in this scope.
func (e *Env) Define(name string, val Value) {
	if e.object != nil {
		e.object.defineGlobal(name, val)
		return
	}
	e.values[name] = &binding{value: val, initialized: true}
}

// declareVar hoists a var or function name. Redeclaring keeps the current value.
func (e *Env) declareVar(name string) {
	if e.object != nil {
		if !e.object.hasOwn(name) {
			e.object.defineGlobal(name, Value{})
		}
		return
	}
	if _, ok := e.values[name]; !ok {
		e.values[name] = &binding{initialized: true}
	}
}

// declareLexical creates an uninitialized let/const binding; reads fail
// until initialize runs.
func (e *Env) declareLexical(name string, constant bool) {
	e.values[name] = &binding{constant: constant}
}

func (e *Env) initialize(name string, val Value) {
	if b, ok := e.values[name]; ok {
		b.value = val
		b.initialized = true
		return
	}
	e.Define(name, val)
}

type lookupResult int

const (
	lookupFound lookupResult = iota
	lookupMissing
	lookupUninitialized
	lookupConstant
)

func (e *Env) lookup(name string) (Value, lookupResult) {
	for cur := e; cur != nil; cur = cur.parent {
		if b, ok := cur.values[name]; ok {
			if !b.initialized {
				return Value{}, lookupUninitialized
			}
			return b.value, lookupFound
		}
		if cur.object != nil && cur.object.has(name) {
			return cur.object.get(name), lookupFound
		}
	}
	return Value{}, lookupMissing
}

// assign writes to the nearest existing binding. A missing name is reported
// so the caller can decide between an implicit global and a ReferenceError.
func (e *Env) assign(name string, val Value) (lookupResult, error) {
	for cur := e; cur != nil; cur = cur.parent {
		if b, ok := cur.values[name]; ok {
			switch {
			case !b.initialized:
				return lookupUninitialized, nil
			case b.constant:
				return lookupConstant, nil
			}
			b.value = val
			return lookupFound, nil
		}
		if cur.object != nil && cur.object.has(name) {
			return lookupFound, cur.object.put(name, val)
		}
	}
	return lookupMissing, nil
}

func (e *Env) global() *Env {
	cur := e
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

func (o *Object) defineGlobal(name string, val Value) {
	if prop, ok := o.props[name]; ok {
		prop.value = val
		return
	}
	_ = o.put(name, val)
}
