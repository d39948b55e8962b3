package quill

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/oarkflow/log"
	"github.com/oarkflow/xid"
)

// Context is one global environment: a global object populated with the
// built-in library plus the globals supplied by the embedder. Scripts run in
// the same Context share globals. A Context must not be used from more than
// one goroutine at a time.
type Context struct {
	engine *Engine
	realm  *realm
	env    *Env
	runID  string
	logger *log.Logger
}

// NewContext builds a fresh global environment. Built-ins are registered on
// every call; no state is shared with other contexts.
func (e *Engine) NewContext(globals map[string]Value) *Context {
	c := &Context{engine: e, runID: xid.New().String(), logger: e.logger}
	c.realm = newRealm(c)
	c.env = newGlobalEnv(c.realm.global)
	c.env.values["this"] = &binding{value: NewObjectValue(c.realm.global), initialized: true, constant: true}
	for _, name := range slices.Sorted(maps.Keys(globals)) {
		c.realm.global.defineGlobal(name, globals[name])
	}
	return c
}

// RunID identifies this context in log output.
func (c *Context) RunID() string { return c.runID }

func (c *Context) Global() *Object { return c.realm.global }

// GlobalNames lists every global binding, built-ins included, sorted.
func (c *Context) GlobalNames() []string {
	return slices.Sorted(slices.Values(c.realm.global.keys))
}

func (c *Context) Get(name string) Value {
	v, _ := c.env.Get(name)
	return v
}

func (c *Context) Set(name string, v Value) {
	c.realm.global.defineGlobal(name, v)
}

// Run evaluates script and returns the value of its last expression
// statement, or the operand of a top-level return.
func (c *Context) Run(ctx context.Context, script *Script) (Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	exec := c.newExecution(ctx, script.program.source)
	result, err := exec.runProgram(script.program)
	if err != nil {
		err = exec.finalizeError(err)
		var re *RuntimeError
		if errors.As(err, &re) {
			c.logger.Debug().Str("run", c.runID).Str("kind", string(re.Kind)).Int("line", re.Pos.Line).Msg(re.Message)
		}
		return Value{}, err
	}
	return result, nil
}

// Eval compiles source through the engine cache and runs it here.
func (c *Context) Eval(ctx context.Context, source string) (Value, error) {
	script, err := c.engine.Compile(source)
	if err != nil {
		return Value{}, err
	}
	return c.Run(ctx, script)
}

// Call invokes a script or native function value from Go.
func (c *Context) Call(ctx context.Context, fn Value, this Value, args ...Value) (Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !fn.IsCallable() {
		return Value{}, fmt.Errorf("quill: %s is not a function", fn.kind)
	}
	exec := c.newExecution(ctx, "")
	result, err := exec.call(fn, this, args)
	if err != nil {
		return Value{}, exec.finalizeError(err)
	}
	return result, nil
}

func (c *Context) newExecution(ctx context.Context, source string) *Execution {
	cfg := c.engine.config
	return &Execution{
		engine:       c.engine,
		context:      c,
		realm:        c.realm,
		source:       source,
		ctx:          ctx,
		quota:        cfg.StepQuota,
		recursionCap: cfg.RecursionLimit,
		strict:       cfg.StrictMode,
	}
}

// NewObject returns an empty plain object inheriting from Object.prototype.
func (c *Context) NewObject() *Object {
	return newObject(c.realm.objectPrototype)
}

func (c *Context) NewArray(elems ...Value) Value {
	return NewObjectValue(newArrayObject(c.realm.arrayPrototype, slices.Clone(elems)))
}

// NewFunction wraps a Go callback as a script function value.
func (c *Context) NewFunction(name string, fn NativeFunc) Value {
	return c.realm.newNative(name, 0, fn)
}

// NewError builds an Error instance; name selects the constructor, e.g.
// "TypeError".
func (c *Context) NewError(name, message string) Value {
	return NewObjectValue(c.realm.newError(name, message))
}

// ToValue converts plain Go data into script values. Maps become objects with
// sorted keys; unsupported types become their fmt rendering.
func (c *Context) ToValue(data any) Value {
	switch v := data.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case *Object:
		return NewObjectValue(v)
	case bool:
		return NewBool(v)
	case string:
		return NewString(v)
	case int:
		return NewNumber(float64(v))
	case int64:
		return NewNumber(float64(v))
	case float64:
		return NewNumber(v)
	case float32:
		return NewNumber(float64(v))
	case []Value:
		return c.NewArray(v...)
	case []string:
		elems := make([]Value, len(v))
		for i, s := range v {
			elems[i] = NewString(s)
		}
		return c.NewArray(elems...)
	case []any:
		elems := make([]Value, len(v))
		for i, item := range v {
			elems[i] = c.ToValue(item)
		}
		return c.NewArray(elems...)
	case map[string]any:
		obj := c.NewObject()
		for _, key := range slices.Sorted(maps.Keys(v)) {
			obj.Set(key, c.ToValue(v[key]))
		}
		return NewObjectValue(obj)
	case NativeFunc:
		return c.NewFunction("", v)
	default:
		return NewString(fmt.Sprint(v))
	}
}
