// Package host connects scripts to the embedding application: Go callbacks
// exposed as globals, a goquery-backed document object and page previews.
package host

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/mgomes/quillscript/quill"
)

// Call carries one script invocation of a registered callback.
type Call struct {
	Ctx     context.Context
	Context *quill.Context
	Name    string
	This    quill.Value
	Args    []quill.Value

	exec *quill.Execution
}

// Arg returns the i-th argument, or undefined when the script passed fewer.
func (c Call) Arg(i int) quill.Value {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return quill.Undefined()
}

// Throw returns a catchable script error built from the named constructor,
// e.g. "TypeError".
func (c Call) Throw(name, format string, args ...any) error {
	return c.exec.Throw(name, format, args...)
}

// Callback is a host function exposed to scripts. A plain Go error surfaces
// in the script as a catchable Error whose message is the error text.
type Callback func(call Call) (quill.Value, error)

// Bridge collects callbacks and installs them into contexts. Dotted names
// such as "app.notify" install as methods on a namespace object.
type Bridge struct {
	mu        sync.RWMutex
	names     []string
	callbacks map[string]Callback
}

func NewBridge() *Bridge {
	return &Bridge{callbacks: make(map[string]Callback)}
}

// Register adds a callback under name. Names must be identifiers, optionally
// one level dotted, and may be registered once.
func (b *Bridge) Register(name string, fn Callback) error {
	if fn == nil {
		return fmt.Errorf("host: callback %q must be non-nil", name)
	}
	if !validBridgeName(name) {
		return fmt.Errorf("host: invalid callback name %q", name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.callbacks[name]; exists {
		return fmt.Errorf("host: callback %q already registered", name)
	}
	b.callbacks[name] = fn
	b.names = append(b.names, name)
	return nil
}

// MustRegister registers a callback or panics on invalid arguments.
func (b *Bridge) MustRegister(name string, fn Callback) *Bridge {
	if err := b.Register(name, fn); err != nil {
		panic(err)
	}
	return b
}

// Names lists registered callbacks in sorted order.
func (b *Bridge) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(slices.Values(b.names))
}

// Install defines every callback as a global of c. Namespace objects that
// already exist as globals gain the methods instead of being replaced.
func (b *Bridge) Install(c *quill.Context) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	namespaces := make(map[string]*quill.Object)
	for _, name := range b.names {
		fn := c.NewFunction(name, b.native(name, b.callbacks[name]))
		namespace, method, dotted := strings.Cut(name, ".")
		if !dotted {
			c.Set(name, fn)
			continue
		}
		obj, ok := namespaces[namespace]
		if !ok {
			if existing := c.Get(namespace).Object(); existing != nil {
				obj = existing
			} else {
				obj = c.NewObject()
				c.Set(namespace, quill.NewObjectValue(obj))
			}
			namespaces[namespace] = obj
		}
		obj.Set(method, fn)
	}
}

func (b *Bridge) native(name string, fn Callback) quill.NativeFunc {
	return func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		return fn(Call{
			Ctx:     exec.GoContext(),
			Context: exec.Context(),
			Name:    name,
			This:    this,
			Args:    args,
			exec:    exec,
		})
	}
}

func validBridgeName(name string) bool {
	namespace, method, dotted := strings.Cut(name, ".")
	if !dotted {
		return isIdentifier(name)
	}
	return isIdentifier(namespace) && isIdentifier(method)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
