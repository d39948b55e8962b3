package host

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/mgomes/quillscript/quill"
)

func newTestContext(t *testing.T) *quill.Context {
	t.Helper()
	engine := quill.MustNewEngine(quill.Config{})
	t.Cleanup(engine.Close)
	return engine.NewContext(nil)
}

func TestBridgeInstallsGlobalsAndNamespaces(t *testing.T) {
	var seen []string
	bridge := NewBridge().
		MustRegister("notify", func(call Call) (quill.Value, error) {
			seen = append(seen, call.Arg(0).String())
			return quill.NewNumber(float64(len(call.Args))), nil
		}).
		MustRegister("app.version", func(call Call) (quill.Value, error) {
			return quill.NewString("1.2"), nil
		})

	c := newTestContext(t)
	bridge.Install(c)
	v, err := c.Eval(context.Background(), `notify("hi", 2) + app.version()`)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if got := v.String(); got != "21.2" {
		t.Fatalf("unexpected result %q", got)
	}
	if !slices.Equal(seen, []string{"hi"}) {
		t.Fatalf("unexpected callback args %v", seen)
	}
}

func TestBridgeCallbacksAreOpaqueFunctions(t *testing.T) {
	bridge := NewBridge().MustRegister("ping", func(call Call) (quill.Value, error) {
		return quill.NewString("pong"), nil
	})
	c := newTestContext(t)
	bridge.Install(c)
	v, err := c.Eval(context.Background(), `typeof ping + ":" + ping()`)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if got := v.String(); got != "function:pong" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestBridgeRegisterRejectsInvalidInput(t *testing.T) {
	noop := func(call Call) (quill.Value, error) { return quill.Undefined(), nil }
	bridge := NewBridge()
	if err := bridge.Register("", noop); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := bridge.Register("a.b.c", noop); err == nil {
		t.Fatalf("expected error for nested namespace")
	}
	if err := bridge.Register("1abc", noop); err == nil {
		t.Fatalf("expected error for non-identifier")
	}
	if err := bridge.Register("ok", nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
	if err := bridge.Register("ok", noop); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	err := bridge.Register("ok", noop)
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if names := bridge.Names(); !slices.Equal(names, []string{"ok"}) {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestBridgeErrorsAreCatchable(t *testing.T) {
	boom := errors.New("boom")
	bridge := NewBridge().
		MustRegister("fail", func(call Call) (quill.Value, error) { return quill.Value{}, boom }).
		MustRegister("reject", func(call Call) (quill.Value, error) {
			return quill.Value{}, call.Throw("TypeError", "bad %s", call.Arg(0).String())
		})
	c := newTestContext(t)
	bridge.Install(c)

	v, err := c.Eval(context.Background(), `
		var out = [];
		try { fail() } catch (e) { out.push(e.message) }
		try { reject("input") } catch (e) { out.push(e instanceof TypeError, e.message) }
		out.join("|")
	`)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if got := v.String(); got != "boom|true|bad input" {
		t.Fatalf("unexpected result %q", got)
	}

	_, err = c.Eval(context.Background(), `fail()`)
	var re *quill.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error to be preserved, got %v", err)
	}
}

func TestBridgeCallReceivesGoContext(t *testing.T) {
	type key struct{}
	bridge := NewBridge().MustRegister("tenant", func(call Call) (quill.Value, error) {
		v, _ := call.Ctx.Value(key{}).(string)
		return quill.NewString(v), nil
	})
	c := newTestContext(t)
	bridge.Install(c)
	ctx := context.WithValue(context.Background(), key{}, "acme")
	v, err := c.Eval(ctx, `tenant()`)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if v.String() != "acme" {
		t.Fatalf("unexpected tenant %q", v.String())
	}
}
