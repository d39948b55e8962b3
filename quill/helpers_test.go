package quill

import (
	"context"
	"errors"
	"testing"
)

func newTestEngine(t testing.TB, cfg Config) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func evalValue(t testing.TB, source string) Value {
	t.Helper()
	return evalWith(t, Config{}, source)
}

func evalWith(t testing.TB, cfg Config, source string) Value {
	t.Helper()
	engine := newTestEngine(t, cfg)
	result, err := engine.Run(context.Background(), source, nil)
	if err != nil {
		t.Fatalf("run failed: %v\nsource:\n%s", err, source)
	}
	return result
}

// evalString runs source and returns its completion value rendered the way
// String() would render it.
func evalString(t testing.TB, source string) string {
	t.Helper()
	v := evalValue(t, source)
	if v.IsObject() {
		t.Fatalf("expected primitive result, got %s", v)
	}
	return v.String()
}

func evalError(t testing.TB, cfg Config, source string) *RuntimeError {
	t.Helper()
	engine := newTestEngine(t, cfg)
	_, err := engine.Run(context.Background(), source, nil)
	if err == nil {
		t.Fatalf("expected runtime error\nsource:\n%s", source)
	}
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	return re
}

type evalCase struct {
	name   string
	source string
	want   string
}

func runEvalCases(t *testing.T, cases []evalCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := evalString(t, tc.source); got != tc.want {
				t.Fatalf("got %q want %q\nsource:\n%s", got, tc.want, tc.source)
			}
		})
	}
}
