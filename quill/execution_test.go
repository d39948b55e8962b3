package quill

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestOperatorsAndConversions(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"float addition", "0.1 + 0.2", "0.30000000000000004"},
		{"string concat", `"5" + 2`, "52"},
		{"numeric coercion", `"5" * "2"`, "10"},
		{"array to string", `[1, [2, 3]] + ""`, "1,2,3"},
		{"object to string", `[] + {}`, "[object Object]"},
		{"division by zero", `[1 / 0, -1 / 0, 0 / 0].join(" ")`, "Infinity -Infinity NaN"},
		{"remainder sign", `[7 % -3, -7 % 3].join()`, "1,-1"},
		{"exponent", "2 ** 10", "1024"},
		{"unsigned shift", "-1 >>> 0", "4294967295"},
		{"int32 overflow", "1 << 31", "-2147483648"},
		{"bitwise", "(5 & 3) | (8 ^ 2)", "11"},
		{"loose equality", `[null == undefined, null == 0, "1" == 1, NaN == NaN].join()`, "true,false,true,false"},
		{"strict equality", `[1 === 1, "1" === 1, null === undefined].join()`, "true,false,false"},
		{"chained comparison", "1 < 2 < 3", "true"},
		{"string comparison", `"apple" < "banana"`, "true"},
		{"typeof", `[typeof null, typeof undefined, typeof 1, typeof "", typeof {}, typeof [], typeof function(){}, typeof missing].join()`,
			"object,undefined,number,string,object,object,function,undefined"},
		{"void", "void 0", "undefined"},
		{"comma", "(1, 2, 3)", "3"},
		{"nullish", `[null ?? "d", 0 ?? 1, 0 || 1, "" && "x"].join("|")`, "d|0|1|"},
		{"logical assignment", "var a = null; a ??= 5; var b = 1; b &&= 7; var c = 0; c ||= 9; [a, b, c].join()", "5,7,9"},
		{"compound assignment", "var n = 10; n += 5; n -= 3; n *= 2; n /= 4; n %= 4; n", "2"},
		{"update expressions", "var i = 1; var a = i++; var b = ++i; [a, b, i].join()", "1,3,3"},
		{"conditional", `var x = 3; x > 2 ? "big" : "small"`, "big"},
		{"unary plus", `+"  42  " + +true`, "43"},
		{"negative zero", `[1 / -0, -0 === 0].join()`, "-Infinity,true"},
		{"in operator", `var o = {a: 1}; ["a" in o, "b" in o, 0 in [1]].join()`, "true,false,true"},
		{"delete", `var o = {a: 1, b: 2}; delete o.a; Object.keys(o).join()`, "b"},
		{"optional chain", `var o = null; var p = {q: {r: 1}}; [o?.x, p?.q?.r, p.missing?.r].join()`, ",1,"},
		{"optional call", `var o = {}; String(o.f?.())`, "undefined"},
	})
}

func TestClosuresAndScopes(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"counter", `function counter() { var n = 0; return function() { return ++n; }; }
var c = counter(); c(); c(); c()`, "3"},
		{"independent closures", `function make() { var n = 0; return () => ++n; }
var a = make(); var b = make(); a(); a(); b(); a() + ":" + b()`, "3:2"},
		{"let per iteration", `var fs = []; for (let i = 0; i < 3; i++) { fs.push(() => i); } fs.map(f => f()).join()`, "0,1,2"},
		{"var shared", `var fs = []; for (var i = 0; i < 3; i++) { fs.push(() => i); } fs.map(f => f()).join()`, "3,3,3"},
		{"block scope", `let x = 1; { let x = 2; } x`, "1"},
		{"function hoisting", `var r = f(); function f() { return 7; } r`, "7"},
		{"var hoisting", `var before = typeof v; var v = 1; before`, "undefined"},
		{"nested hoisting", `function outer() { return inner(); function inner() { return "in"; } } outer()`, "in"},
		{"implicit global", `function f() { z = 3; } f(); z`, "3"},
		{"global this", `var q = 1; this.q + globalThis.q`, "2"},
		{"default params", `function g(a, b = a + 1) { return a + b; } g(1)`, "3"},
		{"rest params", `function f(a, ...rest) { return rest.length + ":" + rest.join(); } f(1, 2, 3)`, "2:2,3"},
		{"spread args", `Math.max(...[1, 5, 3])`, "5"},
		{"spread array", `var a = [2, 3]; [1, ...a, 4].join()`, "1,2,3,4"},
		{"recursion", `function fib(n) { return n < 2 ? n : fib(n - 1) + fib(n - 2); } fib(15)`, "610"},
		{"top-level return", `var x = 5; return x * 2;`, "10"},
	})
}

func TestThisBinding(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"method call", `var o = {v: 4, get: function() { return this.v; }}; o.get()`, "4"},
		{"extracted method sees global", `var x = "global"; var o = {x: "obj", get: function() { return this.x; }}; var f = o.get; f()`, "global"},
		{"strict extracted method", `"use strict"; var o = {get: function() { return this; }}; var f = o.get; typeof f()`, "undefined"},
		{"arrow captures this", `var o = {v: 1, f: function() { return [1, 2].map(x => x + this.v).join(); }}; o.f()`, "2,3"},
		{"call", `function who() { return this.name; } who.call({name: "a"})`, "a"},
		{"apply", `function sum(a, b) { return this.base + a + b; } sum.apply({base: 10}, [1, 2])`, "13"},
		{"bind", `function who(greeting) { return greeting + " " + this.name; } var b = who.bind({name: "z"}, "hi"); b()`, "hi z"},
		{"bound ignores new this", `var o = {n: 1}; function f() { return this.n; } var g = f.bind(o); g.call({n: 2})`, "1"},
	})
}

func TestPrototypesAndConstructors(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"constructor", `function P(n) { this.n = n; } P.prototype.get = function() { return this.n; }; new P(3).get()`, "3"},
		{"instanceof", `function A() {} function B() {} var a = new A(); [a instanceof A, a instanceof B, a instanceof Object].join()`, "true,false,true"},
		{"shared prototype", `function P() {} var a = new P(); var b = new P(); P.prototype.k = 1; a.k + b.k`, "2"},
		{"own vs inherited", `function P() { this.own = 1; } P.prototype.inh = 2; var p = new P(); [p.hasOwnProperty("own"), p.hasOwnProperty("inh")].join()`, "true,false"},
		{"object create", `var base = {hi: function() { return "hi " + this.n; }}; var o = Object.create(base); o.n = "x"; o.hi()`, "hi x"},
		{"constructor returns object", `function F() { this.a = 1; return {a: 2}; } new F().a`, "2"},
		{"getPrototypeOf", `function P() {} Object.getPrototypeOf(new P()) === P.prototype`, "true"},
		{"primitive methods", `"abc".toUpperCase() + (5).toFixed(1)`, "ABC5.0"},
		{"constructor property", `function P() {} new P().constructor === P`, "true"},
	})
}

func TestControlFlow(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"labelled continue and break", `var n = 0;
outer: for (var i = 0; i < 3; i++) {
  for (var j = 0; j < 3; j++) {
    if (j == 1) continue outer;
    if (i == 2) break outer;
    n++;
  }
}
n`, "2"},
		{"switch fallthrough", `var s = ""; switch (2) { case 1: s += "a"; case 2: s += "b"; case 3: s += "c"; break; default: s += "d"; } s`, "bc"},
		{"switch default", `var s = ""; switch ("x") { case "y": s = "y"; break; default: s = "default"; } s`, "default"},
		{"switch strict match", `var s = "none"; switch (1) { case "1": s = "string"; break; case 1: s = "number"; } s`, "number"},
		{"do while", `var i = 0; do { i++; } while (i < 5); i`, "5"},
		{"while with break", `var i = 0; while (true) { if (++i > 3) break; } i`, "4"},
		{"for in order", `var o = {b: 1, 2: 1, a: 1, 1: 1}; var k = []; for (var p in o) k.push(p); k.join()`, "1,2,b,a"},
		{"for in array", `var k = []; for (var i in ["x", "y"]) k.push(i); k.join()`, "0,1"},
		{"for of", `var s = 0; for (const v of [1, 2, 3]) s += v; s`, "6"},
		{"for of string", `var out = []; for (var ch of "héy") out.push(ch); out.join("-")`, "h-é-y"},
		{"completion value of loop", `var i = 0; while (i < 3) { ++i; }`, "3"},
		{"if completion", `if (true) { "yes"; } else { "no"; }`, "yes"},
	})
}

func TestTryCatchFinally(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"catch engine error", `var r; try { null.x; } catch (e) { r = e instanceof TypeError; } r`, "true"},
		{"catch thrown primitive", `try { throw 42; } catch (e) { e + 1; }`, "43"},
		{"finally runs on return", `var log = []; function f() { try { return "a"; } finally { log.push("fin"); } } f() + log.join()`, "afin"},
		{"finally overrides return", `function f() { try { return 1; } finally { return 2; } } f()`, "2"},
		{"finally after catch", `var s = ""; try { throw new Error("x"); } catch (e) { s += e.message; } finally { s += "!"; } s`, "x!"},
		{"rethrow", `var s = ""; try { try { throw new RangeError("in"); } finally { s += "f"; } } catch (e) { s += e.name; } s`, "fRangeError"},
		{"error properties", `var e = new TypeError("bad"); [e.name, e.message, String(e), e instanceof Error].join("|")`, "TypeError|bad|TypeError: bad|true"},
		{"break through finally", `var s = ""; for (var i = 0; i < 3; i++) { try { if (i == 1) break; s += i; } finally { s += "f"; } } s`, "0ff"},
		{"reference error catchable", `try { missing; } catch (e) { e.name; }`, "ReferenceError"},
		{"custom error subclass", `function MyErr(m) { this.message = m; } MyErr.prototype = Object.create(Error.prototype); MyErr.prototype.name = "MyErr";
try { throw new MyErr("boom"); } catch (e) { e.name + ":" + e.message + ":" + (e instanceof Error); }`, "MyErr:boom:true"},
	})
}

func TestTemporalDeadZone(t *testing.T) {
	re := evalError(t, Config{}, "{ x; let x = 1; }")
	if re.Kind != KindReferenceError {
		t.Fatalf("expected ReferenceError, got %s: %s", re.Kind, re.Message)
	}
}

func TestConstReassignment(t *testing.T) {
	re := evalError(t, Config{}, "const c = 1;\nc = 2;")
	if re.Kind != KindTypeError {
		t.Fatalf("expected TypeError, got %s: %s", re.Kind, re.Message)
	}
	if re.Pos.Line != 2 {
		t.Fatalf("expected error on line 2, got %d", re.Pos.Line)
	}
}

func TestStrictMode(t *testing.T) {
	re := evalError(t, Config{}, `"use strict"; undeclared = 1;`)
	if re.Kind != KindReferenceError {
		t.Fatalf("expected ReferenceError under directive, got %s", re.Kind)
	}

	re = evalError(t, Config{StrictMode: true}, `undeclared = 1;`)
	if re.Kind != KindReferenceError {
		t.Fatalf("expected ReferenceError under config, got %s", re.Kind)
	}

	re = evalError(t, Config{StrictMode: true}, `var o = Object.freeze({a: 1}); o.a = 2;`)
	if re.Kind != KindTypeError {
		t.Fatalf("expected TypeError writing frozen object, got %s", re.Kind)
	}

	if got := evalString(t, `var o = Object.freeze({a: 1}); o.a = 2; o.a`); got != "1" {
		t.Fatalf("sloppy write to frozen object should be ignored, got %s", got)
	}
}

func TestUncaughtThrowCarriesValue(t *testing.T) {
	re := evalError(t, Config{}, "var a = 1;\nthrow {code: 7};")
	if re.Kind != KindUncaughtThrow {
		t.Fatalf("expected UncaughtThrow, got %s", re.Kind)
	}
	if re.Pos.Line != 2 {
		t.Fatalf("expected line 2, got %d", re.Pos.Line)
	}
	if got := re.Thrown.Export(); !reflect.DeepEqual(got, map[string]any{"code": 7.0}) {
		t.Fatalf("unexpected thrown value %#v", got)
	}
}

func TestRuntimeErrorFramesNameEachCaller(t *testing.T) {
	re := evalError(t, Config{}, "function inner() {\n  return null.x;\n}\nfunction outer() { return inner(); }\nouter();")
	var got []string
	for _, frame := range re.Frames {
		got = append(got, fmt.Sprintf("%s@%d", frame.Function, frame.Pos.Line))
	}
	want := "inner@2,outer@4,<script>@5"
	if strings.Join(got, ",") != want {
		t.Fatalf("got frames %v, want %s", got, want)
	}
}

func TestEngineErrorMessageOmitsKind(t *testing.T) {
	re := evalError(t, Config{}, "var a;\na.b;")
	if re.Kind != KindTypeError || strings.HasPrefix(re.Message, "TypeError") || re.Message == "" {
		t.Fatalf("unexpected kind/message %s %q", re.Kind, re.Message)
	}
	if !strings.HasPrefix(re.Error(), "TypeError: ") || strings.Contains(re.Error(), "TypeError: TypeError") {
		t.Fatalf("kind repeated in %q", re.Error())
	}

	re = evalError(t, Config{}, `throw new RangeError("custom");`)
	if re.Kind != KindUncaughtThrow || re.Message != "RangeError: custom" {
		t.Fatalf("uncaught script error should keep its name: %s %q", re.Kind, re.Message)
	}
}

func TestEngineErrorKindsAndFrames(t *testing.T) {
	re := evalError(t, Config{}, "function inner() {\n  return null.x;\n}\nfunction outer() { return inner(); }\nouter();")
	if re.Kind != KindTypeError {
		t.Fatalf("expected TypeError, got %s", re.Kind)
	}
	if re.Pos.Line != 2 {
		t.Fatalf("expected failure on line 2, got %d", re.Pos.Line)
	}
	var names []string
	for _, frame := range re.Frames {
		names = append(names, frame.Function)
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "inner") || !strings.Contains(joined, "outer") {
		t.Fatalf("expected inner and outer frames, got %v", names)
	}
	if re.CodeFrame == "" {
		t.Fatalf("expected code frame")
	}

	re = evalError(t, Config{}, "undefinedFunction()")
	if re.Kind != KindReferenceError {
		t.Fatalf("expected ReferenceError, got %s", re.Kind)
	}
	re = evalError(t, Config{}, "var n = 1; n()")
	if re.Kind != KindTypeError {
		t.Fatalf("expected TypeError calling a number, got %s", re.Kind)
	}
}

func TestStackOverflowIsUncatchableAndRecoverable(t *testing.T) {
	engine := newTestEngine(t, Config{RecursionLimit: 50})
	_, err := engine.Run(context.Background(), `function r() { return r(); } try { r(); } catch (e) { "caught"; }`, nil)
	var re *RuntimeError
	if !errors.As(err, &re) || re.Kind != KindStackOverflow {
		t.Fatalf("expected StackOverflow, got %v", err)
	}
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected errors.Is ErrStackOverflow")
	}

	got, err := engine.Run(context.Background(), `function d(n) { return n == 0 ? 0 : 1 + d(n - 1); } d(40)`, nil)
	if err != nil {
		t.Fatalf("later run failed: %v", err)
	}
	if got.Number() != 40 {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestStepQuota(t *testing.T) {
	re := evalError(t, Config{StepQuota: 1000}, "while (true) {}")
	if re.Kind != KindStepQuota || !errors.Is(re, ErrStepQuota) {
		t.Fatalf("expected StepQuota, got %v", re)
	}

	re = evalError(t, Config{StepQuota: 1000}, "var i = 0; try { while (true) { i++; } } catch (e) { 'caught'; }")
	if re.Kind != KindStepQuota {
		t.Fatalf("step quota must not be catchable, got %s", re.Kind)
	}

	if got := evalWith(t, Config{StepQuota: 1000}, "var s = 0; for (var i = 0; i < 10; i++) s += i; s"); got.Number() != 45 {
		t.Fatalf("unexpected result under quota: %v", got)
	}
}

func TestNegativeStepQuotaRejected(t *testing.T) {
	if _, err := NewEngine(Config{StepQuota: -1}); err == nil {
		t.Fatalf("expected negative quota error")
	}
}

func TestCancellation(t *testing.T) {
	engine := newTestEngine(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Run(ctx, "while (true) {}", nil)
	var re *RuntimeError
	if !errors.As(err, &re) || re.Kind != KindCanceled {
		t.Fatalf("expected Canceled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected errors.Is context.Canceled, got %v", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = engine.Run(ctx, "for (;;) {}", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestContextSharesGlobalsAcrossRuns(t *testing.T) {
	engine := newTestEngine(t, Config{})
	c := engine.NewContext(map[string]Value{"seed": NewNumber(2)})
	if _, err := c.Eval(context.Background(), "var total = seed * 10; function bump() { total++; return total; }"); err != nil {
		t.Fatalf("first eval: %v", err)
	}
	got, err := c.Eval(context.Background(), "bump()")
	if err != nil {
		t.Fatalf("second eval: %v", err)
	}
	if got.Number() != 21 {
		t.Fatalf("unexpected total %v", got)
	}
	if c.Get("total").Number() != 21 {
		t.Fatalf("Get did not observe global")
	}

	other := engine.NewContext(nil)
	if v, err := other.Eval(context.Background(), "typeof total"); err != nil || v.Str() != "undefined" {
		t.Fatalf("contexts must not share globals: %v %v", v, err)
	}
}

func TestCompileCachesPrograms(t *testing.T) {
	engine := newTestEngine(t, Config{})
	first, err := engine.Compile("1 + 1")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	c := engine.NewContext(nil)
	for i := 0; i < 3; i++ {
		got, err := c.Run(context.Background(), first)
		if err != nil || got.Number() != 2 {
			t.Fatalf("run %d: %v %v", i, got, err)
		}
	}
	if _, err := engine.Compile("1 +"); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestHostFunctions(t *testing.T) {
	engine := newTestEngine(t, Config{})
	c := engine.NewContext(nil)
	sentinel := errors.New("backend unavailable")

	c.Set("add", c.NewFunction("add", func(exec *Execution, this Value, args []Value) (Value, error) {
		sum := 0.0
		for _, arg := range args {
			sum += arg.Number()
		}
		return NewNumber(sum), nil
	}))
	c.Set("fail", c.NewFunction("fail", func(exec *Execution, this Value, args []Value) (Value, error) {
		return Value{}, sentinel
	}))
	c.Set("reject", c.NewFunction("reject", func(exec *Execution, this Value, args []Value) (Value, error) {
		return Value{}, exec.Throw("RangeError", "value %d too large", 9)
	}))

	got, err := c.Eval(context.Background(), "add(1, 2, 3)")
	if err != nil || got.Number() != 6 {
		t.Fatalf("add: %v %v", got, err)
	}

	got, err = c.Eval(context.Background(), "try { fail(); } catch (e) { e.message; }")
	if err != nil || got.Str() != "backend unavailable" {
		t.Fatalf("caught host error: %v %v", got, err)
	}

	got, err = c.Eval(context.Background(), "try { reject(); } catch (e) { e.name + ': ' + e.message; }")
	if err != nil || got.Str() != "RangeError: value 9 too large" {
		t.Fatalf("caught thrown error: %v %v", got, err)
	}

	_, err = c.Eval(context.Background(), "fail()")
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected uncaught host error to wrap sentinel, got %v", err)
	}
	var re *RuntimeError
	if !errors.As(err, &re) || re.Kind != KindUncaughtThrow {
		t.Fatalf("expected UncaughtThrow, got %v", err)
	}

	_, err = c.Eval(context.Background(), "reject()")
	if !errors.As(err, &re) || re.Kind != KindRangeError {
		t.Fatalf("expected RangeError kind, got %v", err)
	}
}

func TestCallScriptFunctionFromGo(t *testing.T) {
	engine := newTestEngine(t, Config{})
	c := engine.NewContext(nil)
	if _, err := c.Eval(context.Background(), "function greet(name) { return this.prefix + name; }"); err != nil {
		t.Fatalf("eval: %v", err)
	}
	this := c.NewObject()
	this.Set("prefix", NewString("hello "))
	got, err := c.Call(context.Background(), c.Get("greet"), NewObjectValue(this), NewString("go"))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got.Str() != "hello go" {
		t.Fatalf("unexpected result %q", got.Str())
	}

	if _, err := c.Call(context.Background(), NewNumber(1), Undefined()); err == nil {
		t.Fatalf("expected error calling a number")
	}
}

func TestValueConversions(t *testing.T) {
	engine := newTestEngine(t, Config{})
	c := engine.NewContext(nil)
	c.Set("input", c.ToValue(map[string]any{
		"name":  "quill",
		"tags":  []string{"a", "b"},
		"count": 3,
		"meta":  map[string]any{"ok": true, "none": nil},
	}))
	got, err := c.Eval(context.Background(), `({
  summary: input.name + ":" + input.tags.join("+") + ":" + (input.count + 1),
  ok: input.meta.ok,
  none: input.meta.none,
  list: [1, "x", false],
  fn: function() {}
})`)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	want := map[string]any{
		"summary": "quill:a+b:4",
		"ok":      true,
		"none":    nil,
		"list":    []any{1.0, "x", false},
		"fn":      nil,
	}
	if exported := got.Export(); !reflect.DeepEqual(exported, want) {
		t.Fatalf("unexpected export:\n got %#v\nwant %#v", exported, want)
	}
}

func TestInspectRendering(t *testing.T) {
	cases := map[string]string{
		`({a: 1, b: "x", c: [1, 2]})`: `{ a: 1, b: "x", c: [1, 2] }`,
		`[]`:                          `[]`,
		`({})`:                        `{}`,
		`(function named() {})`:       `[Function: named]`,
		`new Error("m")`:              `Error: m`,
		`var o = {}; o.self = o; o`:   `{ self: [Circular] }`,
		`/a+/gi`:                      `/a+/gi`,
	}
	for source, want := range cases {
		if got := evalValue(t, source).String(); got != want {
			t.Fatalf("%s: got %q want %q", source, got, want)
		}
	}
}

func TestConcurrentRunsOnOneEngine(t *testing.T) {
	engine := newTestEngine(t, Config{})
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(n int) {
			got, err := engine.Run(context.Background(), "var s = 0; for (var i = 0; i < 100; i++) s += n; s", map[string]Value{"n": NewNumber(float64(n))})
			if err == nil && got.Number() != float64(100*n) {
				err = fmt.Errorf("run %d: got %v", n, got)
			}
			errs <- err
		}(i)
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent run failed: %v", err)
		}
	}
}
