package quill

import (
	"errors"
	"strings"
	"testing"
)

func parseError(t *testing.T, source string) *ParseError {
	t.Helper()
	_, err := Parse(source)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("%q: expected ParseError, got %v", source, err)
	}
	return parseErr
}

func TestParseErrorsReportFoundToken(t *testing.T) {
	cases := []struct {
		source string
		pos    Position
		msg    string
	}{
		{"var = 1;", Position{1, 5}, "expected identifier"},
		{"a b", Position{1, 3}, "expected ';'"},
		{"1 = 2", Position{1, 3}, "invalid assignment target"},
		{"f(1, 2", Position{1, 7}, "end of input"},
		{"break;", Position{1, 1}, "illegal break statement"},
		{"continue;", Position{1, 1}, "illegal continue statement"},
		{"while (1) { break nowhere; }", Position{1, 19}, "undefined label 'nowhere'"},
		{"const c;", Position{1, 8}, "initializer for const declaration"},
		{"try {}", Position{1, 7}, "'catch' or 'finally'"},
		{"throw\n1;", Position{2, 1}, "illegal newline after throw"},
		{"switch (x) { default: default: }", Position{1, 23}, "more than one default clause"},
		{"({a 1})", Position{1, 5}, "':'"},
		{"++1", Position{1, 3}, "invalid left-hand side expression in prefix operation"},
	}
	for _, tc := range cases {
		parseErr := parseError(t, tc.source)
		if parseErr.Pos != tc.pos || !strings.Contains(parseErr.Message, tc.msg) {
			t.Fatalf("%q: got %d:%d %q, want %d:%d containing %q", tc.source, parseErr.Pos.Line, parseErr.Pos.Column, parseErr.Message, tc.pos.Line, tc.pos.Column, tc.msg)
		}
	}
}

func TestParseErrorRendersCodeFrame(t *testing.T) {
	parseErr := parseError(t, "var ok = 1;\nvar = 2;")
	msg := parseErr.Error()
	if !strings.HasPrefix(msg, "parse error at 2:5:") {
		t.Fatalf("unexpected message %q", msg)
	}
	if !strings.Contains(msg, "var = 2;") {
		t.Fatalf("expected code frame in %q", msg)
	}
}

func TestAutomaticSemicolonInsertion(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"newline ends statements", "var a = 1\nvar b = 2\na + b", "3"},
		{"restricted return", "function f() {\n  return\n  1\n}\nString(f())", "undefined"},
		{"before closing brace", "function f() { return 5 } f()", "5"},
		{"postfix on next line", "var i = 1\nvar j = i\n++j\nj", "2"},
	})
}

func TestParseShapes(t *testing.T) {
	program, err := Parse(`"use strict";
var a = 1, b;
const f = (x, y = 2, ...rest) => x + y;
label: for (let k in obj) { continue label; }
o?.p?.[0]?.();`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !program.Strict {
		t.Fatalf("expected strict program")
	}
	if len(program.Statements) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(program.Statements))
	}

	decl, ok := program.Statements[1].(*VarDecl)
	if !ok || decl.Kind != "var" || len(decl.Declarations) != 2 || decl.Declarations[1].Init != nil {
		t.Fatalf("unexpected var declaration %#v", program.Statements[1])
	}

	arrowDecl := program.Statements[2].(*VarDecl)
	arrow, ok := arrowDecl.Declarations[0].Init.(*FunctionLiteral)
	if !ok || !arrow.Arrow || arrow.ExprBody == nil {
		t.Fatalf("expected concise arrow, got %#v", arrowDecl.Declarations[0].Init)
	}
	if len(arrow.Params) != 3 || arrow.Params[1].DefaultVal == nil || !arrow.Params[2].Rest {
		t.Fatalf("unexpected arrow params %#v", arrow.Params)
	}

	labeled, ok := program.Statements[3].(*LabeledStmt)
	if !ok {
		t.Fatalf("expected labelled statement, got %T", program.Statements[3])
	}
	if _, ok := labeled.Body.(*ForInStmt); !ok {
		t.Fatalf("expected for-in body, got %T", labeled.Body)
	}

	call, ok := program.Statements[4].(*ExprStmt).Expr.(*CallExpr)
	if !ok || !call.Optional {
		t.Fatalf("expected optional call, got %#v", program.Statements[4])
	}
}

func TestParseRegexAndDivisionInContext(t *testing.T) {
	program, err := Parse("var r = a / b / c; var re = /b/g;")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	div := program.Statements[0].(*VarDecl).Declarations[0].Init.(*BinaryExpr)
	if div.Operator != "/" {
		t.Fatalf("expected division, got %s", div.Operator)
	}
	if _, ok := div.Left.(*BinaryExpr); !ok {
		t.Fatalf("division must be left-associative")
	}
	if _, ok := program.Statements[1].(*VarDecl).Declarations[0].Init.(*RegexLiteral); !ok {
		t.Fatalf("expected regex literal")
	}
}

func TestParsePrecedence(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"multiplication binds tighter", "1 + 2 * 3", "7"},
		{"exponent right associative", "2 ** 3 ** 2", "512"},
		{"unary before exponent operand", "(-2) ** 2", "4"},
		{"nullish with parens", "(null ?? 1) || 2", "1"},
		{"conditional right associative", `false ? "a" : true ? "b" : "c"`, "b"},
		{"assignment right associative", "var a, b; a = b = 3; a + b", "6"},
		{"member call chain", `"a,b".split(",").map(s => s.toUpperCase()).join("")`, "AB"},
		{"new with member", "function P() { this.v = 9; } new P().v", "9"},
		{"in inside for head parens", `var n = 0; for (var i = ("a" in {a: 1}) ? 1 : 0; i < 3; i++) n++; n`, "2"},
		{"arrow returning object", "var f = () => ({a: 1}); f().a", "1"},
		{"arrow block body", "var f = x => { return x * 2; }; f(4)", "8"},
		{"keywords as property names", "var o = {default: 1, new: 2, if: 3}; o.default + o.new + o.if", "6"},
	})
}

func FuzzParseDoesNotPanic(f *testing.F) {
	f.Add("var a = 1;")
	f.Add("function f(a, b = 2, ...c) { return a?.b ?? c; }")
	f.Add("for (let i in o) { label: while (1) break label; }")
	f.Add("x = /re/g.test(y) ? {a: [1, , 2]} : () => ({});")
	f.Add("switch (a) { case 1: default: }")
	f.Fuzz(func(t *testing.T, source string) {
		program, err := Parse(source)
		if err == nil && program == nil {
			t.Fatalf("nil program without error")
		}
		if err == nil {
			_ = DumpAST(program)
		}
	})
}
