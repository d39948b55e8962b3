package quill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDiagnoseCleanSource(t *testing.T) {
	report := Diagnose("function f(x) {\n  return x * 2;\n}\nf(2);\n")
	if report.HasErrors() || len(report.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics %+v", report.Diagnostics)
	}
	if report.Program == nil || len(report.Tokens) == 0 {
		t.Fatalf("expected tokens and program")
	}
}

func TestDiagnoseLexAndParseErrors(t *testing.T) {
	report := Diagnose("var s = 'open")
	if !report.HasErrors() || len(report.Diagnostics) != 1 {
		t.Fatalf("expected one error, got %+v", report.Diagnostics)
	}
	if d := report.Diagnostics[0]; d.Kind != "LexError" || d.Line != 1 || d.Column != 9 {
		t.Fatalf("unexpected lex diagnostic %+v", d)
	}
	if report.Program != nil {
		t.Fatalf("program must be nil after a lex error")
	}

	report = Diagnose("var = 1;")
	if d := report.Diagnostics[0]; d.Kind != "ParseError" || d.Severity != SeverityError || d.Column != 5 {
		t.Fatalf("unexpected parse diagnostic %+v", d)
	}
	if len(report.Tokens) == 0 {
		t.Fatalf("tokens should still be reported for parse errors")
	}
}

func TestDiagnoseUnreachableStatements(t *testing.T) {
	source := `function a() {
  return 1;
  log("never");
}
function b(x) {
  if (x) { throw new Error("x"); } else { return 2; }
  x++;
}
function c() {
  return helper();
  function helper() { return 3; }
}
while (true) {
  break;
  continue;
}
function d() {
  try { return 1; } finally { cleanup(); }
  after();
}
`
	report := Diagnose(source)
	if report.HasErrors() {
		t.Fatalf("lint findings must be warnings: %+v", report.Diagnostics)
	}
	var got []string
	for _, d := range report.Diagnostics {
		if d.Kind != "Lint" || d.Severity != SeverityWarning || d.Message != "unreachable statement" {
			t.Fatalf("unexpected diagnostic %+v", d)
		}
		got = append(got, fmt.Sprintf("%d:%d", d.Line, d.Column))
	}
	want := []string{"3:3", "7:3", "15:3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestDescribeRuntimeAndForeignErrors(t *testing.T) {
	engine := newTestEngine(t, Config{})
	_, err := engine.Run(context.Background(), "var a;\na.b;", nil)
	d := Describe(err)
	if d.Kind != "TypeError" || d.Line != 2 || d.Severity != SeverityError {
		t.Fatalf("unexpected runtime diagnostic %+v", d)
	}

	d = Describe(errors.New("disk full"))
	if d.Kind != "Error" || d.Message != "disk full" || d.Line != 0 {
		t.Fatalf("unexpected foreign diagnostic %+v", d)
	}
}

func TestDumpAST(t *testing.T) {
	program, err := Parse("let x = 1 + 2;")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := `Program @1:1
  Statements[0]: VarDecl @1:1 Kind="let"
    Declarations[0]: VarDeclarator Name="x"
      Init: BinaryExpr @1:11 Operator="+"
        Left: NumberLiteral @1:9 Value=1 Raw="1"
        Right: NumberLiteral @1:13 Value=2 Raw="2"
`
	if got := DumpAST(program); got != want {
		t.Fatalf("unexpected dump:\n%s\nwant:\n%s", got, want)
	}
}

func TestDumpASTBooleansAndFlags(t *testing.T) {
	program, err := Parse("f?.(false);")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	dump := DumpAST(program)
	for _, want := range []string{"CallExpr @1:2 Optional", "Callee: Identifier @1:1 Name=\"f\"", "Args[0]: BoolLiteral @1:5 Value=false"} {
		if !strings.Contains(dump, want) {
			t.Fatalf("dump missing %q:\n%s", want, dump)
		}
	}
}

func TestKeywordsSorted(t *testing.T) {
	kws := Keywords()
	if len(kws) != len(keywords) {
		t.Fatalf("expected %d keywords, got %d", len(keywords), len(kws))
	}
	for i := 1; i < len(kws); i++ {
		if kws[i-1] >= kws[i] {
			t.Fatalf("keywords not sorted at %d: %v", i, kws)
		}
	}
}
