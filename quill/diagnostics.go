package quill

import (
	"errors"
	"sort"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is the flat, serializable form of a lex, parse or runtime
// failure, or of a lint warning.
type Diagnostic struct {
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
}

// Describe flattens any error returned by this package. Other errors map to
// kind "Error" without a position.
func Describe(err error) Diagnostic {
	var (
		lexErr   *LexError
		parseErr *ParseError
		runErr   *RuntimeError
	)
	switch {
	case errors.As(err, &lexErr):
		return Diagnostic{Kind: string(KindLexError), Severity: SeverityError, Message: lexErr.Message, Line: lexErr.Pos.Line, Column: lexErr.Pos.Column}
	case errors.As(err, &parseErr):
		return Diagnostic{Kind: string(KindParseError), Severity: SeverityError, Message: parseErr.Message, Line: parseErr.Pos.Line, Column: parseErr.Pos.Column}
	case errors.As(err, &runErr):
		return Diagnostic{Kind: string(runErr.Kind), Severity: SeverityError, Message: runErr.Message, Line: runErr.Pos.Line, Column: runErr.Pos.Column}
	}
	return Diagnostic{Kind: "Error", Severity: SeverityError, Message: err.Error()}
}

// Report is the result of checking source without running it.
type Report struct {
	Tokens      []Token      `json:"-"`
	Program     *Program     `json:"-"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func (r Report) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Diagnose lexes and parses source and lints the result. It never evaluates.
func Diagnose(source string) Report {
	var report Report
	tokens, err := Tokenize(source)
	report.Tokens = tokens
	if err != nil {
		report.Diagnostics = append(report.Diagnostics, Describe(err))
		return report
	}
	program, err := Parse(source)
	if err != nil {
		report.Diagnostics = append(report.Diagnostics, Describe(err))
		return report
	}
	report.Program = program
	report.Diagnostics = lintProgram(program)
	return report
}

func lintProgram(program *Program) []Diagnostic {
	l := &linter{}
	l.statements(program.Statements)
	sort.SliceStable(l.warnings, func(i, j int) bool {
		if l.warnings[i].Line != l.warnings[j].Line {
			return l.warnings[i].Line < l.warnings[j].Line
		}
		return l.warnings[i].Column < l.warnings[j].Column
	})
	return l.warnings
}

type linter struct {
	warnings []Diagnostic
}

func (l *linter) warn(pos Position, message string) {
	l.warnings = append(l.warnings, Diagnostic{Kind: "Lint", Severity: SeverityWarning, Message: message, Line: pos.Line, Column: pos.Column})
}

// statements reports code after an unconditional jump. Function declarations
// are hoisted, so they are never unreachable.
func (l *linter) statements(stmts []Statement) bool {
	terminated := false
	for _, stmt := range stmts {
		if terminated {
			if decl, ok := stmt.(*FunctionDecl); ok {
				l.statements(decl.Func.Body)
				continue
			}
			if _, ok := stmt.(*EmptyStmt); !ok {
				l.warn(stmt.Pos(), "unreachable statement")
			}
			continue
		}
		if l.terminates(stmt) {
			terminated = true
		}
	}
	return terminated
}

func (l *linter) terminates(stmt Statement) bool {
	switch s := stmt.(type) {
	case *ReturnStmt, *ThrowStmt, *BreakStmt, *ContinueStmt:
		return true
	case *BlockStmt:
		return l.statements(s.Body)
	case *IfStmt:
		consequent := l.terminates(s.Consequent)
		if s.Alternate == nil {
			return false
		}
		return l.terminates(s.Alternate) && consequent
	case *WhileStmt:
		l.terminates(s.Body)
	case *DoWhileStmt:
		l.terminates(s.Body)
	case *ForStmt:
		l.terminates(s.Body)
	case *ForInStmt:
		l.terminates(s.Body)
	case *LabeledStmt:
		l.terminates(s.Body)
	case *SwitchStmt:
		for _, c := range s.Cases {
			l.statements(c.Body)
		}
	case *FunctionDecl:
		l.statements(s.Func.Body)
	case *TryStmt:
		block := l.statements(s.Block.Body)
		handler := false
		if s.Handler != nil {
			handler = l.statements(s.Handler.Body)
		}
		if s.Finalizer != nil && l.statements(s.Finalizer.Body) {
			return true
		}
		return s.Handler != nil && block && handler
	}
	return false
}
