package quill

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrorKind classifies failures surfaced to the embedder.
type ErrorKind string

const (
	KindLexError       ErrorKind = "LexError"
	KindParseError     ErrorKind = "ParseError"
	KindReferenceError ErrorKind = "ReferenceError"
	KindTypeError      ErrorKind = "TypeError"
	KindRangeError     ErrorKind = "RangeError"
	KindSyntaxError    ErrorKind = "SyntaxError"
	KindStackOverflow  ErrorKind = "StackOverflow"
	KindStepQuota      ErrorKind = "StepQuota"
	KindCanceled       ErrorKind = "Canceled"
	KindUncaughtThrow  ErrorKind = "UncaughtThrow"
)

const (
	runtimeErrorFrameHead = 8
	runtimeErrorFrameTail = 8
)

var (
	// ErrStackOverflow is matched by errors.Is for call-depth failures.
	ErrStackOverflow = errors.New("maximum call depth exceeded")
	// ErrStepQuota is matched by errors.Is when the step quota is exhausted.
	ErrStepQuota = errors.New("step quota exceeded")
)

// LexError reports text the lexer could not turn into tokens.
type LexError struct {
	Pos     Position
	Message string
	source  string
}

func (e *LexError) Error() string {
	return withCodeFrame(fmt.Sprintf("lex error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message), e.source, e.Pos)
}

// ParseError reports the first unexpected token; parsing stops there.
type ParseError struct {
	Pos      Position
	Message  string
	Expected string
	Found    Token
	source   string
}

func (e *ParseError) Error() string {
	return withCodeFrame(fmt.Sprintf("parse error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message), e.source, e.Pos)
}

type StackFrame struct {
	Function string
	Pos      Position
}

// RuntimeError is the single failure type produced by evaluation. Thrown holds
// the script value for uncaught throws and engine-raised script errors.
type RuntimeError struct {
	Kind      ErrorKind
	Message   string
	Pos       Position
	CodeFrame string
	Frames    []StackFrame
	Thrown    Value

	cause error
}

func (re *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", re.Kind, re.Message)
	if re.CodeFrame != "" {
		b.WriteString("\n")
		b.WriteString(re.CodeFrame)
	}
	renderFrame := func(frame StackFrame) {
		if frame.Pos.Line > 0 && frame.Pos.Column > 0 {
			fmt.Fprintf(&b, "\n  at %s (%d:%d)", frame.Function, frame.Pos.Line, frame.Pos.Column)
		} else if frame.Pos.Line > 0 {
			fmt.Fprintf(&b, "\n  at %s (line %d)", frame.Function, frame.Pos.Line)
		} else {
			fmt.Fprintf(&b, "\n  at %s", frame.Function)
		}
	}

	if len(re.Frames) <= runtimeErrorFrameHead+runtimeErrorFrameTail {
		for _, frame := range re.Frames {
			renderFrame(frame)
		}
		return b.String()
	}

	for _, frame := range re.Frames[:runtimeErrorFrameHead] {
		renderFrame(frame)
	}
	omitted := len(re.Frames) - (runtimeErrorFrameHead + runtimeErrorFrameTail)
	fmt.Fprintf(&b, "\n  ... %d frames omitted ...", omitted)
	for _, frame := range re.Frames[len(re.Frames)-runtimeErrorFrameTail:] {
		renderFrame(frame)
	}
	return b.String()
}

// Unwrap exposes sentinel causes such as ErrStackOverflow and context errors.
func (re *RuntimeError) Unwrap() error {
	return re.cause
}

// throwSignal carries a script-level throw up through Go call frames. It is
// the only error the evaluator lets script try/catch intercept.
type throwSignal struct {
	value  Value
	pos    Position
	kind   ErrorKind
	frames []StackFrame
}

func (t *throwSignal) Error() string {
	return "uncaught " + t.value.describe()
}

// errorKindFor maps an Error constructor name to the kind reported when an
// engine-raised error escapes the script.
func errorKindFor(name string) ErrorKind {
	switch kind := ErrorKind(name); kind {
	case KindTypeError, KindRangeError, KindReferenceError, KindSyntaxError:
		return kind
	}
	return ""
}

func withCodeFrame(msg, source string, pos Position) string {
	if frame := formatCodeFrame(source, pos); frame != "" {
		return msg + "\n" + frame
	}
	return msg
}

func formatCodeFrame(source string, pos Position) string {
	if source == "" || pos.Line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if pos.Line > len(lines) {
		return ""
	}

	lineText := strings.TrimRight(lines[pos.Line-1], "\r")
	lineRunes := []rune(lineText)

	column := pos.Column
	if column <= 0 {
		column = 1
	}
	if column > len(lineRunes)+1 {
		column = len(lineRunes) + 1
	}

	lineLabel := strconv.Itoa(pos.Line)
	gutterPad := strings.Repeat(" ", len(lineLabel))
	caretPad := strings.Repeat(" ", column-1)

	return fmt.Sprintf(
		"  --> line %d, column %d\n %s | %s\n %s | %s^",
		pos.Line,
		column,
		lineLabel,
		lineText,
		gutterPad,
		caretPad,
	)
}
