package quill

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Execution is the state of one run: call stack, step counter and the
// strictness of the code currently executing.
type Execution struct {
	engine       *Engine
	context      *Context
	realm        *realm
	source       string
	ctx          context.Context
	quota        int
	recursionCap int
	steps        int
	callStack    []callFrame
	strict       bool
	pos          Position

	// joining guards Array.prototype.join against cyclic arrays.
	joining map[*Object]bool
}

type callFrame struct {
	Function string
	Pos      Position
}

// Context returns the global environment the execution runs in.
func (exec *Execution) Context() *Context { return exec.context }

// GoContext returns the context.Context the run was started with.
func (exec *Execution) GoContext() context.Context {
	if exec.ctx == nil {
		return context.Background()
	}
	return exec.ctx
}

// Throw builds a catchable script error of the given constructor name, for
// native functions to return.
func (exec *Execution) Throw(name, format string, args ...any) error {
	return exec.throwValue(NewObjectValue(exec.realm.newError(name, fmt.Sprintf(format, args...))), errorKindFor(name))
}

func (exec *Execution) step() error {
	exec.steps++
	if exec.quota > 0 && exec.steps > exec.quota {
		return exec.fault(KindStepQuota, ErrStepQuota, fmt.Sprintf("step quota exceeded (%d)", exec.quota))
	}
	if exec.ctx != nil && exec.steps&63 == 0 {
		select {
		case <-exec.ctx.Done():
			return exec.fault(KindCanceled, exec.ctx.Err(), exec.ctx.Err().Error())
		default:
		}
	}
	return nil
}

func (exec *Execution) pushFrame(function string, pos Position) error {
	if exec.recursionCap > 0 && len(exec.callStack) >= exec.recursionCap {
		exec.pos = pos
		return exec.fault(KindStackOverflow, ErrStackOverflow, fmt.Sprintf("maximum call depth exceeded (limit %d)", exec.recursionCap))
	}
	exec.callStack = append(exec.callStack, callFrame{Function: function, Pos: pos})
	return nil
}

func (exec *Execution) popFrame() {
	if len(exec.callStack) == 0 {
		return
	}
	exec.callStack = exec.callStack[:len(exec.callStack)-1]
}

// frames renders the stack innermost first, starting at the failure point.
func (exec *Execution) frames(pos Position) []StackFrame {
	frames := make([]StackFrame, 0, len(exec.callStack)+1)
	if len(exec.callStack) == 0 {
		return append(frames, StackFrame{Function: "<script>", Pos: pos})
	}
	current := exec.callStack[len(exec.callStack)-1]
	frames = append(frames, StackFrame{Function: current.Function, Pos: pos})
	// Each call site belongs to the caller's frame.
	for i := len(exec.callStack) - 1; i >= 0; i-- {
		caller := "<script>"
		if i > 0 {
			caller = exec.callStack[i-1].Function
		}
		frames = append(frames, StackFrame{Function: caller, Pos: exec.callStack[i].Pos})
	}
	return frames
}

// fault builds an error script code cannot catch.
func (exec *Execution) fault(kind ErrorKind, cause error, message string) error {
	return &RuntimeError{
		Kind:      kind,
		Message:   message,
		Pos:       exec.pos,
		CodeFrame: formatCodeFrame(exec.source, exec.pos),
		Frames:    exec.frames(exec.pos),
		cause:     cause,
	}
}

func (exec *Execution) throwValue(v Value, kind ErrorKind) error {
	return &throwSignal{value: v, pos: exec.pos, kind: kind, frames: exec.frames(exec.pos)}
}

func (exec *Execution) throwError(kind ErrorKind, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return exec.throwValue(NewObjectValue(exec.realm.newError(string(kind), msg)), kind)
}

func (exec *Execution) throwTypeError(format string, args ...any) error {
	return exec.throwError(KindTypeError, format, args...)
}

func (exec *Execution) throwRangeError(format string, args ...any) error {
	return exec.throwError(KindRangeError, format, args...)
}

func (exec *Execution) throwReferenceError(format string, args ...any) error {
	return exec.throwError(KindReferenceError, format, args...)
}

// catchable converts err into the value a catch clause binds. Engine faults
// are not catchable. Plain Go errors returned by host callbacks surface as
// Error instances.
func (exec *Execution) catchable(err error) (Value, bool) {
	var sig *throwSignal
	if errors.As(err, &sig) {
		return sig.value, true
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return Value{}, false
	}
	return NewObjectValue(exec.realm.newError("Error", err.Error())), true
}

// finalizeError turns an uncaught throw into a *RuntimeError.
func (exec *Execution) finalizeError(err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re
	}
	var sig *throwSignal
	if !errors.As(err, &sig) {
		return &RuntimeError{
			Kind:      KindUncaughtThrow,
			Message:   err.Error(),
			Pos:       exec.pos,
			CodeFrame: formatCodeFrame(exec.source, exec.pos),
			Frames:    exec.frames(exec.pos),
			cause:     err,
		}
	}
	kind := sig.kind
	message := thrownMessage(sig.value)
	if kind == "" {
		kind = KindUncaughtThrow
		message = sig.value.describe()
	}
	return &RuntimeError{
		Kind:      kind,
		Message:   message,
		Pos:       sig.pos,
		CodeFrame: formatCodeFrame(exec.source, sig.pos),
		Frames:    slices.Clone(sig.frames),
		Thrown:    sig.value,
	}
}

func (exec *Execution) runProgram(program *Program) (Value, error) {
	env := exec.context.env
	exec.strict = exec.strict || program.Strict
	for _, name := range program.varNames {
		env.declareVar(name)
	}
	exec.hoistDeclarations(program.Statements, env)

	c, err := exec.execStatements(program.Statements, env)
	if err != nil {
		return Value{}, err
	}
	return c.value, nil
}

// thrownMessage is the message of an Error instance, or the rendered value
// for anything else. The error name is already carried by the kind.
func thrownMessage(v Value) string {
	if obj := v.Object(); obj != nil && obj.Class == classError {
		if msg := obj.get("message"); msg.kind == KindString {
			return msg.Str()
		}
	}
	return v.describe()
}
