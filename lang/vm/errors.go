package vm

import (
	"fmt"
	"strings"

	"github.com/mna/ember/lang/value"
)

// FrameInfo is one entry of a captured call-stack snapshot, attached to an
// uncaught exception or a cancellation so the host can display a backtrace
// (spec.md §4.5/§7: "a captured stack-frame list is attached for host
// inspection").
type FrameInfo struct {
	Function string
	Line     int
}

// scriptThrow is the Go-level carrier for a script `throw` (or any runtime
// error, all of which spec.md §7 makes catchable by `try`) as it propagates
// up through nested runFrame/callFunction calls. Frames is populated lazily,
// exactly once, at the point the exception first finds no handler in the
// frame where it is currently being searched (see Thread.callFunction).
type scriptThrow struct {
	Value  value.Value
	Frames []FrameInfo
}

func (e *scriptThrow) Error() string { return value.ToString(e.Value) }

func throwf(format string, args ...interface{}) *scriptThrow {
	return &scriptThrow{Value: value.NewString(fmt.Sprintf(format, args...))}
}

// CancelledError reports thread cancellation (step-budget exhaustion or a
// host-requested stop). Unlike every other runtime error kind, this one is
// NOT catchable by script `try`: it must unwind the whole call stack
// unconditionally, the same "critical, non-catchable error" carve-out the
// teacher's machine.go leaves as a TODO for its own step-budget cancellation.
type CancelledError struct {
	Reason string
}

func (e *CancelledError) Error() string { return "thread cancelled: " + e.Reason }

// RuntimeError is the host-facing form of an exception that propagated past
// every try/catch in the program: the string-conversion of the thrown
// value, plus the captured frame list (spec.md §4.5).
type RuntimeError struct {
	Message string
	Value   value.Value
	Frames  []FrameInfo
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i := len(e.Frames) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "\n\tat %s:%d", e.Frames[i].Function, e.Frames[i].Line)
	}
	return b.String()
}

// asRuntimeError converts any error returned from the top of the call stack
// into the host-facing RuntimeError shape: a *scriptThrow carries its own
// message/value/frames; a *CancelledError or any other error is wrapped
// as-is with no frames (a critical error or a host/internal failure, not a
// script-level exception).
func asRuntimeError(err error) error {
	if err == nil {
		return nil
	}
	if st, ok := err.(*scriptThrow); ok {
		return &RuntimeError{Message: value.ToString(st.Value), Value: st.Value, Frames: st.Frames}
	}
	return err
}
