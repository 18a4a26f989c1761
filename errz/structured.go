// Package errz defines the error taxonomy of the actionvm engine.
package errz

import (
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/actionvm/object"
)

// ErrorKind represents the category of an engine error.
type ErrorKind int

const (
	// ErrWarning is a diagnostic that never unwinds execution.
	ErrWarning ErrorKind = iota
	// ErrScript is a value thrown by script code.
	ErrScript
	// ErrRuntime is an internal fault while executing an action.
	ErrRuntime
	// ErrFatal stops the engine and disables further execution.
	ErrFatal
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrWarning:
		return "warning"
	case ErrScript:
		return "script error"
	case ErrRuntime:
		return "runtime error"
	case ErrFatal:
		return "fatal error"
	default:
		return "error"
	}
}

// Location identifies an action inside a program.
type Location struct {
	// Program is the identifier of the program.
	Program string
	// Position is the index of the action in its action list.
	Position int
	// Action is the action name.
	Action string
}

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool {
	return l.Program == "" && l.Action == ""
}

func (l Location) String() string {
	if l.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s@%d", l.Action, l.Position)
}

// Warning is a recoverable diagnostic. Warnings are logged and reported
// but never change control flow.
type Warning struct {
	Message  string
	Location Location
}

func (w *Warning) Error() string {
	if w.Location.IsZero() {
		return fmt.Sprintf("%s: %s", ErrWarning, w.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrWarning, w.Message, w.Location)
}

// NewWarning creates a warning with a formatted message.
func NewWarning(format string, args ...any) *Warning {
	return &Warning{Message: fmt.Sprintf(format, args...)}
}

// ScriptError carries a value thrown by script code. It is the only
// error kind a script try block can catch.
type ScriptError struct {
	Value   object.Value
	Version int
}

func (e *ScriptError) Error() string {
	s, err := object.ToString(e.Value, e.Version)
	if err != nil {
		s = e.Value.Inspect()
	}
	return fmt.Sprintf("%s: uncaught exception: %s", ErrScript, s)
}

// NewScriptError wraps a thrown value.
func NewScriptError(value object.Value, version int) *ScriptError {
	if value == nil {
		value = object.Undefined
	}
	return &ScriptError{Value: value, Version: version}
}

// RuntimeError is an internal fault raised while executing an action.
type RuntimeError struct {
	Message  string
	Location Location
	Cause    error
}

func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause)
	}
	if e.Location.IsZero() {
		return fmt.Sprintf("%s: %s", ErrRuntime, msg)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrRuntime, msg, e.Location)
}

// Unwrap returns the underlying cause of the error.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// NewRuntimeErrorf creates a RuntimeError with a formatted message.
func NewRuntimeErrorf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// WithLocation attaches a location if none is set yet.
func (e *RuntimeError) WithLocation(loc Location) *RuntimeError {
	if e.Location.IsZero() {
		e.Location = loc
	}
	return e
}

// WithCause wraps the error with a cause.
func (e *RuntimeError) WithCause(cause error) *RuntimeError {
	e.Cause = cause
	return e
}

// FatalReason names the condition that stopped the engine.
type FatalReason int

const (
	RecursionLimit FatalReason = iota
	ErrorsLimit
	HangTimeout
)

// String returns the message reported for the reason.
func (r FatalReason) String() string {
	switch r {
	case RecursionLimit:
		return "long running script -- recursion limit is reached"
	case ErrorsLimit:
		return "long running script -- errors limit is reached"
	case HangTimeout:
		return "long running script -- instruction hang timeout"
	default:
		return "long running script"
	}
}

// FatalError unwinds all execution and disables the engine context.
type FatalError struct {
	Reason FatalReason
}

func (e *FatalError) Error() string {
	return e.Reason.String()
}

// NewFatalError creates a FatalError for the given reason.
func NewFatalError(reason FatalReason) *FatalError {
	return &FatalError{Reason: reason}
}

// IsFatal reports whether err is or wraps a FatalError.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// AsScriptError returns the ScriptError wrapped by err, if any.
func AsScriptError(err error) (*ScriptError, bool) {
	var scriptErr *ScriptError
	if errors.As(err, &scriptErr) {
		return scriptErr, true
	}
	return nil, false
}

// Kind classifies err.
func Kind(err error) ErrorKind {
	var (
		warning   *Warning
		scriptErr *ScriptError
	)
	switch {
	case IsFatal(err):
		return ErrFatal
	case errors.As(err, &scriptErr):
		return ErrScript
	case errors.As(err, &warning):
		return ErrWarning
	default:
		return ErrRuntime
	}
}
