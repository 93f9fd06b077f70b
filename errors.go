package jscc

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fatal engine error.
type ErrorKind int

const (
	// ScanError is a malformed directive, such as #set without a name.
	ScanError ErrorKind = iota + 1
	// ExpressionSyntaxError is expression text that does not parse.
	ExpressionSyntaxError
	// ExpressionRuntimeError is an expression that failed while evaluating.
	ExpressionRuntimeError
	// UnclosedBlockError is a conditional block still open at end of input.
	UnclosedBlockError
	// UnbalancedBlockError is an #elif, #else or #endif with no open block.
	UnbalancedBlockError
	// UserError is an #error directive reached on a live path.
	UserError
	// OptionsError is a run refused before reading input, such as one with
	// an empty directive prefix.
	OptionsError
)

func (k ErrorKind) String() string {
	switch k {
	case ScanError:
		return "ScanError"
	case ExpressionSyntaxError:
		return "ExpressionSyntaxError"
	case ExpressionRuntimeError:
		return "ExpressionRuntimeError"
	case UnclosedBlockError:
		return "UnclosedBlockError"
	case UnbalancedBlockError:
		return "UnbalancedBlockError"
	case UserError:
		return "UserError"
	case OptionsError:
		return "OptionsError"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the error returned for every fatal condition during a run.
type Error struct {
	Kind ErrorKind
	File string
	// Line is the 1-based input line the error was raised on.
	Line int
	Msg  string
	// Err is the underlying evaluator error, if any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is, or wraps, an engine error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// AsError extracts the engine error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func newError(kind ErrorKind, line int, format string, args ...any) *Error {
	return &Error{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}
