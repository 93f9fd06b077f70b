package expr

import "fmt"

// SyntaxError reports expression text that is not a well-formed expression.
type SyntaxError struct {
	Msg string
	// Offset is the byte offset into the expression text.
	Offset int
}

func (e *SyntaxError) Error() string {
	return e.Msg
}

// RuntimeError reports a failure while evaluating a well-formed expression,
// such as reading a property of undefined.
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string {
	return e.Msg
}

func syntaxErrorf(offset int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Offset: offset}
}

func runtimeErrorf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}
