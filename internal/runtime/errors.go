package runtime

import (
	"errors"
	"fmt"

	"treelox/internal/span"
)

// Error kinds carried by RuntimeError. Match them with errors.Is.
var (
	ErrMismatchedType         = errors.New("mismatched type")
	ErrUndefined              = errors.New("undefined variable")
	ErrDuplicateDeclaration   = errors.New("duplicate declaration")
	ErrWrongNumberOfArguments = errors.New("wrong number of arguments")
	ErrNotForDotOperator      = errors.New("not for dot operator")
	ErrNoFieldWithName        = errors.New("no field with name")
	ErrUnboundMethod          = errors.New("unbound method")

	// ErrInternal means the resolver and the interpreter disagree about scope
	// boundaries. It never comes from user code that passed resolution.
	ErrInternal = errors.New("internal error")
)

// RuntimeError represents an error during interpretation.
type RuntimeError struct {
	Kind    error
	Message string
	Span    span.Span
}

func (e *RuntimeError) Error() string {
	if e.Span.Start.IsZero() {
		return fmt.Sprintf("runtime error: %s", e.Message)
	}
	return fmt.Sprintf("runtime error at %d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Kind }

func runtimeErr(s span.Span, kind error, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...), Span: s}
}

// withSpan fills in the location of a RuntimeError raised below the AST
// (environment, object model) so it points at the node being evaluated.
func withSpan(err error, s span.Span) error {
	var rerr *RuntimeError
	if errors.As(err, &rerr) && rerr.Span.Start.IsZero() {
		rerr.Span = s
	}
	return err
}
