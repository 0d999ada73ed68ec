package resolver

import (
	"fmt"
	"strings"

	"treelox/internal/diag"
	"treelox/internal/span"
)

// ErrorKind classifies a semantic error found during resolution.
type ErrorKind int

const (
	DuplicateDeclaration ErrorKind = iota
	RecursiveVariableDeclaration
	ReturnFromNonFunction
	UseOfReceiverOutsideMethod
)

func (k ErrorKind) String() string {
	switch k {
	case DuplicateDeclaration:
		return "DuplicateDeclaration"
	case RecursiveVariableDeclaration:
		return "RecursiveVariableDeclaration"
	case ReturnFromNonFunction:
		return "ReturnFromNonFunction"
	case UseOfReceiverOutsideMethod:
		return "UseOfReceiverOutsideMethod"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Code returns the diagnostic code for the kind.
func (k ErrorKind) Code() string {
	return fmt.Sprintf("E%d", 3001+int(k))
}

// SemanticError is a static error found by the resolver.
type SemanticError struct {
	Kind ErrorKind
	Name string // offending name, empty for return/receiver errors
	Span span.Span
}

func (e *SemanticError) message() string {
	switch e.Kind {
	case DuplicateDeclaration:
		return fmt.Sprintf("'%s' is already declared in this scope", e.Name)
	case RecursiveVariableDeclaration:
		return fmt.Sprintf("cannot read '%s' in its own initializer", e.Name)
	case ReturnFromNonFunction:
		return "cannot return from top-level code"
	case UseOfReceiverOutsideMethod:
		return "cannot use 'self' outside of a method"
	default:
		return e.Kind.String()
	}
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s: %s at %s", e.Kind, e.message(), e.Span.Start)
}

// Diagnostic converts the error into the shared diagnostic form.
func (e *SemanticError) Diagnostic() diag.Diagnostic {
	d := diag.Errorf(e.Kind.Code(), e.Span, "%s", e.message())
	if e.Kind == RecursiveVariableDeclaration {
		d.Hint = "declare the variable first, then assign to it"
	}
	return d
}

// Errors is the set of semantic errors from one resolution pass.
type Errors []*SemanticError

func (errs Errors) Error() string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n")
}

// Diagnostics converts every error into a diag.Diagnostic.
func (errs Errors) Diagnostics() []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(errs))
	for i, e := range errs {
		out[i] = e.Diagnostic()
	}
	return out
}
