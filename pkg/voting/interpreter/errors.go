package interpreter

import (
	"errors"
	"fmt"

	"mercator-hq/ldatranslate/pkg/voting/ast"
)

// ErrNoValue is returned by a method that has nothing to evaluate.
var ErrNoValue = errors.New("voting produced no value")

// ExpressionError wraps a failure of the expression library.
type ExpressionError struct {
	Source string
	Err    error
}

// Error returns the error message.
func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Source, e.Err)
}

// Unwrap returns the underlying expression error.
func (e *ExpressionError) Unwrap() error {
	return e.Err
}

// TupleGetError is returned when an index or range falls outside a tuple.
type TupleGetError struct {
	Variable string
	Index    ast.IndexOrRange
	Len      int
}

// Error returns the error message.
func (e *TupleGetError) Error() string {
	return fmt.Sprintf("cannot get %s[%s]: tuple has length %d", e.Variable, e.Index, e.Len)
}

// OperationError attributes an evaluation failure to an operation of a
// voting function and, for per-voter operations, to the voter index.
type OperationError struct {
	Operation string
	Name      string
	Voter     int
	Err       error
}

// Error returns the error message.
func (e *OperationError) Error() string {
	msg := e.Operation
	if e.Name != "" {
		msg += " " + e.Name
	}
	if e.Voter >= 0 {
		msg += fmt.Sprintf(" (voter %d)", e.Voter)
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// HostError wraps an error returned by a host function.
type HostError struct {
	Name string
	Err  error
}

// Error returns the error message.
func (e *HostError) Error() string {
	return fmt.Sprintf("host voting %s: %v", e.Name, e.Err)
}

// Unwrap returns the host's error.
func (e *HostError) Unwrap() error {
	return e.Err
}
