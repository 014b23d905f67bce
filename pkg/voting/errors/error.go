package errors

import (
	"fmt"
	"strings"
)

// ErrorType categorizes a parse error.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // Unexpected or missing token
	ErrorTypeDelimiter  ErrorType = "delimiter"  // Unbalanced parentheses, brackets or braces
	ErrorTypeLiteral    ErrorType = "literal"    // Invalid limit or index literal
	ErrorTypeReserved   ErrorType = "reserved"   // Keyword or well-known name used as let target
	ErrorTypeReference  ErrorType = "reference"  // Unknown build-in or registered voting
	ErrorTypeExpression ErrorType = "expression" // Raw expression rejected by the expression compiler
)

// Position is a location in voting source. Line and Column are 1-based.
type Position struct {
	Offset int
	Line   int
	Column int
}

// IsValid reports whether p points into a source text.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// String returns the position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PositionOf converts a byte offset in src into a Position.
func PositionOf(src string, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset + 1
	if i := strings.LastIndexByte(src[:offset], '\n'); i >= 0 {
		col = offset - i
	}
	return Position{Offset: offset, Line: line, Column: col}
}

// Error is a parse error with its location, the stack of grammar contexts
// active when it was raised (innermost first) and an optional suggestion.
type Error struct {
	Type       ErrorType
	Message    string
	Pos        Position
	Contexts   []string
	Snippet    string
	Suggestion string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	sb.WriteString("\n")

	if e.Pos.IsValid() {
		sb.WriteString(fmt.Sprintf("  --> %s\n", e.Pos))
	}

	for _, c := range e.Contexts {
		sb.WriteString(fmt.Sprintf("  in %s\n", c))
	}

	if e.Snippet != "" {
		sb.WriteString("  |\n")
		sb.WriteString(e.Snippet)
		sb.WriteString("  |\n")
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorList collects errors from several sources, e.g. every entry of a
// definitions directory.
type ErrorList struct {
	Errors []error
}

// Add appends err if it is not nil.
func (el *ErrorList) Add(err error) {
	if err != nil {
		el.Errors = append(el.Errors, err)
	}
}

// HasErrors returns true if the list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("found %d error(s):\n", len(el.Errors)))
	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("\nerror %d: %s\n", i+1, err))
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (el *ErrorList) Unwrap() []error {
	return el.Errors
}

// ToError returns nil if the list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}
