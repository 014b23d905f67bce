package aggregate

import (
	"errors"
	"fmt"
)

var (
	// ErrNoValues is returned when an aggregation receives no values.
	ErrNoValues = errors.New("no values to aggregate")

	// ErrNoMaxFound is matched by an IncomparableError raised by maxOf.
	ErrNoMaxFound = errors.New("no maximum found")

	// ErrNoMinFound is matched by an IncomparableError raised by minOf.
	ErrNoMinFound = errors.New("no minimum found")
)

// IncomparableError is returned by maxOf and minOf when two values have no
// order (one of them is NaN). Candidate and Cause hold the last pair that was
// compared successfully, the winner first; both are NaN if the first
// comparison already failed.
type IncomparableError struct {
	Kind      Kind
	Candidate float64
	Cause     float64
}

// Error returns the error message.
func (e *IncomparableError) Error() string {
	what := "maximum"
	if e.Kind == MinOf {
		what = "minimum"
	}
	return fmt.Sprintf("no %s found: values not comparable (candidate %v, cause %v)", what, e.Candidate, e.Cause)
}

// Is matches the sentinel for the reducer that failed.
func (e *IncomparableError) Is(target error) bool {
	switch target {
	case ErrNoMaxFound:
		return e.Kind == MaxOf
	case ErrNoMinFound:
		return e.Kind == MinOf
	}
	return false
}

// DomainError is returned by gAvgOf for a negative input.
type DomainError struct {
	Value float64
}

// Error returns the error message.
func (e *DomainError) Error() string {
	return fmt.Sprintf("geometric mean undefined for negative value %v", e.Value)
}

// LimitError is returned when an aggregation limit is not positive.
type LimitError struct {
	Limit int
}

// Error returns the error message.
func (e *LimitError) Error() string {
	return fmt.Sprintf("aggregation limit must be positive, got %d", e.Limit)
}
