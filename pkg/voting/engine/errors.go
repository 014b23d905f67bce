package engine

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/ldatranslate/pkg/voting/aggregate"
	verrors "mercator-hq/ldatranslate/pkg/voting/errors"
	"mercator-hq/ldatranslate/pkg/voting/interpreter"
	"mercator-hq/ldatranslate/pkg/voting/registry"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

var (
	// ErrInvalidConfig is returned for an invalid EngineConfig.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrEmptyVoting is returned when a request names no voting.
	ErrEmptyVoting = errors.New("voting is empty")

	// ErrNoSource is returned by Reload on an engine without a source.
	ErrNoSource = errors.New("engine has no definition source")

	// ErrTimeout is matched by evaluations that exceeded the deadline.
	ErrTimeout = errors.New("evaluation timed out")

	// ErrHostExists is returned when a host voting name is taken.
	ErrHostExists = errors.New("host voting already registered")
)

// EvaluationError wraps a failed evaluation with its id and category.
type EvaluationError struct {
	EvaluationID string
	Voting       string
	Type         string
	Err          error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation %s of %q failed (%s): %v", e.EvaluationID, e.Voting, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Error categories used for metrics, audit records and HTTP responses.
const (
	ErrorTypeParse            = "parse"
	ErrorTypeRegistration     = "registration"
	ErrorTypeVariableNotFound = "variable_not_found"
	ErrorTypeType             = "type"
	ErrorTypeTupleIndex       = "tuple_index"
	ErrorTypeAggregate        = "aggregate"
	ErrorTypeExpression       = "expression"
	ErrorTypeHost             = "host"
	ErrorTypeNoValue          = "no_value"
	ErrorTypeTimeout          = "timeout"
	ErrorTypeCanceled         = "canceled"
	ErrorTypeInvalidRequest   = "invalid_request"
	ErrorTypeInternal         = "internal"
)

// ErrorType classifies err into one of the ErrorType constants.
func ErrorType(err error) string {
	var (
		parseErr  *verrors.Error
		regErr    *registry.RegistrationError
		varErr    *scope.VariableNotFoundError
		typeErr   *value.TypeError
		tupleErr  *interpreter.TupleGetError
		hostErr   *interpreter.HostError
		exprErr   *interpreter.ExpressionError
		incompErr *aggregate.IncomparableError
		domainErr *aggregate.DomainError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	case errors.Is(err, ErrEmptyVoting):
		return ErrorTypeInvalidRequest
	case errors.As(err, &parseErr):
		return ErrorTypeParse
	case errors.As(err, &regErr):
		return ErrorTypeRegistration
	case errors.As(err, &hostErr):
		return ErrorTypeHost
	case errors.As(err, &varErr):
		return ErrorTypeVariableNotFound
	case errors.As(err, &tupleErr):
		return ErrorTypeTupleIndex
	case errors.As(err, &typeErr):
		return ErrorTypeType
	case errors.As(err, &incompErr), errors.As(err, &domainErr), errors.Is(err, aggregate.ErrNoValues):
		return ErrorTypeAggregate
	case errors.As(err, &exprErr):
		return ErrorTypeExpression
	case errors.Is(err, interpreter.ErrNoValue):
		return ErrorTypeNoValue
	default:
		return ErrorTypeInternal
	}
}
