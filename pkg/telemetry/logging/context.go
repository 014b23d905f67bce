package logging

import (
	"context"
)

type contextKey string

const (
	// EvaluationIDKey is the context key for evaluation IDs.
	EvaluationIDKey contextKey = "evaluation_id"

	// VotingKey is the context key for the voting being evaluated.
	VotingKey contextKey = "voting"

	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey contextKey = "request_id"
)

var contextKeys = []contextKey{RequestIDKey, EvaluationIDKey, VotingKey}

// WithEvaluationID adds an evaluation ID to the context.
func WithEvaluationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, EvaluationIDKey, id)
}

// GetEvaluationID retrieves the evaluation ID from the context.
func GetEvaluationID(ctx context.Context) string {
	return stringValue(ctx, EvaluationIDKey)
}

// WithVoting adds a voting name to the context.
func WithVoting(ctx context.Context, voting string) context.Context {
	return context.WithValue(ctx, VotingKey, voting)
}

// GetVoting retrieves the voting name from the context.
func GetVoting(ctx context.Context) string {
	return stringValue(ctx, VotingKey)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// ContextFields returns the non-empty log fields stored in ctx as
// alternating key/value pairs.
func ContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var fields []any
	for _, key := range contextKeys {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
