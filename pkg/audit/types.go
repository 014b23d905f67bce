package audit

import (
	"context"
	"io"
	"time"
)

// Record is the audit trail of one evaluation. It holds enough to replay
// the evaluation: the canonical voting text, its hash and the registry
// version it was resolved against.
type Record struct {
	// Identity
	ID           string `json:"id"`            // UUID v4
	EvaluationID string `json:"evaluation_id"` // From the engine

	// Voting
	Voting          string            `json:"voting"`           // Canonical source, truncated
	VotingName      string            `json:"voting_name"`      // Name used in the request or "inline"
	VotingHash      string            `json:"voting_hash"`      // SHA-256 of the canonical source
	RegistryVersion string            `json:"registry_version"` // Registry snapshot
	Labels          map[string]string `json:"labels,omitempty"` // Caller supplied labels

	// Inputs
	VoterCount int `json:"voter_count"`     // Voters passed in
	Limit      int `json:"limit,omitempty"` // Per-request limit, 0 if none

	// Outcome
	Result    string   `json:"result"`               // Display form of the value
	Score     *float64 `json:"score,omitempty"`      // Numeric result, nil if not a finite number
	Fallback  bool     `json:"fallback"`             // DefaultScore was substituted
	Error     string   `json:"error,omitempty"`      // Evaluation error, truncated
	ErrorType string   `json:"error_type,omitempty"` // Error classification

	// Timing
	Duration      time.Duration `json:"duration"`       // Interpreter time
	EvaluatedTime time.Time     `json:"evaluated_time"` // When evaluation started
	RecordedTime  time.Time     `json:"recorded_time"`  // When the record was queued
}

// Status classifies a record for queries and metrics.
func (r *Record) Status() string {
	switch {
	case r.Fallback:
		return StatusFallback
	case r.Error != "":
		return StatusError
	default:
		return StatusSuccess
	}
}

// Record statuses.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusFallback = "fallback"
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Query selects audit records. Zero fields match everything.
type Query struct {
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive

	VotingName   string `json:"voting_name,omitempty"`
	VotingHash   string `json:"voting_hash,omitempty"`
	EvaluationID string `json:"evaluation_id,omitempty"`
	Status       string `json:"status,omitempty"` // success, error or fallback

	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	SortOrder string `json:"sort_order,omitempty"` // by evaluated time; default desc
}

// Storage persists audit records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns the records matching q, ordered by evaluation time.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching q, ignoring pagination.
	Count(ctx context.Context, q *Query) (int64, error)

	// DeleteOlderThan removes records evaluated before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteOldest removes the n oldest records.
	DeleteOldest(ctx context.Context, n int64) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes records in a file format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
