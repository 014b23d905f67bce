package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// Default query bounds, used when a caller passes zero limits.
const (
	DefaultLimit = 100
	MaxLimit     = 10000
)

// Validate checks q against maxLimit (MaxLimit when zero).
func (q *Query) Validate(maxLimit int) error {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if q.Limit < 0 || q.Limit > maxLimit {
		return &QueryError{Field: "limit", Reason: fmt.Sprintf("must be between 0 and %d, got %d", maxLimit, q.Limit)}
	}
	if q.Offset < 0 {
		return &QueryError{Field: "offset", Reason: fmt.Sprintf("must be >= 0, got %d", q.Offset)}
	}
	switch q.SortOrder {
	case "", SortAsc, SortDesc:
	default:
		return &QueryError{Field: "sort_order", Reason: fmt.Sprintf("%q is not asc or desc", q.SortOrder)}
	}
	switch q.Status {
	case "", StatusSuccess, StatusError, StatusFallback:
	default:
		return &QueryError{Field: "status", Reason: fmt.Sprintf("%q is not success, error or fallback", q.Status)}
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return &QueryError{Field: "start_time", Reason: "must not be after end_time"}
	}
	return nil
}

// ApplyDefaults fills the limit and sort order.
func (q *Query) ApplyDefaults(defaultLimit int) {
	if q.Limit == 0 {
		q.Limit = defaultLimit
		if q.Limit <= 0 {
			q.Limit = DefaultLimit
		}
	}
	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}
}

// Hash returns the hex SHA-256 of s, or "" for an empty string.
func Hash(s string) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Truncate shortens s to at most n bytes without splitting a UTF-8
// sequence. n <= 0 disables truncation.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
