package audit

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is wrapped by QueryError for rejected queries.
var ErrInvalidQuery = errors.New("invalid audit query")

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // "sqlite" or "memory"
	Operation string // e.g. "store", "query"
	Err       error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s: %s failed: %v", e.Backend, e.Operation, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, err error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Err: err}
}

// QueryError represents a rejected query.
type QueryError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidQuery, e.Field, e.Reason)
}

// Unwrap returns ErrInvalidQuery.
func (e *QueryError) Unwrap() error {
	return ErrInvalidQuery
}

// RecorderError represents a record that could not be queued.
type RecorderError struct {
	RecordID string
	Err      error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	return fmt.Sprintf("audit record %s not recorded: %v", e.RecordID, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *RecorderError) Unwrap() error {
	return e.Err
}

// ExportError represents an error during export.
type ExportError struct {
	Format      string
	RecordCount int
	Err         error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s of %d records failed: %v", e.Format, e.RecordCount, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ExportError) Unwrap() error {
	return e.Err
}
