package auth

import (
	"errors"
	"slices"
)

// Scope is a permission granted to an API key.
type Scope string

const (
	// ScopeAll grants every scope.
	ScopeAll Scope = "*"
	// ScopeRead lists and reads voting definitions.
	ScopeRead Scope = "read"
	// ScopeEvaluate runs evaluations.
	ScopeEvaluate Scope = "evaluate"
	// ScopeRegister adds voting definitions at runtime.
	ScopeRegister Scope = "register"
	// ScopeAudit queries the audit trail.
	ScopeAudit Scope = "audit"
)

var (
	// ErrMissingKey is returned when no configured source carries a key.
	ErrMissingKey = errors.New("no API key found")
	// ErrInvalidKey is returned for unknown keys.
	ErrInvalidKey = errors.New("invalid API key")
	// ErrKeyDisabled is returned for keys that exist but are disabled.
	ErrKeyDisabled = errors.New("API key disabled")
)

// APIKeyInfo describes an accepted API key. Key holds the secret and is
// never logged.
type APIKeyInfo struct {
	ID      string
	Key     string
	Scopes  []Scope
	Enabled bool
}

// Allows reports whether the key grants scope.
func (k *APIKeyInfo) Allows(scope Scope) bool {
	return slices.Contains(k.Scopes, ScopeAll) || slices.Contains(k.Scopes, scope)
}

// APIKeyStore stores and validates API keys.
type APIKeyStore interface {
	Validate(key string) (*APIKeyInfo, error)
	List() []*APIKeyInfo
}
