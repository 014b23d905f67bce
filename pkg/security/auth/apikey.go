package auth

import (
	"crypto/sha256"
	"slices"
	"strings"
	"sync"

	"mercator-hq/ldatranslate/pkg/config"
)

type digest [sha256.Size]byte

// APIKeyValidator validates API keys against a configured set of keys.
// Keys are indexed by their SHA-256 digest.
type APIKeyValidator struct {
	mu   sync.RWMutex
	keys map[digest]*APIKeyInfo
}

// NewAPIKeyValidator creates a validator for keys.
func NewAPIKeyValidator(keys []*APIKeyInfo) *APIKeyValidator {
	v := &APIKeyValidator{keys: make(map[digest]*APIKeyInfo, len(keys))}
	for _, key := range keys {
		v.keys[sha256.Sum256([]byte(key.Key))] = key
	}
	return v
}

// FromConfig builds a validator from the server auth section.
func FromConfig(cfg *config.AuthConfig) *APIKeyValidator {
	keys := make([]*APIKeyInfo, 0, len(cfg.Keys))
	for _, k := range cfg.Keys {
		info := &APIKeyInfo{ID: k.ID, Key: k.Key, Enabled: !k.Disabled}
		for _, s := range k.Scopes {
			info.Scopes = append(info.Scopes, Scope(s))
		}
		keys = append(keys, info)
	}
	return NewAPIKeyValidator(keys)
}

// Validate checks if the given API key is valid and returns its info.
func (v *APIKeyValidator) Validate(key string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.keys[sha256.Sum256([]byte(key))]
	if !ok {
		return nil, ErrInvalidKey
	}
	if !info.Enabled {
		return nil, ErrKeyDisabled
	}
	return info, nil
}

// List returns all configured keys ordered by ID.
func (v *APIKeyValidator) List() []*APIKeyInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := make([]*APIKeyInfo, 0, len(v.keys))
	for _, key := range v.keys {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b *APIKeyInfo) int { return strings.Compare(a.ID, b.ID) })
	return keys
}
