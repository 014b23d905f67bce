package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/ldatranslate/pkg/config"
)

// APIKeySource defines where to extract API keys from.
type APIKeySource struct {
	Type   string // header, query
	Name   string // header name or query parameter
	Scheme string // optional value prefix, e.g. "Bearer"
}

// SourcesFromConfig converts configured sources.
func SourcesFromConfig(cfg []config.AuthSourceConfig) []APIKeySource {
	sources := make([]APIKeySource, 0, len(cfg))
	for _, s := range cfg {
		sources = append(sources, APIKeySource{Type: s.Type, Name: s.Name, Scheme: s.Scheme})
	}
	return sources
}

// ErrorWriter writes an authentication failure. status is 401 or 403.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, err error)

// APIKeyMiddleware is HTTP middleware for API key authentication.
type APIKeyMiddleware struct {
	store   APIKeyStore
	sources []APIKeySource
	logger  *slog.Logger
	onError ErrorWriter
}

// NewAPIKeyMiddleware creates a middleware reading keys from sources in order.
// A nil onError writes plain text errors.
func NewAPIKeyMiddleware(store APIKeyStore, sources []APIKeySource, logger *slog.Logger, onError ErrorWriter) *APIKeyMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, err error) {
			http.Error(w, err.Error(), status)
		}
	}
	return &APIKeyMiddleware{
		store:   store,
		sources: sources,
		logger:  logger.With("component", "auth"),
		onError: onError,
	}
}

// Require wraps next so it only runs for keys granting scope. Missing or
// unknown keys get 401, keys without the scope get 403.
func (m *APIKeyMiddleware) Require(scope Scope, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := m.store.Validate(m.extractAPIKey(r))
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, ErrMissingKey) {
				level = slog.LevelDebug
			}
			m.logger.Log(r.Context(), level, "authentication failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="ldatranslate"`)
			m.onError(w, r, http.StatusUnauthorized, err)
			return
		}

		if !info.Allows(scope) {
			m.logger.Warn("scope denied",
				"key_id", info.ID,
				"scope", string(scope),
				"path", r.URL.Path,
			)
			m.onError(w, r, http.StatusForbidden, &ScopeError{KeyID: info.ID, Scope: scope})
			return
		}

		m.logger.Debug("API key authenticated", "key_id", info.ID, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(WithAPIKeyInfo(r.Context(), info)))
	})
}

// ScopeError reports a valid key lacking a scope.
type ScopeError struct {
	KeyID string
	Scope Scope
}

func (e *ScopeError) Error() string {
	return "API key " + e.KeyID + " lacks scope " + string(e.Scope)
}

// extractAPIKey returns the first key found, or "" when none is present.
func (m *APIKeyMiddleware) extractAPIKey(r *http.Request) string {
	for _, source := range m.sources {
		var value string
		switch source.Type {
		case "header":
			value = r.Header.Get(source.Name)
		case "query":
			value = r.URL.Query().Get(source.Name)
		}
		if value == "" {
			continue
		}
		if source.Scheme == "" {
			return value
		}
		if rest, ok := strings.CutPrefix(value, source.Scheme+" "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

type contextKey struct{}

// WithAPIKeyInfo returns ctx carrying info.
func WithAPIKeyInfo(ctx context.Context, info *APIKeyInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// GetAPIKeyInfo retrieves the authenticated key from ctx.
func GetAPIKeyInfo(ctx context.Context) (*APIKeyInfo, bool) {
	info, ok := ctx.Value(contextKey{}).(*APIKeyInfo)
	return info, ok
}
