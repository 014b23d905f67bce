package config

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// HasField reports whether a validation error was recorded for field.
func (e ValidationError) HasField(field string) bool {
	return slices.ContainsFunc(e.Errors, func(fe FieldError) bool { return fe.Field == field })
}

// Validate validates the entire configuration. All validation errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateVoting(&cfg.Voting)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateVoting(cfg *VotingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case "file":
	case "git":
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{"voting.git.repository", "repository is required in git mode"})
		}
		switch cfg.Git.Auth.Type {
		case "none":
		case "token":
			if cfg.Git.Auth.Token == "" {
				errs = append(errs, FieldError{"voting.git.auth.token", "token is required for token auth"})
			}
		case "ssh":
			if cfg.Git.Auth.SSHKeyPath == "" {
				errs = append(errs, FieldError{"voting.git.auth.ssh_key_path", "key path is required for ssh auth"})
			}
		default:
			errs = append(errs, FieldError{"voting.git.auth.type", fmt.Sprintf("unknown auth type %q (must be none, token or ssh)", cfg.Git.Auth.Type)})
		}
		if cfg.Git.Poll.Enabled && cfg.Git.Poll.Interval <= 0 {
			errs = append(errs, FieldError{"voting.git.poll.interval", "poll interval must be positive"})
		}
		if cfg.Git.Clone.Depth < 0 {
			errs = append(errs, FieldError{"voting.git.clone.depth", "clone depth must be non-negative"})
		}
	default:
		errs = append(errs, FieldError{"voting.mode", fmt.Sprintf("unknown mode %q (must be file or git)", cfg.Mode)})
	}

	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{"voting.debounce", "debounce must be non-negative"})
	}
	return errs
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.EvaluationTimeout < 0 {
		errs = append(errs, FieldError{"engine.evaluation_timeout", "timeout must be non-negative"})
	}
	if cfg.FailMode != "error" && cfg.FailMode != "default" {
		errs = append(errs, FieldError{"engine.fail_mode", fmt.Sprintf("unknown fail mode %q (must be error or default)", cfg.FailMode)})
	}
	if cfg.ParseCacheSize < 0 {
		errs = append(errs, FieldError{"engine.parse_cache_size", "cache size must be non-negative"})
	}
	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{"audit.sqlite.path", "database path is required"})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{"audit.sqlite.driver", fmt.Sprintf("unknown driver %q (must be sqlite or sqlite3)", cfg.SQLite.Driver)})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{"audit.sqlite.max_open_conns", "must be at least 1"})
		}
	default:
		errs = append(errs, FieldError{"audit.backend", fmt.Sprintf("unknown backend %q (must be sqlite or memory)", cfg.Backend)})
	}

	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{"audit.recorder.async_buffer", "buffer size must be non-negative"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{"audit.retention.days", "retention days must be non-negative"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{"audit.retention.max_records", "max records must be non-negative"})
	}
	if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
		errs = append(errs, FieldError{"audit.retention.prune_schedule", fmt.Sprintf("invalid cron expression: %v", err)})
	}
	if cfg.Query.DefaultLimit > cfg.Query.MaxLimit {
		errs = append(errs, FieldError{"audit.query.default_limit", "default limit exceeds max limit"})
	}
	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{"server.listen_address", fmt.Sprintf("invalid address %q: %v", cfg.ListenAddress, err)})
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{"server.timeouts", "timeouts must be non-negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{"server.max_body_bytes", "must be non-negative"})
	}
	errs = append(errs, validateTLS(&cfg.TLS)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	return errs
}

func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs []FieldError
	if cfg.RequestsPerSecond < 0 || cfg.RequestsPerMinute < 0 || cfg.MaxConcurrent < 0 {
		errs = append(errs, FieldError{"server.rate_limit", "limits must be non-negative"})
	}
	if cfg.RequestsPerSecond == 0 && cfg.RequestsPerMinute == 0 && cfg.MaxConcurrent == 0 {
		errs = append(errs, FieldError{"server.rate_limit", "at least one limit is required when rate limiting is enabled"})
	}
	return errs
}

func validateTLS(cfg *TLSConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs []FieldError

	if cfg.CertFile == "" {
		errs = append(errs, FieldError{"server.tls.cert_file", "required when TLS is enabled"})
	}
	if cfg.KeyFile == "" {
		errs = append(errs, FieldError{"server.tls.key_file", "required when TLS is enabled"})
	}
	if cfg.MinVersion != "1.2" && cfg.MinVersion != "1.3" {
		errs = append(errs, FieldError{"server.tls.min_version", fmt.Sprintf("unsupported version %q (want 1.2 or 1.3)", cfg.MinVersion)})
	}
	if cfg.ReloadInterval < 0 {
		errs = append(errs, FieldError{"server.tls.reload_interval", "must be non-negative"})
	}
	switch cfg.ClientAuth {
	case "":
	case "request", "verify_if_given", "require":
		if cfg.ClientCAFile == "" {
			errs = append(errs, FieldError{"server.tls.client_ca_file", "required when client_auth is set"})
		}
	default:
		errs = append(errs, FieldError{"server.tls.client_auth", fmt.Sprintf("unknown client auth %q", cfg.ClientAuth)})
	}
	switch cfg.ClientIdentity {
	case "subject.CN", "subject.OU", "subject.O", "SAN":
	default:
		errs = append(errs, FieldError{"server.tls.client_identity", fmt.Sprintf("unknown identity source %q", cfg.ClientIdentity)})
	}
	return errs
}

var authScopes = []string{"*", "read", "evaluate", "register", "audit"}

func validateAuth(cfg *AuthConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs []FieldError

	for i, src := range cfg.Sources {
		field := fmt.Sprintf("server.auth.sources[%d]", i)
		if src.Type != "header" && src.Type != "query" {
			errs = append(errs, FieldError{field + ".type", fmt.Sprintf("unknown source type %q", src.Type)})
		}
		if src.Name == "" {
			errs = append(errs, FieldError{field + ".name", "required"})
		}
	}

	if len(cfg.Keys) == 0 {
		errs = append(errs, FieldError{"server.auth.keys", "at least one key is required when auth is enabled"})
	}
	seen := make(map[string]bool, len(cfg.Keys))
	for i, key := range cfg.Keys {
		field := fmt.Sprintf("server.auth.keys[%d]", i)
		if key.ID == "" {
			errs = append(errs, FieldError{field + ".id", "required"})
		}
		if key.Key == "" {
			errs = append(errs, FieldError{field + ".key", "required"})
		} else if seen[key.Key] {
			errs = append(errs, FieldError{field + ".key", "duplicate key"})
		}
		seen[key.Key] = true
		if len(key.Scopes) == 0 {
			errs = append(errs, FieldError{field + ".scopes", "at least one scope is required"})
		}
		for _, sc := range key.Scopes {
			if !slices.Contains(authScopes, sc) {
				errs = append(errs, FieldError{field + ".scopes", fmt.Sprintf("unknown scope %q", sc)})
			}
		}
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level)})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q", cfg.Logging.Format)})
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{"telemetry.metrics.path", "path must start with /"})
	}
	if !slices.IsSorted(cfg.Metrics.EvaluationDurationBuckets) {
		errs = append(errs, FieldError{"telemetry.metrics.evaluation_duration_buckets", "buckets must be sorted"})
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never":
		case "ratio":
			if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
				errs = append(errs, FieldError{"telemetry.tracing.sample_ratio", "ratio must be between 0 and 1"})
			}
		default:
			errs = append(errs, FieldError{"telemetry.tracing.sampler", fmt.Sprintf("unknown sampler %q", cfg.Tracing.Sampler)})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{"telemetry.tracing.endpoint", "endpoint is required when tracing is enabled"})
		}
	}
	return errs
}
