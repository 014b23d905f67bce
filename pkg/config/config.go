package config

import "time"

// Config is the root configuration structure for ldatranslate.
// It contains all configuration sections for voting definitions, the
// evaluation engine, the audit trail, the HTTP bridge and telemetry.
type Config struct {
	// Voting contains configuration for loading voting definition files,
	// either from the local filesystem or from a Git repository.
	Voting VotingConfig `yaml:"voting"`

	// Engine contains configuration for the evaluation engine including
	// deadlines and fail-safe behavior.
	Engine EngineConfig `yaml:"engine"`

	// Audit contains configuration for the evaluation audit trail including
	// backend selection, retention, and export settings.
	Audit AuditConfig `yaml:"audit"`

	// Server contains HTTP bridge configuration.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// VotingConfig contains configuration for voting definition sources.
type VotingConfig struct {
	// Mode specifies how definitions are loaded.
	// Options: "file" (local file or directory), "git" (Git repository)
	// Default: "file"
	Mode string `yaml:"mode"`

	// Path is a definition file or a directory of definition files when
	// Mode is "file". An empty path starts with an empty registry.
	Path string `yaml:"path"`

	// Watch enables automatic reloading when definition files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period before a burst of file events triggers
	// a reload.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// Git contains Git repository configuration, used when Mode is "git".
	Git GitConfig `yaml:"git"`
}

// GitConfig configures Git-based definition loading.
type GitConfig struct {
	// Repository URL (HTTPS or SSH).
	// Example: "https://github.com/company/votings.git"
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository to the definition files.
	// Default: "" (repository root)
	Path string `yaml:"path"`

	// Auth configures Git authentication.
	Auth GitAuthConfig `yaml:"auth"`

	// Poll configures change detection.
	Poll GitPollConfig `yaml:"poll"`

	// Clone configures repository cloning.
	Clone GitCloneConfig `yaml:"clone"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "token", "ssh", "none"
	// Default: "none"
	Type string `yaml:"type"`

	// Token for HTTPS authentication (supports env vars).
	// Example: "${GITHUB_TOKEN}"
	Token string `yaml:"token"`

	// SSHKeyPath for SSH authentication.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase for encrypted SSH keys (supports env vars).
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// GitPollConfig configures change detection.
type GitPollConfig struct {
	// Enabled determines if polling is active.
	// When false, definitions are loaded once at startup.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Interval between polls.
	// Default: 30s
	Interval time.Duration `yaml:"interval"`

	// Timeout for Git operations.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// GitCloneConfig configures repository cloning.
type GitCloneConfig struct {
	// Depth for shallow clones (0 = full clone).
	// Default: 1
	Depth int `yaml:"depth"`

	// LocalPath where the repository is cloned.
	// Default: system temp directory
	LocalPath string `yaml:"local_path"`

	// CleanOnStart removes the local clone before cloning.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`
}

// EngineConfig contains evaluation engine configuration.
type EngineConfig struct {
	// EvaluationTimeout bounds a single evaluation.
	// Default: 5s
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`

	// FailMode decides what a failed evaluation returns.
	// Options: "error" (return the error), "default" (return DefaultScore)
	// Default: "error"
	FailMode string `yaml:"fail_mode"`

	// DefaultScore is substituted when FailMode is "default".
	// Default: 0
	DefaultScore float64 `yaml:"default_score"`

	// ParseCacheSize is the maximum number of parsed voting sources kept
	// per registry snapshot. 0 disables the cache.
	// Default: 256
	ParseCacheSize int `yaml:"parse_cache_size"`
}

// AuditConfig contains configuration for the evaluation audit trail.
type AuditConfig struct {
	// Enabled controls whether evaluations are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend for audit records.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains audit recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains query configuration.
	Query QueryConfig `yaml:"query"`

	// Export contains export configuration.
	Export ExportConfig `yaml:"export"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains audit recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxFieldLength is the maximum length for text fields before truncation.
	// Default: 4096
	MaxFieldLength int `yaml:"max_field_length"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain audit records.
	// 0 means keep records forever.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`
}

// QueryConfig contains query configuration.
type QueryConfig struct {
	// DefaultLimit is the default number of records to return.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the maximum number of records returned by one query.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`
}

// ExportConfig contains export configuration.
type ExportConfig struct {
	// JSONPretty enables pretty-printing for JSON exports.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader includes a header row in CSV exports.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`
}

// ServerConfig contains configuration for the HTTP bridge.
type ServerConfig struct {
	// ListenAddress is the address the server binds to.
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits request bodies.
	// Default: 4MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// TLS configures HTTPS for the bridge.
	TLS TLSConfig `yaml:"tls"`

	// Auth configures API key authentication of the /v1 routes.
	Auth AuthConfig `yaml:"auth"`

	// RateLimit bounds the /v1 request rate per client.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig configures per-client request limits. A client is its
// API key when auth is enabled, otherwise its remote address. Zero limits
// are not enforced.
type RateLimitConfig struct {
	// Enabled turns rate limiting on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained rate; bursts of twice the rate
	// are admitted.
	RequestsPerSecond int `yaml:"requests_per_second"`

	// RequestsPerMinute bounds requests over a minute.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// MaxConcurrent bounds in-flight requests.
	MaxConcurrent int `yaml:"max_concurrent"`

	// IdleTimeout drops the state of clients without requests.
	// Default: 10m
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// TLSConfig configures HTTPS serving.
type TLSConfig struct {
	// Enabled serves HTTPS instead of plain HTTP.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are the PEM encoded server certificate and key.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is the lowest accepted protocol version: "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// CipherSuites restricts TLS 1.2 cipher suites by name. Empty uses
	// Go's defaults.
	CipherSuites []string `yaml:"cipher_suites"`

	// ReloadInterval is how often the certificate files are checked for
	// changes.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`

	// ClientAuth enables mutual TLS.
	// Options: "" (off), "request", "verify_if_given", "require"
	ClientAuth string `yaml:"client_auth"`

	// ClientCAFile is the CA bundle used to verify client certificates.
	// Required when ClientAuth is set.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientIdentity selects the certificate field logged as the client
	// identity: "subject.CN", "subject.OU", "subject.O" or "SAN".
	// Default: "subject.CN"
	ClientIdentity string `yaml:"client_identity"`
}

// AuthConfig configures API key authentication.
type AuthConfig struct {
	// Enabled requires an API key on every /v1 route. Health and metrics
	// endpoints stay open.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sources lists where keys are read from, in order.
	// Default: Authorization bearer token, then the X-API-Key header
	Sources []AuthSourceConfig `yaml:"sources"`

	// Keys are the accepted API keys.
	Keys []APIKeyConfig `yaml:"keys"`
}

// AuthSourceConfig locates an API key in a request.
type AuthSourceConfig struct {
	// Type is "header" or "query".
	Type string `yaml:"type"`

	// Name is the header or query parameter name.
	Name string `yaml:"name"`

	// Scheme is an optional value prefix such as "Bearer".
	Scheme string `yaml:"scheme"`
}

// APIKeyConfig is one accepted API key.
type APIKeyConfig struct {
	// ID names the key in logs. It never contains the secret.
	ID string `yaml:"id"`

	// Key is the secret. Use ${VAR} to keep it out of the file.
	Key string `yaml:"key"`

	// Scopes granted to the key: "read", "evaluate", "register", "audit"
	// or "*" for all of them.
	Scopes []string `yaml:"scopes"`

	// Disabled rejects the key without removing it.
	Disabled bool `yaml:"disabled"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "ldatranslate"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "voting"
	Subsystem string `yaml:"subsystem"`

	// EvaluationDurationBuckets defines histogram buckets for evaluation
	// duration (seconds).
	EvaluationDurationBuckets []float64 `yaml:"evaluation_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "ldatranslate"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
