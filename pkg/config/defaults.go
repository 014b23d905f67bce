package config

import "time"

// Default values for configuration fields.
const (
	// Voting defaults
	DefaultVotingMode         = "file"
	DefaultVotingDebounce     = 100 * time.Millisecond
	DefaultGitBranch          = "main"
	DefaultGitAuthType        = "none"
	DefaultGitPollInterval    = 30 * time.Second
	DefaultGitTimeout         = 10 * time.Second
	DefaultGitCloneDepth      = 1
	DefaultEngineTimeout      = 5 * time.Second
	DefaultEngineFailMode     = "error"
	DefaultEngineParseCache   = 256
	DefaultAuditBackend       = "sqlite"
	DefaultAuditSQLitePath    = "data/audit.db"
	DefaultAuditSQLiteDriver  = "sqlite"
	DefaultAuditMaxOpenConns  = 10
	DefaultAuditMaxIdleConns  = 5
	DefaultAuditBusyTimeout   = 5 * time.Second
	DefaultAuditAsyncBuffer   = 1000
	DefaultAuditWriteTimeout  = 5 * time.Second
	DefaultAuditMaxFieldLen   = 4096
	DefaultAuditRetentionDays = 30
	DefaultAuditPruneSchedule = "0 3 * * *"
	DefaultAuditQueryLimit    = 100
	DefaultAuditQueryMaxLimit = 10000

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(4 << 20)
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute
	DefaultClientIdentity  = "subject.CN"
	DefaultRateLimitIdle   = 10 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "ldatranslate"
	DefaultMetricsSubsystem   = "voting"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingService     = "ldatranslate"
	DefaultOTLPTimeout        = 10 * time.Second
)

// DefaultEvaluationDurationBuckets covers evaluations from 10µs to 1s.
var DefaultEvaluationDurationBuckets = []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// DefaultAuthSources reads a bearer token first, then X-API-Key.
func DefaultAuthSources() []AuthSourceConfig {
	return []AuthSourceConfig{
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
		{Type: "header", Name: "X-API-Key"},
	}
}

// Default returns a configuration with every default applied, including the
// boolean switches that default to true. Files are decoded on top of it so an
// explicit false survives.
func Default() *Config {
	cfg := &Config{}
	cfg.Audit.Enabled = true
	cfg.Audit.SQLite.WALMode = true
	cfg.Audit.Export.JSONPretty = true
	cfg.Audit.Export.CSVIncludeHeader = true
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Tracing.OTLP.Insecure = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Voting defaults
	if cfg.Voting.Mode == "" {
		cfg.Voting.Mode = DefaultVotingMode
	}
	if cfg.Voting.Debounce == 0 {
		cfg.Voting.Debounce = DefaultVotingDebounce
	}
	git := &cfg.Voting.Git
	if git.Branch == "" {
		git.Branch = DefaultGitBranch
	}
	if git.Auth.Type == "" {
		git.Auth.Type = DefaultGitAuthType
	}
	if git.Poll.Interval == 0 {
		git.Poll.Interval = DefaultGitPollInterval
	}
	if git.Poll.Timeout == 0 {
		git.Poll.Timeout = DefaultGitTimeout
	}
	if git.Clone.Depth == 0 {
		git.Clone.Depth = DefaultGitCloneDepth
	}

	// Engine defaults
	if cfg.Engine.EvaluationTimeout == 0 {
		cfg.Engine.EvaluationTimeout = DefaultEngineTimeout
	}
	if cfg.Engine.FailMode == "" {
		cfg.Engine.FailMode = DefaultEngineFailMode
	}
	if cfg.Engine.ParseCacheSize == 0 {
		cfg.Engine.ParseCacheSize = DefaultEngineParseCache
	}

	// Audit defaults
	audit := &cfg.Audit
	if audit.Backend == "" {
		audit.Backend = DefaultAuditBackend
	}
	if audit.SQLite.Path == "" {
		audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if audit.SQLite.Driver == "" {
		audit.SQLite.Driver = DefaultAuditSQLiteDriver
	}
	if audit.SQLite.MaxOpenConns == 0 {
		audit.SQLite.MaxOpenConns = DefaultAuditMaxOpenConns
	}
	if audit.SQLite.MaxIdleConns == 0 {
		audit.SQLite.MaxIdleConns = DefaultAuditMaxIdleConns
	}
	if audit.SQLite.BusyTimeout == 0 {
		audit.SQLite.BusyTimeout = DefaultAuditBusyTimeout
	}
	if audit.Recorder.AsyncBuffer == 0 {
		audit.Recorder.AsyncBuffer = DefaultAuditAsyncBuffer
	}
	if audit.Recorder.WriteTimeout == 0 {
		audit.Recorder.WriteTimeout = DefaultAuditWriteTimeout
	}
	if audit.Recorder.MaxFieldLength == 0 {
		audit.Recorder.MaxFieldLength = DefaultAuditMaxFieldLen
	}
	if audit.Retention.Days == 0 {
		audit.Retention.Days = DefaultAuditRetentionDays
	}
	if audit.Retention.PruneSchedule == "" {
		audit.Retention.PruneSchedule = DefaultAuditPruneSchedule
	}
	if audit.Query.DefaultLimit == 0 {
		audit.Query.DefaultLimit = DefaultAuditQueryLimit
	}
	if audit.Query.MaxLimit == 0 {
		audit.Query.MaxLimit = DefaultAuditQueryMaxLimit
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ReloadInterval == 0 {
		cfg.Server.TLS.ReloadInterval = DefaultTLSReload
	}
	if cfg.Server.TLS.ClientIdentity == "" {
		cfg.Server.TLS.ClientIdentity = DefaultClientIdentity
	}
	if cfg.Server.RateLimit.IdleTimeout == 0 {
		cfg.Server.RateLimit.IdleTimeout = DefaultRateLimitIdle
	}
	if len(cfg.Server.Auth.Sources) == 0 {
		cfg.Server.Auth.Sources = DefaultAuthSources()
	}

	// Telemetry defaults
	tel := &cfg.Telemetry
	if tel.Logging.Level == "" {
		tel.Logging.Level = DefaultLoggingLevel
	}
	if tel.Logging.Format == "" {
		tel.Logging.Format = DefaultLoggingFormat
	}
	if tel.Metrics.Path == "" {
		tel.Metrics.Path = DefaultMetricsPath
	}
	if tel.Metrics.Namespace == "" {
		tel.Metrics.Namespace = DefaultMetricsNamespace
	}
	if tel.Metrics.Subsystem == "" {
		tel.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(tel.Metrics.EvaluationDurationBuckets) == 0 {
		tel.Metrics.EvaluationDurationBuckets = append([]float64(nil), DefaultEvaluationDurationBuckets...)
	}
	if tel.Tracing.Sampler == "" {
		tel.Tracing.Sampler = DefaultTracingSampler
	}
	if tel.Tracing.SampleRatio == 0 {
		tel.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if tel.Tracing.ServiceName == "" {
		tel.Tracing.ServiceName = DefaultTracingService
	}
	if tel.Tracing.OTLP.Timeout == 0 {
		tel.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}
