package engine

import (
	"fmt"
	"time"

	"mercator-hq/ldatranslate/pkg/config"
)

// FailMode determines what a failed evaluation returns.
type FailMode string

const (
	// FailError returns the evaluation error to the caller.
	FailError FailMode = "error"

	// FailDefault substitutes DefaultScore and marks the result as a
	// fallback. The error is still recorded.
	FailDefault FailMode = "default"
)

// EngineConfig contains configuration for the evaluation engine.
type EngineConfig struct {
	// EvaluationTimeout bounds a single evaluation.
	// Default: 5s.
	EvaluationTimeout time.Duration

	// FailMode determines how evaluation errors are handled.
	// Default: FailError.
	FailMode FailMode

	// DefaultScore is returned in FailDefault mode.
	DefaultScore float64

	// ParseCacheSize bounds the parsed sources kept per registry snapshot.
	// 0 disables caching.
	// Default: 256.
	ParseCacheSize int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		EvaluationTimeout: config.DefaultEngineTimeout,
		FailMode:          FailError,
		ParseCacheSize:    config.DefaultEngineParseCache,
	}
}

// FromConfig converts the engine section of the service configuration.
func FromConfig(c config.EngineConfig) *EngineConfig {
	return &EngineConfig{
		EvaluationTimeout: c.EvaluationTimeout,
		FailMode:          FailMode(c.FailMode),
		DefaultScore:      c.DefaultScore,
		ParseCacheSize:    c.ParseCacheSize,
	}
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	switch c.FailMode {
	case FailError, FailDefault:
	default:
		return fmt.Errorf("%w: invalid fail mode %q", ErrInvalidConfig, c.FailMode)
	}
	if c.EvaluationTimeout <= 0 {
		return fmt.Errorf("%w: evaluation timeout must be positive", ErrInvalidConfig)
	}
	if c.ParseCacheSize < 0 {
		return fmt.Errorf("%w: parse cache size cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// WithEvaluationTimeout sets the evaluation timeout.
func (c *EngineConfig) WithEvaluationTimeout(timeout time.Duration) *EngineConfig {
	c.EvaluationTimeout = timeout
	return c
}

// WithFailMode sets the fail mode.
func (c *EngineConfig) WithFailMode(mode FailMode) *EngineConfig {
	c.FailMode = mode
	return c
}

// WithDefaultScore sets the score substituted in FailDefault mode.
func (c *EngineConfig) WithDefaultScore(score float64) *EngineConfig {
	c.DefaultScore = score
	return c
}

// WithParseCacheSize sets the parse cache size.
func (c *EngineConfig) WithParseCacheSize(size int) *EngineConfig {
	c.ParseCacheSize = size
	return c
}
