package ratelimit

import (
	"time"

	"mercator-hq/ldatranslate/pkg/config"
)

// Names of the limits reported in CheckResult.Limit.
const (
	LimitSecond      = "second"
	LimitMinute      = "minute"
	LimitConcurrency = "concurrency"
)

// CheckResult is the outcome of admitting one request.
type CheckResult struct {
	Allowed bool

	// Limit names the exceeded limit when Allowed is false.
	Limit string

	// Reason is a human-readable rejection message.
	Reason string

	// Capacity and Remaining describe the exceeded limit.
	Capacity  int64
	Remaining int64

	// RetryAfter suggests how long to wait before retrying.
	RetryAfter time.Duration
}

// Limiter combines per-second and per-minute token buckets with a
// concurrency limit for one client. Zero limits are not enforced.
type Limiter struct {
	perSecond  *TokenBucket
	perMinute  *TokenBucket
	concurrent *ConcurrentLimiter
}

// NewLimiter creates a limiter for cfg.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	return newLimiter(cfg, time.Now)
}

func newLimiter(cfg config.RateLimitConfig, now func() time.Time) *Limiter {
	l := &Limiter{}
	if cfg.RequestsPerSecond > 0 {
		// burst up to twice the per-second rate
		l.perSecond = newTokenBucket(int64(cfg.RequestsPerSecond*2), float64(cfg.RequestsPerSecond), now)
	}
	if cfg.RequestsPerMinute > 0 {
		l.perMinute = newTokenBucket(int64(cfg.RequestsPerMinute), float64(cfg.RequestsPerMinute)/60, now)
	}
	if cfg.MaxConcurrent > 0 {
		l.concurrent = NewConcurrentLimiter(cfg.MaxConcurrent)
	}
	return l
}

// Admit checks every limit. When the result is allowed the caller must call
// Release once the request finishes. A rejected request holds nothing.
func (l *Limiter) Admit() *CheckResult {
	if l.concurrent != nil && !l.concurrent.Acquire() {
		return &CheckResult{
			Limit:      LimitConcurrency,
			Reason:     "too many concurrent requests",
			Capacity:   l.concurrent.Limit(),
			RetryAfter: time.Second,
		}
	}

	for _, b := range []struct {
		bucket *TokenBucket
		limit  string
	}{{l.perSecond, LimitSecond}, {l.perMinute, LimitMinute}} {
		if b.bucket == nil || b.bucket.Take(1) {
			continue
		}
		if l.concurrent != nil {
			l.concurrent.Release()
		}
		return &CheckResult{
			Limit:      b.limit,
			Reason:     "requests per " + b.limit + " limit exceeded",
			Capacity:   b.bucket.Capacity(),
			Remaining:  b.bucket.Remaining(),
			RetryAfter: b.bucket.TimeUntilAvailable(1),
		}
	}
	return &CheckResult{Allowed: true}
}

// Release ends a request admitted by Admit.
func (l *Limiter) Release() {
	if l.concurrent != nil {
		l.concurrent.Release()
	}
}

// InFlight returns the number of admitted requests not yet released.
func (l *Limiter) InFlight() int64 {
	if l.concurrent == nil {
		return 0
	}
	return l.concurrent.Current()
}
