package ratelimit

import (
	"sync"
	"time"

	"mercator-hq/ldatranslate/pkg/config"
)

// Keyed holds one Limiter per client. Limiters idle for longer than the
// idle timeout with no request in flight are dropped.
type Keyed struct {
	cfg  config.RateLimitConfig
	idle time.Duration
	now  func() time.Time

	mu        sync.Mutex
	limiters  map[string]*keyedEntry
	lastSweep time.Time
}

type keyedEntry struct {
	limiter  *Limiter
	lastSeen time.Time
}

// NewKeyed creates per-client limiters for cfg.
func NewKeyed(cfg config.RateLimitConfig) *Keyed {
	return newKeyed(cfg, time.Now)
}

func newKeyed(cfg config.RateLimitConfig, now func() time.Time) *Keyed {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = config.DefaultRateLimitIdle
	}
	return &Keyed{
		cfg:       cfg,
		idle:      idle,
		now:       now,
		limiters:  make(map[string]*keyedEntry),
		lastSweep: now(),
	}
}

// Get returns the limiter of client, creating it on first use.
func (k *Keyed) Get(client string) *Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if now.Sub(k.lastSweep) >= k.idle {
		k.sweepLocked(now)
	}

	e, ok := k.limiters[client]
	if !ok {
		e = &keyedEntry{limiter: newLimiter(k.cfg, k.now)}
		k.limiters[client] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Len returns the number of tracked clients.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

func (k *Keyed) sweepLocked(now time.Time) {
	for client, e := range k.limiters {
		if now.Sub(e.lastSeen) >= k.idle && e.limiter.InFlight() == 0 {
			delete(k.limiters, client)
		}
	}
	k.lastSweep = now
}
