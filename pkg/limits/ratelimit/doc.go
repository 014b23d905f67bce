// Package ratelimit admits HTTP bridge requests per client.
//
// Each client, identified by its API key or its address, gets a Limiter
// combining a per-second token bucket (burst of twice the rate), a
// per-minute token bucket and a bound on concurrent requests:
//
//	limiters := ratelimit.NewKeyed(cfg.Server.RateLimit)
//	l := limiters.Get("key:ci")
//	if res := l.Admit(); !res.Allowed {
//	    // reject, retry after res.RetryAfter
//	}
//	defer l.Release()
//
// All types are safe for concurrent use.
package ratelimit
