// Package metrics provides Prometheus metrics for voting evaluation.
//
// A Collector registers evaluation, registry and audit metrics on its own
// prometheus.Registry and exposes them through Handler. Recording methods are
// no-ops when metrics are disabled. Voting label values are capped by a
// CardinalityLimiter so inline sources cannot grow the series set unbounded.
package metrics
