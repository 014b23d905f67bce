package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ldatranslate/pkg/config"
)

// ServerMetrics tracks request admission on the HTTP bridge.
//
// Metrics:
//   - ldatranslate_voting_rate_limited_total: rejected requests by limit
type ServerMetrics struct {
	rateLimited *prometheus.CounterVec
}

// NewServerMetrics creates and registers HTTP bridge metrics.
func NewServerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ServerMetrics {
	m := &ServerMetrics{
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by rate limiting",
			},
			[]string{"limit"},
		),
	}
	registry.MustRegister(m.rateLimited)
	return m
}

// RecordRateLimited counts one rejected request.
func (m *ServerMetrics) RecordRateLimited(limit string) {
	m.rateLimited.WithLabelValues(limit).Inc()
}
