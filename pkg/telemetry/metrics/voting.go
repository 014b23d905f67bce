package metrics

import (
	"time"

	"mercator-hq/ldatranslate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluationMetrics tracks voting evaluations.
//
// Metrics:
//   - ldatranslate_voting_evaluations_total: evaluations by voting and status
//   - ldatranslate_voting_evaluation_duration_seconds: evaluation duration
//   - ldatranslate_voting_evaluation_errors_total: failures by error type
//   - ldatranslate_voting_parse_cache_total: parse cache lookups by result
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
	parseCacheTotal    *prometheus.CounterVec
}

// NewEvaluationMetrics creates and registers evaluation metrics.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	m := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of voting evaluations",
			},
			[]string{"voting", "status"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of voting evaluation in seconds",
				Buckets:   cfg.EvaluationDurationBuckets,
			},
			[]string{"voting"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_errors_total",
				Help:      "Total number of failed voting evaluations by error type",
			},
			[]string{"voting", "error_type"},
		),
		parseCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "parse_cache_total",
				Help:      "Parse cache lookups by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.errorsTotal,
		m.parseCacheTotal,
	)
	return m
}

// Record records one evaluation.
func (m *EvaluationMetrics) Record(voting, status string, duration time.Duration) {
	m.evaluationsTotal.WithLabelValues(voting, status).Inc()
	m.evaluationDuration.WithLabelValues(voting).Observe(duration.Seconds())
}

// RecordError records one failed evaluation.
func (m *EvaluationMetrics) RecordError(voting, errorType string) {
	m.errorsTotal.WithLabelValues(voting, errorType).Inc()
}

// RecordCache records a parse cache lookup.
func (m *EvaluationMetrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.parseCacheTotal.WithLabelValues(result).Inc()
}

// RegistryMetrics tracks the voting registry.
//
// Metrics:
//   - ldatranslate_voting_registry_size: registered names in the active registry
//   - ldatranslate_voting_reloads_total: definition reloads by status
//   - ldatranslate_voting_registrations_total: API registrations by status
type RegistryMetrics struct {
	size          prometheus.Gauge
	reloadsTotal  *prometheus.CounterVec
	registrations *prometheus.CounterVec
}

// NewRegistryMetrics creates and registers registry metrics.
func NewRegistryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RegistryMetrics {
	m := &RegistryMetrics{
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "registry_size",
			Help:      "Number of names in the active voting registry",
		}),
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "reloads_total",
				Help:      "Total number of voting definition reloads",
			},
			[]string{"status"},
		),
		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "registrations_total",
				Help:      "Total number of voting registrations",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(m.size, m.reloadsTotal, m.registrations)
	return m
}

// RecordReload records a reload attempt.
func (m *RegistryMetrics) RecordReload(success bool, size int) {
	m.reloadsTotal.WithLabelValues(statusLabel(success)).Inc()
	if success {
		m.size.Set(float64(size))
	}
}

// RecordRegistration records a registration attempt.
func (m *RegistryMetrics) RecordRegistration(success bool) {
	m.registrations.WithLabelValues(statusLabel(success)).Inc()
}

// UpdateSize sets the registry size gauge.
func (m *RegistryMetrics) UpdateSize(size int) {
	m.size.Set(float64(size))
}

// AuditMetrics tracks the audit trail.
//
// Metrics:
//   - ldatranslate_voting_audit_records_total: records by outcome
//   - ldatranslate_voting_audit_pruned_total: records deleted by retention
type AuditMetrics struct {
	recordsTotal *prometheus.CounterVec
	prunedTotal  prometheus.Counter
}

// NewAuditMetrics creates and registers audit metrics.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	m := &AuditMetrics{
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_records_total",
				Help:      "Audit records by outcome",
			},
			[]string{"outcome"},
		),
		prunedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "audit_pruned_total",
			Help:      "Audit records deleted by retention",
		}),
	}

	registry.MustRegister(m.recordsTotal, m.prunedTotal)
	return m
}

// RecordWrite records one audit write outcome.
func (m *AuditMetrics) RecordWrite(outcome string) {
	m.recordsTotal.WithLabelValues(outcome).Inc()
}

// RecordPruned adds n pruned records.
func (m *AuditMetrics) RecordPruned(n int64) {
	m.prunedTotal.Add(float64(n))
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
