package metrics

import (
	"sync"
	"time"

	"mercator-hq/ldatranslate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OtherLabel replaces label values once a metric reached its cardinality limit.
const OtherLabel = "other"

// Collector owns every Prometheus metric of the service. It registers them
// on its own registry so tests and embedded engines do not collide on the
// global one.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	evaluation *EvaluationMetrics
	registryM  *RegistryMetrics
	audit      *AuditMetrics
	server     *ServerMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a metrics collector. If registry is nil a new
// registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.EvaluationDurationBuckets) == 0 {
		cfg.EvaluationDurationBuckets = config.DefaultEvaluationDurationBuckets
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		evaluation:         NewEvaluationMetrics(cfg, registry),
		registryM:          NewRegistryMetrics(cfg, registry),
		audit:              NewAuditMetrics(cfg, registry),
		server:             NewServerMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
}

// votingLabel bounds the number of distinct voting label values.
func (c *Collector) votingLabel(voting string) string {
	if !c.cardinalityLimiter.Allow(voting) {
		return OtherLabel
	}
	return voting
}

// RecordEvaluation records a finished evaluation.
//
// Parameters:
//   - voting: registered or build-in name, or "inline" for parsed source
//   - status: "success", "error" or "fallback"
//   - duration: time spent in the interpreter
func (c *Collector) RecordEvaluation(voting, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.evaluation.Record(c.votingLabel(voting), status, duration)
}

// RecordEvaluationError counts a failed evaluation by error type.
func (c *Collector) RecordEvaluationError(voting, errorType string) {
	if !c.config.Enabled {
		return
	}
	c.evaluation.RecordError(c.votingLabel(voting), errorType)
}

// RecordParseCache records a parse cache lookup.
func (c *Collector) RecordParseCache(hit bool) {
	if !c.config.Enabled {
		return
	}
	c.evaluation.RecordCache(hit)
}

// RecordReload records a registry reload and, on success, the new size.
func (c *Collector) RecordReload(success bool, size int) {
	if !c.config.Enabled {
		return
	}
	c.registryM.RecordReload(success, size)
}

// UpdateRegistrySize sets the number of registered names.
func (c *Collector) UpdateRegistrySize(size int) {
	if !c.config.Enabled {
		return
	}
	c.registryM.UpdateSize(size)
}

// RecordRegistration counts a registration attempt through the API.
func (c *Collector) RecordRegistration(success bool) {
	if !c.config.Enabled {
		return
	}
	c.registryM.RecordRegistration(success)
}

// RecordAuditWrite counts audit records by outcome ("stored", "failed", "dropped").
func (c *Collector) RecordAuditWrite(outcome string) {
	if !c.config.Enabled {
		return
	}
	c.audit.RecordWrite(outcome)
}

// RecordAuditPruned counts records deleted by retention.
func (c *Collector) RecordAuditPruned(n int64) {
	if !c.config.Enabled {
		return
	}
	c.audit.RecordPruned(n)
}

// RecordRateLimited counts a request rejected by the named limit
// ("second", "minute" or "concurrency").
func (c *Collector) RecordRateLimited(limit string) {
	if !c.config.Enabled {
		return
	}
	c.server.RecordRateLimited(limit)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits under the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	_, exists := cl.current[labelSet]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
