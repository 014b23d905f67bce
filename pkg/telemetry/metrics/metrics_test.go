package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/ldatranslate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                   true,
		Namespace:                 "test",
		Subsystem:                 "voting",
		EvaluationDurationBuckets: []float64{0.001, 0.01, 0.1},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}

	defaults := &config.MetricsConfig{Enabled: true}
	NewCollector(defaults, nil)
	if defaults.Namespace != config.DefaultMetricsNamespace || defaults.Subsystem != config.DefaultMetricsSubsystem {
		t.Errorf("defaults not applied: %+v", defaults)
	}
}

func TestCollector_RecordEvaluation(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordEvaluation("CombSum", "success", 2*time.Millisecond)
	collector.RecordEvaluation("CombSum", "success", 3*time.Millisecond)
	collector.RecordEvaluation("CombSum", "fallback", time.Millisecond)
	collector.RecordEvaluationError("CombSum", "variable_not_found")

	if got := testutil.ToFloat64(collector.evaluation.evaluationsTotal.WithLabelValues("CombSum", "success")); got != 2 {
		t.Errorf("success evaluations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.evaluation.evaluationsTotal.WithLabelValues("CombSum", "fallback")); got != 1 {
		t.Errorf("fallback evaluations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.evaluation.errorsTotal.WithLabelValues("CombSum", "variable_not_found")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(collector.evaluation.evaluationDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestCollector_RegistryAndAudit(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordReload(true, 4)
	collector.RecordReload(false, 99)
	collector.RecordRegistration(true)
	collector.RecordParseCache(true)
	collector.RecordParseCache(false)
	collector.RecordParseCache(false)
	collector.RecordAuditWrite("stored")
	collector.RecordAuditWrite("dropped")
	collector.RecordAuditPruned(7)
	collector.RecordRateLimited("second")
	collector.RecordRateLimited("second")

	if got := testutil.ToFloat64(collector.registryM.size); got != 4 {
		t.Errorf("registry size = %v, want 4 (failed reload must not update it)", got)
	}
	if got := testutil.ToFloat64(collector.registryM.reloadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.evaluation.parseCacheTotal.WithLabelValues("miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.audit.prunedTotal); got != 7 {
		t.Errorf("pruned = %v, want 7", got)
	}

	if got := testutil.ToFloat64(collector.server.rateLimited.WithLabelValues("second")); got != 2 {
		t.Errorf("rate limited = %v, want 2", got)
	}

	collector.UpdateRegistrySize(10)
	if got := testutil.ToFloat64(collector.registryM.size); got != 10 {
		t.Errorf("registry size = %v, want 10", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordEvaluation("CombSum", "success", time.Millisecond)
	collector.RecordAuditWrite("stored")

	if got := testutil.ToFloat64(collector.evaluation.evaluationsTotal.WithLabelValues("CombSum", "success")); got != 0 {
		t.Errorf("disabled collector recorded %v evaluations", got)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(2)
	if !limiter.Allow("a") || !limiter.Allow("b") {
		t.Fatal("limiter rejected values under the limit")
	}
	if !limiter.Allow("a") {
		t.Error("limiter rejected a known value")
	}
	if limiter.Allow("c") {
		t.Error("limiter accepted a value over the limit")
	}
	if limiter.Count() != 2 {
		t.Errorf("Count() = %d, want 2", limiter.Count())
	}

	collector := NewCollector(testConfig(), nil)
	collector.cardinalityLimiter = NewCardinalityLimiter(1)
	collector.RecordEvaluation("first", "success", 0)
	collector.RecordEvaluation("second", "success", 0)
	if got := testutil.ToFloat64(collector.evaluation.evaluationsTotal.WithLabelValues(OtherLabel, "success")); got != 1 {
		t.Errorf("overflow label = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordEvaluation("RR", "success", time.Millisecond)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "test_voting_evaluations_total") {
		t.Errorf("metrics output missing evaluations counter:\n%s", body)
	}
}
