// Package retention enforces the audit retention policy: records older
// than the configured age are removed first, then the oldest records
// beyond the configured count.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/config"
)

// Result summarizes one prune run.
type Result struct {
	DeletedByAge   int64
	DeletedByCount int64
	Duration       time.Duration
}

// Total returns the number of records removed by both phases.
func (r Result) Total() int64 {
	return r.DeletedByAge + r.DeletedByCount
}

// Pruner deletes audit records according to a RetentionConfig.
type Pruner struct {
	storage audit.Storage
	config  config.RetentionConfig
	logger  *slog.Logger
	now     func() time.Time
	observe func(deleted int64)
}

// NewPruner creates a pruner for storage.
func NewPruner(storage audit.Storage, cfg config.RetentionConfig, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage: storage,
		config:  cfg,
		logger:  logger.With("component", "audit.retention"),
		now:     time.Now,
		observe: func(int64) {},
	}
}

// OnPrune registers fn to receive the number of records removed by each run.
func (p *Pruner) OnPrune(fn func(deleted int64)) {
	if fn != nil {
		p.observe = fn
	}
}

// Prune runs the age phase then the count phase. A zero Days or
// MaxRecords disables the corresponding phase.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result

	if p.config.Days > 0 {
		cutoff := p.now().UTC().AddDate(0, 0, -p.config.Days)
		n, err := p.storage.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return res, fmt.Errorf("prune by age: %w", err)
		}
		res.DeletedByAge = n
	}

	if p.config.MaxRecords > 0 {
		count, err := p.storage.Count(ctx, &audit.Query{})
		if err != nil {
			return res, fmt.Errorf("count records: %w", err)
		}
		if excess := count - p.config.MaxRecords; excess > 0 {
			n, err := p.storage.DeleteOldest(ctx, excess)
			if err != nil {
				return res, fmt.Errorf("prune by count: %w", err)
			}
			res.DeletedByCount = n
		}
	}

	res.Duration = time.Since(start)
	p.observe(res.Total())

	if res.Total() > 0 {
		p.logger.Info("pruned audit records",
			"deleted_by_age", res.DeletedByAge,
			"deleted_by_count", res.DeletedByCount,
			"duration_ms", res.Duration.Milliseconds(),
		)
	} else {
		p.logger.Debug("no audit records to prune")
	}
	return res, nil
}
