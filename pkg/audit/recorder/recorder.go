// Package recorder writes audit records asynchronously so evaluations never
// block on storage.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/config"
)

// Write outcomes reported to the observer.
const (
	OutcomeStored  = "stored"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("recorder closed")

// Recorder queues records on a buffered channel drained by one worker.
type Recorder struct {
	storage audit.Storage
	config  config.RecorderConfig
	logger  *slog.Logger
	observe func(outcome string)

	records chan *audit.Record
	done    chan struct{}
	wg      sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool
}

// New starts a recorder writing to storage. Zero config fields take the
// package defaults.
func New(storage audit.Storage, cfg config.RecorderConfig, logger *slog.Logger) *Recorder {
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = config.DefaultAuditAsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultAuditWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage: storage,
		config:  cfg,
		logger:  logger.With("component", "audit.recorder"),
		observe: func(string) {},
		records: make(chan *audit.Record, cfg.AsyncBuffer),
		done:    make(chan struct{}),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// OnWrite registers fn to be called with the outcome of every record.
// It must be set before the first Record call.
func (r *Recorder) OnWrite(fn func(outcome string)) {
	if fn != nil {
		r.observe = fn
	}
}

// Record fills in the ID and recorded time, truncates long text fields and
// queues rec. If the queue stays full for WriteTimeout the record is
// dropped and an error returned.
func (r *Recorder) Record(ctx context.Context, rec *audit.Record) error {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if r.closed {
		r.observe(OutcomeDropped)
		return &audit.RecorderError{RecordID: rec.ID, Err: ErrClosed}
	}

	rec.RecordedTime = time.Now().UTC()
	rec.Voting = audit.Truncate(rec.Voting, r.config.MaxFieldLength)
	rec.Error = audit.Truncate(rec.Error, r.config.MaxFieldLength)

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.records <- rec:
		return nil
	case <-timer.C:
		r.logger.Error("audit channel full, dropping record",
			"record_id", rec.ID,
			"evaluation_id", rec.EvaluationID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		r.observe(OutcomeDropped)
		return &audit.RecorderError{RecordID: rec.ID, Err: context.DeadlineExceeded}
	case <-ctx.Done():
		r.observe(OutcomeDropped)
		return &audit.RecorderError{RecordID: rec.ID, Err: ctx.Err()}
	}
}

// Close stops accepting records, writes everything still queued and
// waits for the worker to exit.
func (r *Recorder) Close() error {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.closeMu.Unlock()

	r.wg.Wait()
	r.logger.Info("audit recorder shut down")
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case rec := <-r.records:
			r.write(rec)
		case <-r.done:
			for {
				select {
				case rec := <-r.records:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, rec); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", rec.ID,
			"evaluation_id", rec.EvaluationID,
			"error", err,
		)
		r.observe(OutcomeFailed)
		return
	}
	r.observe(OutcomeStored)

	if d := time.Since(start); d > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", rec.ID,
			"duration_ms", d.Milliseconds(),
		)
	}
}
