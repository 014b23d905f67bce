package storage

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"mercator-hq/ldatranslate/pkg/audit"
)

// MemoryStorage keeps records in memory. It suits tests and short-lived
// CLI runs; everything is lost on exit.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*audit.Record
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store keeps a copy of r.
func (s *MemoryStorage) Store(ctx context.Context, r *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, copyRecord(r))
	return nil
}

// Query returns copies of the matching records.
func (s *MemoryStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	s.mu.RLock()
	matched := s.filter(q)
	s.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b *audit.Record) int {
		c := a.EvaluatedTime.Compare(b.EvaluatedTime)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if q.SortOrder != audit.SortAsc {
			c = -c
		}
		return c
	})

	if q.Offset >= len(matched) {
		return []*audit.Record{}, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	out := make([]*audit.Record, len(matched))
	for i, r := range matched {
		out[i] = copyRecord(r)
	}
	return out, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.filter(q))), nil
}

// DeleteOlderThan removes records evaluated before cutoff.
func (s *MemoryStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.records)
	s.records = slices.DeleteFunc(s.records, func(r *audit.Record) bool {
		return r.EvaluatedTime.Before(cutoff)
	})
	return int64(before - len(s.records)), nil
}

// DeleteOldest removes the n oldest records.
func (s *MemoryStorage) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return 0, nil
	}
	slices.SortStableFunc(s.records, func(a, b *audit.Record) int {
		if c := a.EvaluatedTime.Compare(b.EvaluatedTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	n = min(n, int64(len(s.records)))
	s.records = slices.Delete(s.records, 0, int(n))
	return n, nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}

// filter must be called with the lock held.
func (s *MemoryStorage) filter(q *audit.Query) []*audit.Record {
	var out []*audit.Record
	for _, r := range s.records {
		if matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r *audit.Record, q *audit.Query) bool {
	if q.StartTime != nil && r.EvaluatedTime.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.EvaluatedTime.After(*q.EndTime) {
		return false
	}
	if q.VotingName != "" && r.VotingName != q.VotingName {
		return false
	}
	if q.VotingHash != "" && r.VotingHash != q.VotingHash {
		return false
	}
	if q.EvaluationID != "" && r.EvaluationID != q.EvaluationID {
		return false
	}
	if q.Status != "" && r.Status() != q.Status {
		return false
	}
	return true
}

func copyRecord(r *audit.Record) *audit.Record {
	c := *r
	c.Labels = maps.Clone(r.Labels)
	if r.Score != nil {
		v := *r.Score
		c.Score = &v
	}
	return &c
}

var _ audit.Storage = (*MemoryStorage)(nil)
