package recorder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/audit/storage"
	"mercator-hq/ldatranslate/pkg/config"
)

type outcomes struct {
	mu   sync.Mutex
	seen map[string]int
}

func (o *outcomes) observe(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen == nil {
		o.seen = map[string]int{}
	}
	o.seen[outcome]++
}

func (o *outcomes) get(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seen[outcome]
}

func TestRecordAndClose(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := New(store, config.RecorderConfig{AsyncBuffer: 4, MaxFieldLength: 8}, nil)
	var o outcomes
	r.OnWrite(o.observe)

	ctx := context.Background()
	for i := range 10 {
		rec := &audit.Record{
			EvaluationID:  "eval",
			Voting:        strings.Repeat("x", 20),
			Result:        "1",
			EvaluatedTime: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := r.Record(ctx, rec); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if rec.ID == "" || rec.RecordedTime.IsZero() {
			t.Error("Record() did not fill ID and RecordedTime")
		}
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	n, _ := store.Count(ctx, &audit.Query{})
	if n != 10 {
		t.Errorf("stored %d records, want 10", n)
	}
	if got := o.get(OutcomeStored); got != 10 {
		t.Errorf("stored outcome = %d, want 10", got)
	}
	records, _ := store.Query(ctx, &audit.Query{Limit: 1})
	if len(records[0].Voting) != 8 {
		t.Errorf("Voting not truncated: %q", records[0].Voting)
	}
}

func TestRecordAfterClose(t *testing.T) {
	r := New(storage.NewMemoryStorage(), config.RecorderConfig{}, nil)
	var o outcomes
	r.OnWrite(o.observe)
	r.Close()

	err := r.Record(context.Background(), &audit.Record{})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Record() after Close error = %v, want ErrClosed", err)
	}
	if o.get(OutcomeDropped) != 1 {
		t.Error("dropped outcome not reported")
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

type failingStorage struct {
	*storage.MemoryStorage
}

func (failingStorage) Store(context.Context, *audit.Record) error {
	return errors.New("disk full")
}

func TestStoreFailureIsReported(t *testing.T) {
	r := New(failingStorage{storage.NewMemoryStorage()}, config.RecorderConfig{}, nil)
	var o outcomes
	r.OnWrite(o.observe)

	if err := r.Record(context.Background(), &audit.Record{}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	r.Close()

	if o.get(OutcomeFailed) != 1 {
		t.Errorf("failed outcome = %d, want 1", o.get(OutcomeFailed))
	}
}
