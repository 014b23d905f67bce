package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/config"
	"mercator-hq/ldatranslate/pkg/telemetry/metrics"
	verrors "mercator-hq/ldatranslate/pkg/voting/errors"
	"mercator-hq/ldatranslate/pkg/voting/registry"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

const baseDecl = `declare Base { aggregate(let s = sumOf): score }`

type stubSource struct {
	mu    sync.Mutex
	decls []string
	err   error
	loads int
}

func (s *stubSource) set(err error, decls ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decls, s.err = decls, err
}

func (s *stubSource) Load(ctx context.Context) (*registry.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	reg := registry.New()
	for _, d := range s.decls {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (s *stubSource) Watch(ctx context.Context, onChange func() error) error {
	<-ctx.Done()
	return nil
}

func (s *stubSource) String() string { return "stub" }

type captureRecorder struct {
	mu      sync.Mutex
	records []*audit.Record
}

func (c *captureRecorder) Record(ctx context.Context, rec *audit.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

func (c *captureRecorder) last() *audit.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records[len(c.records)-1]
}

// voters returns three voters with scores 4, 1 and 2 ranked 3, 1 and 2.
func voters() []scope.Context {
	mk := func(score float64, rank int64) scope.Context {
		return scope.New(
			scope.Var{Name: "score", Value: value.Float(score)},
			scope.Var{Name: "rank", Value: value.Int(rank)},
		)
	}
	return []scope.Context{mk(4, 3), mk(1, 1), mk(2, 2)}
}

func newEngine(t *testing.T, cfg *EngineConfig, opts ...Option) (*Engine, *stubSource) {
	t.Helper()
	src := &stubSource{decls: []string{baseDecl}}
	e, err := New(cfg, src, nil, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e, src
}

func TestEvaluate(t *testing.T) {
	e, _ := newEngine(t, nil)

	tests := []struct {
		name     string
		req      Request
		want     float64
		wantKind string
	}{
		{"registered name", Request{Voting: "Base"}, 7, "registered"},
		{"source text", Request{Voting: "aggregate(let s = sumOf(2)): score"}, 6, "function"},
		{"request limit", Request{Voting: "Base", Limit: 2}, 3, "registered"},
		{"limited call", Request{Voting: " Base(1) "}, 1, "limited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.Voters = voters()
			res, err := e.Evaluate(context.Background(), &req)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if !res.HasScore || res.Score != tt.want {
				t.Errorf("Score = %v (%v), want %v", res.Score, res.Value, tt.want)
			}
			if res.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", res.Kind, tt.wantKind)
			}
			if res.EvaluationID == "" || res.RegistryVersion == "" {
				t.Error("Result is missing its evaluation id or registry version")
			}
		})
	}
}

func TestEvaluateLimitNarrowsVoters(t *testing.T) {
	e, _ := newEngine(t, nil)

	res, err := e.Evaluate(context.Background(), &Request{Voting: "Base", Voters: voters(), Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Voters) != 1 {
		t.Fatalf("len(Voters) = %d, want 1", len(res.Voters))
	}
	if rank, _ := scope.Lookup(res.Voters[0], "rank"); !rank.Equal(value.Int(1)) {
		t.Errorf("kept voter rank = %v, want 1", rank)
	}
}

func TestEvaluateErrors(t *testing.T) {
	e, _ := newEngine(t, nil)

	tests := []struct {
		name     string
		voting   string
		wantType string
	}{
		{"empty", "   ", ErrorTypeInvalidRequest},
		{"syntax", "aggregate(let s = sumOf: score", ErrorTypeParse},
		{"unknown name", "Unknown", ErrorTypeParse},
		{"missing variable", "aggregate(let s = sumOf): missing", ErrorTypeVariableNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Evaluate(context.Background(), &Request{Voting: tt.voting, Voters: voters()})
			if res != nil {
				t.Errorf("Evaluate() result = %+v, want nil", res)
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("Evaluate() error = %v, want *EvaluationError", err)
			}
			if evalErr.Type != tt.wantType {
				t.Errorf("Type = %q, want %q (%v)", evalErr.Type, tt.wantType, err)
			}
		})
	}

	_, err := e.Evaluate(context.Background(), &Request{Voting: "Unknwn"})
	var parseErr *verrors.Error
	if !errors.As(err, &parseErr) {
		t.Errorf("parse failure does not unwrap to *errors.Error: %v", err)
	}
}

func TestEvaluateFailDefault(t *testing.T) {
	rec := &captureRecorder{}
	e, _ := newEngine(t, DefaultEngineConfig().WithFailMode(FailDefault).WithDefaultScore(-1), WithRecorder(rec))

	res, err := e.Evaluate(context.Background(), &Request{Voting: "Missing", Voters: voters()})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !res.Fallback || res.Score != -1 || res.Err == nil {
		t.Errorf("Result = %+v, want fallback to -1", res)
	}

	r := rec.last()
	if r.Status() != audit.StatusFallback || r.Score == nil || *r.Score != -1 || r.ErrorType != ErrorTypeParse {
		t.Errorf("audit record = %+v", r)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	e, _ := newEngine(t, DefaultEngineConfig().WithEvaluationTimeout(20*time.Millisecond))

	err := e.RegisterHost("Slow", func(global scope.Context, voters []scope.Context) (any, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.Evaluate(context.Background(), &Request{Voting: "Slow"})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Evaluate() error = %v, want ErrTimeout", err)
	}
	if ErrorType(err) != ErrorTypeTimeout {
		t.Errorf("ErrorType() = %q", ErrorType(err))
	}
}

func TestEvaluateWritesCallerContexts(t *testing.T) {
	e, _ := newEngine(t, nil)

	global := scope.New()
	in := voters()
	res, err := e.Evaluate(context.Background(), &Request{Voting: "Base", Global: global, Voters: in, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Voters) != 1 || res.Voters[0] != in[1] {
		t.Fatalf("Voters = %v, want the caller's rank 1 voter", res.Voters)
	}
	if got, ok := global.Get("s"); !ok || !got.Equal(value.Float(1)) {
		t.Errorf("global s = %v, %v, want 1", got, ok)
	}
	if got, ok := global.Get(scope.NVoters); !ok || !got.Equal(value.Int(1)) {
		t.Errorf("global n_voters = %v, %v, want 1", got, ok)
	}
}

func TestEvaluateTimeoutIsolatesContexts(t *testing.T) {
	e, _ := newEngine(t, DefaultEngineConfig().WithEvaluationTimeout(10*time.Millisecond).WithFailMode(FailDefault))

	finished := make(chan struct{})
	err := e.RegisterHost("Late", func(global scope.Context, voters []scope.Context) (any, error) {
		defer close(finished)
		time.Sleep(30 * time.Millisecond)
		for i := range 1000 {
			voters[0].Set("late", value.Int(int64(i)))
			global.Set("late", value.Int(int64(i)))
		}
		return 1, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	global := scope.New()
	in := voters()
	res, err := e.Evaluate(context.Background(), &Request{Voting: "Late", Global: global, Voters: in})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !res.Fallback || !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("Result = %+v, want a timeout fallback", res)
	}
	if res.Voters != nil {
		t.Errorf("Voters = %v, want nil after a timeout", res.Voters)
	}

	// Read while the abandoned evaluation is still writing.
	for range 50 {
		_ = in[0].Snapshot()
		_ = global.Snapshot()
	}

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("host voting never finished")
	}
	if in[0].Contains("late") || global.Contains("late") {
		t.Error("caller contexts were written after Evaluate returned")
	}
}

func TestHostVoting(t *testing.T) {
	e, _ := newEngine(t, nil)

	err := e.RegisterHost("Count", func(global scope.Context, voters []scope.Context) (any, error) {
		return len(voters), nil
	})
	if err != nil {
		t.Fatalf("RegisterHost() error = %v", err)
	}

	res, err := e.Evaluate(context.Background(), &Request{Voting: "Count", Voters: voters()})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.Kind != "foreign" || res.Score != 3 {
		t.Errorf("Result = %+v, want foreign 3", res)
	}

	tests := []struct {
		name string
		host string
		want error
	}{
		{"duplicate", "Count", ErrHostExists},
		{"registered name", "Base", registry.ErrAlreadyRegistered},
		{"build-in", "CombSum", registry.ErrBuildInNotRegistrable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.RegisterHost(tt.host, func(scope.Context, []scope.Context) (any, error) { return 0, nil })
			if !errors.Is(err, tt.want) {
				t.Errorf("RegisterHost(%s) error = %v, want %v", tt.host, err, tt.want)
			}
		})
	}

	t.Run("declaration under host name", func(t *testing.T) {
		if err := e.Register(`declare Count { aggregate(let s = sumOf): score }`); !errors.Is(err, ErrHostExists) {
			t.Errorf("Register() error = %v, want ErrHostExists", err)
		}
		if err := e.RegisterAt("Count", `declare Tally { aggregate(let s = sumOf): score }`); !errors.Is(err, ErrHostExists) {
			t.Errorf("RegisterAt() error = %v, want ErrHostExists", err)
		}
		if _, ok := e.Registry().Get("Tally"); ok {
			t.Error("Tally was registered despite the rejected alias")
		}
	})
}

func TestReload(t *testing.T) {
	e, src := newEngine(t, nil)
	ctx := context.Background()

	if err := e.RegisterAt("top", `declare Top { aggregate(let s = maxOf): score }`); err != nil {
		t.Fatalf("RegisterAt() error = %v", err)
	}
	if got := e.Registry().Names(); len(got) != 3 {
		t.Fatalf("Names() = %v, want Base Top top", got)
	}

	// A failed load keeps the current registry.
	src.set(errors.New("boom"))
	before := e.Registry()
	if err := e.Reload(ctx); err == nil {
		t.Fatal("Reload() should fail")
	}
	if e.Registry() != before {
		t.Error("failed Reload() replaced the registry")
	}

	// A successful load replaces the definitions and replays registrations.
	src.set(nil, `declare Other { aggregate(let s = minOf): score }`)
	if err := e.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if _, ok := e.Registry().Get("Base"); ok {
		t.Error("Base survived a reload that removed it")
	}
	res, err := e.Evaluate(ctx, &Request{Voting: "top", Voters: voters()})
	if err != nil || res.Score != 4 {
		t.Errorf("replayed registration: %v, %v", res, err)
	}

	// A registration that conflicts with the new definitions is dropped.
	src.set(nil, `declare Top { aggregate(let s = sumOf): score }`)
	if err := e.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if _, ok := e.Registry().Get("top"); ok {
		t.Error("conflicting registration was replayed")
	}
}

func TestReloadWithoutSource(t *testing.T) {
	e, err := New(nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Reload(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Errorf("Reload() error = %v, want ErrNoSource", err)
	}
	if e.Registry().Len() != 0 {
		t.Error("engine without source should start empty")
	}
}

func TestDescribe(t *testing.T) {
	e, _ := newEngine(t, nil)

	if got, ok := e.Describe("Base"); !ok || got == "" {
		t.Errorf("Describe(Base) = %q, %v", got, ok)
	}
	if got, ok := e.Describe("CombSum"); !ok || got != "CombSum" {
		t.Errorf("Describe(CombSum) = %q, %v", got, ok)
	}
	if _, ok := e.Describe("Nope"); ok {
		t.Error("Describe(Nope) should fail")
	}
}

func TestMetricsAndAudit(t *testing.T) {
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, nil)
	rec := &captureRecorder{}
	e, _ := newEngine(t, nil, WithMetrics(collector), WithRecorder(rec))
	ctx := context.Background()

	for range 2 {
		req := &Request{Voting: "Base", Voters: voters(), Labels: map[string]string{"topic": "3"}}
		if _, err := e.Evaluate(ctx, req); err != nil {
			t.Fatal(err)
		}
	}
	e.Evaluate(ctx, &Request{Voting: "Nope"})

	n, err := testutil.GatherAndCount(collector.Registry(), "ldatranslate_voting_evaluations_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("evaluations_total series = %d, want Base/success and inline/error", n)
	}
	if n, _ := testutil.GatherAndCount(collector.Registry(), "ldatranslate_voting_parse_cache_total"); n != 2 {
		t.Errorf("parse_cache_total series = %d, want hit and miss", n)
	}

	if len(rec.records) != 3 {
		t.Fatalf("recorded %d audit records, want 3", len(rec.records))
	}
	first := rec.records[0]
	if first.VotingName != "Base" || first.VotingHash != audit.Hash(first.Voting) {
		t.Errorf("audit voting = %q %q %q", first.VotingName, first.Voting, first.VotingHash)
	}
	if first.Score == nil || *first.Score != 7 || first.VoterCount != 3 || first.Labels["topic"] != "3" {
		t.Errorf("audit record = %+v", first)
	}
	if rec.last().Status() != audit.StatusError || rec.last().VotingName != InlineLabel {
		t.Errorf("failed evaluation record = %+v", rec.last())
	}
}

func TestEngineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *EngineConfig
		wantErr bool
	}{
		{"default", DefaultEngineConfig(), false},
		{"fail default", DefaultEngineConfig().WithFailMode(FailDefault), false},
		{"unknown fail mode", DefaultEngineConfig().WithFailMode("open"), true},
		{"zero timeout", DefaultEngineConfig().WithEvaluationTimeout(0), true},
		{"negative cache", DefaultEngineConfig().WithParseCacheSize(-1), true},
		{"from config", FromConfig(config.Default().Engine), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error does not wrap ErrInvalidConfig: %v", err)
			}
		})
	}
}

func TestConfigure(t *testing.T) {
	e, _ := newEngine(t, nil)

	if err := e.Configure(DefaultEngineConfig().WithFailMode("sometimes")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Configure(invalid) error = %v, want ErrInvalidConfig", err)
	}
	if _, err := e.Evaluate(context.Background(), &Request{Voting: "Missing"}); err == nil {
		t.Fatal("Evaluate() should fail before fail mode default is configured")
	}

	if err := e.Configure(DefaultEngineConfig().WithFailMode(FailDefault).WithDefaultScore(0.5)); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	res, err := e.Evaluate(context.Background(), &Request{Voting: "Missing"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !res.Fallback || res.Score != 0.5 {
		t.Errorf("Result = %+v, want fallback 0.5", res)
	}
}
