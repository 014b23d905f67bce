package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/telemetry/logging"
	"mercator-hq/ldatranslate/pkg/telemetry/metrics"
	"mercator-hq/ldatranslate/pkg/telemetry/tracing"
	"mercator-hq/ldatranslate/pkg/voting"
	"mercator-hq/ldatranslate/pkg/voting/ast"
	"mercator-hq/ldatranslate/pkg/voting/buildin"
	"mercator-hq/ldatranslate/pkg/voting/interpreter"
	"mercator-hq/ldatranslate/pkg/voting/registry"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/source"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

// InlineLabel names evaluations of source text in metrics and audit
// records.
const InlineLabel = "inline"

// Request is one evaluation.
type Request struct {
	// Voting is a registered or build-in name, a limited call such as
	// CombSum(3), a host voting name or voting source.
	Voting string

	// Global is the global context. A fresh context is used when nil.
	Global scope.Context

	// Voters are the voter contexts. A positive Limit may reorder them.
	Voters []scope.Context

	// Labels are copied to the audit record.
	Labels map[string]string

	// Limit keeps only the Limit best ranked voters. 0 means no limit.
	Limit int
}

// Result is the outcome of an evaluation.
type Result struct {
	EvaluationID    string
	Voting          string // canonical form of the evaluated voting
	Kind            string
	Value           value.Value
	Score           float64
	HasScore        bool // Value was a number
	Fallback        bool
	Err             error // the error DefaultScore replaced
	Voters          []scope.Context
	RegistryVersion string
	Duration        time.Duration
}

// Recorder receives one audit record per evaluation.
type Recorder interface {
	Record(ctx context.Context, rec *audit.Record) error
}

// Option configures optional engine dependencies.
type Option func(*Engine)

// WithMetrics records evaluation and registry metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithTracer creates spans for evaluations and reloads.
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithRecorder writes an audit record for every evaluation.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

type snapshot struct {
	registry *registry.Registry
	cache    *parseCache
	loadedAt time.Time
}

type registration struct {
	name string
	text string
}

// Engine evaluates votings against the current registry snapshot. A
// reload builds a complete new registry and swaps it in atomically, so
// evaluations never observe a half-loaded set of definitions.
type Engine struct {
	config   atomic.Pointer[EngineConfig]
	source   source.Source
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	recorder Recorder

	current atomic.Pointer[snapshot]

	// mu serializes reloads and registrations.
	mu      sync.Mutex
	dynamic []registration

	hostsMu sync.RWMutex
	hosts   map[string]interpreter.HostFunc
}

// New creates an engine. With a non-nil src the definitions are loaded
// before New returns; without one the engine starts with an empty
// registry.
func New(cfg *EngineConfig, src source.Source, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultEngineConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		source: src,
		logger: logger.With("component", "voting.engine"),
		tracer: tracing.Noop(),
		hosts:  make(map[string]interpreter.HostFunc),
	}
	e.config.Store(cfg)
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(e.newSnapshot(registry.New()))

	if src != nil {
		if err := e.Reload(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to load initial votings: %w", err)
		}
	}
	return e, nil
}

func (e *Engine) newSnapshot(reg *registry.Registry) *snapshot {
	return &snapshot{
		registry: reg,
		cache:    newParseCache(e.config.Load().ParseCacheSize),
		loadedAt: time.Now(),
	}
}

// Evaluate runs req against the current registry. In FailDefault mode a
// failed evaluation returns a fallback Result and a nil error.
func (e *Engine) Evaluate(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, errors.New("evaluation request cannot be nil")
	}

	evalID := uuid.NewString()
	ctx = logging.WithEvaluationID(ctx, evalID)
	ctx, span := e.tracer.Start(ctx, "voting.evaluate")
	defer span.End()

	start := time.Now()
	cfg := e.config.Load()
	snap := e.current.Load()
	res := &Result{
		EvaluationID:    evalID,
		Voting:          strings.TrimSpace(req.Voting),
		Kind:            "unknown",
		RegistryVersion: snap.registry.Version(),
	}
	label := InlineLabel

	method, err := e.resolve(snap, res.Voting)
	if err == nil {
		label = methodLabel(method)
		res.Kind = methodKind(method)
		if tree, ok := method.Tree(); ok {
			res.Voting = ast.Format(tree)
		}
		ctx = logging.WithVoting(ctx, label)
		tracing.SetEvaluationAttributes(span, evalID, label, res.Kind, len(req.Voters), req.Limit)

		res.Value, res.Voters, err = e.run(ctx, method, req, cfg.EvaluationTimeout)
	}
	res.Duration = time.Since(start)

	errType := ""
	status := audit.StatusSuccess
	if err != nil {
		errType = ErrorType(err)
		if e.metrics != nil {
			e.metrics.RecordEvaluationError(label, errType)
		}
		tracing.SetStatus(span, err)

		if cfg.FailMode == FailDefault {
			status = audit.StatusFallback
			res.Value = value.Float(cfg.DefaultScore)
			res.Score, res.HasScore = cfg.DefaultScore, true
			res.Fallback = true
			res.Err = err
			e.logger.WarnContext(ctx, "evaluation failed, using default score",
				append(logging.ContextFields(ctx), "error_type", errType, "error", err)...)
		} else {
			status = audit.StatusError
			e.logger.DebugContext(ctx, "evaluation failed",
				append(logging.ContextFields(ctx), "error_type", errType, "error", err)...)
		}
	} else if f, nerr := res.Value.AsNumber(); nerr == nil {
		res.Score, res.HasScore = f, true
	}

	if e.metrics != nil {
		e.metrics.RecordEvaluation(label, status, res.Duration)
	}
	tracing.SetResultAttributes(span, res.Score, res.Fallback, errType)
	e.audit(ctx, req, res, label, err, errType, start)

	if err != nil && !res.Fallback {
		return nil, &EvaluationError{EvaluationID: evalID, Voting: res.Voting, Type: errType, Err: err}
	}
	return res, nil
}

// resolve turns the request text into a Method: a host voting by exact
// name, otherwise a parse against the snapshot's registry.
func (e *Engine) resolve(snap *snapshot, text string) (interpreter.Method, error) {
	if text == "" {
		return interpreter.Method{}, ErrEmptyVoting
	}

	e.hostsMu.RLock()
	fn, ok := e.hosts[text]
	e.hostsMu.RUnlock()
	if ok {
		return interpreter.ForeignMethod(text, fn), nil
	}

	version := snap.registry.Version()
	if tree, ok := snap.cache.get(version, text); ok {
		e.recordCache(true)
		return interpreter.ParsedMethod(tree), nil
	}

	tree, err := voting.Parse(text, snap.registry)
	if err != nil {
		return interpreter.Method{}, err
	}
	if snap.cache != nil {
		e.recordCache(false)
		snap.cache.add(version, text, tree)
	}
	return interpreter.ParsedMethod(tree), nil
}

func (e *Engine) recordCache(hit bool) {
	if e.metrics != nil {
		e.metrics.RecordParseCache(hit)
	}
}

// run evaluates m under the configured deadline. The interpreter cannot
// be interrupted, so the evaluation works on copies of the request
// contexts; its writes reach the caller's contexts only when it finishes
// in time. On timeout the goroutine finishes in the background and its
// result is discarded along with the copies.
func (e *Engine) run(ctx context.Context, m interpreter.Method, req *Request, timeout time.Duration) (value.Value, []scope.Context, error) {
	var ev interpreter.Evaluator = m
	if req.Limit != 0 {
		limited, err := interpreter.NewLimited(req.Limit, m)
		if err != nil {
			return value.Value{}, req.Voters, err
		}
		ev = limited
	}

	global := req.Global
	if global == nil {
		global = scope.New()
	}
	work := isolate(global, req.Voters)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value  value.Value
		voters []scope.Context
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{voters: work.voters, err: fmt.Errorf("evaluation panicked: %v", r)}
			}
		}()
		v, voters, err := ev.ExecuteWithVoters(work.global, work.voters)
		done <- outcome{v, voters, err}
	}()

	select {
	case o := <-done:
		return o.value, work.commit(global, o.voters), o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return value.Value{}, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return value.Value{}, nil, ctx.Err()
	}
}

// workspace holds private copies of the contexts of one evaluation.
type workspace struct {
	global *scope.Vars
	voters []scope.Context
	origin map[*scope.Vars]scope.Context
}

func isolate(global scope.Context, voters []scope.Context) *workspace {
	w := &workspace{
		global: scope.New(global.Snapshot()...),
		voters: make([]scope.Context, len(voters)),
		origin: make(map[*scope.Vars]scope.Context, len(voters)),
	}
	for i, v := range voters {
		c := scope.New(v.Snapshot()...)
		w.voters[i] = c
		w.origin[c] = v
	}
	return w
}

// commit copies the workspace bindings into the caller's contexts and maps
// the evaluated voters back onto them, keeping their order.
func (w *workspace) commit(global scope.Context, voters []scope.Context) []scope.Context {
	copyVars(global, w.global)
	for c, orig := range w.origin {
		copyVars(orig, c)
	}
	out := make([]scope.Context, len(voters))
	for i, v := range voters {
		out[i] = v
		if c, ok := v.(*scope.Vars); ok {
			if orig, ok := w.origin[c]; ok {
				out[i] = orig
			}
		}
	}
	return out
}

func copyVars(dst, src scope.Context) {
	for _, v := range src.Snapshot() {
		dst.Set(v.Name, v.Value)
	}
}

func (e *Engine) audit(ctx context.Context, req *Request, res *Result, label string, evalErr error, errType string, start time.Time) {
	if e.recorder == nil {
		return
	}

	rec := &audit.Record{
		EvaluationID:    res.EvaluationID,
		Voting:          res.Voting,
		VotingName:      label,
		VotingHash:      audit.Hash(res.Voting),
		RegistryVersion: res.RegistryVersion,
		Labels:          maps.Clone(req.Labels),
		VoterCount:      len(req.Voters),
		Limit:           req.Limit,
		Fallback:        res.Fallback,
		ErrorType:       errType,
		Duration:        res.Duration,
		EvaluatedTime:   start.UTC(),
	}
	if evalErr != nil {
		rec.Error = evalErr.Error()
	}
	if evalErr == nil || res.Fallback {
		rec.Result = res.Value.String()
	}
	if res.HasScore && !math.IsNaN(res.Score) && !math.IsInf(res.Score, 0) {
		score := res.Score
		rec.Score = &score
	}

	// The request context may be cancelled as soon as Evaluate returns.
	if err := e.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.WarnContext(ctx, "failed to record audit record",
			append(logging.ContextFields(ctx), "error", err)...)
	}
}

func methodKind(m interpreter.Method) string {
	if m.Kind() == interpreter.MethodForeign {
		return "foreign"
	}
	tree, _ := m.Tree()
	switch tree.(type) {
	case *ast.BuildInRef:
		return "buildin"
	case *ast.NamedRef:
		return "registered"
	case *ast.LimitedRef:
		return "limited"
	case *ast.Declaration:
		return "declaration"
	default:
		return "function"
	}
}

// methodLabel names calls by their source and everything else inline.
func methodLabel(m interpreter.Method) string {
	if m.Kind() == interpreter.MethodForeign {
		return m.Name()
	}
	tree, _ := m.Tree()
	switch tree.(type) {
	case *ast.BuildInRef, *ast.NamedRef, *ast.LimitedRef:
		return ast.Format(tree)
	default:
		return InlineLabel
	}
}

// Reload loads the definitions from the source into a new registry and
// swaps it in. Votings registered through the engine are replayed on top;
// those that no longer apply are dropped. On error the current registry
// stays active.
func (e *Engine) Reload(ctx context.Context) error {
	if e.source == nil {
		return ErrNoSource
	}

	ctx, span := e.tracer.Start(ctx, "voting.reload")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	reg, err := e.source.Load(ctx)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordReload(false, e.current.Load().registry.Len())
		}
		tracing.SetStatus(span, err)
		e.logger.Error("failed to reload votings, keeping previous registry",
			"source", e.source.String(),
			"error", err,
		)
		return fmt.Errorf("reload votings from %s: %w", e.source, err)
	}

	kept := e.dynamic[:0]
	for _, r := range e.dynamic {
		if err := registerOn(reg, r); err != nil {
			e.logger.Warn("dropping registration after reload",
				"name", r.name,
				"error", err,
			)
			continue
		}
		kept = append(kept, r)
	}
	e.dynamic = kept

	e.current.Store(e.newSnapshot(reg))

	if e.metrics != nil {
		e.metrics.RecordReload(true, reg.Len())
	}
	span.SetAttributes(tracing.AttrRegistrySize.Int(reg.Len()))
	tracing.SetStatus(span, nil)
	e.logger.Info("votings loaded",
		"source", e.source.String(),
		"votings", reg.Len(),
		"version", reg.Version(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Watch blocks until ctx is cancelled, reloading whenever the source
// reports a change.
func (e *Engine) Watch(ctx context.Context) error {
	if e.source == nil {
		return ErrNoSource
	}
	return e.source.Watch(ctx, func() error {
		return e.Reload(ctx)
	})
}

// Register adds a declare block to the current registry.
func (e *Engine) Register(text string) error {
	return e.register(registration{text: text})
}

// RegisterAt adds a declare block under its declared name and name.
func (e *Engine) RegisterAt(name, text string) error {
	return e.register(registration{name: name, text: text})
}

func (e *Engine) register(r registration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	reg := e.current.Load().registry
	err := e.checkHostNames(reg, r)
	if err == nil {
		err = registerOn(reg, r)
	}
	if e.metrics != nil {
		e.metrics.RecordRegistration(err == nil)
	}
	if err != nil {
		return err
	}
	e.dynamic = append(e.dynamic, r)

	if e.metrics != nil {
		e.metrics.UpdateRegistrySize(reg.Len())
	}
	e.logger.Info("voting registered", "alias", r.name, "votings", reg.Len())
	return nil
}

// checkHostNames rejects a registration that would bind a name already
// taken by a host voting. Parse errors are left to the registry.
func (e *Engine) checkHostNames(reg *registry.Registry, r registration) error {
	names := []string{r.name}
	if v, err := voting.Parse(r.text, reg); err == nil {
		if decl, ok := v.(*ast.Declaration); ok {
			names = append(names, decl.Name)
		}
	}

	e.hostsMu.RLock()
	defer e.hostsMu.RUnlock()
	for _, name := range names {
		if _, ok := e.hosts[name]; ok && name != "" {
			return &registry.RegistrationError{Name: name, Operation: "register", Err: ErrHostExists}
		}
	}
	return nil
}

func registerOn(reg *registry.Registry, r registration) error {
	if r.name == "" {
		return reg.Register(r.text)
	}
	return reg.RegisterAt(r.name, r.text)
}

// RegisterHost makes fn callable as a top-level voting under name. Host
// votings cannot be called from inside other votings.
func (e *Engine) RegisterHost(name string, fn interpreter.HostFunc) error {
	if name == "" || fn == nil {
		return errors.New("host voting needs a name and a function")
	}
	if buildin.IsBuildIn(name) {
		return &registry.RegistrationError{Name: name, Operation: "register_host", Err: registry.ErrBuildInNotRegistrable}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.Registry().Get(name); ok {
		return &registry.RegistrationError{Name: name, Operation: "register_host", Err: registry.ErrAlreadyRegistered}
	}

	e.hostsMu.Lock()
	defer e.hostsMu.Unlock()
	if _, ok := e.hosts[name]; ok {
		return fmt.Errorf("%w: %s", ErrHostExists, name)
	}
	e.hosts[name] = fn
	return nil
}

// Configure replaces the engine configuration. Evaluations started after
// Configure returns use the new settings; a changed parse cache size takes
// effect with the next reload.
func (e *Engine) Configure(cfg *EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: configuration cannot be nil", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.config.Store(cfg)
	e.logger.Info("engine configuration updated",
		"fail_mode", cfg.FailMode,
		"evaluation_timeout", cfg.EvaluationTimeout,
	)
	return nil
}

// Registry returns the active registry.
func (e *Engine) Registry() *registry.Registry {
	return e.current.Load().registry
}

// LoadedAt returns when the active registry was installed.
func (e *Engine) LoadedAt() time.Time {
	return e.current.Load().loadedAt
}

// Describe returns the display form of a registered, build-in or host
// voting.
func (e *Engine) Describe(name string) (string, bool) {
	if fn, ok := e.Registry().Get(name); ok {
		return ast.Format(&ast.Declaration{Name: name, Function: fn}), true
	}
	if b, ok := buildin.Parse(name); ok {
		return b.String(), true
	}
	e.hostsMu.RLock()
	defer e.hostsMu.RUnlock()
	if _, ok := e.hosts[name]; ok {
		return name, true
	}
	return "", false
}
