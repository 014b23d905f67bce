// Package engine is the host layer around the voting interpreter.
//
// An Engine owns the active registry, loaded from a source.Source and
// replaced as a whole on every reload. Evaluate resolves a request against
// that registry, runs it under a deadline and reports the outcome to
// metrics, tracing and the audit trail:
//
//	src, _ := source.New(&cfg.Voting, logger)
//	eng, err := engine.New(engine.FromConfig(cfg.Engine), src, logger,
//		engine.WithMetrics(collector),
//		engine.WithRecorder(rec),
//	)
//	res, err := eng.Evaluate(ctx, &engine.Request{Voting: "CombSum(3)", Voters: voters})
//
// In FailDefault mode evaluation errors are replaced by DefaultScore and
// reported through Result.Fallback instead of an error.
package engine
