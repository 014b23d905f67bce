// Package logging provides structured logging on top of log/slog.
//
// Components receive a *slog.Logger (Logger.Slog) and scope it with a
// "component" attribute. Evaluation and request identifiers travel in the
// context.Context and are added by the *Context helpers.
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	ctx = logging.WithEvaluationID(ctx, id)
//	logger.InfoContext(ctx, "voting evaluated", "score", score)
package logging
