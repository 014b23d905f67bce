// Package server is the HTTP bridge to a voting engine.
//
// # Routes
//
//   - GET /healthz - liveness probe
//   - GET /readyz - readiness probe, runs the registered health checks
//   - GET /metrics - Prometheus metrics, when a collector is configured (path configurable)
//   - GET /v1/votings - registered names and the registry version
//   - GET /v1/votings/{name} - display source of a registered or build-in voting
//   - POST /v1/votings - register a declare block: {"source": "...", "alias": "..."}
//   - POST /v1/evaluate - evaluate a voting against JSON contexts
//   - GET /v1/audit - query audit records, when audit storage is configured
//
// An evaluation request names the voting and carries the contexts as JSON
// objects; integral numbers become Int values:
//
//	{
//	  "voting": "CombSum(3)",
//	  "global": {"score_candidate": 0.5},
//	  "voters": [{"score": 4, "rank": 1}, {"score": 2.5, "rank": 2}],
//	  "labels": {"topic": "12"}
//	}
//
// The response holds the value, its numeric score and the contexts after
// evaluation, so bindings made by the voting are visible to the caller.
// Errors are returned as {"error": {"type": ..., "message": ...}} with the
// evaluation id when one was assigned.
//
// # Middleware Chain
//
// Requests pass through, outermost first: panic recovery, access logging,
// request ID, tracing and the request body limit.
//
// # Security
//
// WithAuth guards each /v1 route with an API key scope: read for the
// votings listing and source, register for POST /v1/votings, evaluate for
// POST /v1/evaluate and audit for GET /v1/audit. Health and metrics stay
// open. WithRateLimit admits /v1 requests per client and answers 429 with
// Retry-After when a limit is exceeded. WithTLS serves HTTPS; with client
// certificates the configured identity field is added to the access log.
package server
