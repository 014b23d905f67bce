// Package tracing wires OpenTelemetry tracing for voting evaluation.
//
// New returns a no-op Tracer when tracing is disabled. When enabled, spans
// are exported over OTLP gRPC with a parent-based sampler. Evaluation spans
// carry the voting.* attributes defined in attributes.go.
package tracing
