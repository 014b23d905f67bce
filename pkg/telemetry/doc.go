// Package telemetry groups the observability packages of ldatranslate.
//
//   - logging: structured logging on log/slog
//   - metrics: Prometheus metrics for evaluations, the registry and the audit trail
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness checks for the HTTP bridge
package telemetry
