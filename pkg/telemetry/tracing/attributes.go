package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on voting spans.
const (
	AttrVoting       = attribute.Key("voting.name")
	AttrVotingKind   = attribute.Key("voting.kind")
	AttrVoterCount   = attribute.Key("voting.voters")
	AttrLimit        = attribute.Key("voting.limit")
	AttrScore        = attribute.Key("voting.score")
	AttrFallback     = attribute.Key("voting.fallback")
	AttrErrorType    = attribute.Key("voting.error_type")
	AttrEvaluationID = attribute.Key("voting.evaluation_id")
	AttrRegistrySize = attribute.Key("voting.registry_size")
	AttrCacheHit     = attribute.Key("voting.parse_cache_hit")
)

// SetEvaluationAttributes annotates an evaluation span with its inputs.
func SetEvaluationAttributes(span trace.Span, evaluationID, voting, kind string, voters, limit int) {
	span.SetAttributes(
		AttrEvaluationID.String(evaluationID),
		AttrVoting.String(voting),
		AttrVotingKind.String(kind),
		AttrVoterCount.Int(voters),
	)
	if limit > 0 {
		span.SetAttributes(AttrLimit.Int(limit))
	}
}

// SetResultAttributes annotates an evaluation span with its outcome.
func SetResultAttributes(span trace.Span, score float64, fallback bool, errorType string) {
	span.SetAttributes(
		AttrScore.Float64(score),
		AttrFallback.Bool(fallback),
	)
	if errorType != "" {
		span.SetAttributes(AttrErrorType.String(errorType))
	}
}
