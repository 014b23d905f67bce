package scope

// Well-known variable names read and written by build-in votings,
// aggregations and the limit wrapper.
const (
	Epsilon        = "epsilon"
	NVoc           = "n_voc"
	NVocTarget     = "n_voc_target"
	TopicMax       = "topic_max"
	TopicMin       = "topic_min"
	TopicAvg       = "topic_avg"
	TopicSum       = "topic_sum"
	CtVoters       = "ct_voters"
	NVoters        = "n_voters"
	HasTranslation = "has_translation"
	IsOriginWord   = "is_origin_word"
	ScoreCandidate = "score_candidate"
	RR             = "rr"
	Rank           = "rank"
	Importance     = "importance"
	Score          = "score"
	VoterID        = "voter_id"
	CandidateID    = "candidate_id"
	TopicID        = "topic_id"
)

// Legacy spellings of well-known names, accepted in context files.
const (
	ReciprocalRank = "reciprocal_rank"
	NumberOfVoters = "number_of_voters"
)

var reserved = map[string]struct{}{
	Epsilon: {}, NVoc: {}, NVocTarget: {}, TopicMax: {}, TopicMin: {},
	TopicAvg: {}, TopicSum: {}, CtVoters: {}, NVoters: {}, HasTranslation: {},
	IsOriginWord: {}, ScoreCandidate: {}, RR: {}, Rank: {}, Importance: {},
	Score: {}, VoterID: {}, CandidateID: {}, TopicID: {},
}

// IsReserved reports whether name is a well-known variable that votings may
// read but never bind with let.
func IsReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// Canonical maps a legacy spelling onto its well-known name.
func Canonical(name string) string {
	switch name {
	case ReciprocalRank:
		return RR
	case NumberOfVoters:
		return NVoters
	default:
		return name
	}
}

// ReservedNames returns the well-known names in declaration order.
func ReservedNames() []string {
	return []string{
		Epsilon, NVoc, NVocTarget, TopicMax, TopicMin, TopicAvg, TopicSum,
		CtVoters, NVoters, HasTranslation, IsOriginWord, ScoreCandidate,
		RR, Rank, Importance, Score, VoterID, CandidateID, TopicID,
	}
}
