package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonGeneratorFailed  ReasonCode = "generator_failed"
	ReasonGeneratorTimeout ReasonCode = "generator_timeout"
	ReasonKnowledgeGap     ReasonCode = "knowledge_gap"

	ReasonTTSConnect     ReasonCode = "tts_connect"
	ReasonTTSSend        ReasonCode = "tts_send"
	ReasonTTSRateLimit   ReasonCode = "tts_rate_limit"
	ReasonTTSCircuitOpen ReasonCode = "tts_circuit_open"

	ReasonLowConfidence ReasonCode = "low_confidence"
	ReasonBadConnection ReasonCode = "bad_connection"

	ReasonProfileLookup ReasonCode = "profile_lookup"
	ReasonOutcomeRecord ReasonCode = "outcome_record"
	ReasonPhraseMissing ReasonCode = "phrase_missing"
	ReasonInvalidPhase  ReasonCode = "invalid_phase"
	ReasonCallEnded     ReasonCode = "call_ended"
)
