package intent

// Primary is the closed set of primary intents.
type Primary string

const (
	PrimaryUnknown Primary = "unknown"

	// Social intents.
	PrimaryGreeting  Primary = "greeting"
	PrimaryFarewell  Primary = "farewell"
	PrimaryGratitude Primary = "gratitude"

	// Question intents.
	PrimaryQuestionInfo    Primary = "question_information"
	PrimaryQuestionConfirm Primary = "question_confirmation"

	// Statement intents.
	PrimaryAgreement    Primary = "agreement"
	PrimaryDisagreement Primary = "disagreement"
	PrimaryStatement    Primary = "statement"
)

// EmotionalState is the closed emotional-state set.
type EmotionalState string

const (
	EmotionNeutral    EmotionalState = "neutral"
	EmotionAngry      EmotionalState = "angry"
	EmotionUpset      EmotionalState = "upset"
	EmotionStressed   EmotionalState = "stressed"
	EmotionHappy      EmotionalState = "happy"
	EmotionFrustrated EmotionalState = "frustrated"
	EmotionConfused   EmotionalState = "confused"
)

// Negative reports whether the state calls for de-escalation or empathy.
func (e EmotionalState) Negative() bool {
	switch e {
	case EmotionAngry, EmotionUpset, EmotionStressed, EmotionFrustrated, EmotionConfused:
		return true
	}
	return false
}

// CallFlow captures what the caller wants to happen with the call itself.
type CallFlow string

const (
	CallFlowNone        CallFlow = "none"
	CallFlowCallback    CallFlow = "wants_callback"
	CallFlowEmail       CallFlow = "wants_email"
	CallFlowUnsubscribe CallFlow = "wants_unsubscribe"
	CallFlowReschedule  CallFlow = "wants_reschedule"
	CallFlowAppointment CallFlow = "wants_appointment"
	CallFlowInformation CallFlow = "wants_information"
)

// Urgency is an optional metadata tier.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Classification is the per-turn value object produced by the engine. It is
// recomputed every turn and never mutated afterwards.
type Classification struct {
	Primary               Primary
	Emotion               EmotionalState
	CallFlow              CallFlow
	Confidence            float64
	CallFlowConfidence    float64
	RequiresClarification bool
	Keywords              []string
	Urgency               Urgency
}

// Candidate is a single category classifier's output.
type Candidate struct {
	Intent     Primary
	Confidence float64
	Keywords   []string
}
