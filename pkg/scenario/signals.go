package scenario

// Signals bundles everything a turn knows about "what is happening right
// now": technical quality, behavioral counters, and the transcript itself.
type Signals struct {
	Transcript string

	// Technical.
	STTConfidence    float64
	AudioQuality     float64
	NoiseDetected    bool
	EchoDetected     bool
	HighLatency      bool
	VoicemailDetected bool
	MultipleSpeakers bool

	// Behavioral counters, accumulated per call.
	LongResponses int
	Interruptions int
	TopicSwitches int

	// Identity context.
	ExpectedName   string
	WrongPersonHint bool
}

// Category is the scenario classification set.
type Category string

const (
	CategoryAudio         Category = "audio_technical"
	CategoryBehavioral    Category = "behavioral"
	CategoryEmotional     Category = "emotional_social"
	CategoryIdentity      Category = "identity"
	CategoryBusinessLogic Category = "business_logic"
	CategoryNormal        Category = "normal"
)

// Severity grades how bad the detected scenario is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Detected is the single scenario surfaced for a turn.
type Detected struct {
	Category                Category
	Subtype                 string
	Severity                Severity
	Confidence              float64
	RequiresImmediateAction bool
}

// Normal is the quiet default when no detector fires.
func Normal() Detected {
	return Detected{Category: CategoryNormal, Severity: SeverityLow, Confidence: 1}
}
