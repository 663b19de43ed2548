package scenario

import "strings"

// Detector runs the independent category detectors and selects exactly one
// scenario per turn using SelectionOrder.
type Detector struct {
	cfg Config
}

// Config holds the empirically chosen cutoffs. Zero values take defaults.
type Config struct {
	LowConfidence    float64 // below this, audio trouble is high severity
	MediumConfidence float64 // below this, audio trouble is medium severity
	PoorAudioQuality float64
}

func NewDetector(cfg Config) *Detector {
	if cfg.LowConfidence <= 0 {
		cfg.LowConfidence = 0.3
	}
	if cfg.MediumConfidence <= 0 {
		cfg.MediumConfidence = 0.5
	}
	if cfg.PoorAudioQuality <= 0 {
		cfg.PoorAudioQuality = 0.4
	}
	return &Detector{cfg: cfg}
}

// selection describes one step of the priority contract. The order of this
// list is load-bearing: a caller mentioning both a legal threat and mild
// confusion must surface as business_logic, never as confusion.
type selection struct {
	name     string
	category Category
	// immediateOnly restricts this step to findings that require
	// immediate action.
	immediateOnly bool
}

// SelectionOrder is the reviewable priority contract for scenario selection.
var SelectionOrder = []selection{
	{name: "compliance_immediate", category: CategoryBusinessLogic, immediateOnly: true},
	{name: "emotional_emergency", category: CategoryEmotional, immediateOnly: true},
	{name: "identity_safety", category: CategoryIdentity, immediateOnly: true},
	{name: "audio_immediate", category: CategoryAudio, immediateOnly: true},
	{name: "audio", category: CategoryAudio},
	{name: "emotional", category: CategoryEmotional},
	{name: "identity", category: CategoryIdentity},
	{name: "business_logic", category: CategoryBusinessLogic},
	{name: "behavioral", category: CategoryBehavioral},
}

// Detect returns exactly one scenario for the turn.
func (d *Detector) Detect(sig Signals) Detected {
	findings := map[Category]Detected{}
	for _, detect := range []func(Signals) (Detected, bool){
		d.detectAudio,
		d.detectBehavioral,
		d.detectEmotional,
		d.detectIdentity,
		d.detectBusinessLogic,
	} {
		if found, ok := detect(sig); ok {
			findings[found.Category] = found
		}
	}
	for _, step := range SelectionOrder {
		found, ok := findings[step.category]
		if !ok {
			continue
		}
		if step.immediateOnly && !found.RequiresImmediateAction {
			continue
		}
		return found
	}
	return Normal()
}

func (d *Detector) detectAudio(sig Signals) (Detected, bool) {
	switch {
	case sig.VoicemailDetected:
		return Detected{Category: CategoryAudio, Subtype: "voicemail", Severity: SeverityHigh, Confidence: 0.9, RequiresImmediateAction: true}, true
	case sig.STTConfidence > 0 && sig.STTConfidence < d.cfg.LowConfidence:
		return Detected{Category: CategoryAudio, Subtype: "low_confidence", Severity: SeverityHigh, Confidence: 0.9, RequiresImmediateAction: true}, true
	case sig.AudioQuality > 0 && sig.AudioQuality < d.cfg.PoorAudioQuality:
		return Detected{Category: CategoryAudio, Subtype: "poor_quality", Severity: SeverityHigh, Confidence: 0.85, RequiresImmediateAction: true}, true
	case sig.STTConfidence > 0 && sig.STTConfidence < d.cfg.MediumConfidence:
		return Detected{Category: CategoryAudio, Subtype: "low_confidence", Severity: SeverityMedium, Confidence: 0.7}, true
	case sig.NoiseDetected && sig.EchoDetected:
		return Detected{Category: CategoryAudio, Subtype: "noise", Severity: SeverityMedium, Confidence: 0.7}, true
	case sig.NoiseDetected || sig.EchoDetected || sig.HighLatency:
		return Detected{Category: CategoryAudio, Subtype: "noise", Severity: SeverityLow, Confidence: 0.6}, true
	case sig.MultipleSpeakers:
		return Detected{Category: CategoryAudio, Subtype: "multiple_speakers", Severity: SeverityLow, Confidence: 0.6}, true
	}
	return Detected{}, false
}

func (d *Detector) detectBehavioral(sig Signals) (Detected, bool) {
	switch {
	case sig.LongResponses >= 2 && sig.TopicSwitches >= 2:
		return Detected{Category: CategoryBehavioral, Subtype: "talkative", Severity: SeverityMedium, Confidence: 0.8}, true
	case sig.Interruptions >= 3:
		return Detected{Category: CategoryBehavioral, Subtype: "interruptions", Severity: SeverityMedium, Confidence: 0.7}, true
	case sig.TopicSwitches >= 3:
		return Detected{Category: CategoryBehavioral, Subtype: "topic_drift", Severity: SeverityLow, Confidence: 0.6}, true
	}
	return Detected{}, false
}

var (
	emergencyWords = []string{
		"emergency", "call 911", "call an ambulance", "heart attack", "chest pain",
		"can't breathe", "bleeding", "someone is hurt", "kill myself", "end my life",
	}
	distressWords = []string{
		"just died", "passed away", "funeral", "in the hospital", "divorce",
		"lost my job", "crying", "devastated",
	}
)

func (d *Detector) detectEmotional(sig Signals) (Detected, bool) {
	lower := strings.ToLower(sig.Transcript)
	for _, w := range emergencyWords {
		if strings.Contains(lower, w) {
			return Detected{Category: CategoryEmotional, Subtype: "emergency", Severity: SeverityHigh, Confidence: 0.95, RequiresImmediateAction: true}, true
		}
	}
	for _, w := range distressWords {
		if strings.Contains(lower, w) {
			return Detected{Category: CategoryEmotional, Subtype: "distress", Severity: SeverityMedium, Confidence: 0.8}, true
		}
	}
	return Detected{}, false
}

var (
	wrongPersonWords = []string{
		"wrong number", "no one by that name", "nobody by that name", "you have the wrong",
		"that's not me", "i'm not",
	}
	fraudWords = []string{"is this a scam", "this is a scam", "fraud", "reporting you", "identity theft"}
)

func (d *Detector) detectIdentity(sig Signals) (Detected, bool) {
	lower := strings.ToLower(sig.Transcript)
	for _, w := range fraudWords {
		if strings.Contains(lower, w) {
			return Detected{Category: CategoryIdentity, Subtype: "fraud_concern", Severity: SeverityHigh, Confidence: 0.9, RequiresImmediateAction: true}, true
		}
	}
	if sig.WrongPersonHint {
		return Detected{Category: CategoryIdentity, Subtype: "wrong_person", Severity: SeverityMedium, Confidence: 0.8}, true
	}
	for _, w := range wrongPersonWords {
		if strings.Contains(lower, w) {
			return Detected{Category: CategoryIdentity, Subtype: "wrong_person", Severity: SeverityMedium, Confidence: 0.75}, true
		}
	}
	return Detected{}, false
}

var (
	dncWords = []string{
		"stop calling", "don't call", "do not call", "take me off", "remove me from",
		"off your list", "unsubscribe", "quit calling", "never call",
	}
	legalWords = []string{
		"my lawyer", "my attorney", "sue you", "suing", "legal action", "report you to", "better business bureau", "fcc",
	}
	minorWords = []string{
		"i'm only", "my mom isn't home", "my dad isn't home", "i'm a kid", "i'm in school", "years old and",
	}
)

func (d *Detector) detectBusinessLogic(sig Signals) (Detected, bool) {
	lower := strings.ToLower(sig.Transcript)
	for _, w := range dncWords {
		if strings.Contains(lower, w) {
			return Detected{Category: CategoryBusinessLogic, Subtype: "do_not_call", Severity: SeverityHigh, Confidence: 0.95, RequiresImmediateAction: true}, true
		}
	}
	for _, w := range legalWords {
		if strings.Contains(lower, w) {
			return Detected{Category: CategoryBusinessLogic, Subtype: "legal_threat", Severity: SeverityHigh, Confidence: 0.9, RequiresImmediateAction: true}, true
		}
	}
	for _, w := range minorWords {
		if strings.Contains(lower, w) {
			return Detected{Category: CategoryBusinessLogic, Subtype: "minor_on_line", Severity: SeverityHigh, Confidence: 0.85, RequiresImmediateAction: true}, true
		}
	}
	return Detected{}, false
}
