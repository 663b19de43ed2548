package intent

import (
	"strings"
)

// Classifier scores one intent category for an utterance. Implementations
// are stateless; a zero-confidence candidate means "no match".
type Classifier interface {
	Name() string
	Classify(text string) Candidate
}

// Engine merges the category classifiers into one Classification per turn.
// Priority among qualifying candidates is social > question > statement.
type Engine struct {
	social    Classifier
	question  Classifier
	statement Classifier
	emotion   *EmotionClassifier
	callflow  *CallFlowClassifier
	floor     float64
}

// EngineConfig carries the tunable confidence floor. Zero means the default.
type EngineConfig struct {
	ConfidenceFloor float64
}

func NewEngine(cfg EngineConfig) *Engine {
	floor := cfg.ConfidenceFloor
	if floor <= 0 {
		floor = 0.7
	}
	return &Engine{
		social:    socialClassifier{},
		question:  questionClassifier{},
		statement: statementClassifier{},
		emotion:   NewEmotionClassifier(),
		callflow:  NewCallFlowClassifier(),
		floor:     floor,
	}
}

// Meta carries STT signal flags alongside the transcript.
type Meta struct {
	Confidence float64
	Inaudible  bool
	Empty      bool
}

var inaudibleMarkers = []string{"[inaudible]", "<inaudible>", "[unintelligible]", "(inaudible)"}

// Classify computes the turn's Classification. Empty or inaudible input
// bypasses pattern matching entirely and forces clarification. Call-flow
// intent is classified independently and is never blocked by a low
// primary-intent confidence.
func (e *Engine) Classify(text string, meta Meta) Classification {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || meta.Empty || meta.Inaudible || hasInaudibleMarker(trimmed) {
		return Classification{
			Primary:               PrimaryUnknown,
			Emotion:               EmotionNeutral,
			CallFlow:              CallFlowNone,
			Confidence:            0,
			RequiresClarification: true,
		}
	}

	best := Candidate{Intent: PrimaryUnknown}
	for _, c := range []Classifier{e.social, e.question, e.statement} {
		cand := c.Classify(trimmed)
		if cand.Confidence >= e.floor {
			best = cand
			break
		}
	}

	emotion := e.emotion.Classify(trimmed)
	flow, flowConf := e.callflow.Classify(trimmed)

	out := Classification{
		Primary:            best.Intent,
		Emotion:            emotion,
		CallFlow:           flow,
		Confidence:         best.Confidence,
		CallFlowConfidence: flowConf,
		Keywords:           best.Keywords,
		Urgency:            urgencyFor(emotion, flow),
	}
	if out.Primary == PrimaryUnknown {
		out.Confidence = 0
		out.RequiresClarification = true
	}
	return out
}

func hasInaudibleMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range inaudibleMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func urgencyFor(emotion EmotionalState, flow CallFlow) Urgency {
	switch {
	case emotion == EmotionAngry || flow == CallFlowUnsubscribe:
		return UrgencyHigh
	case emotion.Negative():
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

type socialClassifier struct{}

func (socialClassifier) Name() string { return "social" }

var (
	greetingExact = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "hi there", "hello there"}
	farewellWords = []string{"goodbye", "bye", "bye bye", "see you", "talk to you later", "have a good one"}
	thanksWords   = []string{"thank you", "thanks", "appreciate it", "much appreciated"}
)

func (socialClassifier) Classify(text string) Candidate {
	lower := normalize(text)
	for _, g := range greetingExact {
		if lower == g {
			return Candidate{Intent: PrimaryGreeting, Confidence: 0.95, Keywords: []string{g}}
		}
	}
	for _, g := range greetingExact {
		if strings.HasPrefix(lower, g+" ") {
			return Candidate{Intent: PrimaryGreeting, Confidence: 0.85, Keywords: []string{g}}
		}
	}
	for _, w := range farewellWords {
		if lower == w || strings.Contains(lower, w) {
			return Candidate{Intent: PrimaryFarewell, Confidence: 0.9, Keywords: []string{w}}
		}
	}
	for _, w := range thanksWords {
		if strings.Contains(lower, w) {
			return Candidate{Intent: PrimaryGratitude, Confidence: 0.85, Keywords: []string{w}}
		}
	}
	return Candidate{Intent: PrimaryUnknown}
}

type questionClassifier struct{}

func (questionClassifier) Name() string { return "question" }

var questionLeads = []string{"what", "when", "where", "who", "why", "how", "which"}
var confirmLeads = []string{"is ", "are ", "do ", "does ", "did ", "can ", "could ", "will ", "would ", "should ", "am i", "was "}

func (questionClassifier) Classify(text string) Candidate {
	lower := normalize(text)
	hasMark := strings.HasSuffix(strings.TrimSpace(text), "?")
	for _, lead := range questionLeads {
		if strings.HasPrefix(lower, lead+" ") || lower == lead {
			conf := 0.85
			if hasMark {
				conf = 0.95
			}
			return Candidate{Intent: PrimaryQuestionInfo, Confidence: conf, Keywords: []string{lead}}
		}
	}
	for _, lead := range confirmLeads {
		if strings.HasPrefix(lower, lead) {
			conf := 0.8
			if hasMark {
				conf = 0.9
			}
			return Candidate{Intent: PrimaryQuestionConfirm, Confidence: conf, Keywords: []string{strings.TrimSpace(lead)}}
		}
	}
	if hasMark {
		return Candidate{Intent: PrimaryQuestionInfo, Confidence: 0.75}
	}
	return Candidate{Intent: PrimaryUnknown}
}

type statementClassifier struct{}

func (statementClassifier) Name() string { return "statement" }

var (
	agreeWords    = []string{"yes", "yeah", "yep", "sure", "okay", "ok", "alright", "sounds good", "that works", "absolutely", "of course"}
	disagreeWords = []string{"no", "nope", "nah", "not really", "i don't think so", "absolutely not", "no way"}
)

func (statementClassifier) Classify(text string) Candidate {
	lower := normalize(text)
	for _, w := range agreeWords {
		if lower == w || strings.HasPrefix(lower, w+" ") || strings.HasPrefix(lower, w+",") {
			return Candidate{Intent: PrimaryAgreement, Confidence: 0.85, Keywords: []string{w}}
		}
	}
	for _, w := range disagreeWords {
		if lower == w || strings.HasPrefix(lower, w+" ") || strings.HasPrefix(lower, w+",") {
			return Candidate{Intent: PrimaryDisagreement, Confidence: 0.85, Keywords: []string{w}}
		}
	}
	if len(strings.Fields(lower)) >= 3 {
		return Candidate{Intent: PrimaryStatement, Confidence: 0.7}
	}
	return Candidate{Intent: PrimaryUnknown}
}

// EmotionClassifier maps keyword sets to an emotional state, defaulting to
// neutral when nothing matches.
type EmotionClassifier struct {
	patterns []emotionPattern
}

type emotionPattern struct {
	state EmotionalState
	words []string
}

func NewEmotionClassifier() *EmotionClassifier {
	return &EmotionClassifier{patterns: []emotionPattern{
		{EmotionAngry, []string{"furious", "angry", "pissed", "outrageous", "sick of", "fed up", "ridiculous", "how dare"}},
		{EmotionFrustrated, []string{"frustrated", "frustrating", "again and again", "third time", "keep calling", "over and over"}},
		{EmotionUpset, []string{"upset", "sad", "terrible", "awful", "crying", "heartbroken", "devastated"}},
		{EmotionStressed, []string{"stressed", "busy", "no time", "in a hurry", "can't talk long", "overwhelmed", "swamped", "in the middle of"}},
		{EmotionConfused, []string{"confused", "don't understand", "what do you mean", "i'm lost", "makes no sense", "wait what"}},
		{EmotionHappy, []string{"great", "wonderful", "fantastic", "love it", "awesome", "perfect", "excellent"}},
	}}
}

func (c *EmotionClassifier) Classify(text string) EmotionalState {
	lower := normalize(text)
	for _, p := range c.patterns {
		for _, w := range p.words {
			if strings.Contains(lower, w) {
				return p.state
			}
		}
	}
	return EmotionNeutral
}

func normalize(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	lower = strings.TrimRight(lower, ".!?")
	return strings.Join(strings.Fields(lower), " ")
}
