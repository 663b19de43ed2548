package resilience

import (
	"strings"
	"time"
)

// SilenceTier identifies which silence check-in fired.
type SilenceTier int

const (
	SilenceNone SilenceTier = iota
	SilenceShort
	SilenceMedium
	SilenceLong
)

// Severity grades a bad-connection assessment.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SilenceState tracks per-call silence. CheckInsUsed is monotonically
// increasing and never reset mid-call; new speech resets the clock only.
type SilenceState struct {
	LastSpeech   time.Time
	CheckInsUsed int
}

// CommunicationState is the per-call mutable signal-quality record. It is
// owned exclusively by the call's monitor and never shared across calls.
type CommunicationState struct {
	ConnectionTrouble     bool
	BadConnectionAttempts int
	ConsecutiveLowConf    int
	Silence               SilenceState

	LongResponses int
	Interruptions int
	TopicSwitches int
	LastWordCount int

	RedirectUsed bool
}

// Config holds the empirically chosen cutoffs; zero values take defaults.
type Config struct {
	LowConfidence     float64 // per-turn "low confidence" threshold
	FallbackScore     int     // weighted score at which a fallback fires
	HighScore         int     // weighted score graded high severity
	MaxBadAttempts    int     // bad-connection attempts before ending the call
	MaxLowConfTurns   int     // consecutive low-confidence turns before ending
	SilenceTier1      time.Duration
	SilenceTier2      time.Duration
	SilenceTier3      time.Duration
	TalkativeWords    int
	TalkativeLong     int
	TalkativeSwitches int
}

func (c Config) withDefaults() Config {
	if c.LowConfidence <= 0 {
		c.LowConfidence = 0.3
	}
	if c.FallbackScore <= 0 {
		c.FallbackScore = 3
	}
	if c.HighScore <= 0 {
		c.HighScore = 5
	}
	if c.MaxBadAttempts <= 0 {
		c.MaxBadAttempts = 3
	}
	if c.MaxLowConfTurns <= 0 {
		c.MaxLowConfTurns = 5
	}
	if c.SilenceTier1 <= 0 {
		c.SilenceTier1 = 2 * time.Second
	}
	if c.SilenceTier2 <= 0 {
		c.SilenceTier2 = 6 * time.Second
	}
	if c.SilenceTier3 <= 0 {
		c.SilenceTier3 = 10 * time.Second
	}
	if c.TalkativeWords <= 0 {
		c.TalkativeWords = 150
	}
	if c.TalkativeLong <= 0 {
		c.TalkativeLong = 2
	}
	if c.TalkativeSwitches <= 0 {
		c.TalkativeSwitches = 2
	}
	return c
}

// TurnSignal is what the monitor observes each turn.
type TurnSignal struct {
	Transcript  string
	Confidence  float64
	Inaudible   bool
	Empty       bool
	Noise       bool
	TopicSwitch bool
	Interrupted bool
	Now         time.Time
}

// Assessment is the outcome of a bad-connection check.
type Assessment struct {
	Score       int
	Severity    Severity
	UseFallback bool
}

// Monitor maintains CommunicationState across a call's turns. One Monitor
// per call, accessed by that call's single sequential owner.
type Monitor struct {
	cfg   Config
	state CommunicationState
	last  TurnSignal
}

func NewMonitor(cfg Config, now time.Time) *Monitor {
	return &Monitor{
		cfg:   cfg.withDefaults(),
		state: CommunicationState{Silence: SilenceState{LastSpeech: now}},
	}
}

// State returns a copy of the current communication state.
func (m *Monitor) State() CommunicationState { return m.state }

// ObserveTurn folds a turn's signals into the state. Speech resets the
// silence clock but never the check-in counter.
func (m *Monitor) ObserveTurn(sig TurnSignal) {
	m.last = sig
	words := len(strings.Fields(sig.Transcript))
	m.state.LastWordCount = words
	if !sig.Empty && strings.TrimSpace(sig.Transcript) != "" {
		m.state.Silence.LastSpeech = sig.Now
	}
	if sig.Confidence > 0 && sig.Confidence < m.cfg.LowConfidence {
		m.state.ConsecutiveLowConf++
	} else if !sig.Empty && !sig.Inaudible {
		m.state.ConsecutiveLowConf = 0
	}
	if words > 40 {
		m.state.LongResponses++
	}
	if sig.TopicSwitch {
		m.state.TopicSwitches++
	}
	if sig.Interrupted {
		m.state.Interruptions++
	}
}

// DetectBadConnection computes the weighted score for the last observed
// turn and grades it. A triggered fallback also counts as a bad-connection
// attempt toward the end-of-call ceiling.
func (m *Monitor) DetectBadConnection() Assessment {
	sig := m.last
	score := 0
	if sig.Confidence > 0 && sig.Confidence < m.cfg.LowConfidence {
		score += 2
	}
	if sig.Inaudible {
		score += 2
	}
	if sig.Empty {
		score++
	}
	if sig.Noise {
		score++
	}
	if m.state.ConsecutiveLowConf >= 3 {
		score += 2
	}

	a := Assessment{Score: score}
	switch {
	case score >= m.cfg.HighScore:
		a.Severity = SeverityHigh
	case score >= m.cfg.FallbackScore:
		a.Severity = SeverityMedium
	default:
		a.Severity = SeverityLow
	}
	a.UseFallback = score >= m.cfg.FallbackScore || m.state.ConsecutiveLowConf >= 2
	if a.UseFallback {
		m.state.ConnectionTrouble = true
	}
	// Every low-confidence turn counts toward the attempt ceiling, whether
	// or not a fallback was spoken for it.
	if a.UseFallback || (sig.Confidence > 0 && sig.Confidence < m.cfg.LowConfidence) {
		m.state.BadConnectionAttempts++
	}
	return a
}

// ShouldEndCallDueToBadConnection is the hard ceiling the orchestrator must
// respect: 3 bad-connection attempts or 5 consecutive low-confidence turns.
func (m *Monitor) ShouldEndCallDueToBadConnection() bool {
	return m.state.BadConnectionAttempts >= m.cfg.MaxBadAttempts ||
		m.state.ConsecutiveLowConf >= m.cfg.MaxLowConfTurns
}

// CheckIn is the outcome of a silence-tier evaluation.
type CheckIn struct {
	Tier    SilenceTier
	EndCall bool
}

// SilenceCheckIn evaluates the three-tier silence state machine. Each tier
// fires exactly once per call, strictly in increasing-duration order, gated
// by the check-ins-used counter. Tier 3 also signals call termination.
func (m *Monitor) SilenceCheckIn(now time.Time) (CheckIn, bool) {
	elapsed := now.Sub(m.state.Silence.LastSpeech)
	used := m.state.Silence.CheckInsUsed
	switch {
	case used == 0 && elapsed >= m.cfg.SilenceTier1:
		m.state.Silence.CheckInsUsed++
		return CheckIn{Tier: SilenceShort}, true
	case used == 1 && elapsed >= m.cfg.SilenceTier2:
		m.state.Silence.CheckInsUsed++
		return CheckIn{Tier: SilenceMedium}, true
	case used == 2 && elapsed >= m.cfg.SilenceTier3:
		m.state.Silence.CheckInsUsed++
		return CheckIn{Tier: SilenceLong, EndCall: true}, true
	}
	return CheckIn{}, false
}

// IsTalkative reports whether the caller has run long enough to warrant a
// one-shot redirect. The redirect never ends the call.
func (m *Monitor) IsTalkative() bool {
	if m.state.RedirectUsed {
		return false
	}
	if m.state.LongResponses >= m.cfg.TalkativeLong && m.state.TopicSwitches >= m.cfg.TalkativeSwitches {
		return true
	}
	return m.state.LastWordCount > m.cfg.TalkativeWords
}

// MarkRedirected consumes the one-shot redirect.
func (m *Monitor) MarkRedirected() {
	m.state.RedirectUsed = true
}
