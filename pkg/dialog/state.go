package dialog

import (
	"fmt"
	"time"

	"github.com/alohavoice/aloha/pkg/errorsx"
)

// Phase is the call phase. Transitions are linear with one backward edge
// between active conversation and clarification; ended is terminal.
type Phase string

const (
	PhaseGreeting      Phase = "greeting"
	PhasePurpose       Phase = "purpose_delivery"
	PhaseActive        Phase = "active_conversation"
	PhaseClarification Phase = "clarification"
	PhaseClosing       Phase = "closing"
	PhaseEnded         Phase = "ended"
)

var validTransitions = map[Phase][]Phase{
	PhaseGreeting:      {PhasePurpose, PhaseClosing, PhaseEnded},
	PhasePurpose:       {PhaseActive, PhaseClosing, PhaseEnded},
	PhaseActive:        {PhaseClarification, PhaseClosing, PhaseEnded},
	PhaseClarification: {PhaseActive, PhaseClosing, PhaseEnded},
	PhaseClosing:       {PhaseEnded},
	PhaseEnded:         {},
}

// Caps on the intent trail.
const (
	maxIntentHistory  = 10
	maxPreviousIntent = 5
)

// State is the per-call conversation record. One call owns exactly one
// State; transitions go through the pure functions below, which take a
// value and return the successor value so turns are replayable in tests.
type State struct {
	Phase     Phase
	TurnCount int

	GreetingDone       bool
	PurposeDelivered   bool
	EmpathyProvided    bool
	ReadyToClose       bool
	ClosingAttempted   bool
	ExitIntentDetected bool
	NeedsHumanCallback bool

	QuestionsAsked    []string
	QuestionsAnswered []string

	CurrentIntent   string
	PreviousIntents []string
	IntentHistory   []string

	FallbackAttempts map[string]int
	FallbackMaxima   map[string]int

	StartedAt    time.Time
	LastActivity time.Time
}

// NewState returns the initial state for a call starting at now.
func NewState(now time.Time) State {
	return State{
		Phase:            PhaseGreeting,
		FallbackAttempts: map[string]int{},
		FallbackMaxima:   map[string]int{},
		StartedAt:        now,
		LastActivity:     now,
	}
}

// WithFallbackMax returns a copy of s with a per-category fallback ceiling.
func WithFallbackMax(s State, category string, max int) State {
	out := clone(s)
	out.FallbackMaxima[category] = max
	return out
}

// Advance moves the phase forward. It rejects backward edges other than
// clarification to active, and any transition out of ended.
func Advance(s State, to Phase, now time.Time) (State, error) {
	if s.Phase == to {
		out := clone(s)
		out.LastActivity = now
		return out, nil
	}
	allowed := false
	for _, next := range validTransitions[s.Phase] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return s, errorsx.Wrap(
			fmt.Errorf("invalid phase transition from %s to %s", s.Phase, to),
			errorsx.ReasonInvalidPhase,
		)
	}
	out := clone(s)
	out.Phase = to
	out.LastActivity = now
	switch to {
	case PhasePurpose:
		out.GreetingDone = true
	case PhaseActive:
		if s.Phase == PhasePurpose {
			out.PurposeDelivered = true
		}
	case PhaseClosing:
		out.ClosingAttempted = true
	}
	return out, nil
}

// Touch records a turn: bumps the counter and the activity timestamp.
func Touch(s State, now time.Time) State {
	out := clone(s)
	out.TurnCount++
	out.LastActivity = now
	return out
}

// RecordIntent pushes the current intent onto the trail, capping history at
// 10 and previous at 5 with the oldest dropped first.
func RecordIntent(s State, intent string) State {
	out := clone(s)
	if out.CurrentIntent != "" {
		out.PreviousIntents = appendCapped(out.PreviousIntents, out.CurrentIntent, maxPreviousIntent)
	}
	out.CurrentIntent = intent
	out.IntentHistory = appendCapped(out.IntentHistory, intent, maxIntentHistory)
	return out
}

// AskQuestion records a question the agent asked. The list is set-like.
func AskQuestion(s State, question string) State {
	out := clone(s)
	out.QuestionsAsked = appendUnique(out.QuestionsAsked, question)
	return out
}

// AnswerQuestion records a question as answered. The list is set-like.
func AnswerQuestion(s State, question string) State {
	out := clone(s)
	out.QuestionsAnswered = appendUnique(out.QuestionsAnswered, question)
	return out
}

// AllQuestionsAnswered reports whether every asked question has an answer.
func AllQuestionsAnswered(s State) bool {
	if len(s.QuestionsAsked) == 0 {
		return false
	}
	answered := make(map[string]bool, len(s.QuestionsAnswered))
	for _, q := range s.QuestionsAnswered {
		answered[q] = true
	}
	for _, q := range s.QuestionsAsked {
		if !answered[q] {
			return false
		}
	}
	return true
}

// BumpFallback increments the per-category fallback counter and reports
// whether the attempt is still within the configured ceiling.
func BumpFallback(s State, category string) (State, bool) {
	out := clone(s)
	out.FallbackAttempts[category]++
	max, ok := out.FallbackMaxima[category]
	if !ok {
		max = 2
	}
	return out, out.FallbackAttempts[category] <= max
}

// MarkEmpathy records that an empathy statement has been given.
func MarkEmpathy(s State) State {
	out := clone(s)
	out.EmpathyProvided = true
	return out
}

// MarkExitIntent records a detected exit intent and readiness to close.
func MarkExitIntent(s State) State {
	out := clone(s)
	out.ExitIntentDetected = true
	out.ReadyToClose = true
	return out
}

// MarkHumanCallback flags the call for a human follow-up.
func MarkHumanCallback(s State) State {
	out := clone(s)
	out.NeedsHumanCallback = true
	return out
}

// Ended reports whether the call reached the terminal phase.
func Ended(s State) bool { return s.Phase == PhaseEnded }

func clone(s State) State {
	out := s
	out.QuestionsAsked = append([]string(nil), s.QuestionsAsked...)
	out.QuestionsAnswered = append([]string(nil), s.QuestionsAnswered...)
	out.PreviousIntents = append([]string(nil), s.PreviousIntents...)
	out.IntentHistory = append([]string(nil), s.IntentHistory...)
	out.FallbackAttempts = make(map[string]int, len(s.FallbackAttempts))
	for k, v := range s.FallbackAttempts {
		out.FallbackAttempts[k] = v
	}
	out.FallbackMaxima = make(map[string]int, len(s.FallbackMaxima))
	for k, v := range s.FallbackMaxima {
		out.FallbackMaxima[k] = v
	}
	return out
}

func appendCapped(list []string, v string, limit int) []string {
	list = append(list, v)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
