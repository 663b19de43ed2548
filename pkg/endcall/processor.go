package endcall

import (
	"strings"
	"time"

	"github.com/alohavoice/aloha/pkg/dialog"
	"github.com/alohavoice/aloha/pkg/intent"
	"github.com/alohavoice/aloha/pkg/phrase"
)

// Decision is the end-of-call verdict for a turn.
type Decision string

const (
	DecisionContinue Decision = "continue"
	DecisionCheckIn  Decision = "check_in"
	DecisionClose    Decision = "close"
	DecisionEnd      Decision = "end"
)

// Options carries the turn context the decision keys on.
type Options struct {
	Emotion           intent.EmotionalState
	ConnectionTrouble bool
	LastCheckIn       time.Time
	Now               time.Time
}

// Result is the decision plus any message to speak with it.
type Result struct {
	Decision   Decision
	Message    string
	Confidence float64
}

// Processor evaluates whether the call should wind down. Evaluate is a pure
// decision over its inputs; the processor only holds the phrase library.
type Processor struct {
	lib  *phrase.Library
	vars phrase.Vars
}

func NewProcessor(lib *phrase.Library, vars phrase.Vars) *Processor {
	if lib == nil {
		lib = phrase.NewLibrary()
	}
	return &Processor{lib: lib, vars: vars}
}

var explicitExit = []string{
	"i have to go", "i've got to go", "gotta go", "goodbye", "bye now",
	"that's all", "that is all", "we're done", "we are done", "i'm done", "not interested",
	"i'm all set", "nothing else", "that's everything", "no thanks",
}

var implicitExit = []string{
	"ok", "okay", "alright", "sure", "yes", "yep", "yeah", "sounds good", "thanks", "thank you",
}

// ExitIntent reports whether the utterance signals a desire to end the
// call. Explicit phrases score high; short affirmatives score medium and
// only count when the utterance is under 30 characters.
func ExitIntent(utterance string, st dialog.State) (bool, float64) {
	trimmed := strings.TrimSpace(strings.ToLower(utterance))
	for _, p := range explicitExit {
		if strings.Contains(trimmed, p) {
			return true, 0.9
		}
	}
	if len(trimmed) < 30 && (st.ReadyToClose || st.Phase == dialog.PhaseClosing) {
		clean := strings.TrimRight(trimmed, ".!? ")
		for _, p := range implicitExit {
			if clean == p {
				return true, 0.6
			}
		}
	}
	if st.ExitIntentDetected {
		return true, 0.5
	}
	return false, 0
}

// Evaluate decides, for one turn, whether to continue, check for
// additional needs, close gracefully, or end. Only exit intent moves the
// call toward its end; a first exit with answered questions earns an
// "anything else?" check-in, and a call never jumps from continue to end
// without passing through close.
func (p *Processor) Evaluate(utterance string, st dialog.State, opts Options) Result {
	exit, conf := ExitIntent(utterance, st)
	if !exit {
		return Result{Decision: DecisionContinue}
	}

	if st.ClosingAttempted {
		return Result{Decision: DecisionEnd, Confidence: conf}
	}

	if p.additionalNeedsCheckWarranted(st, opts) {
		return Result{
			Decision:   DecisionCheckIn,
			Message:    p.lib.MustPick(phrase.IDCheckInNeeds, p.vars),
			Confidence: 0.8,
		}
	}

	return Result{
		Decision:   DecisionClose,
		Message:    p.closingMessage(opts),
		Confidence: conf,
	}
}

// additionalNeedsCheckWarranted gates the "anything else?" check-in on an
// exit-intent turn: all tracked questions answered, not already closing,
// and no check-in within the previous 3 seconds.
func (p *Processor) additionalNeedsCheckWarranted(st dialog.State, opts Options) bool {
	if !dialog.AllQuestionsAnswered(st) {
		return false
	}
	if st.Phase == dialog.PhaseClosing || st.Phase == dialog.PhaseEnded || st.ClosingAttempted {
		return false
	}
	if !opts.LastCheckIn.IsZero() && opts.Now.Sub(opts.LastCheckIn) < 3*time.Second {
		return false
	}
	return true
}

func (p *Processor) closingMessage(opts Options) string {
	switch {
	case opts.Emotion == intent.EmotionAngry || opts.Emotion == intent.EmotionUpset:
		return p.lib.MustPick(phrase.IDClosingUpset, p.vars)
	case opts.ConnectionTrouble:
		return p.lib.MustPick(phrase.IDClosingConnection, p.vars)
	default:
		return p.lib.MustPick(phrase.IDClosingStandard, p.vars)
	}
}
