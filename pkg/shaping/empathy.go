package shaping

import (
	"strings"

	"github.com/alohavoice/aloha/pkg/intent"
	"github.com/alohavoice/aloha/pkg/phrase"
)

// Context carries the caller-side flags every shaper keys on.
type Context struct {
	Emotion      intent.EmotionalState
	Rushed       bool
	Confused     bool
	NeedsEmpathy bool
	// LeadGiven records that an empathy lead was already spoken earlier
	// in the call; it suppresses emotion-triggered leads but not an
	// explicit NeedsEmpathy.
	LeadGiven bool
	// Greeting and Closing gate disfluency insertion.
	Greeting bool
	Closing  bool
}

// EmpathyShaper rewrites a draft reply to add and position empathy based on
// the detected emotional state. Re-shaping already-shaped text is a no-op
// for the empathy statement: the already-has-empathy guard keeps the
// operation idempotent.
type EmpathyShaper struct {
	lib  *phrase.Library
	vars phrase.Vars
}

func NewEmpathyShaper(lib *phrase.Library, vars phrase.Vars) *EmpathyShaper {
	if lib == nil {
		lib = phrase.NewLibrary()
	}
	return &EmpathyShaper{lib: lib, vars: vars}
}

var deescalations = [][2]string{
	{"you have to", "you might want to"},
	{"you need to", "it may help to"},
	{"you must", "it would help to"},
	{"that's our policy", "that's how we usually handle it"},
	{"calm down", "I understand"},
}

var fillerWords = []string{"just ", "actually ", "basically ", "you know, ", "honestly, "}

var empathyMarkers = []string{
	"i understand", "i'm sorry", "i am sorry", "i hear you", "that sounds",
	"i appreciate", "i apologize", "you're right to", "no problem at all",
}

// Shape applies, in order: tone-specific rewrites, pacing adjustments, and
// a leading empathy statement when one is warranted and not already present.
func (s *EmpathyShaper) Shape(text string, ctx Context) string {
	out := strings.TrimSpace(text)
	if out == "" {
		return out
	}

	out = s.rewriteForTone(out, ctx)
	out = s.adjustPacing(out, ctx)

	if s.wantsEmpathy(ctx) && !HasEmpathyMarker(out) {
		lead := s.lib.MustPick(phrase.EmpathyID(string(ctx.Emotion)), s.vars)
		if lead != "" {
			out = lead + " " + out
		}
	}
	return out
}

func (s *EmpathyShaper) wantsEmpathy(ctx Context) bool {
	if ctx.NeedsEmpathy {
		return true
	}
	if ctx.LeadGiven {
		return false
	}
	return ctx.Emotion != intent.EmotionNeutral && ctx.Emotion != intent.EmotionHappy
}

// HasEmpathyMarker reports whether text already opens with or contains an
// empathy phrase; this is the idempotence guard.
func HasEmpathyMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range empathyMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func (s *EmpathyShaper) rewriteForTone(text string, ctx Context) string {
	switch ctx.Emotion {
	case intent.EmotionAngry, intent.EmotionFrustrated:
		for _, sub := range deescalations {
			text = replaceFold(text, sub[0], sub[1])
		}
	case intent.EmotionConfused:
		if !strings.Contains(strings.ToLower(text), "to be clear") {
			text = "To be clear: " + lowerFirst(text)
		}
	case intent.EmotionStressed:
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "quick") && !strings.Contains(lower, "take a moment") {
			text = text + " This will only take a moment."
		}
	}
	return text
}

func (s *EmpathyShaper) adjustPacing(text string, ctx Context) string {
	if ctx.Rushed {
		for _, w := range fillerWords {
			text = replaceFold(text, w, "")
		}
		return strings.Join(strings.Fields(text), " ")
	}
	if ctx.Confused {
		for _, marker := range []string{"First,", "Second,", "Then,", "Finally,"} {
			text = strings.ReplaceAll(text, " "+marker, ". "+marker)
		}
		text = strings.ReplaceAll(text, "..", ".")
	}
	return text
}

func replaceFold(text, from, to string) string {
	lower := strings.ToLower(text)
	from = strings.ToLower(from)
	var b strings.Builder
	for {
		i := strings.Index(lower, from)
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i])
		b.WriteString(to)
		text = text[i+len(from):]
		lower = lower[i+len(from):]
	}
}

func lowerFirst(text string) string {
	if text == "" {
		return text
	}
	return strings.ToLower(text[:1]) + text[1:]
}
