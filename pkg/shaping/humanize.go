package shaping

import (
	"strings"

	"github.com/alohavoice/aloha/pkg/intent"
)

// Humanizer is the second pre-TTS transformer: it balances sentence length,
// strips machine-sounding disclosures, and applies tone punctuation. It is
// complementary to VoiceDynamics and runs after it.
type Humanizer struct {
	maxSentenceWords int
	chance           Chance
}

type HumanizerConfig struct {
	MaxSentenceWords int
	Chance           Chance
}

func NewHumanizer(cfg HumanizerConfig) *Humanizer {
	if cfg.MaxSentenceWords <= 0 {
		cfg.MaxSentenceWords = 25
	}
	if cfg.Chance == nil {
		cfg.Chance = NewChance(0)
	}
	return &Humanizer{maxSentenceWords: cfg.MaxSentenceWords, chance: cfg.Chance}
}

var disclosurePhrases = []string{
	"as an ai", "i am an ai", "i'm an ai", "as a language model",
	"as an artificial intelligence", "i am a language model", "i'm a virtual assistant",
	"i am a virtual assistant", "as a virtual assistant",
}

// Transform rewrites text for natural delivery.
func (h *Humanizer) Transform(text string, ctx Context) string {
	out := strings.TrimSpace(text)
	if out == "" {
		return out
	}
	out = h.stripDisclosures(out)
	out = h.balanceSentences(out)
	out = h.tonePunctuation(out, ctx)
	return out
}

// stripDisclosures drops whole sentences that disclose machine identity.
func (h *Humanizer) stripDisclosures(text string) string {
	sentences := splitSentences(text)
	kept := sentences[:0]
	for _, s := range sentences {
		lower := strings.ToLower(s)
		disclosed := false
		for _, p := range disclosurePhrases {
			if strings.Contains(lower, p) {
				disclosed = true
				break
			}
		}
		if !disclosed {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, " ")
}

// balanceSentences splits run-on sentences at a coordinating conjunction.
func (h *Humanizer) balanceSentences(text string) string {
	sentences := splitSentences(text)
	for i, s := range sentences {
		words := strings.Fields(s)
		if len(words) <= h.maxSentenceWords {
			continue
		}
		for j := h.maxSentenceWords / 2; j < len(words)-2; j++ {
			w := strings.ToLower(strings.TrimSuffix(words[j], ","))
			if w == "and" || w == "but" || w == "so" || w == "because" {
				head := strings.Join(words[:j], " ")
				tail := strings.Join(words[j:], " ")
				head = strings.TrimSuffix(strings.TrimSuffix(head, ","), " ")
				sentences[i] = head + ". " + upperFirst(tail)
				break
			}
		}
	}
	return strings.Join(sentences, " ")
}

// tonePunctuation nudges terminal punctuation toward the caller's tone:
// flat periods for a heated caller, a little brightness for a happy one.
func (h *Humanizer) tonePunctuation(text string, ctx Context) string {
	switch ctx.Emotion {
	case intent.EmotionAngry, intent.EmotionUpset, intent.EmotionFrustrated:
		return strings.ReplaceAll(text, "!", ".")
	case intent.EmotionHappy:
		sentences := splitSentences(text)
		if len(sentences) == 0 {
			return text
		}
		last := sentences[len(sentences)-1]
		if strings.HasSuffix(last, ".") && len(strings.Fields(last)) <= 6 && h.chance.Roll(0.5) {
			sentences[len(sentences)-1] = strings.TrimSuffix(last, ".") + "!"
		}
		return strings.Join(sentences, " ")
	}
	return text
}

func upperFirst(text string) string {
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

// TruncateForRush is the final safety valve: a hard cap applied when the
// caller is rushed or stressed, cutting at a word boundary and terminating
// with an ellipsis.
func TruncateForRush(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, ",.;: ") + "..."
}
