package shaping

import (
	"strings"

	"github.com/alohavoice/aloha/pkg/intent"
)

// Intensity tiers micro-pause insertion.
type Intensity string

const (
	IntensitySubtle   Intensity = "subtle"
	IntensityModerate Intensity = "moderate"
	IntensityNatural  Intensity = "natural"
)

var pauseProbability = map[Intensity]float64{
	IntensitySubtle:   0.15,
	IntensityModerate: 0.3,
	IntensityNatural:  0.45,
}

// VoiceDynamics is the first pre-TTS transformer: pacing and texture.
// Rushed callers always suppress pause and disfluency insertion, whatever
// the other flags say.
type VoiceDynamics struct {
	intensity Intensity
	chance    Chance
}

type VoiceDynamicsConfig struct {
	Intensity Intensity
	Chance    Chance
}

func NewVoiceDynamics(cfg VoiceDynamicsConfig) *VoiceDynamics {
	if cfg.Intensity == "" {
		cfg.Intensity = IntensityModerate
	}
	if cfg.Chance == nil {
		cfg.Chance = NewChance(0)
	}
	return &VoiceDynamics{intensity: cfg.Intensity, chance: cfg.Chance}
}

var disfluencies = []string{"Um, ", "Well, ", "So, ", "Hmm, "}

var softeners = []string{
	"if that's alright",
	"whenever works for you",
	"no rush at all",
}

// Transform applies micro-pauses, sparse disfluency, and softening.
func (v *VoiceDynamics) Transform(text string, ctx Context) string {
	out := strings.TrimSpace(text)
	if out == "" {
		return out
	}
	if !ctx.Rushed {
		out = v.insertPauses(out)
		out = v.insertDisfluency(out, ctx)
	}
	out = v.soften(out, ctx)
	return out
}

func (v *VoiceDynamics) insertPauses(text string) string {
	p := pauseProbability[v.intensity]
	sentences := splitSentences(text)
	for i, s := range sentences {
		words := strings.Fields(s)
		if len(words) < 8 {
			continue
		}
		if !v.chance.Roll(p) {
			continue
		}
		// Break roughly mid-sentence; commas read as short pauses in TTS.
		mid := len(words) / 2
		if !strings.HasSuffix(words[mid-1], ",") && !strings.HasSuffix(words[mid-1], ".") {
			words[mid-1] += ","
		}
		sentences[i] = strings.Join(words, " ")
	}
	return strings.Join(sentences, " ")
}

func (v *VoiceDynamics) insertDisfluency(text string, ctx Context) string {
	// Never in greeting or closing; those must land clean.
	if ctx.Greeting || ctx.Closing {
		return text
	}
	if !v.chance.Roll(pauseProbability[v.intensity] / 2) {
		return text
	}
	d := disfluencies[v.chance.Index(len(disfluencies))]
	return d + lowerFirst(text)
}

func (v *VoiceDynamics) soften(text string, ctx Context) string {
	if ctx.Emotion != intent.EmotionNeutral && ctx.Emotion != intent.EmotionHappy {
		return text
	}
	if !v.chance.Roll(0.2) {
		return text
	}
	soft := softeners[v.chance.Index(len(softeners))]
	trimmed := strings.TrimRight(text, ".!? ")
	if strings.Contains(strings.ToLower(text), soft) {
		return text
	}
	return trimmed + ", " + soft + "."
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(b.String())
			if s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}
