package call

import (
	"context"
	"time"

	"github.com/alohavoice/aloha/pkg/audio"
)

// VoiceProfile tunes synthesis for one callee.
type VoiceProfile struct {
	VoiceID   string
	Speed     float64
	Stability float64
}

// Profile is what the agent knows about the person it is calling.
type Profile struct {
	Name  string
	Phone string
	Voice VoiceProfile
}

// ProfileStore resolves caller phone numbers to profiles.
type ProfileStore interface {
	Lookup(ctx context.Context, phone string) (Profile, error)
}

// Business is the identity the agent speaks on behalf of.
type Business struct {
	ID            string
	Name          string
	Phone         string
	AgentName     string
	CallbackHours string
}

// BusinessDirectory resolves the business context for a call.
type BusinessDirectory interface {
	Context(ctx context.Context, businessID string) (Business, error)
}

// Speech turns reply text into audio. SynthesizeStreaming pushes chunks
// onto the stream and closes it when done or cancelled.
type Speech interface {
	SynthesizeStreaming(ctx context.Context, text string, voice VoiceProfile, out *audio.Stream) error
	SynthesizeComplete(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)
}

// Outcome kinds recorded at the end of a call.
const (
	OutcomeDoNotCall         = "do_not_call"
	OutcomeRescheduled       = "rescheduled"
	OutcomeFeedbackCollected = "feedback_collected"
	OutcomeNotInterested     = "not_interested"
	OutcomeAskedForEmail     = "asked_for_email"
	OutcomeNeedsCallback     = "needs_callback"
	OutcomeVoicemail         = "voicemail"
	OutcomeNoResponse        = "no_response"
	OutcomeBadConnection     = "bad_connection"
	OutcomeCompleted         = "completed"
)

// Outcome is the disposition of one finished call.
type Outcome struct {
	CallID   string
	Kind     string
	Detail   string
	Callback bool
	Time     time.Time
}

// OutcomeRecorder persists call dispositions.
type OutcomeRecorder interface {
	Record(ctx context.Context, o Outcome) error
}
