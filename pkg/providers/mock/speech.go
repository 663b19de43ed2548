package mock

import (
	"context"
	"sync"

	"github.com/alohavoice/aloha/pkg/audio"
	"github.com/alohavoice/aloha/pkg/call"
)

type SpeechConfig struct {
	// ChunkSize is how many bytes of the text go into each audio chunk.
	ChunkSize int
}

// Speech pretends to synthesize by streaming the reply text itself as
// byte chunks. Tests can read the "audio" back as a transcript.
type Speech struct {
	cfg SpeechConfig

	mu      sync.Mutex
	spoken  []string
	stopped int
}

func NewSpeech(cfg SpeechConfig) *Speech {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 64
	}
	return &Speech{cfg: cfg}
}

func (s *Speech) SynthesizeStreaming(ctx context.Context, text string, _ call.VoiceProfile, out *audio.Stream) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()

	defer out.Close()
	data := []byte(text)
	for len(data) > 0 {
		n := s.cfg.ChunkSize
		if n > len(data) {
			n = len(data)
		}
		select {
		case <-ctx.Done():
			out.Cancel()
			return ctx.Err()
		case <-out.Done():
			return nil
		default:
		}
		if !out.Push(data[:n]) {
			return nil
		}
		data = data[n:]
	}
	return nil
}

func (s *Speech) SynthesizeComplete(ctx context.Context, text string, _ call.VoiceProfile) ([]byte, error) {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	return []byte(text), nil
}

// Spoken returns every text handed to the synthesizer, in order.
func (s *Speech) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spoken))
	copy(out, s.spoken)
	return out
}

var _ call.Speech = (*Speech)(nil)
