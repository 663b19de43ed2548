package mock

import (
	"context"
	"sync"
	"time"
)

type GeneratorConfig struct {
	// Replies are returned in order; the last one repeats.
	Replies []string
	// Delay simulates model latency per call.
	Delay time.Duration
	// Err, when set, is returned for every call instead of a reply.
	Err error
}

// Generator plays back scripted replies with optional latency.
type Generator struct {
	cfg GeneratorConfig

	mu    sync.Mutex
	calls int
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	if len(cfg.Replies) == 0 {
		cfg.Replies = []string{"mock reply"}
	}
	return &Generator{cfg: cfg}
}

func (g *Generator) Generate(ctx context.Context, utterance string) (string, error) {
	if g.cfg.Delay > 0 {
		timer := time.NewTimer(g.cfg.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.cfg.Err != nil {
		return "", g.cfg.Err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.cfg.Replies) {
		i = len(g.cfg.Replies) - 1
	}
	g.calls++
	return g.cfg.Replies[i], nil
}

// Calls reports how many times Generate ran.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
