package filler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alohavoice/aloha/pkg/errorsx"
	"github.com/alohavoice/aloha/pkg/metrics"
	"github.com/alohavoice/aloha/pkg/phrase"
)

// Generator produces the real reply for an utterance. It may be slow;
// the manager races it against a filler line but never cancels it early.
type Generator func(ctx context.Context, utterance string) (string, error)

// Playback speaks filler audio. Play blocks until the text has been
// spoken or ctx is cancelled.
type Playback interface {
	Play(ctx context.Context, text string) error
	Stop()
}

type Config struct {
	// MinDelay is how long the generator gets before filler starts.
	MinDelay time.Duration
	// PollInterval is the cadence for checking generator completion.
	PollInterval time.Duration
	// Timeout bounds the generator itself.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinDelay <= 0 {
		c.MinDelay = 300 * time.Millisecond
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 50 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Result reports how a turn's reply was produced.
type Result struct {
	Reply      string
	FillerUsed bool
	FillerText string
	Elapsed    time.Duration
}

// Manager races a reply generator against short filler speech so the
// caller never sits in dead air. One manager serves one call; turns run
// one at a time.
type Manager struct {
	cfg      Config
	lib      *phrase.Library
	vars     phrase.Vars
	logger   *slog.Logger
	observer metrics.Observer

	mu           sync.Mutex
	cancelFiller context.CancelFunc
}

func NewManager(cfg Config, lib *phrase.Library, vars phrase.Vars, logger *slog.Logger, observer metrics.Observer) *Manager {
	if lib == nil {
		lib = phrase.NewLibrary()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	return &Manager{
		cfg:      cfg.withDefaults(),
		lib:      lib,
		vars:     vars,
		logger:   logger,
		observer: observer,
	}
}

type genOutcome struct {
	reply string
	err   error
}

// Run produces the reply for one utterance. If the generator takes
// longer than MinDelay, a filler line plays until it finishes. Filler is
// always stopped before the result, success or failure, is returned.
func (m *Manager) Run(ctx context.Context, turnID, utterance string, gen Generator, play Playback) (Result, error) {
	start := time.Now()

	// The generator outlives caller cancellation so a reply in flight is
	// never wasted; only its own timeout bounds it.
	genCtx, genCancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.Timeout)
	defer genCancel()

	done := make(chan genOutcome, 1)
	go func() {
		reply, err := gen(genCtx, utterance)
		done <- genOutcome{reply: reply, err: err}
	}()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	var res Result
	for {
		select {
		case out := <-done:
			m.stopFiller(play, res.FillerUsed, turnID)
			res.Elapsed = time.Since(start)
			if out.err != nil {
				return res, m.wrapGenErr(out.err)
			}
			res.Reply = out.reply
			m.observer.RecordEvent(metrics.MetricsEvent{
				Name:  metrics.EventGeneratorDone,
				Value: float64(res.Elapsed.Milliseconds()),
				Tags:  map[string]string{"turn_id": turnID, "filler_used": boolTag(res.FillerUsed)},
			})
			return res, nil
		case <-ticker.C:
			if !res.FillerUsed && time.Since(start) >= m.cfg.MinDelay {
				res.FillerUsed = true
				res.FillerText = m.startFiller(ctx, play, turnID)
			}
		}
	}
}

func (m *Manager) startFiller(ctx context.Context, play Playback, turnID string) string {
	text := m.lib.MustPick(phrase.IDFiller, m.vars)
	fctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancelFiller = cancel
	m.mu.Unlock()

	go func() {
		if err := play.Play(fctx, text); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("filler playback failed", "turn_id", turnID, "error", err)
		}
	}()

	m.observer.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventFillerStart,
		Tags: map[string]string{"turn_id": turnID},
	})
	return text
}

func (m *Manager) stopFiller(play Playback, active bool, turnID string) {
	m.mu.Lock()
	cancel := m.cancelFiller
	m.cancelFiller = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	play.Stop()
	if active {
		m.observer.RecordEvent(metrics.MetricsEvent{
			Name: metrics.EventFillerCancel,
			Tags: map[string]string{"turn_id": turnID},
		})
	}
}

// Interrupt cuts any filler currently playing. The reply generator keeps
// running; a barge-in only silences the agent, it does not abandon the
// turn's answer.
func (m *Manager) Interrupt() {
	m.mu.Lock()
	cancel := m.cancelFiller
	m.cancelFiller = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) wrapGenErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errorsx.Wrap(err, errorsx.ReasonGeneratorTimeout)
	}
	return errorsx.Wrap(err, errorsx.ReasonGeneratorFailed)
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
