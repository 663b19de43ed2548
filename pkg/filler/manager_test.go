package filler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alohavoice/aloha/pkg/errorsx"
	"github.com/alohavoice/aloha/pkg/phrase"
)

type fakePlayback struct {
	mu        sync.Mutex
	played    []string
	stopped   int
	cancelled bool
}

func (f *fakePlayback) Play(ctx context.Context, text string) error {
	f.mu.Lock()
	f.played = append(f.played, text)
	f.mu.Unlock()
	<-ctx.Done()
	f.mu.Lock()
	f.cancelled = true
	f.mu.Unlock()
	return ctx.Err()
}

func (f *fakePlayback) Stop() {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
}

func (f *fakePlayback) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.played)
}

func (f *fakePlayback) wasCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func testConfig() Config {
	return Config{
		MinDelay:     30 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Timeout:      500 * time.Millisecond,
	}
}

func newTestManager() *Manager {
	return NewManager(testConfig(), phrase.NewLibrary(), nil, nil, nil)
}

func TestFastGeneratorSkipsFiller(t *testing.T) {
	m := newTestManager()
	play := &fakePlayback{}

	res, err := m.Run(context.Background(), "t1", "hello", func(ctx context.Context, _ string) (string, error) {
		return "hi there", nil
	}, play)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Reply != "hi there" {
		t.Fatalf("reply = %q", res.Reply)
	}
	if res.FillerUsed {
		t.Fatal("filler must not play when the generator beats the delay")
	}
	if play.playCount() != 0 {
		t.Fatalf("playback invoked %d times", play.playCount())
	}
}

func TestSlowGeneratorTriggersFiller(t *testing.T) {
	m := newTestManager()
	play := &fakePlayback{}

	res, err := m.Run(context.Background(), "t1", "hello", func(ctx context.Context, _ string) (string, error) {
		time.Sleep(120 * time.Millisecond)
		return "done thinking", nil
	}, play)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.FillerUsed {
		t.Fatal("expected filler for a slow generator")
	}
	if res.FillerText == "" {
		t.Fatal("filler text must be recorded")
	}
	if res.Reply != "done thinking" {
		t.Fatalf("reply = %q", res.Reply)
	}
	if play.playCount() != 1 {
		t.Fatalf("playback invoked %d times, want 1", play.playCount())
	}
	if play.stopped == 0 {
		t.Fatal("filler must be stopped before the reply is returned")
	}
}

func TestFillerStoppedBeforeErrorReturns(t *testing.T) {
	m := newTestManager()
	play := &fakePlayback{}

	_, err := m.Run(context.Background(), "t1", "hello", func(ctx context.Context, _ string) (string, error) {
		time.Sleep(80 * time.Millisecond)
		return "", errors.New("model unavailable")
	}, play)
	if err == nil {
		t.Fatal("expected generator error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonGeneratorFailed) {
		t.Fatalf("reason = %v", errorsx.Reason(err))
	}
	if play.stopped == 0 {
		t.Fatal("filler must be stopped before the error propagates")
	}
}

func TestGeneratorTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 60 * time.Millisecond
	m := NewManager(cfg, phrase.NewLibrary(), nil, nil, nil)
	play := &fakePlayback{}

	_, err := m.Run(context.Background(), "t1", "hello", func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}, play)
	if !errorsx.HasReason(err, errorsx.ReasonGeneratorTimeout) {
		t.Fatalf("reason = %v, want generator timeout", errorsx.Reason(err))
	}
}

func TestInterruptCancelsFillerNotGenerator(t *testing.T) {
	m := newTestManager()
	play := &fakePlayback{}
	release := make(chan struct{})

	type runOut struct {
		res Result
		err error
	}
	done := make(chan runOut, 1)
	go func() {
		res, err := m.Run(context.Background(), "t1", "hello", func(ctx context.Context, _ string) (string, error) {
			<-release
			return "still answered", nil
		}, play)
		done <- runOut{res, err}
	}()

	deadline := time.Now().Add(time.Second)
	for play.playCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("filler never started")
		}
		time.Sleep(2 * time.Millisecond)
	}

	m.Interrupt()
	deadline = time.Now().Add(time.Second)
	for !play.wasCancelled() {
		if time.Now().After(deadline) {
			t.Fatal("interrupt did not cancel filler playback")
		}
		time.Sleep(2 * time.Millisecond)
	}

	close(release)
	out := <-done
	if out.err != nil {
		t.Fatalf("run: %v", out.err)
	}
	if out.res.Reply != "still answered" {
		t.Fatalf("reply = %q, want generator answer after interrupt", out.res.Reply)
	}
}

func TestCallerCancellationDoesNotAbandonGenerator(t *testing.T) {
	m := newTestManager()
	play := &fakePlayback{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.Run(ctx, "t1", "hello", func(genCtx context.Context, _ string) (string, error) {
		if genCtx.Err() != nil {
			return "", genCtx.Err()
		}
		return "delivered anyway", nil
	}, play)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Reply != "delivered anyway" {
		t.Fatalf("reply = %q", res.Reply)
	}
}
