package layers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alohavoice/aloha/pkg/dialog"
	"github.com/alohavoice/aloha/pkg/errorsx"
	"github.com/alohavoice/aloha/pkg/filler"
	"github.com/alohavoice/aloha/pkg/metrics"
	"github.com/alohavoice/aloha/pkg/phrase"
	"github.com/alohavoice/aloha/pkg/scenario"
	"github.com/alohavoice/aloha/pkg/shaping"
)

type silentPlayback struct{}

func (silentPlayback) Play(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}
func (silentPlayback) Stop() {}

func echoGenerator(ctx context.Context, utterance string) (string, error) {
	return "You asked about that, and here is what I can tell you.", nil
}

func newTestOrchestrator(t *testing.T, gen filler.Generator) (*Orchestrator, time.Time) {
	t.Helper()
	if gen == nil {
		gen = echoGenerator
	}
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	lib := phrase.NewLibrary(phrase.WithSelector(&phrase.First{}))
	o := NewOrchestrator(Config{}, Deps{
		Library:  lib,
		Vars:     phrase.Vars{"agent_name": "Aloha", "business_name": "Sunrise Dental", "business_phone": "+1 415 555 0134"},
		Generate: gen,
		Playback: silentPlayback{},
		Dynamics: shaping.NewVoiceDynamics(shaping.VoiceDynamicsConfig{Chance: shaping.Never{}}),
		Humanizer: shaping.NewHumanizer(shaping.HumanizerConfig{
			Chance: shaping.Never{},
		}),
	}, now)
	if _, err := o.Opening(now); err != nil {
		t.Fatalf("opening: %v", err)
	}
	return o, now
}

func turn(id, utterance string, now time.Time) TurnInput {
	return TurnInput{TurnID: id, Utterance: utterance, Confidence: 0.9, Now: now}
}

func TestOpeningAdvancesToActive(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	if got := o.State().Phase; got != dialog.PhaseActive {
		t.Fatalf("phase after opening = %q, want active", got)
	}
	if _, err := o.Opening(time.Now()); !errorsx.HasReason(err, errorsx.ReasonInvalidPhase) {
		t.Fatalf("second opening err = %v, want invalid phase", err)
	}
}

func TestNormalTurnGeneratesReply(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)
	out, err := o.ProcessTurn(context.Background(), turn("t1", "what time do you open tomorrow", now))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Source != SourceGenerated {
		t.Fatalf("source = %q, want generated", out.Source)
	}
	if out.Text == "" || out.EndCall {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestDoNotCallOverridesEverything(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)
	in := turn("t1", "stop calling me, take me off your list", now)
	// Bad audio at the same time must not outrank the compliance path.
	in.Confidence = 0.2
	in.Signals = scenario.Signals{NoiseDetected: true}

	out, err := o.ProcessTurn(context.Background(), in)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Source != SourceCompliance {
		t.Fatalf("source = %q, want compliance", out.Source)
	}
	if !out.EndCall || out.OutcomeHint != "do_not_call" {
		t.Fatalf("output = %+v", out)
	}
	st := o.State()
	if st.Phase != dialog.PhaseEnded || !st.ClosingAttempted {
		t.Fatalf("state after DNC = phase %q, closingAttempted %v", st.Phase, st.ClosingAttempted)
	}
}

func TestEmergencyOverride(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)
	out, err := o.ProcessTurn(context.Background(), turn("t1", "please call 911, someone is hurt", now))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Source != SourceSafety || !out.EndCall {
		t.Fatalf("output = %+v", out)
	}
}

func TestClarificationThenEscalation(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)
	lib := phrase.NewLibrary(phrase.WithSelector(&phrase.First{}))
	vars := phrase.Vars{"business_name": "Sunrise Dental"}

	in := TurnInput{TurnID: "t1", Utterance: "zzkx blorp", Confidence: 0.9, Now: now}
	first, err := o.ProcessTurn(context.Background(), in)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.Source != SourceClarification {
		t.Fatalf("first source = %q", first.Source)
	}
	if first.Text != lib.MustPick(phrase.IDClarifyRepeat, vars) {
		t.Fatalf("first clarification = %q", first.Text)
	}
	if o.State().Phase != dialog.PhaseClarification {
		t.Fatalf("phase = %q, want clarification", o.State().Phase)
	}

	second, err := o.ProcessTurn(context.Background(), in)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Text != lib.MustPick(phrase.IDClarifyRephrase, vars) {
		t.Fatalf("second clarification = %q", second.Text)
	}

	third, err := o.ProcessTurn(context.Background(), in)
	if err != nil {
		t.Fatalf("third: %v", err)
	}
	if third.Source != SourceEscalation || !third.NeedsHumanCallback {
		t.Fatalf("third = %+v, want human-callback escalation", third)
	}
	if !o.State().NeedsHumanCallback {
		t.Fatal("state must record the callback escalation")
	}
}

func TestClearTurnLeavesClarification(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)
	if _, err := o.ProcessTurn(context.Background(), turn("t1", "zzkx blorp", now)); err != nil {
		t.Fatalf("garbled: %v", err)
	}
	if _, err := o.ProcessTurn(context.Background(), turn("t2", "what are your opening hours today", now)); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := o.State().Phase; got != dialog.PhaseActive {
		t.Fatalf("phase = %q, want active after a clear turn", got)
	}
}

func TestBadConnectionFallbackThenEnd(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)

	var last TurnOutput
	var err error
	for i := 0; i < 4; i++ {
		in := turn("t", "something about the thing maybe", now.Add(time.Duration(i)*5*time.Second))
		in.Confidence = 0.2
		last, err = o.ProcessTurn(context.Background(), in)
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if last.EndCall {
			break
		}
	}
	if !last.EndCall {
		t.Fatal("persistent bad connection must end the call")
	}
	if last.OutcomeHint != "bad_connection" {
		t.Fatalf("outcome hint = %q", last.OutcomeHint)
	}
	if !strings.Contains(strings.ToLower(last.Text), "trouble hearing") {
		t.Fatalf("ending text = %q", last.Text)
	}
}

func TestCloseBeforeEnd(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)

	first, err := o.ProcessTurn(context.Background(), turn("t1", "thanks, I have to go now", now))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.Source != SourceClosing || first.EndCall {
		t.Fatalf("first = %+v, want a close without termination", first)
	}
	if o.State().Phase != dialog.PhaseClosing {
		t.Fatalf("phase = %q, want closing", o.State().Phase)
	}

	second, err := o.ProcessTurn(context.Background(), turn("t2", "goodbye", now.Add(2*time.Second)))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.EndCall {
		t.Fatalf("second = %+v, want end", second)
	}
	if o.State().Phase != dialog.PhaseEnded {
		t.Fatalf("phase = %q, want ended", o.State().Phase)
	}
}

func TestCheckInOnExitAfterQuestionsAnswered(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)
	o.AskQuestion("preferred_day")
	o.AnswerQuestion("preferred_day")

	out, err := o.ProcessTurn(context.Background(), turn("t1", "alright, that's everything I needed", now))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Source != SourceCheckIn {
		t.Fatalf("source = %q, want check_in", out.Source)
	}

	// Declining the check-in winds the call down through close, then end.
	out, err = o.ProcessTurn(context.Background(), turn("t2", "no thanks, that's all", now.Add(2*time.Second)))
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if out.Source != SourceClosing || out.EndCall {
		t.Fatalf("decline = %+v, want close without termination", out)
	}
}

func TestAnsweredQuestionsDoNotHijackLaterTurns(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)
	o.AskQuestion("preferred_day")
	o.AnswerQuestion("preferred_day")

	for i, utterance := range []string{
		"what are your business hours",
		"do you take dental insurance",
		"how long does a cleaning take",
	} {
		out, err := o.ProcessTurn(context.Background(), TurnInput{
			TurnID:     fmt.Sprintf("q%d", i),
			Utterance:  utterance,
			Confidence: 0.95,
			Now:        now.Add(time.Duration(i) * 5 * time.Second),
		})
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if out.Source != SourceGenerated {
			t.Fatalf("turn %d source = %q (text %q), want generated", i, out.Source, out.Text)
		}
	}
}

func TestKnowledgeGapDeferral(t *testing.T) {
	gen := func(ctx context.Context, _ string) (string, error) {
		return "", errorsx.Wrap(errors.New("no grounding for pricing"), errorsx.ReasonKnowledgeGap)
	}
	o, now := newTestOrchestrator(t, gen)
	out, err := o.ProcessTurn(context.Background(), turn("t1", "how much does a crown replacement cost", now))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Source != SourceDeferral {
		t.Fatalf("source = %q, want deferral", out.Source)
	}
	if !strings.Contains(out.Text, "Sunrise Dental") {
		t.Fatalf("deferral text = %q", out.Text)
	}
}

func TestGeneratorFailureNeverSilent(t *testing.T) {
	gen := func(ctx context.Context, _ string) (string, error) {
		return "", errors.New("model unavailable")
	}
	o, now := newTestOrchestrator(t, gen)
	out, err := o.ProcessTurn(context.Background(), turn("t1", "can you tell me more about the visit", now))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Text == "" {
		t.Fatal("a failed generator must still produce speech")
	}
	if out.Source != SourceFallback {
		t.Fatalf("source = %q, want fallback", out.Source)
	}
}

func TestEmpathyLeadOncePerCall(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)

	first, err := o.ProcessTurn(context.Background(), turn("t1", "this is ridiculous, you keep calling me", now))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if !shaping.HasEmpathyMarker(first.Text) {
		t.Fatalf("first angry turn should carry empathy, got %q", first.Text)
	}
	if !o.State().EmpathyProvided {
		t.Fatal("state must record the empathy lead")
	}

	second, err := o.ProcessTurn(context.Background(), turn("t2", "I am still annoyed about all these calls", now.Add(5*time.Second)))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if shaping.HasEmpathyMarker(second.Text) {
		t.Fatalf("second turn repeated the empathy lead: %q", second.Text)
	}
}

func TestSilenceTiersInOrder(t *testing.T) {
	o, start := newTestOrchestrator(t, nil)

	if _, fired := o.SilenceTick(start.Add(time.Second)); fired {
		t.Fatal("tier fired too early")
	}

	out, fired := o.SilenceTick(start.Add(3 * time.Second))
	if !fired || out.EndCall {
		t.Fatalf("short tier: fired=%v out=%+v", fired, out)
	}

	out, fired = o.SilenceTick(start.Add(7 * time.Second))
	if !fired || out.EndCall {
		t.Fatalf("medium tier: fired=%v out=%+v", fired, out)
	}

	out, fired = o.SilenceTick(start.Add(11 * time.Second))
	if !fired || !out.EndCall {
		t.Fatalf("long tier: fired=%v out=%+v", fired, out)
	}
	if o.State().Phase != dialog.PhaseEnded {
		t.Fatalf("phase = %q, want ended after the final tier", o.State().Phase)
	}

	if _, fired := o.SilenceTick(start.Add(20 * time.Second)); fired {
		t.Fatal("no tier may fire after the call ended")
	}
}

func TestEndedCallRejectsTurns(t *testing.T) {
	o, now := newTestOrchestrator(t, nil)
	if _, err := o.ProcessTurn(context.Background(), turn("t1", "take me off your list", now)); err != nil {
		t.Fatalf("dnc turn: %v", err)
	}
	_, err := o.ProcessTurn(context.Background(), turn("t2", "hello?", now.Add(time.Second)))
	if !errorsx.HasReason(err, errorsx.ReasonCallEnded) {
		t.Fatalf("err = %v, want call-ended reason", err)
	}
}

func TestTurnEventsReachObserver(t *testing.T) {
	mem := metrics.NewMemoryObserver()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	lib := phrase.NewLibrary(phrase.WithSelector(&phrase.First{}))
	o := NewOrchestrator(Config{}, Deps{
		Library:   lib,
		Vars:      phrase.Vars{"agent_name": "Aloha", "business_name": "Sunrise Dental"},
		Generate:  echoGenerator,
		Playback:  silentPlayback{},
		Observer:  mem,
		Dynamics:  shaping.NewVoiceDynamics(shaping.VoiceDynamicsConfig{Chance: shaping.Never{}}),
		Humanizer: shaping.NewHumanizer(shaping.HumanizerConfig{Chance: shaping.Never{}}),
	}, now)
	if _, err := o.Opening(now); err != nil {
		t.Fatalf("opening: %v", err)
	}
	if _, err := o.ProcessTurn(context.Background(), turn("t1", "what are your hours", now)); err != nil {
		t.Fatalf("process: %v", err)
	}

	if mem.CountOf(metrics.EventTurnStart) != 1 {
		t.Fatalf("turn_start count = %d, events %v", mem.CountOf(metrics.EventTurnStart), mem.Names())
	}
	if mem.CountOf(metrics.EventTurnDone) != 1 {
		t.Fatalf("turn_done count = %d, events %v", mem.CountOf(metrics.EventTurnDone), mem.Names())
	}
	for _, ev := range mem.Snapshot() {
		if ev.Tags["turn_id"] != "t1" {
			t.Fatalf("event %s missing turn_id tag: %+v", ev.Name, ev)
		}
	}
}

func TestEmptyTurnRunsSilenceTiers(t *testing.T) {
	o, start := newTestOrchestrator(t, nil)

	out, err := o.ProcessTurn(context.Background(), TurnInput{TurnID: "t1", Empty: true, Now: start.Add(time.Second)})
	if err != nil {
		t.Fatalf("first empty turn: %v", err)
	}
	if out.Source != SourceClarification {
		t.Fatalf("source below the first tier = %q, want clarification", out.Source)
	}

	out, err = o.ProcessTurn(context.Background(), TurnInput{TurnID: "t2", Empty: true, Now: start.Add(4 * time.Second)})
	if err != nil {
		t.Fatalf("second empty turn: %v", err)
	}
	if out.Source != SourceSilence {
		t.Fatalf("source past the first tier = %q, want silence", out.Source)
	}
	if out.EndCall {
		t.Fatal("the first silence tier must not end the call")
	}
}
