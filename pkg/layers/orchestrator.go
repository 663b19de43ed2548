package layers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alohavoice/aloha/pkg/dialog"
	"github.com/alohavoice/aloha/pkg/endcall"
	"github.com/alohavoice/aloha/pkg/errorsx"
	"github.com/alohavoice/aloha/pkg/filler"
	"github.com/alohavoice/aloha/pkg/intent"
	"github.com/alohavoice/aloha/pkg/metrics"
	"github.com/alohavoice/aloha/pkg/phrase"
	"github.com/alohavoice/aloha/pkg/resilience"
	"github.com/alohavoice/aloha/pkg/scenario"
	"github.com/alohavoice/aloha/pkg/shaping"
)

// Source labels where a turn's spoken text came from.
const (
	SourceGenerated     = "generated"
	SourceCompliance    = "compliance"
	SourceSafety        = "safety"
	SourceFallback      = "fallback"
	SourceClarification = "clarification"
	SourceEscalation    = "escalation"
	SourceRedirect      = "redirect"
	SourceCheckIn       = "check_in"
	SourceClosing       = "closing"
	SourceSilence       = "silence"
	SourceDeferral      = "deferral"
	SourceOpening       = "opening"
)

// TurnInput is one caller utterance plus its transport-level signals.
type TurnInput struct {
	TurnID      string
	Utterance   string
	Confidence  float64
	Inaudible   bool
	Empty       bool
	Noise       bool
	TopicSwitch bool
	Interrupted bool
	Signals     scenario.Signals
	Now         time.Time
}

// TurnOutput is everything the call handler needs to act on a turn.
type TurnOutput struct {
	Text               string
	Source             string
	EndCall            bool
	NeedsHumanCallback bool
	OutcomeHint        string
	Intent             intent.Classification
	Scenario           scenario.Detected
	FillerUsed         bool
	FillerText         string
	Elapsed            time.Duration
}

// Config tunes orchestrator behavior not owned by a collaborator.
type Config struct {
	// RushedMaxChars caps reply length for rushed callers.
	RushedMaxChars int
	// ClarificationMax bounds clarification reprompts before escalating
	// to a human callback.
	ClarificationMax int
}

func (c Config) withDefaults() Config {
	if c.RushedMaxChars <= 0 {
		c.RushedMaxChars = 220
	}
	if c.ClarificationMax <= 0 {
		c.ClarificationMax = 2
	}
	return c
}

// Deps are the orchestrator's collaborators. Nil ambient fields get
// working defaults; Generate and Playback must be provided.
type Deps struct {
	Classifier *intent.Engine
	Detector   *scenario.Detector
	Monitor    *resilience.Monitor
	EndCall    *endcall.Processor
	Filler     *filler.Manager
	Empathy    *shaping.EmpathyShaper
	Dynamics   *shaping.VoiceDynamics
	Humanizer  *shaping.Humanizer
	Library    *phrase.Library
	Vars       phrase.Vars
	Generate   filler.Generator
	Playback   filler.Playback
	Logger     *slog.Logger
	Observer   metrics.Observer
}

// Orchestrator runs each turn through a fixed ladder of layers. Earlier
// layers short-circuit later ones; reply generation and shaping only run
// when no resilience or policy layer has claimed the turn.
type Orchestrator struct {
	cfg  Config
	deps Deps

	mu          sync.Mutex
	state       dialog.State
	lastCheckIn time.Time
}

var errCallEnded = errors.New("call already ended")

func NewOrchestrator(cfg Config, deps Deps, now time.Time) *Orchestrator {
	if deps.Library == nil {
		deps.Library = phrase.NewLibrary()
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.NewEngine(intent.EngineConfig{})
	}
	if deps.Detector == nil {
		deps.Detector = scenario.NewDetector(scenario.Config{})
	}
	if deps.Monitor == nil {
		deps.Monitor = resilience.NewMonitor(resilience.Config{}, now)
	}
	if deps.EndCall == nil {
		deps.EndCall = endcall.NewProcessor(deps.Library, deps.Vars)
	}
	if deps.Empathy == nil {
		deps.Empathy = shaping.NewEmpathyShaper(deps.Library, deps.Vars)
	}
	if deps.Dynamics == nil {
		deps.Dynamics = shaping.NewVoiceDynamics(shaping.VoiceDynamicsConfig{})
	}
	if deps.Humanizer == nil {
		deps.Humanizer = shaping.NewHumanizer(shaping.HumanizerConfig{})
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Observer == nil {
		deps.Observer = metrics.NoopObserver{}
	}
	if deps.Filler == nil {
		deps.Filler = filler.NewManager(filler.Config{}, deps.Library, deps.Vars, deps.Logger, deps.Observer)
	}
	return &Orchestrator{
		cfg:   cfg.withDefaults(),
		deps:  deps,
		state: dialog.NewState(now),
	}
}

// State returns a copy of the dialog state.
func (o *Orchestrator) State() dialog.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Opening produces the greeting and purpose lines and moves the dialog
// into its active phase.
func (o *Orchestrator) Opening(now time.Time) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Phase != dialog.PhaseGreeting {
		return "", errorsx.Wrap(errors.New("opening already delivered"), errorsx.ReasonInvalidPhase)
	}
	greeting := o.deps.Library.MustPick(phrase.IDGreeting, o.deps.Vars)
	purpose := o.deps.Library.MustPick(phrase.IDPurpose, o.deps.Vars)

	st, err := dialog.Advance(o.state, dialog.PhasePurpose, now)
	if err != nil {
		return "", err
	}
	st, err = dialog.Advance(st, dialog.PhaseActive, now)
	if err != nil {
		return "", err
	}
	o.state = st
	return greeting + " " + purpose, nil
}

// AskQuestion registers a question the agent posed, so the end-of-call
// layer knows when everything it needed has been answered.
func (o *Orchestrator) AskQuestion(q string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = dialog.AskQuestion(o.state, q)
}

// AnswerQuestion marks a previously asked question as resolved.
func (o *Orchestrator) AnswerQuestion(q string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = dialog.AnswerQuestion(o.state, q)
}

// ProcessTurn runs the layer ladder for one utterance. The first layer
// that claims the turn wins; generation and shaping are the floor.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if dialog.Ended(o.state) {
		return TurnOutput{}, errorsx.Wrap(errCallEnded, errorsx.ReasonCallEnded)
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	o.deps.Observer.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventTurnStart,
		Time: now,
		Tags: map[string]string{"turn_id": in.TurnID},
	})

	o.state = dialog.Touch(o.state, now)
	o.deps.Monitor.ObserveTurn(resilience.TurnSignal{
		Transcript:  in.Utterance,
		Confidence:  in.Confidence,
		Inaudible:   in.Inaudible,
		Empty:       in.Empty,
		Noise:       in.Noise,
		TopicSwitch: in.TopicSwitch,
		Interrupted: in.Interrupted,
		Now:         now,
	})

	// An empty frame is silence, not something to clarify: the tier
	// check-ins get first claim on it.
	if in.Empty {
		if check, fired := o.deps.Monitor.SilenceCheckIn(now); fired {
			out := o.silenceOutput(check, now)
			o.finishTurn(in.TurnID, &out, now)
			return out, nil
		}
	}

	cls := o.deps.Classifier.Classify(in.Utterance, intent.Meta{
		Confidence: in.Confidence,
		Inaudible:  in.Inaudible,
		Empty:      in.Empty,
	})
	o.state = dialog.RecordIntent(o.state, string(cls.Primary))

	det := o.deps.Detector.Detect(o.mergedSignals(in))
	out := TurnOutput{Intent: cls, Scenario: det}

	if o.overrideTurn(&out, det, cls, now) {
		o.finishTurn(in.TurnID, &out, now)
		return out, nil
	}
	if o.resilienceTurn(&out, cls, now) {
		o.finishTurn(in.TurnID, &out, now)
		return out, nil
	}
	if o.endCallTurn(&out, in.Utterance, cls, now) {
		o.finishTurn(in.TurnID, &out, now)
		return out, nil
	}

	if err := o.generateTurn(ctx, &out, in, cls, det); err != nil {
		return out, err
	}
	o.finishTurn(in.TurnID, &out, now)
	return out, nil
}

func (o *Orchestrator) mergedSignals(in TurnInput) scenario.Signals {
	sig := in.Signals
	sig.Transcript = in.Utterance
	sig.STTConfidence = in.Confidence
	if in.Noise {
		sig.NoiseDetected = true
	}
	cs := o.deps.Monitor.State()
	if cs.LongResponses > sig.LongResponses {
		sig.LongResponses = cs.LongResponses
	}
	if cs.Interruptions > sig.Interruptions {
		sig.Interruptions = cs.Interruptions
	}
	if cs.TopicSwitches > sig.TopicSwitches {
		sig.TopicSwitches = cs.TopicSwitches
	}
	return sig
}

// overrideTurn handles scenarios that pre-empt everything else:
// compliance, emergencies, fraud concerns, and voicemail. Their scripted
// lines are spoken verbatim, never shaped.
func (o *Orchestrator) overrideTurn(out *TurnOutput, det scenario.Detected, cls intent.Classification, now time.Time) bool {
	unsubscribe := cls.CallFlow == intent.CallFlowUnsubscribe && cls.CallFlowConfidence >= 0.9

	if !det.RequiresImmediateAction && !unsubscribe {
		return false
	}

	switch {
	case det.Subtype == "do_not_call" || unsubscribe:
		out.Text = o.deps.Library.MustPick(phrase.IDComplianceDNC, o.deps.Vars)
		out.Source = SourceCompliance
		out.OutcomeHint = "do_not_call"
		out.EndCall = true
	case det.Subtype == "legal_threat":
		out.Text = o.deps.Library.MustPick(phrase.IDComplianceLegal, o.deps.Vars)
		out.Source = SourceCompliance
		out.EndCall = true
	case det.Subtype == "minor_on_line":
		out.Text = o.deps.Library.MustPick(phrase.IDComplianceMinor, o.deps.Vars)
		out.Source = SourceCompliance
		out.EndCall = true
	case det.Subtype == "emergency":
		out.Text = o.deps.Library.MustPick(phrase.IDComplianceEmergency, o.deps.Vars)
		out.Source = SourceSafety
		out.EndCall = true
	case det.Subtype == "fraud_concern":
		out.Text = o.deps.Library.MustPick(phrase.IDIdentityVerify, o.deps.Vars)
		out.Source = SourceSafety
	case det.Subtype == "voicemail":
		out.Text = o.deps.Library.MustPick(phrase.IDVoicemail, o.deps.Vars)
		out.Source = SourceSafety
		out.OutcomeHint = "voicemail"
		out.EndCall = true
	default:
		return false
	}

	if out.EndCall {
		o.endNow(now)
	}
	o.deps.Observer.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventScenarioChanged,
		Time: now,
		Tags: map[string]string{"category": string(det.Category), "subtype": det.Subtype},
	})
	return true
}

// resilienceTurn covers bad connections, talkative redirects, and
// clarification for utterances that could not be understood.
func (o *Orchestrator) resilienceTurn(out *TurnOutput, cls intent.Classification, now time.Time) bool {
	assess := o.deps.Monitor.DetectBadConnection()
	if o.deps.Monitor.ShouldEndCallDueToBadConnection() {
		out.Text = o.deps.Library.MustPick(phrase.IDConnectionEnding, o.deps.Vars)
		out.Source = SourceFallback
		out.OutcomeHint = "bad_connection"
		out.EndCall = true
		o.endNow(now)
		return true
	}
	if assess.UseFallback {
		o.state, _ = dialog.BumpFallback(o.state, "connection")
		out.Text = o.deps.Library.MustPick(phrase.IDConnectionTrouble, o.deps.Vars)
		out.Source = SourceFallback
		o.deps.Observer.RecordEvent(metrics.MetricsEvent{
			Name:  metrics.EventFallbackServed,
			Time:  now,
			Value: float64(assess.Score),
			Tags:  map[string]string{"severity": string(assess.Severity)},
		})
		return true
	}

	if o.deps.Monitor.IsTalkative() {
		o.deps.Monitor.MarkRedirected()
		out.Text = o.deps.Library.MustPick(phrase.IDRedirect, o.deps.Vars)
		out.Source = SourceRedirect
		return true
	}

	if cls.RequiresClarification {
		return o.clarify(out, now)
	}

	// A clear turn ends any clarification detour.
	if o.state.Phase == dialog.PhaseClarification {
		if st, err := dialog.Advance(o.state, dialog.PhaseActive, now); err == nil {
			o.state = st
		}
	}
	return false
}

func (o *Orchestrator) clarify(out *TurnOutput, now time.Time) bool {
	st := dialog.WithFallbackMax(o.state, "clarification", o.cfg.ClarificationMax)
	st, within := dialog.BumpFallback(st, "clarification")
	o.state = st

	if !within {
		o.state = dialog.MarkHumanCallback(o.state)
		out.Text = o.deps.Library.MustPick(phrase.IDHumanCallback, o.deps.Vars)
		out.Source = SourceEscalation
		out.NeedsHumanCallback = true
		out.OutcomeHint = "needs_callback"
		return true
	}

	if o.state.Phase == dialog.PhaseActive {
		if st, err := dialog.Advance(o.state, dialog.PhaseClarification, now); err == nil {
			o.state = st
		}
	}
	id := phrase.IDClarifyRepeat
	if o.state.FallbackAttempts["clarification"] > 1 {
		id = phrase.IDClarifyRephrase
	}
	out.Text = o.deps.Library.MustPick(id, o.deps.Vars)
	out.Source = SourceClarification
	return true
}

func (o *Orchestrator) endCallTurn(out *TurnOutput, utterance string, cls intent.Classification, now time.Time) bool {
	res := o.deps.EndCall.Evaluate(utterance, o.state, endcall.Options{
		Emotion:           cls.Emotion,
		ConnectionTrouble: o.deps.Monitor.State().ConnectionTrouble,
		LastCheckIn:       o.lastCheckIn,
		Now:               now,
	})
	declined := strings.Contains(strings.ToLower(utterance), "not interested")
	switch res.Decision {
	case endcall.DecisionCheckIn:
		o.lastCheckIn = now
		out.Text = res.Message
		out.Source = SourceCheckIn
		return true
	case endcall.DecisionClose:
		if declined {
			out.OutcomeHint = "not_interested"
		}
		o.state = dialog.MarkExitIntent(o.state)
		if st, err := dialog.Advance(o.state, dialog.PhaseClosing, now); err == nil {
			o.state = st
		}
		out.Text = res.Message
		out.Source = SourceClosing
		return true
	case endcall.DecisionEnd:
		if declined {
			out.OutcomeHint = "not_interested"
		}
		out.EndCall = true
		out.Source = SourceClosing
		o.endNow(now)
		return true
	}
	return false
}

// generateTurn is the floor of the ladder: race the generator against
// filler speech, then shape the reply for tone, pacing, and delivery.
func (o *Orchestrator) generateTurn(ctx context.Context, out *TurnOutput, in TurnInput, cls intent.Classification, det scenario.Detected) error {
	res, err := o.deps.Filler.Run(ctx, in.TurnID, in.Utterance, o.deps.Generate, o.deps.Playback)
	out.FillerUsed = res.FillerUsed
	out.FillerText = res.FillerText
	out.Elapsed = res.Elapsed
	if err != nil {
		if errorsx.HasReason(err, errorsx.ReasonKnowledgeGap) {
			out.Text = o.deps.Library.MustPick(phrase.IDKnowledgeDeferral, o.deps.Vars)
			out.Source = SourceDeferral
			return nil
		}
		// The caller still hears something even when generation dies.
		o.deps.Logger.Error("reply generation failed", "turn_id", in.TurnID, "error", err)
		out.Text = o.deps.Library.MustPick(phrase.IDSafetyNet, o.deps.Vars)
		out.Source = SourceFallback
		return nil
	}

	sctx := shaping.Context{
		Emotion:      cls.Emotion,
		Rushed:       cls.Urgency == intent.UrgencyHigh,
		Confused:     cls.Emotion == intent.EmotionConfused,
		NeedsEmpathy: det.Category == scenario.CategoryEmotional && !o.state.EmpathyProvided,
		LeadGiven:    o.state.EmpathyProvided,
		Closing:      o.state.Phase == dialog.PhaseClosing,
	}
	text := o.deps.Empathy.Shape(res.Reply, sctx)
	if !o.state.EmpathyProvided && shaping.HasEmpathyMarker(text) && !shaping.HasEmpathyMarker(res.Reply) {
		o.state = dialog.MarkEmpathy(o.state)
	}
	text = o.deps.Dynamics.Transform(text, sctx)
	text = o.deps.Humanizer.Transform(text, sctx)
	if sctx.Rushed {
		text = shaping.TruncateForRush(text, o.cfg.RushedMaxChars)
	}
	out.Text = text
	out.Source = SourceGenerated
	return nil
}

func (o *Orchestrator) finishTurn(turnID string, out *TurnOutput, now time.Time) {
	o.deps.Observer.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventTurnDone,
		Time: now,
		Tags: map[string]string{"turn_id": turnID, "source": out.Source},
	})
}

// endNow drives the dialog to its terminal phase, passing through
// closing so the attempted-close invariant always holds.
func (o *Orchestrator) endNow(now time.Time) {
	if o.state.Phase != dialog.PhaseClosing && o.state.Phase != dialog.PhaseEnded {
		if st, err := dialog.Advance(o.state, dialog.PhaseClosing, now); err == nil {
			o.state = st
		}
	}
	if st, err := dialog.Advance(o.state, dialog.PhaseEnded, now); err == nil {
		o.state = st
	}
}

// SilenceTick evaluates the silence tiers at the given instant. The
// returned output is only meaningful when claimed is true.
func (o *Orchestrator) SilenceTick(now time.Time) (TurnOutput, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if dialog.Ended(o.state) {
		return TurnOutput{}, false
	}
	check, fired := o.deps.Monitor.SilenceCheckIn(now)
	if !fired {
		return TurnOutput{}, false
	}
	return o.silenceOutput(check, now), true
}

// silenceOutput maps a fired silence tier to its spoken check-in. The
// final tier also terminates the call.
func (o *Orchestrator) silenceOutput(check resilience.CheckIn, now time.Time) TurnOutput {
	var out TurnOutput
	out.Source = SourceSilence
	switch check.Tier {
	case resilience.SilenceShort:
		out.Text = o.deps.Library.MustPick(phrase.IDSilenceShort, o.deps.Vars)
	case resilience.SilenceMedium:
		out.Text = o.deps.Library.MustPick(phrase.IDSilenceMedium, o.deps.Vars)
	case resilience.SilenceLong:
		out.Text = o.deps.Library.MustPick(phrase.IDSilenceLong, o.deps.Vars)
		out.EndCall = true
		out.OutcomeHint = "no_response"
		o.endNow(now)
	}
	o.deps.Observer.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventSilenceCheckIn,
		Time:  now,
		Value: float64(check.Tier),
	})
	return out
}

// Interrupt handles caller barge-in: any filler playing stops, the turn
// in flight keeps going.
func (o *Orchestrator) Interrupt() {
	o.deps.Filler.Interrupt()
	o.deps.Observer.RecordEvent(metrics.MetricsEvent{Name: metrics.EventInterrupt, Time: time.Now()})
}
