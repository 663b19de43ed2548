package call

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alohavoice/aloha/pkg/audio"
	"github.com/alohavoice/aloha/pkg/errorsx"
	"github.com/alohavoice/aloha/pkg/filler"
	"github.com/alohavoice/aloha/pkg/intent"
	"github.com/alohavoice/aloha/pkg/layers"
	"github.com/alohavoice/aloha/pkg/metrics"
	"github.com/alohavoice/aloha/pkg/phrase"
	"github.com/alohavoice/aloha/pkg/redact"
	"github.com/alohavoice/aloha/pkg/resilience"
	"github.com/alohavoice/aloha/pkg/scenario"
	"github.com/alohavoice/aloha/pkg/shaping"
)

// Deps are the outward-facing collaborators of the handler. Generate is
// the reply brain; Speech may be nil when no audio is wanted.
type Deps struct {
	Profiles  ProfileStore
	Directory BusinessDirectory
	Speech    Speech
	Outcomes  OutcomeRecorder
	Generate  filler.Generator
	Playback  filler.Playback
	Library   *phrase.Library
	Logger    *slog.Logger
	Observer  metrics.Observer
}

// Config identifies the business placing calls and tunes the pipeline.
type Config struct {
	BusinessID   string
	Orchestrator layers.Config
	Intent       intent.EngineConfig
	Detector     scenario.Config
	Monitor      resilience.Config
	Filler       filler.Config
	// VoiceIntensity tiers micro-pause insertion in shaped replies.
	// Empty falls back to moderate.
	VoiceIntensity shaping.Intensity
	// AudioBuffer is the chunk capacity of synthesized reply streams.
	AudioBuffer int
	SampleRate  int
	Channels    int
}

func (c Config) withDefaults() Config {
	if c.AudioBuffer <= 0 {
		c.AudioBuffer = 32
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 8000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	return c
}

// TurnRecord is one exchange kept for the call summary.
type TurnRecord struct {
	TurnID    string
	Utterance string
	Reply     string
	Source    string
	At        time.Time
}

// Summary is the handler's account of a finished call.
type Summary struct {
	CallID             string
	CallerPhone        string
	CallerName         string
	StartedAt          time.Time
	EndedAt            time.Time
	Turns              []TurnRecord
	Outcome            string
	NeedsHumanCallback bool
}

// TurnInput is the transport-level view of one caller utterance.
type TurnInput struct {
	Utterance   string
	Confidence  float64
	Inaudible   bool
	Empty       bool
	Noise       bool
	Interrupted bool
	Signals     scenario.Signals
	Now         time.Time
}

// TurnResult is what the transport speaks and acts on.
type TurnResult struct {
	TurnID     string
	Text       string
	Source     string
	Audio      *audio.Stream
	EndCall    bool
	Intent     intent.Classification
	FillerUsed bool
	FillerText string
	Elapsed    time.Duration
}

type session struct {
	id        string
	caller    Profile
	business  Business
	orch      *layers.Orchestrator
	startedAt time.Time

	mu          sync.Mutex
	turns       []TurnRecord
	outcomeHint string
	callback    bool
	flows       map[intent.CallFlow]bool
	audioOut    *audio.Stream
}

// Handler is the boundary between telephony transport and the
// conversation pipeline. It owns session lifecycle, per-call profile
// resolution, synthesis, and outcome recording.
type Handler struct {
	cfg  Config
	deps Deps

	mu       sync.Mutex
	sessions map[string]*session
}

func NewHandler(cfg Config, deps Deps) *Handler {
	if deps.Library == nil {
		deps.Library = phrase.NewLibrary()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Observer == nil {
		deps.Observer = metrics.NoopObserver{}
	}
	return &Handler{
		cfg:      cfg.withDefaults(),
		deps:     deps,
		sessions: make(map[string]*session),
	}
}

// CallInfo is returned when a call is opened.
type CallInfo struct {
	CallID  string
	Caller  Profile
	Opening string
	Audio   *audio.Stream
}

var errUnknownCall = errors.New("unknown call id")

// BeginCall opens a session for the given callee, resolves profile and
// business context once, and produces the opening lines.
func (h *Handler) BeginCall(ctx context.Context, callerPhone string) (CallInfo, error) {
	now := time.Now()
	callID := uuid.NewString()

	profile, err := h.lookupProfile(ctx, callerPhone)
	if err != nil {
		return CallInfo{}, err
	}
	business := Business{ID: h.cfg.BusinessID, AgentName: "Aloha"}
	if h.deps.Directory != nil {
		business, err = h.deps.Directory.Context(ctx, h.cfg.BusinessID)
		if err != nil {
			return CallInfo{}, errorsx.Wrap(err, errorsx.ReasonProfileLookup)
		}
	}

	vars := phrase.Vars{
		"caller_name":    profile.Name,
		"agent_name":     business.AgentName,
		"business_name":  business.Name,
		"business_phone": business.Phone,
	}
	callLogger := h.deps.Logger.With("call_id", callID)
	orch := layers.NewOrchestrator(h.cfg.Orchestrator, layers.Deps{
		Classifier: intent.NewEngine(h.cfg.Intent),
		Detector:   scenario.NewDetector(h.cfg.Detector),
		Monitor:    resilience.NewMonitor(h.cfg.Monitor, now),
		Filler:     filler.NewManager(h.cfg.Filler, h.deps.Library, vars, callLogger, h.deps.Observer),
		Dynamics:   shaping.NewVoiceDynamics(shaping.VoiceDynamicsConfig{Intensity: h.cfg.VoiceIntensity}),
		Library:    h.deps.Library,
		Vars:       vars,
		Generate:   h.deps.Generate,
		Playback:   h.playback(),
		Logger:     callLogger,
		Observer:   h.deps.Observer,
	}, now)

	opening, err := orch.Opening(now)
	if err != nil {
		return CallInfo{}, err
	}

	s := &session{
		id:        callID,
		caller:    profile,
		business:  business,
		orch:      orch,
		startedAt: now,
		flows:     make(map[intent.CallFlow]bool),
	}
	h.mu.Lock()
	h.sessions[callID] = s
	h.mu.Unlock()

	h.deps.Observer.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventCallStart,
		Time: now,
		Tags: map[string]string{"call_id": callID},
	})
	h.deps.Logger.Info("call started", "call_id", callID, "caller", profile.Name)

	return CallInfo{
		CallID:  callID,
		Caller:  profile,
		Opening: opening,
		Audio:   h.synthesize(ctx, s, opening),
	}, nil
}

func (h *Handler) lookupProfile(ctx context.Context, phone string) (Profile, error) {
	if h.deps.Profiles == nil {
		return Profile{Phone: phone, Name: "there"}, nil
	}
	profile, err := h.deps.Profiles.Lookup(ctx, phone)
	if err != nil {
		// A missing profile downgrades to a nameless greeting rather
		// than blocking the call.
		h.deps.Logger.Warn("profile lookup failed", "phone", redact.Text(phone), "error", err)
		return Profile{Phone: phone, Name: "there"}, nil
	}
	if profile.Name == "" {
		profile.Name = "there"
	}
	profile.Phone = phone
	return profile, nil
}

// HandleTurn feeds one utterance through the pipeline and synthesizes
// the reply.
func (h *Handler) HandleTurn(ctx context.Context, callID string, in TurnInput) (TurnResult, error) {
	s, err := h.session(callID)
	if err != nil {
		return TurnResult{}, err
	}

	turnID := uuid.NewString()
	out, err := s.orch.ProcessTurn(ctx, layers.TurnInput{
		TurnID:      turnID,
		Utterance:   in.Utterance,
		Confidence:  in.Confidence,
		Inaudible:   in.Inaudible,
		Empty:       in.Empty,
		Noise:       in.Noise,
		Interrupted: in.Interrupted,
		Signals:     in.Signals,
		Now:         in.Now,
	})
	if err != nil {
		return TurnResult{}, err
	}

	s.record(TurnRecord{
		TurnID:    turnID,
		Utterance: in.Utterance,
		Reply:     out.Text,
		Source:    out.Source,
		At:        in.Now,
	}, out)

	return TurnResult{
		TurnID:     turnID,
		Text:       out.Text,
		Source:     out.Source,
		Audio:      h.synthesize(ctx, s, out.Text),
		EndCall:    out.EndCall,
		Intent:     out.Intent,
		FillerUsed: out.FillerUsed,
		FillerText: out.FillerText,
		Elapsed:    out.Elapsed,
	}, nil
}

// SilenceTick lets the transport drive silence detection off its own
// clock. The result is only meaningful when the second return is true.
func (h *Handler) SilenceTick(ctx context.Context, callID string, now time.Time) (TurnResult, bool, error) {
	s, err := h.session(callID)
	if err != nil {
		return TurnResult{}, false, err
	}
	out, fired := s.orch.SilenceTick(now)
	if !fired {
		return TurnResult{}, false, nil
	}
	s.record(TurnRecord{TurnID: uuid.NewString(), Reply: out.Text, Source: out.Source, At: now}, out)
	return TurnResult{
		Text:    out.Text,
		Source:  out.Source,
		Audio:   h.synthesize(ctx, s, out.Text),
		EndCall: out.EndCall,
	}, true, nil
}

// Interrupt reports caller barge-in: filler stops and any reply audio
// still streaming is cancelled.
func (h *Handler) Interrupt(callID string) error {
	s, err := h.session(callID)
	if err != nil {
		return err
	}
	s.orch.Interrupt()
	s.mu.Lock()
	if s.audioOut != nil {
		s.audioOut.Cancel()
		s.audioOut = nil
	}
	s.mu.Unlock()
	return nil
}

// AskQuestion and AnswerQuestion expose the dialog's question ledger to
// whoever scripts the call's goals.
func (h *Handler) AskQuestion(callID, question string) error {
	s, err := h.session(callID)
	if err != nil {
		return err
	}
	s.orch.AskQuestion(question)
	return nil
}

func (h *Handler) AnswerQuestion(callID, question string) error {
	s, err := h.session(callID)
	if err != nil {
		return err
	}
	s.orch.AnswerQuestion(question)
	return nil
}

// EndCall tears the session down, classifies its outcome, and records
// it. The summary is returned even when recording fails.
func (h *Handler) EndCall(ctx context.Context, callID string) (Summary, error) {
	h.mu.Lock()
	s, ok := h.sessions[callID]
	delete(h.sessions, callID)
	h.mu.Unlock()
	if !ok {
		return Summary{}, errorsx.Wrap(errUnknownCall, errorsx.ReasonCallEnded)
	}

	now := time.Now()
	s.mu.Lock()
	summary := Summary{
		CallID:             s.id,
		CallerPhone:        s.caller.Phone,
		CallerName:         s.caller.Name,
		StartedAt:          s.startedAt,
		EndedAt:            now,
		Turns:              s.turns,
		Outcome:            classifyOutcome(s.outcomeHint, s.flows),
		NeedsHumanCallback: s.callback,
	}
	s.mu.Unlock()

	h.deps.Observer.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventCallEnd,
		Time:  now,
		Value: now.Sub(s.startedAt).Seconds(),
		Tags:  map[string]string{"call_id": s.id, "outcome": summary.Outcome},
	})
	h.deps.Logger.Info("call ended",
		"call_id", s.id,
		"outcome", summary.Outcome,
		"turns", len(summary.Turns),
		"needs_callback", summary.NeedsHumanCallback,
	)

	if h.deps.Outcomes != nil {
		err := h.deps.Outcomes.Record(ctx, Outcome{
			CallID:   s.id,
			Kind:     summary.Outcome,
			Callback: summary.NeedsHumanCallback,
			Time:     now,
		})
		if err != nil {
			return summary, errorsx.Wrap(err, errorsx.ReasonOutcomeRecord)
		}
	}
	return summary, nil
}

func (h *Handler) session(callID string) (*session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[callID]
	if !ok {
		return nil, errorsx.Wrap(errUnknownCall, errorsx.ReasonCallEnded)
	}
	return s, nil
}

func (h *Handler) playback() filler.Playback {
	if h.deps.Playback != nil {
		return h.deps.Playback
	}
	return noopPlayback{}
}

// synthesize streams reply audio for a session, replacing any stream
// still in flight. Returns nil when no synthesizer is configured.
func (h *Handler) synthesize(ctx context.Context, s *session, text string) *audio.Stream {
	if h.deps.Speech == nil || text == "" {
		return nil
	}
	stream := audio.NewStream(h.cfg.AudioBuffer, h.cfg.SampleRate, h.cfg.Channels)

	s.mu.Lock()
	if s.audioOut != nil {
		s.audioOut.Cancel()
	}
	s.audioOut = stream
	s.mu.Unlock()

	go func() {
		if err := h.deps.Speech.SynthesizeStreaming(ctx, text, s.caller.Voice, stream); err != nil {
			h.deps.Logger.Error("synthesis failed", "call_id", s.id, "error", err)
		}
	}()
	return stream
}

func (s *session) record(rec TurnRecord, out layers.TurnOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, rec)
	if out.OutcomeHint != "" {
		s.outcomeHint = out.OutcomeHint
	}
	if out.NeedsHumanCallback {
		s.callback = true
	}
	if out.Intent.CallFlow != intent.CallFlowNone && out.Intent.CallFlowConfidence >= 0.75 {
		s.flows[out.Intent.CallFlow] = true
	}
}

// classifyOutcome folds the strongest signal seen during the call into a
// single disposition. Compliance and resilience hints outrank call-flow
// wishes; the quiet default is a completed call.
func classifyOutcome(hint string, flows map[intent.CallFlow]bool) string {
	switch hint {
	case "do_not_call":
		return OutcomeDoNotCall
	case "needs_callback":
		return OutcomeNeedsCallback
	case "voicemail":
		return OutcomeVoicemail
	case "no_response":
		return OutcomeNoResponse
	case "bad_connection":
		return OutcomeBadConnection
	case "not_interested":
		return OutcomeNotInterested
	}
	switch {
	case flows[intent.CallFlowUnsubscribe]:
		return OutcomeDoNotCall
	case flows[intent.CallFlowReschedule], flows[intent.CallFlowCallback], flows[intent.CallFlowAppointment]:
		return OutcomeRescheduled
	case flows[intent.CallFlowEmail]:
		return OutcomeAskedForEmail
	case flows[intent.CallFlowInformation]:
		return OutcomeFeedbackCollected
	}
	return OutcomeCompleted
}

type noopPlayback struct{}

func (noopPlayback) Play(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}
func (noopPlayback) Stop() {}
