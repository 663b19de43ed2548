package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alohavoice/aloha/pkg/metrics"
)

// TurnLatencyObserver correlates turn_start / generator_done / filler events
// per turn and logs one latency line when the turn completes.
type TurnLatencyObserver struct {
	mu     sync.Mutex
	traces map[string]*turnTrace
	log    *slog.Logger
}

type turnTrace struct {
	callID      string
	started     time.Time
	genDone     time.Time
	fillerStart time.Time
	fillerEnd   time.Time
}

func NewTurnLatencyObserver(log *slog.Logger) *TurnLatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &TurnLatencyObserver{
		traces: make(map[string]*turnTrace),
		log:    log,
	}
}

func (o *TurnLatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	turnID := ""
	if ev.Tags != nil {
		turnID = ev.Tags["turn_id"]
	}
	if turnID == "" {
		return
	}
	o.mu.Lock()
	t := o.traces[turnID]
	if t == nil {
		t = &turnTrace{}
		o.traces[turnID] = t
	}
	if t.callID == "" && ev.Tags != nil {
		t.callID = ev.Tags["call_id"]
	}
	switch ev.Name {
	case metrics.EventTurnStart:
		if t.started.IsZero() {
			t.started = ev.Time
		}
	case metrics.EventGeneratorDone:
		if t.genDone.IsZero() {
			t.genDone = ev.Time
		}
	case metrics.EventFillerStart:
		if t.fillerStart.IsZero() {
			t.fillerStart = ev.Time
		}
	case metrics.EventFillerCancel:
		t.fillerEnd = ev.Time
	case metrics.EventTurnDone:
		o.logTurnLocked(turnID, t, ev.Time)
		delete(o.traces, turnID)
	}
	o.mu.Unlock()
}

func (o *TurnLatencyObserver) logTurnLocked(turnID string, t *turnTrace, done time.Time) {
	o.log.Info("turn_latency",
		"call_id", t.callID,
		"turn_id", turnID,
		"generator_ms", durationMs(t.started, t.genDone),
		"filler_lead_ms", durationMs(t.started, t.fillerStart),
		"filler_active_ms", durationMs(t.fillerStart, t.fillerEnd),
		"turn_ms", durationMs(t.started, done),
	)
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}

var _ metrics.Observer = (*TurnLatencyObserver)(nil)
