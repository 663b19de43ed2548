package metrics

import "time"

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// Well-known event names emitted by the call pipeline.
const (
	EventCallStart       = "call_start"
	EventCallEnd         = "call_end"
	EventTurnStart       = "turn_start"
	EventTurnDone        = "turn_done"
	EventGeneratorDone   = "generator_done"
	EventFillerStart     = "filler_start"
	EventFillerCancel    = "filler_cancel"
	EventFallbackServed  = "fallback_served"
	EventSilenceCheckIn  = "silence_check_in"
	EventScenarioChanged = "scenario"
	EventInterrupt       = "interrupt"
)

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
