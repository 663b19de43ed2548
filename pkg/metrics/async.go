package metrics

import (
	"sync"
	"sync/atomic"
)

// AsyncObserver decouples event producers from a possibly slow sink.
// Events are handed off through a bounded channel; when the channel is
// full the event is dropped rather than blocking the call path.
type AsyncObserver struct {
	sink    Observer
	events  chan MetricsEvent
	done    chan struct{}
	dropped atomic.Int64
	closing atomic.Bool
	once    sync.Once
}

func NewAsyncObserver(sink Observer, buffer int) *AsyncObserver {
	if buffer <= 0 {
		buffer = 256
	}
	a := &AsyncObserver{
		sink:   sink,
		events: make(chan MetricsEvent, buffer),
		done:   make(chan struct{}),
	}
	go a.drain()
	return a
}

func (a *AsyncObserver) RecordEvent(ev MetricsEvent) {
	if a == nil || a.closing.Load() {
		return
	}
	select {
	case a.events <- ev:
	default:
		a.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (a *AsyncObserver) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits for the sink to drain.
func (a *AsyncObserver) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.closing.Store(true)
		close(a.events)
		<-a.done
	})
}

func (a *AsyncObserver) drain() {
	defer close(a.done)
	for ev := range a.events {
		a.sink.RecordEvent(ev)
	}
	if f, ok := a.sink.(Flusher); ok {
		_ = f.Flush()
	}
}
