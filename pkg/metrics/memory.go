package metrics

import "sync"

// MemoryObserver buffers events in memory. Intended for tests and
// short-lived diagnostics, not production calls.
type MemoryObserver struct {
	mu     sync.Mutex
	events []MetricsEvent
}

func NewMemoryObserver() *MemoryObserver {
	return &MemoryObserver{}
}

func (m *MemoryObserver) RecordEvent(ev MetricsEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Snapshot returns a copy of the recorded events.
func (m *MemoryObserver) Snapshot() []MetricsEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MetricsEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Names returns the event names in record order.
func (m *MemoryObserver) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.events))
	for i, ev := range m.events {
		names[i] = ev.Name
	}
	return names
}

// CountOf returns how many recorded events carry the given name.
func (m *MemoryObserver) CountOf(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, ev := range m.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func (m *MemoryObserver) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
