package metrics

import "sync"

// SamplingObserver forwards a fraction of events to its sink. The
// fraction is honored deterministically with an error accumulator, so
// a rate of 0.25 forwards exactly every fourth event.
type SamplingObserver struct {
	sink Observer
	rate float64

	mu     sync.Mutex
	credit float64
}

func NewSamplingObserver(sink Observer, rate float64) *SamplingObserver {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &SamplingObserver{sink: sink, rate: rate}
}

func (s *SamplingObserver) RecordEvent(ev MetricsEvent) {
	if s.rate == 0 {
		return
	}
	if s.rate == 1 {
		s.sink.RecordEvent(ev)
		return
	}
	s.mu.Lock()
	s.credit += s.rate
	keep := s.credit >= 1
	if keep {
		s.credit -= 1
	}
	s.mu.Unlock()
	if keep {
		s.sink.RecordEvent(ev)
	}
}
