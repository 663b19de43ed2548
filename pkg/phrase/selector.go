package phrase

import (
	"math/rand"
	"sync"
	"time"
)

// Selector picks one candidate among n. The default implementation is
// pseudo-random so phrasing varies across calls; tests swap in Sequential
// to make scenario-to-phrase mapping verifiable.
type Selector interface {
	Pick(n int) int
}

type randSelector struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandSelector returns the default pseudo-random selector.
func NewRandSelector(seed int64) Selector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &randSelector{r: rand.New(rand.NewSource(seed))}
}

func (s *randSelector) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Sequential cycles through candidates in order. Deterministic, for tests.
type Sequential struct {
	mu   sync.Mutex
	next int
}

func (s *Sequential) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.next % n
	s.next++
	return i
}

// First always picks the first candidate.
type First struct{}

func (First) Pick(int) int { return 0 }
