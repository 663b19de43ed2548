package shaping

import (
	"math/rand"
	"sync"
	"time"
)

// Chance is the injectable randomness source behind every probabilistic
// transformation, so tests can pin deterministic output.
type Chance interface {
	// Roll reports true with probability p in [0,1].
	Roll(p float64) bool
	// Index picks a value in [0,n).
	Index(n int) int
}

type randChance struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewChance returns the default pseudo-random source. Seed zero means
// time-based.
func NewChance(seed int64) Chance {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &randChance{r: rand.New(rand.NewSource(seed))}
}

func (c *randChance) Roll(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r.Float64() < p
}

func (c *randChance) Index(n int) int {
	if n <= 1 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r.Intn(n)
}

// Always fires every roll; for tests.
type Always struct{}

func (Always) Roll(float64) bool { return true }
func (Always) Index(int) int     { return 0 }

// Never suppresses every roll; for tests.
type Never struct{}

func (Never) Roll(float64) bool { return false }
func (Never) Index(int) int     { return 0 }
