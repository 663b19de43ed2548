package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/alohavoice/aloha/pkg/call"
)

var ErrNotFound = errors.New("not found")

// Profiles is a fixed in-memory profile store keyed by phone number.
type Profiles struct {
	byPhone map[string]call.Profile
}

func NewProfiles(profiles ...call.Profile) *Profiles {
	m := make(map[string]call.Profile, len(profiles))
	for _, p := range profiles {
		m[p.Phone] = p
	}
	return &Profiles{byPhone: m}
}

func (s *Profiles) Lookup(_ context.Context, phone string) (call.Profile, error) {
	p, ok := s.byPhone[phone]
	if !ok {
		return call.Profile{}, ErrNotFound
	}
	return p, nil
}

// Directory serves one static business context.
type Directory struct {
	business call.Business
}

func NewDirectory(b call.Business) *Directory {
	if b.AgentName == "" {
		b.AgentName = "Aloha"
	}
	return &Directory{business: b}
}

func (d *Directory) Context(_ context.Context, businessID string) (call.Business, error) {
	if businessID != "" && d.business.ID != "" && businessID != d.business.ID {
		return call.Business{}, ErrNotFound
	}
	return d.business, nil
}

// Outcomes collects recorded dispositions in memory.
type Outcomes struct {
	mu       sync.Mutex
	recorded []call.Outcome
	err      error
}

func NewOutcomes() *Outcomes { return &Outcomes{} }

// FailWith makes every Record call return err.
func (o *Outcomes) FailWith(err error) {
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
}

func (o *Outcomes) Record(_ context.Context, out call.Outcome) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.recorded = append(o.recorded, out)
	return nil
}

func (o *Outcomes) Recorded() []call.Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]call.Outcome, len(o.recorded))
	copy(out, o.recorded)
	return out
}

var (
	_ call.ProfileStore      = (*Profiles)(nil)
	_ call.BusinessDirectory = (*Directory)(nil)
	_ call.OutcomeRecorder   = (*Outcomes)(nil)
)
