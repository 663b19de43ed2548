package phrase

import (
	"fmt"
	"strings"

	"github.com/alohavoice/aloha/pkg/errorsx"
)

// Vars holds placeholder values substituted into phrase texts. Keys match
// the bare placeholder names used in templates, e.g. {agent_name}.
type Vars map[string]string

// Entry is one immutable catalog entry: a snippet or fallback phrase with
// one or more candidate texts.
type Entry struct {
	ID    string
	Texts []string
}

// Library is an immutable phrase catalog with an injected selection
// strategy. One Library is shared across calls; it holds no per-call state.
type Library struct {
	entries  map[string]Entry
	selector Selector
}

// Option customizes library construction.
type Option func(*Library)

// WithSelector overrides the default pseudo-random selector.
func WithSelector(s Selector) Option {
	return func(l *Library) {
		if s != nil {
			l.selector = s
		}
	}
}

// WithEntries merges extra entries over the defaults. An entry with an
// existing ID replaces the default texts for that ID.
func WithEntries(entries ...Entry) Option {
	return func(l *Library) {
		for _, e := range entries {
			if e.ID == "" || len(e.Texts) == 0 {
				continue
			}
			l.entries[e.ID] = e
		}
	}
}

// NewLibrary builds a library seeded with the built-in catalogs.
func NewLibrary(opts ...Option) *Library {
	l := &Library{
		entries:  defaultEntries(),
		selector: NewRandSelector(0),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Pick selects a candidate text for id and substitutes vars into it.
func (l *Library) Pick(id string, vars Vars) (string, error) {
	e, ok := l.entries[id]
	if !ok || len(e.Texts) == 0 {
		return "", errorsx.Wrap(fmt.Errorf("phrase %q not found", id), errorsx.ReasonPhraseMissing)
	}
	text := e.Texts[l.selector.Pick(len(e.Texts))]
	return Substitute(text, vars), nil
}

// MustPick is Pick with a scripted-safe fallback: on a missing id it returns
// the generic safety phrase rather than an empty string, so a recognized
// error path never says nothing.
func (l *Library) MustPick(id string, vars Vars) string {
	text, err := l.Pick(id, vars)
	if err == nil {
		return text
	}
	safe, serr := l.Pick(IDSafetyNet, vars)
	if serr != nil {
		return "I'm sorry, could you give me just a moment?"
	}
	return safe
}

// Has reports whether the catalog contains id.
func (l *Library) Has(id string) bool {
	_, ok := l.entries[id]
	return ok
}

// Candidates returns the raw candidate texts for id, unsubstituted.
func (l *Library) Candidates(id string) []string {
	e, ok := l.entries[id]
	if !ok {
		return nil
	}
	return append([]string(nil), e.Texts...)
}

// Substitute replaces {name} placeholders with values from vars, leaving
// unknown placeholders intact.
func Substitute(text string, vars Vars) string {
	if len(vars) == 0 || !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
