package phrase

import (
	"strings"
	"testing"
)

func TestPickSubstitutesPlaceholders(t *testing.T) {
	lib := NewLibrary(WithSelector(First{}))
	vars := Vars{"agent_name": "Aloha", "business_name": "Sunrise Dental"}
	got, err := lib.Pick(IDGreeting, vars)
	if err != nil {
		t.Fatalf("pick error: %v", err)
	}
	if !strings.Contains(got, "Aloha") || !strings.Contains(got, "Sunrise Dental") {
		t.Fatalf("expected substituted names, got %q", got)
	}
	if strings.Contains(got, "{") {
		t.Fatalf("expected no unresolved placeholders, got %q", got)
	}
}

func TestPickUnknownIDErrors(t *testing.T) {
	lib := NewLibrary()
	if _, err := lib.Pick("nope", nil); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestMustPickNeverEmpty(t *testing.T) {
	lib := NewLibrary()
	if got := lib.MustPick("nope", nil); strings.TrimSpace(got) == "" {
		t.Fatalf("MustPick must return a scripted phrase, got empty")
	}
}

func TestSequentialSelectorCycles(t *testing.T) {
	lib := NewLibrary(WithSelector(&Sequential{}))
	first, _ := lib.Pick(IDFiller, nil)
	second, _ := lib.Pick(IDFiller, nil)
	if first == second {
		t.Fatalf("sequential selector should advance, got %q twice", first)
	}
}

func TestWithEntriesOverridesDefaults(t *testing.T) {
	lib := NewLibrary(
		WithSelector(First{}),
		WithEntries(Entry{ID: IDRedirect, Texts: []string{"custom redirect"}}),
	)
	got, err := lib.Pick(IDRedirect, nil)
	if err != nil {
		t.Fatalf("pick error: %v", err)
	}
	if got != "custom redirect" {
		t.Fatalf("expected override, got %q", got)
	}
}

func TestSubstituteLeavesUnknownPlaceholders(t *testing.T) {
	got := Substitute("hello {who} from {business_name}", Vars{"business_name": "Acme"})
	if got != "hello {who} from Acme" {
		t.Fatalf("unexpected substitution: %q", got)
	}
}
