// Package redact masks caller PII in text destined for logs and call
// artifacts. Masking is a process-wide switch so every sink honors the
// same privacy setting.
package redact

import (
	"regexp"
	"sync/atomic"
)

var active atomic.Bool

type rule struct {
	pattern *regexp.Regexp
	mask    string
}

var rules = []rule{
	{regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`), "[REDACTED_PHONE]"},
}

// SetEnabled toggles PII masking process-wide.
func SetEnabled(v bool) {
	active.Store(v)
}

// Enabled reports whether masking is active.
func Enabled() bool {
	return active.Load()
}

// Text masks emails and phone numbers when masking is enabled.
func Text(in string) string {
	if !active.Load() || in == "" {
		return in
	}
	for _, r := range rules {
		in = r.pattern.ReplaceAllString(in, r.mask)
	}
	return in
}

// Fields returns a copy of fields with every string value masked.
// The input map is returned untouched when masking is disabled.
func Fields(fields map[string]any) map[string]any {
	if !active.Load() || len(fields) == 0 {
		return fields
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			out[k] = Text(s)
			continue
		}
		out[k] = v
	}
	return out
}
