// Package logging configures structured logging for the gateway. Every log
// line passes through a redactor so bot tokens and webhook secrets never
// reach the output, regardless of which package emitted the record.
package logging

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// botTokenPattern matches the Telegram bot token format: a numeric bot id,
// a colon, then the secret part.
var botTokenPattern = regexp.MustCompile(`\b\d{6,12}:[A-Za-z0-9_-]{30,}`)

// Redactor replaces secret values in strings with a placeholder. Pattern
// matching catches tokens in URLs and error messages; literal matching
// covers webhook secrets and other values loaded at runtime that have no
// recognizable shape. Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with the bot token pattern.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{botTokenPattern},
	}
}

// AddLiteral registers a literal secret to be redacted on sight. Empty and
// very short strings are ignored so the redactor cannot be poisoned into
// mangling ordinary output.
func (r *Redactor) AddLiteral(secret string) {
	if len(secret) < 8 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces all known secret patterns and literal values in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	return s
}
