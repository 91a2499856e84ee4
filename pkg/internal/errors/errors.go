// Package errors defines shared failure types for artifactstream.
package errors

import (
	"fmt"
	"unicode/utf8"
)

// Reason is an enum for recovery outcome categories.
type Reason string

// Reason constants.
const (
	ReasonIncompleteData    Reason = "incomplete_data"          // Stream still running; never returned as a failure
	ReasonDomainReported    Reason = "domain_reported_error"    // Producer emitted an "error" key
	ReasonMalformedDocument Reason = "malformed_document"       // Text could not be coerced into the three-field shape
	ReasonUpstreamTransport Reason = "upstream_transport_error" // Chunk source failed and nothing usable was buffered
)

// MaxExcerpt bounds Failure.Excerpt, in runes.
const MaxExcerpt = 200

// Failure is the terminal result of a recovery that did not produce a document.
type Failure struct {
	Reason  Reason
	Message string // Human-readable; verbatim producer message for ReasonDomainReported
	Excerpt string // Bounded slice of the offending text, diagnostics only

	// Salvaged holds whatever field values could be read from a truncated document.
	Salvaged map[string]string

	Err error // Underlying cause (JSON syntax error, transport error)
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Is reports whether target is a *Failure with the same Reason.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Reason == f.Reason && t.Message == "" && t.Err == nil
}

// Excerpt returns at most n runes of s, marking the cut with "...".
func Excerpt(s string, n int) string {
	if n <= 0 {
		n = MaxExcerpt
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "..."
		}
		count++
	}
	return s
}
