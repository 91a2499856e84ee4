package artifact

import (
	"github.com/deepankarm/artifactstream/pkg/internal/errors"
)

// Failure is returned by Recover when no document could be produced.
// It implements error.
type Failure = errors.Failure

// Reason categorizes a Failure.
type Reason = errors.Reason

// Failure reasons. ReasonIncompleteData is never carried by a Failure; it names
// the normal state of a field before the stream ends.
const (
	ReasonIncompleteData    = errors.ReasonIncompleteData
	ReasonDomainReported    = errors.ReasonDomainReported
	ReasonMalformedDocument = errors.ReasonMalformedDocument
	ReasonUpstreamTransport = errors.ReasonUpstreamTransport
)

// MaxExcerpt is the default bound, in runes, of Failure.Excerpt.
const MaxExcerpt = errors.MaxExcerpt

func excerpt(s string, n int) string {
	return errors.Excerpt(s, n)
}
