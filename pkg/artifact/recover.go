package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/deepankarm/artifactstream/pkg/internal/partialjson"
)

// Recoverer turns a finished producer response into a Document.
type Recoverer struct {
	strategies []Strategy
	maxExcerpt int
	strict     bool
	logger     *slog.Logger
}

// RecoverOption configures a Recoverer.
type RecoverOption func(*Recoverer)

// WithStrategies replaces the default strategy chain.
func WithStrategies(strategies ...Strategy) RecoverOption {
	return func(r *Recoverer) {
		r.strategies = strategies
	}
}

// WithMaxExcerpt sets the bound, in runes, of Failure.Excerpt.
func WithMaxExcerpt(n int) RecoverOption {
	return func(r *Recoverer) {
		if n > 0 {
			r.maxExcerpt = n
		}
	}
}

// WithStrictParsing disables the retry that escapes bare control characters
// inside strings before parsing.
func WithStrictParsing() RecoverOption {
	return func(r *Recoverer) {
		r.strict = true
	}
}

// WithRecoverLogger logs each strategy attempt at debug level.
func WithRecoverLogger(logger *slog.Logger) RecoverOption {
	return func(r *Recoverer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecoverer creates a Recoverer using DefaultStrategies.
func NewRecoverer(opts ...RecoverOption) *Recoverer {
	r := &Recoverer{
		strategies: DefaultStrategies(),
		maxExcerpt: MaxExcerpt,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recover parses text with the default Recoverer.
func Recover(text string) (*Document, *Failure) {
	return defaultRecoverer.Recover(text)
}

var defaultRecoverer = NewRecoverer()

// Recover tries each strategy in order. The first candidate that parses into a
// document, or into a producer-reported error, wins. Exactly one of the
// returned values is non-nil.
func (r *Recoverer) Recover(text string) (*Document, *Failure) {
	var (
		first     string
		haveFirst bool
		firstErr  error
	)

	for _, s := range r.strategies {
		candidate, ok := s.Candidate(text)
		if !ok {
			continue
		}
		candidate = trimToObject(candidate)
		if !haveFirst {
			first, haveFirst = candidate, true
		}

		doc, failure, err := r.parse(candidate)
		if err != nil {
			r.logger.Debug("recovery strategy rejected", "strategy", s.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if failure != nil {
			r.logger.Debug("producer reported error", "strategy", s.Name(), "message", failure.Message)
			return nil, failure
		}
		r.logger.Debug("document recovered", "strategy", s.Name())
		return doc, nil
	}

	failure := &Failure{
		Reason: ReasonMalformedDocument,
		Err:    firstErr,
	}
	switch {
	case firstErr != nil:
		failure.Message = firstErr.Error()
	case strings.TrimSpace(text) == "":
		failure.Message = "empty response"
	default:
		failure.Message = "no JSON object found"
	}

	source := text
	if haveFirst {
		source = first
	}
	failure.Excerpt = excerpt(strings.TrimSpace(source), r.maxExcerpt)
	if failure.Excerpt == "" {
		// Blank input still gets a visible excerpt.
		failure.Excerpt = strconv.Quote(excerpt(source, r.maxExcerpt))
	}
	failure.Salvaged = salvage(source)
	return nil, failure
}

// parse decodes a candidate. A non-nil error means the candidate is not a
// usable document; a non-nil Failure means the producer reported an error.
func (r *Recoverer) parse(candidate string) (*Document, *Failure, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		if r.strict {
			return nil, nil, err
		}
		fixed := escapeControlCharsInStrings(candidate)
		if fixed == candidate {
			return nil, nil, err
		}
		obj = nil
		if json.Unmarshal([]byte(fixed), &obj) != nil {
			return nil, nil, err
		}
	}

	if raw, ok := obj["error"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, &Failure{
			Reason:  ReasonDomainReported,
			Message: errorMessage(raw),
			Excerpt: excerpt(candidate, r.maxExcerpt),
		}, nil
	}

	doc := &Document{}
	for _, f := range fields {
		raw, ok := obj[f.name]
		if !ok {
			return nil, nil, fmt.Errorf("missing required key %q", f.name)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, nil, fmt.Errorf("key %q is not a string", f.name)
		}
		doc.set(f, s)
	}
	return doc, nil, nil
}

func errorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(raw)
}

// escapeControlCharsInStrings escapes raw control characters that appear
// inside string literals, leaving the structure untouched.
func escapeControlCharsInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped, changed := false, false, false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			case ch < 0x20:
				changed = true
				switch ch {
				case '\n':
					b.WriteString(`\n`)
				case '\r':
					b.WriteString(`\r`)
				case '\t':
					b.WriteString(`\t`)
				default:
					fmt.Fprintf(&b, `\u%04x`, ch)
				}
				continue
			}
		} else if ch == '"' {
			inString = true
		}
		b.WriteByte(ch)
	}

	if !changed {
		return s
	}
	return b.String()
}

// salvage reads whatever recognized fields a truncated document holds.
func salvage(text string) map[string]string {
	result, err := partialjson.NewParser(false).Parse([]byte(text))
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := result.Fields[f.name]; ok {
			out[f.name] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
