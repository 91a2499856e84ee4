package artifact

import "log/slog"

// Update is one emitted change of a field. It is emitted when the value
// changes, and once more when an unchanged value becomes complete (the
// separator after a closing quote arrived in a later chunk).
type Update struct {
	Field    FieldSpec
	Value    string
	Complete bool
}

// Session runs the extraction pipeline for a single generation request.
// Every Feed re-extracts each field from the whole buffer, so each result is a
// pure function of the text received so far.
//
// A Session is not safe for concurrent use and must not be shared between
// requests.
type Session struct {
	buffer    StreamBuffer
	coalescer *Coalescer
	complete  map[string]bool
	recoverer *Recoverer
	logger    *slog.Logger
	chunks    int

	finished bool
	document *Document
	failure  *Failure
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRecoverer sets the Recoverer used by Finish.
func WithRecoverer(r *Recoverer) SessionOption {
	return func(s *Session) {
		if r != nil {
			s.recoverer = r
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a session with an empty buffer.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		coalescer: NewCoalescer(),
		complete:  make(map[string]bool, len(fields)),
		recoverer: defaultRecoverer,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Feed adds a chunk and returns the field values that changed because of it.
// The buffer accumulates chunks, so call Feed() for each delta.
//
// Example:
//
//	s := artifact.NewSession()
//	s.Feed(`{"html": "<p>Hel`)     // [html="<p>Hel"]
//	s.Feed(`lo</p>", "css": "`)    // [html="<p>Hello</p>" (complete)]
//	s.Feed(`p { color: red }"`)    // [css="p { color: red }"]
//	s.Feed(`, "js": "`)            // [css="p { color: red }" (complete)]
//
// Feed after Finish is ignored.
func (s *Session) Feed(chunk string) []Update {
	if s.finished {
		return nil
	}
	s.buffer.Append(chunk)
	s.chunks++

	buf := s.buffer.String()
	var updates []Update
	for _, f := range fields {
		r := Extract(buf, f)
		changed := s.coalescer.Update(f, r.Value)
		completed := r.Complete && !s.complete[f.name]
		s.complete[f.name] = r.Complete
		if changed || completed {
			updates = append(updates, Update{Field: f, Value: r.Value, Complete: r.Complete})
		}
	}
	if len(updates) > 0 {
		s.logger.Debug("fields updated", "chunk", s.chunks, "buffer_len", s.buffer.Len(), "updates", len(updates))
	}
	return updates
}

// Snapshot extracts every field from the current buffer.
func (s *Session) Snapshot() *Snapshot {
	return newSnapshot(s.buffer.String())
}

// Buffer returns the text received so far.
func (s *Session) Buffer() string {
	return s.buffer.String()
}

// Chunks returns the number of chunks fed.
func (s *Session) Chunks() int {
	return s.chunks
}

// Finish recovers the final document from the buffer. Its result supersedes
// every value emitted by Feed. Calling Finish again returns the same result.
func (s *Session) Finish() (*Document, *Failure) {
	if !s.finished {
		s.finished = true
		s.document, s.failure = s.recoverer.Recover(s.buffer.String())
		if s.failure != nil {
			s.logger.Info("recovery failed",
				"reason", string(s.failure.Reason),
				"message", s.failure.Message,
				"buffer_len", s.buffer.Len())
		} else {
			s.logger.Debug("document recovered", "buffer_len", s.buffer.Len())
		}
	}
	return s.document, s.failure
}
