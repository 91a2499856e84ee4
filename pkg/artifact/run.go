package artifact

import (
	"context"
	"errors"
	"io"
)

// Source yields the chunks of one generation stream. Next returns io.EOF once
// the stream has ended normally; any other error ends it early. Chunk
// boundaries carry no meaning.
//
// A Source that holds upstream resources should also implement io.Closer; Run
// closes it once reading stops, however it stops.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// Sink receives field values as they change.
type Sink interface {
	OnField(field FieldSpec, value string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(field FieldSpec, value string)

// OnField implements Sink.
func (f SinkFunc) OnField(field FieldSpec, value string) {
	f(field, value)
}

// UpdateSink is a Sink that also wants to know when a field is complete. Run
// calls OnUpdate instead of OnField for every Update a Session emits,
// including the one that only marks an unchanged value complete.
type UpdateSink interface {
	Sink
	OnUpdate(u Update)
}

// UpdateFunc adapts a function to UpdateSink.
type UpdateFunc func(u Update)

// OnField implements Sink.
func (f UpdateFunc) OnField(field FieldSpec, value string) {
	f(Update{Field: field, Value: value})
}

// OnUpdate implements UpdateSink.
func (f UpdateFunc) OnUpdate(u Update) {
	f(u)
}

// Outcome is the final result of Run. Exactly one of Document and Failure is
// set.
type Outcome struct {
	Document *Document
	Failure  *Failure

	// TransportErr is the error that ended the source early, if any. It is
	// reported even when a document was still recovered.
	TransportErr error

	Chunks int
	Bytes  int
}

// Err returns the Failure as an error, or nil.
func (o *Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

// Run feeds every chunk of src through a new Session, forwarding changed
// values to sink (which may be nil), then recovers the final document.
//
// Run always recovers, even when src fails or ctx is canceled, so whatever
// was buffered is still available for diagnostics. Cancellation is treated as
// the end of the stream: the recovery result stands and ctx.Err() is reported
// in TransportErr. If src failed for any other reason and recovery then fails
// as malformed, the Failure carries ReasonUpstreamTransport and wraps both the
// transport error and the parse error.
func Run(ctx context.Context, src Source, sink Sink, opts ...SessionOption) *Outcome {
	s := NewSession(opts...)
	out := &Outcome{}
	emit := forwarder(sink)

	for {
		if err := ctx.Err(); err != nil {
			out.TransportErr = err
			break
		}
		chunk, err := src.Next(ctx)
		if chunk != "" {
			for _, u := range s.Feed(chunk) {
				emit(u)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				out.TransportErr = err
			}
			break
		}
	}
	if c, ok := src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Debug("failed to close source", "error", err)
		}
	}

	out.Chunks = s.Chunks()
	out.Bytes = len(s.Buffer())
	out.Document, out.Failure = s.Finish()

	if out.TransportErr != nil {
		s.logger.Warn("source ended early", "error", out.TransportErr, "chunks", out.Chunks, "bytes", out.Bytes)
		if out.Failure != nil && out.Failure.Reason == ReasonMalformedDocument && !canceled(out.TransportErr) {
			f := *out.Failure
			f.Reason = ReasonUpstreamTransport
			f.Message = out.TransportErr.Error()
			f.Err = errors.Join(out.TransportErr, out.Failure.Err)
			out.Failure = &f
		}
	}
	return out
}

// forwarder returns the function Run uses to pass updates to sink. A plain
// Sink only sees value changes.
func forwarder(sink Sink) func(Update) {
	switch sink := sink.(type) {
	case nil:
		return func(Update) {}
	case UpdateSink:
		return sink.OnUpdate
	default:
		c := NewCoalescer()
		return func(u Update) {
			if c.Update(u.Field, u.Value) {
				sink.OnField(u.Field, u.Value)
			}
		}
	}
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
