package source

import (
	"context"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/deepankarm/artifactstream/pkg/artifact"
)

// DefaultReadSize is the chunk size used by NewReader when size is not positive.
const DefaultReadSize = 512

// Reader turns an io.Reader into a chunk source. A UTF-8 sequence split across
// reads is held back until it is complete.
type Reader struct {
	r       io.Reader
	buf     []byte
	pending []byte
	done    bool
	closed  bool
}

var (
	_ artifact.Source = (*Reader)(nil)
	_ io.Closer       = (*Reader)(nil)
)

// NewReader reads r in chunks of at most size bytes.
func NewReader(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = DefaultReadSize
	}
	return &Reader{r: r, buf: make([]byte, size)}
}

// Next implements artifact.Source.
func (r *Reader) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if r.done {
			return "", io.EOF
		}

		n, err := r.r.Read(r.buf)
		data := append(r.pending, r.buf[:n]...)
		r.pending = nil

		if err != nil {
			r.done = true
			if errors.Is(err, io.EOF) {
				return string(data), io.EOF
			}
			return string(data), err
		}

		cut := completePrefix(data)
		if cut < len(data) {
			r.pending = append([]byte(nil), data[cut:]...)
		}
		if cut > 0 {
			return string(data[:cut]), nil
		}
	}
}

// Close ends the source and closes the underlying reader when it is an
// io.Closer.
func (r *Reader) Close() error {
	r.done = true
	r.pending = nil
	if r.closed {
		return nil
	}
	r.closed = true
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// completePrefix returns the length of the longest prefix of data that does
// not end inside a UTF-8 sequence.
func completePrefix(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if utf8.FullRune(data[i:]) {
				return len(data)
			}
			return i
		}
	}
	return len(data)
}
