package source

import (
	"context"
	"io"
	"time"
	"unicode/utf8"

	"github.com/deepankarm/artifactstream/pkg/artifact"
)

// Chunks replays a fixed list of chunks.
type Chunks struct {
	chunks []string
	delay  time.Duration
	pos    int
}

var _ artifact.Source = (*Chunks)(nil)

// NewChunks returns a source that yields chunks in order, then io.EOF.
func NewChunks(chunks ...string) *Chunks {
	return &Chunks{chunks: chunks}
}

// Replay splits text into chunks of at most size bytes and replays them with
// delay between chunks.
func Replay(text string, size int, delay time.Duration) *Chunks {
	return &Chunks{chunks: Split(text, size), delay: delay}
}

// Next implements artifact.Source.
func (c *Chunks) Next(ctx context.Context) (string, error) {
	if c.pos >= len(c.chunks) {
		return "", io.EOF
	}
	if c.delay > 0 && c.pos > 0 {
		t := time.NewTimer(c.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}
	chunk := c.chunks[c.pos]
	c.pos++
	return chunk, nil
}

// Split cuts text into pieces of at most size bytes without splitting a UTF-8
// sequence. A size below one rune still yields whole runes.
func Split(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	out := make([]string, 0, len(text)/size+1)
	for len(text) > 0 {
		n := min(size, len(text))
		for n > 0 && n < len(text) && !utf8.RuneStart(text[n]) {
			n--
		}
		if n == 0 {
			_, n = utf8.DecodeRuneInString(text)
		}
		out = append(out, text[:n])
		text = text[n:]
	}
	return out
}

// Channel reads chunks from a channel until it is closed.
type Channel struct {
	ch <-chan Chunk
}

// Chunk is a piece of text or the error that ended a channel stream.
type Chunk struct {
	Text string
	Err  error
}

var _ artifact.Source = (*Channel)(nil)

// NewChannel returns a source reading from ch. A closed channel ends the stream
// normally; a Chunk with Err set ends it with that error.
func NewChannel(ch <-chan Chunk) *Channel {
	return &Channel{ch: ch}
}

// Next implements artifact.Source.
func (c *Channel) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case chunk, ok := <-c.ch:
		if !ok {
			return "", io.EOF
		}
		return chunk.Text, chunk.Err
	}
}
