package artifact

import "strings"

// StreamBuffer accumulates the text of one generation request. It only grows;
// there is no way to rewind or edit it. The zero value is ready to use.
type StreamBuffer struct {
	b strings.Builder
}

// Append adds a chunk to the end of the buffer.
func (sb *StreamBuffer) Append(chunk string) {
	sb.b.WriteString(chunk)
}

// String returns the accumulated text. It does not copy.
func (sb *StreamBuffer) String() string {
	return sb.b.String()
}

// Len returns the number of bytes accumulated.
func (sb *StreamBuffer) Len() int {
	return sb.b.Len()
}
