package partialjson

// Where the input was cut off.
const (
	TruncatedComplete = "complete"
	TruncatedObject   = "object"
	TruncatedKey      = "key"
	TruncatedValue    = "value"
	TruncatedString   = "string"
)

// ParseResult contains the salvaged fields and metadata about what's incomplete.
type ParseResult struct {
	// Fields maps each key read so far to its decoded string value.
	// A truncated value holds the decoded prefix.
	Fields map[string]string

	// Incomplete lists keys whose value was cut off, in document order.
	Incomplete []string

	// Skipped lists keys whose value was not a string.
	Skipped []string

	// TruncatedAt indicates where the input was cut off
	// "string" | "object" | "key" | "value" | "complete"
	TruncatedAt string
}

// IsComplete reports whether the closing brace was reached.
func (r *ParseResult) IsComplete() bool {
	return r.TruncatedAt == TruncatedComplete
}
