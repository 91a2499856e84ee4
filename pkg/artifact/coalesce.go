package artifact

// Coalescer forwards a field value only when it differs from the last value
// forwarded for that field. It is not safe for concurrent use; each request
// owns its own Coalescer.
type Coalescer struct {
	last map[string]string
}

// NewCoalescer creates a Coalescer with every field at "".
func NewCoalescer() *Coalescer {
	return &Coalescer{last: make(map[string]string, len(fields))}
}

// Update records value for field and reports whether it should be emitted.
func (c *Coalescer) Update(field FieldSpec, value string) bool {
	if c.last == nil {
		c.last = make(map[string]string, len(fields))
	}
	if c.last[field.name] == value {
		return false
	}
	c.last[field.name] = value
	return true
}

// Last returns the last value emitted for field.
func (c *Coalescer) Last(field FieldSpec) string {
	return c.last[field.name]
}

// Reset forgets all emitted values.
func (c *Coalescer) Reset() {
	clear(c.last)
}
