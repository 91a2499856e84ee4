// Package artifact extracts the html, css and js fields of a code artifact from
// a growing, possibly malformed LLM text stream, and recovers the final
// document once the stream ends.
package artifact

import (
	"regexp"
)

// FieldSpec identifies one of the recognized document fields.
// The zero value is not a valid field.
type FieldSpec struct {
	name string
	key  *regexp.Regexp
}

// Recognized fields, in document order.
var (
	HTML = newFieldSpec("html")
	CSS  = newFieldSpec("css")
	JS   = newFieldSpec("js")
)

var fields = []FieldSpec{HTML, CSS, JS}

func newFieldSpec(name string) FieldSpec {
	// Quoted key, colon and opening quote, whitespace allowed around the colon.
	return FieldSpec{
		name: name,
		key:  regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*"`),
	}
}

// Name returns the JSON key of the field.
func (f FieldSpec) Name() string {
	return f.name
}

// String implements fmt.Stringer.
func (f FieldSpec) String() string {
	return f.name
}

// Fields returns the fixed set of fields in document order.
func Fields() []FieldSpec {
	out := make([]FieldSpec, len(fields))
	copy(out, fields)
	return out
}

// LookupField returns the FieldSpec for name.
func LookupField(name string) (FieldSpec, bool) {
	for _, f := range fields {
		if f.name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Document is a fully recovered artifact.
type Document struct {
	HTML string `json:"html" jsonschema_description:"HTML markup for the page body, without <style> or <script> blocks."`
	CSS  string `json:"css" jsonschema_description:"Stylesheet applied to the markup."`
	JS   string `json:"js" jsonschema_description:"Script run after the markup is loaded."`
}

// Get returns the value of field f.
func (d *Document) Get(f FieldSpec) string {
	switch f.name {
	case HTML.name:
		return d.HTML
	case CSS.name:
		return d.CSS
	case JS.name:
		return d.JS
	}
	return ""
}

func (d *Document) set(f FieldSpec, v string) {
	switch f.name {
	case HTML.name:
		d.HTML = v
	case CSS.name:
		d.CSS = v
	case JS.name:
		d.JS = v
	}
}

// ExtractionResult is the best current value of one field for one buffer snapshot.
type ExtractionResult struct {
	Field FieldSpec
	// Value is Raw with JSON escapes resolved when that was safe.
	Value string
	// Raw is the unprocessed span between the opening quote and the terminator
	// (or the end of the buffer).
	Raw string
	// Complete is true only when an unescaped terminating quote was found.
	Complete bool
}
