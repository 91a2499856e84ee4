package artifact_test

import (
	"encoding/json"
	"testing"

	"github.com/deepankarm/artifactstream/pkg/artifact"
)

// wellFormed are complete documents used by the round-trip and convergence tests.
var wellFormed = []string{
	`{"html":"<p>x</p>","css":"p { color: red; }","js":"console.log(\"hi\");"}`,
	"{\n  \"html\": \"<div class=\\\"a\\\">x</div>\",\n  \"css\": \"a, b { margin: 0 }\",\n  \"js\": \"if (a) { b(); }\"\n}",
	`{"html":"<a title=\"x\", y>go</a>","css":"","js":"path = \"C:\\\\\";"}`,
	`{"js":"let s = 'a\nb';\tf();","html":"<pre>\u00e9</pre>","css":"body{}"}`,
	`{"html" : "spaced" , "css" :"x", "js": "y" }`,
	`{"html":"","css":"","js":""}`,
	"{\"html\": \"a\",\r\n  \"css\": \"b\",\r\n  \"js\": \"c\"\r\n  }",
	"{\n\t\"html\": \"a\"\t\t\t\t,\n\t\"css\": \"b\"     ,\n\t\"js\": \"c\"\n\n\n\n}",
}

func TestExtract_CompleteDocumentRoundTrip(t *testing.T) {
	for _, doc := range wellFormed {
		var want map[string]string
		if err := json.Unmarshal([]byte(doc), &want); err != nil {
			t.Fatalf("test document is invalid JSON: %v\n%s", err, doc)
		}

		for _, f := range artifact.Fields() {
			got := artifact.Extract(doc, f)
			if !got.Complete {
				t.Errorf("%s: expected complete result in %q", f, doc)
			}
			if got.Value != want[f.Name()] {
				t.Errorf("%s: Value = %q, want %q", f, got.Value, want[f.Name()])
			}
		}
	}
}

func TestExtract_MissingKey(t *testing.T) {
	got := artifact.Extract(`{"html": "a"`, artifact.CSS)

	if got.Complete || got.Value != "" || got.Raw != "" {
		t.Errorf("expected empty incomplete result, got %+v", got)
	}
	if got.Field != artifact.CSS {
		t.Errorf("Field = %v, want css", got.Field)
	}
}

func TestExtract_Partial(t *testing.T) {
	tests := []struct {
		name     string
		buffer   string
		field    artifact.FieldSpec
		value    string
		complete bool
	}{
		{"open value", `{"html": "<p>Hel`, artifact.HTML, "<p>Hel", false},
		{"key only", `{"html": "`, artifact.HTML, "", false},
		{"key without quote", `{"html": `, artifact.HTML, "", false},
		{"second field open", `{"html": "a", "css": "body {`, artifact.CSS, "body {", false},
		{"first field done", `{"html": "a", "css": "body {`, artifact.HTML, "a", true},
		{"whitespace around colon", `{"html" :  "x", `, artifact.HTML, "x", true},
		{"newline before colon value", "{\"html\":\n\"x\"\n}", artifact.HTML, "x", true},
		{"brace in value", `{"css":"a { b: c }`, artifact.CSS, "a { b: c }", false},
		{"brace in completed value", `{"css":"a { b: c }"}`, artifact.CSS, "a { b: c }", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := artifact.Extract(tt.buffer, tt.field)
			if got.Value != tt.value {
				t.Errorf("Value = %q, want %q", got.Value, tt.value)
			}
			if got.Complete != tt.complete {
				t.Errorf("Complete = %v, want %v", got.Complete, tt.complete)
			}
		})
	}
}

func TestExtract_LastOccurrenceWins(t *testing.T) {
	buffer := `{"html":"old","css":"","js":""} Let me fix that: {"html":"new`

	got := artifact.Extract(buffer, artifact.HTML)
	if got.Value != "new" || got.Complete {
		t.Errorf("expected incomplete \"new\", got %+v", got)
	}

	// css has only one occurrence so far
	if got := artifact.Extract(buffer, artifact.CSS); !got.Complete || got.Value != "" {
		t.Errorf("css: got %+v", got)
	}
}

func TestExtract_QuoteInsideValue(t *testing.T) {
	buffer := `{"html":"say "hi" now","css":"a"}`

	got := artifact.Extract(buffer, artifact.HTML)
	if !got.Complete {
		t.Fatal("expected complete")
	}
	if got.Value != `say "hi" now` {
		t.Errorf("Value = %q", got.Value)
	}
}

func TestExtract_PendingQuote(t *testing.T) {
	tests := []struct {
		name   string
		buffer string
	}{
		{"quote at end", `{"html":"ab"`},
		{"quote then whitespace", `{"html":"ab"  `},
		{"quote then long whitespace", "{\"html\":\"ab\"    \r\n    "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := artifact.Extract(tt.buffer, artifact.HTML)
			if got.Complete {
				t.Error("a quote without a separator must not terminate")
			}
			if got.Value != "ab" {
				t.Errorf("Value = %q, want %q", got.Value, "ab")
			}
		})
	}
}

func TestExtract_QuoteFollowedByText(t *testing.T) {
	// Text other than a separator follows the whitespace, so the quote is literal.
	got := artifact.Extract(`{"html":"ab"      x`, artifact.HTML)
	if got.Complete {
		t.Error("expected incomplete")
	}
	if got.Value != `ab"      x` {
		t.Errorf("Value = %q", got.Value)
	}
}

func TestExtract_AmbiguousSeparatorReturnsRaw(t *testing.T) {
	got := artifact.Extract(`{"js":"f(\"a\",b`, artifact.JS)
	if got.Complete {
		t.Fatal("expected incomplete")
	}
	if got.Value != `f(\"a\",b` {
		t.Errorf("Value = %q, want raw span", got.Value)
	}

	// Once terminated the same span is resolved normally.
	got = artifact.Extract(`{"js":"f(\"a\",b)"}`, artifact.JS)
	if !got.Complete || got.Value != `f("a",b)` {
		t.Errorf("got %+v", got)
	}
}

func TestExtract_EscapeFallback(t *testing.T) {
	tests := []struct {
		name   string
		buffer string
		value  string
	}{
		{"dangling backslash", `{"js":"line1\`, `line1\`},
		{"partial unicode", `{"js":"caf\u00`, `caf\u00`},
		{"escaped backslash at end", `{"js":"a\\`, `a\`},
		{"escape resolved", `{"js":"a\nb`, "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := artifact.Extract(tt.buffer, artifact.JS)
			if got.Complete {
				t.Error("expected incomplete")
			}
			if got.Value != tt.value {
				t.Errorf("Value = %q, want %q", got.Value, tt.value)
			}
		})
	}
}

func TestExtract_EscapedBackslashBeforeQuote(t *testing.T) {
	got := artifact.Extract(`{"js":"C:\\","css":"x"}`, artifact.JS)
	if !got.Complete {
		t.Fatal("quote after an escaped backslash terminates the value")
	}
	if got.Value != `C:\` {
		t.Errorf("Value = %q", got.Value)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	buffers := append([]string{`{"html":"a`, `{"js":"x\`, `junk`, ``}, wellFormed...)
	for _, buf := range buffers {
		for _, f := range artifact.Fields() {
			first := artifact.Extract(buf, f)
			second := artifact.Extract(buf, f)
			if first != second {
				t.Errorf("%s on %q: %+v != %+v", f, buf, first, second)
			}
		}
	}
}

func TestExtract_MonotonicConvergence(t *testing.T) {
	for _, doc := range wellFormed {
		for _, f := range artifact.Fields() {
			var settled *artifact.ExtractionResult
			for i := 1; i <= len(doc); i++ {
				got := artifact.Extract(doc[:i], f)
				if settled != nil {
					if !got.Complete || got.Value != settled.Value {
						t.Fatalf("%s regressed at %d/%d: had %q, got %+v", f, i, len(doc), settled.Value, got)
					}
					continue
				}
				if got.Complete {
					r := got
					settled = &r
				}
			}
			if settled == nil {
				t.Errorf("%s never completed in %q", f, doc)
			}
		}
	}
}

func TestExtractAll(t *testing.T) {
	results := artifact.ExtractAll(`{"html":"a","css":"b`)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	want := []struct {
		field    artifact.FieldSpec
		value    string
		complete bool
	}{
		{artifact.HTML, "a", true},
		{artifact.CSS, "b", false},
		{artifact.JS, "", false},
	}
	for i, w := range want {
		r := results[i]
		if r.Field != w.field || r.Value != w.value || r.Complete != w.complete {
			t.Errorf("results[%d] = %+v, want %+v", i, r, w)
		}
	}
}

func TestLookupField(t *testing.T) {
	for _, name := range []string{"html", "css", "js"} {
		f, ok := artifact.LookupField(name)
		if !ok || f.Name() != name {
			t.Errorf("LookupField(%q) = %v, %v", name, f, ok)
		}
	}
	if _, ok := artifact.LookupField("error"); ok {
		t.Error("error is not a field")
	}
}
