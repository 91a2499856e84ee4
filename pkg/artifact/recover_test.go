package artifact_test

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/deepankarm/artifactstream/pkg/artifact"
)

func TestRecover_Document(t *testing.T) {
	tests := []struct {
		name string
		text string
		want artifact.Document
	}{
		{
			name: "bare object",
			text: `{"html":"<p>x</p>","css":"p{}","js":"f()"}`,
			want: artifact.Document{HTML: "<p>x</p>", CSS: "p{}", JS: "f()"},
		},
		{
			name: "fenced with tag",
			text: "```json\n{\"html\":\"<p>x</p>\",\"css\":\"\",\"js\":\"\"}\n```",
			want: artifact.Document{HTML: "<p>x</p>"},
		},
		{
			name: "tilde fence",
			text: "~~~\n{\"html\":\"a\",\"css\":\"b\",\"js\":\"c\"}\n~~~",
			want: artifact.Document{HTML: "a", CSS: "b", JS: "c"},
		},
		{
			name: "surrounding prose",
			text: `Sure! Here is the code: {"html":"a","css":"b","js":"c"} Hope it helps!`,
			want: artifact.Document{HTML: "a", CSS: "b", JS: "c"},
		},
		{
			name: "stray json token inside fence",
			text: "```\njson\n{\"html\":\"a\",\"css\":\"b\",\"js\":\"c\"}\n```",
			want: artifact.Document{HTML: "a", CSS: "b", JS: "c"},
		},
		{
			name: "stray json token without fence",
			text: `json {"html":"a","css":"b","js":"c"}`,
			want: artifact.Document{HTML: "a", CSS: "b", JS: "c"},
		},
		{
			name: "unterminated fence",
			text: "```json\n{\"html\":\"a\",\"css\":\"b\",\"js\":\"c\"}\nLet me know",
			want: artifact.Document{HTML: "a", CSS: "b", JS: "c"},
		},
		{
			name: "fence interior rejected, brace accepted",
			text: "```\nnot json\n```\n{\"html\":\"a\",\"css\":\"b\",\"js\":\"c\"}",
			want: artifact.Document{HTML: "a", CSS: "b", JS: "c"},
		},
		{
			name: "bare newlines in strings",
			text: "{\"html\":\"<p>\n</p>\",\"css\":\"a {\n\tb: c;\n}\",\"js\":\"\"}",
			want: artifact.Document{HTML: "<p>\n</p>", CSS: "a {\n\tb: c;\n}"},
		},
		{
			name: "null error is absent",
			text: `{"error":null,"html":"a","css":"b","js":"c"}`,
			want: artifact.Document{HTML: "a", CSS: "b", JS: "c"},
		},
		{
			name: "extra keys ignored",
			text: `{"title":"demo","html":"a","css":"b","js":"c"}`,
			want: artifact.Document{HTML: "a", CSS: "b", JS: "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, failure := artifact.Recover(tt.text)
			if failure != nil {
				t.Fatalf("unexpected failure: %v (excerpt %q)", failure, failure.Excerpt)
			}
			if *doc != tt.want {
				t.Errorf("Recover = %+v, want %+v", *doc, tt.want)
			}
		})
	}
}

func TestRecover_DomainReported(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		message string
	}{
		{"string error", `{"error": "blocked by safety filter"}`, "blocked by safety filter"},
		{"error wins over fields", `{"html":"a","css":"b","js":"c","error":"quota"}`, "quota"},
		{"object error", `{"error": {"code": 3}}`, `{"code":3}`},
		{"fenced error", "```json\n{\"error\":\"nope\"}\n```", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, failure := artifact.Recover(tt.text)
			if doc != nil {
				t.Fatalf("expected no document, got %+v", doc)
			}
			if failure.Reason != artifact.ReasonDomainReported {
				t.Errorf("Reason = %q", failure.Reason)
			}
			if failure.Message != tt.message {
				t.Errorf("Message = %q, want %q", failure.Message, tt.message)
			}
		})
	}
}

func TestRecover_Malformed(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		message     string
		wantExcerpt string
	}{
		{"prose only", "I cannot help with that.", "no JSON object found", "I cannot help with that."},
		{"empty", "", "empty response", `""`},
		{"whitespace", "  \n ", "empty response", `"  \n "`},
		{"whitespace only tabs", "\t\r\n", "empty response", `"\t\r\n"`},
		{"missing key", `{"html":"a","css":"b"}`, `missing required key "js"`, `{"html":"a","css":"b"}`},
		{"mistyped key", `{"html":1,"css":"b","js":"c"}`, `key "html" is not a string`, `{"html":1,"css":"b","js":"c"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, failure := artifact.Recover(tt.text)
			if doc != nil {
				t.Fatalf("expected no document, got %+v", doc)
			}
			if failure.Reason != artifact.ReasonMalformedDocument {
				t.Errorf("Reason = %q", failure.Reason)
			}
			if failure.Message != tt.message {
				t.Errorf("Message = %q, want %q", failure.Message, tt.message)
			}
			if failure.Excerpt != tt.wantExcerpt {
				t.Errorf("Excerpt = %q, want %q", failure.Excerpt, tt.wantExcerpt)
			}
		})
	}
}

func TestRecover_MalformedIsError(t *testing.T) {
	_, failure := artifact.Recover("nothing here")

	var err error = failure
	if !errors.Is(err, &artifact.Failure{Reason: artifact.ReasonMalformedDocument}) {
		t.Errorf("errors.Is by reason failed for %v", err)
	}
	if !strings.HasPrefix(err.Error(), string(artifact.ReasonMalformedDocument)) {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRecover_TruncatedDocumentSalvage(t *testing.T) {
	_, failure := artifact.Recover(`{"html":"<p>x</p>","css":"body {`)
	if failure == nil {
		t.Fatal("expected failure")
	}
	if failure.Reason != artifact.ReasonMalformedDocument {
		t.Errorf("Reason = %q", failure.Reason)
	}

	if got := failure.Salvaged["html"]; got != "<p>x</p>" {
		t.Errorf("Salvaged[html] = %q", got)
	}
	if got := failure.Salvaged["css"]; got != "body {" {
		t.Errorf("Salvaged[css] = %q", got)
	}
	if _, ok := failure.Salvaged["js"]; ok {
		t.Error("js was never started")
	}
}

func TestRecover_ExcerptBounded(t *testing.T) {
	text := strings.Repeat("é", 1000)
	_, failure := artifact.Recover(text)

	if n := utf8.RuneCountInString(failure.Excerpt); n > artifact.MaxExcerpt+3 {
		t.Errorf("excerpt has %d runes", n)
	}
	if !utf8.ValidString(failure.Excerpt) {
		t.Error("excerpt split a rune")
	}
}

func TestRecoverer_Options(t *testing.T) {
	t.Run("max excerpt", func(t *testing.T) {
		r := artifact.NewRecoverer(artifact.WithMaxExcerpt(5))
		_, failure := r.Recover("abcdefghij")
		if failure.Excerpt != "abcde..." {
			t.Errorf("Excerpt = %q", failure.Excerpt)
		}
	})

	t.Run("strict parsing", func(t *testing.T) {
		text := "{\"html\":\"<p>\n</p>\",\"css\":\"\",\"js\":\"\"}"

		r := artifact.NewRecoverer(artifact.WithStrictParsing())
		doc, failure := r.Recover(text)
		if doc != nil || failure.Reason != artifact.ReasonMalformedDocument {
			t.Errorf("strict recoverer accepted bare newline: %+v %v", doc, failure)
		}
		if failure.Err == nil {
			t.Error("expected parse error to be wrapped")
		}
	})

	t.Run("custom strategies", func(t *testing.T) {
		r := artifact.NewRecoverer(artifact.WithStrategies(artifact.BraceStrategy{}))
		doc, failure := r.Recover("```json\n{\"html\":\"a\",\"css\":\"b\",\"js\":\"c\"}\n```")
		if failure != nil {
			t.Fatalf("unexpected failure: %v", failure)
		}
		if doc.HTML != "a" {
			t.Errorf("HTML = %q", doc.HTML)
		}
	})

	t.Run("no strategies", func(t *testing.T) {
		r := artifact.NewRecoverer(artifact.WithStrategies())
		_, failure := r.Recover(`{"html":"a","css":"b","js":"c"}`)
		if failure == nil || failure.Message != "no JSON object found" {
			t.Errorf("failure = %v", failure)
		}
	})
}

func TestStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy artifact.Strategy
		text     string
		want     string
		ok       bool
	}{
		{"fence with tag", artifact.FenceStrategy{}, "x ```json\n{}\n``` y", "{}\n", true},
		{"fence on one line", artifact.FenceStrategy{}, "```{\"a\":1}```", `{"a":1}`, true},
		{"earliest fence wins", artifact.FenceStrategy{}, "~~~\nA~~~ ```\nB```", "A", true},
		{"no fence", artifact.FenceStrategy{}, "{}", "", false},
		{"brace", artifact.BraceStrategy{}, "pre {a} mid {b} post", "{a} mid {b}", true},
		{"no closing brace", artifact.BraceStrategy{}, "{a", "", false},
		{"reversed braces", artifact.BraceStrategy{}, "} {", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.strategy.Candidate(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Candidate = %q, %v, want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
