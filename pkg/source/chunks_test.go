package source_test

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
	"time"
	"unicode/utf8"

	"github.com/deepankarm/artifactstream/pkg/artifact"
	"github.com/deepankarm/artifactstream/pkg/source"
)

// drain reads src to the end and returns the chunks and the final error.
func drain(t *testing.T, src artifact.Source) ([]string, error) {
	t.Helper()
	var chunks []string
	for i := 0; i < 10000; i++ {
		chunk, err := src.Next(context.Background())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if err != nil {
			return chunks, err
		}
	}
	t.Fatal("source did not end")
	return nil, nil
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"empty", "", 4, nil},
		{"shorter than size", "abc", 4, []string{"abc"}},
		{"zero size", "abcdef", 0, []string{"abcdef"}},
		{"even", "abcdef", 2, []string{"ab", "cd", "ef"}},
		{"remainder", "abcde", 2, []string{"ab", "cd", "e"}},
		{"multibyte kept whole", "aé", 2, []string{"a", "é"}},
		{"size below rune", "éé", 1, []string{"é", "é"}},
		{"emoji", "a\U0001F600b", 3, []string{"a", "\U0001F600", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := source.Split(tt.text, tt.size)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q, %d) = %q, want %q", tt.text, tt.size, got, tt.want)
			}
		})
	}
}

func TestChunks(t *testing.T) {
	chunks, err := drain(t, source.NewChunks("a", "b", "c"))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if strings.Join(chunks, "|") != "a|b|c" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestReplay_CanceledDuringDelay(t *testing.T) {
	src := source.Replay("abcdef", 2, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	if chunk, err := src.Next(ctx); chunk != "ab" || err != nil {
		t.Fatalf("first chunk = %q, %v", chunk, err)
	}

	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestChannel(t *testing.T) {
	ch := make(chan source.Chunk, 3)
	ch <- source.Chunk{Text: "a"}
	ch <- source.Chunk{Text: "b"}
	close(ch)

	chunks, err := drain(t, source.NewChannel(ch))
	if !errors.Is(err, io.EOF) || strings.Join(chunks, "") != "ab" {
		t.Errorf("chunks = %q, err = %v", chunks, err)
	}
}

func TestChannel_Error(t *testing.T) {
	boom := errors.New("boom")
	ch := make(chan source.Chunk, 2)
	ch <- source.Chunk{Text: "a"}
	ch <- source.Chunk{Text: "b", Err: boom}

	chunks, err := drain(t, source.NewChannel(ch))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if strings.Join(chunks, "") != "ab" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestChannel_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := source.NewChannel(make(chan source.Chunk)).Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestReader(t *testing.T) {
	text := `{"html": "<p>caf` + "\u00e9 \U0001F600" + `</p>"}`

	tests := []struct {
		name string
		r    io.Reader
		size int
	}{
		{"one byte reads", iotest.OneByteReader(strings.NewReader(text)), 8},
		{"small buffer", strings.NewReader(text), 3},
		{"default size", strings.NewReader(text), 0},
		{"data with EOF", iotest.DataErrReader(strings.NewReader(text)), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := drain(t, source.NewReader(tt.r, tt.size))
			if !errors.Is(err, io.EOF) {
				t.Fatalf("err = %v", err)
			}
			if got := strings.Join(chunks, ""); got != text {
				t.Errorf("joined = %q, want %q", got, text)
			}
			for _, c := range chunks {
				if !utf8.ValidString(c) {
					t.Errorf("chunk %q splits a rune", c)
				}
			}
		})
	}
}

func TestReader_Error(t *testing.T) {
	boom := errors.New("read failed")
	r := io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(boom))

	chunks, err := drain(t, source.NewReader(r, 16))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if strings.Join(chunks, "") != "abc" {
		t.Errorf("chunks = %q", chunks)
	}
}

type closeRecorder struct {
	io.Reader
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestReader_Close(t *testing.T) {
	rc := &closeRecorder{Reader: strings.NewReader(`{"html": "<p>hi</p>"}`)}
	src := source.NewReader(rc, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	artifact.Run(ctx, src, artifact.SinkFunc(func(artifact.FieldSpec, string) { cancel() }))

	if rc.closed != 1 {
		t.Errorf("underlying reader closed %d times, want 1", rc.closed)
	}
	if err := src.Close(); err != nil || rc.closed != 1 {
		t.Errorf("second Close: err = %v, closed = %d", err, rc.closed)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next after Close = %v, want io.EOF", err)
	}
}

func TestRunWithReplay(t *testing.T) {
	doc := `{"html": "<h1>Hi</h1>", "css": "h1 { color: red }", "js": ""}`

	var updates int
	out := artifact.Run(context.Background(), source.Replay(doc, 7, 0), artifact.SinkFunc(func(artifact.FieldSpec, string) {
		updates++
	}))
	if out.Err() != nil {
		t.Fatalf("Run failed: %v", out.Err())
	}
	if out.Document.CSS != "h1 { color: red }" {
		t.Errorf("CSS = %q", out.Document.CSS)
	}
	if updates == 0 {
		t.Error("expected field updates")
	}
}
