package source

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/deepankarm/artifactstream/pkg/artifact"
	"github.com/deepankarm/artifactstream/pkg/artifact/schema"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiOpener starts streaming generations against the Gemini API with the
// document schema as structured output.
type GeminiOpener struct {
	client *genai.Client
	model  string
	schema map[string]any
}

// NewGeminiClient creates a Gemini API client. baseURL may be empty.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiOpener creates an opener using client and model.
func NewGeminiOpener(client *genai.Client, model string) (*GeminiOpener, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	s, err := schema.NewGenerator(schema.Options{AllowError: true}).GenerateFlattened()
	if err != nil {
		return nil, fmt.Errorf("generate document schema: %w", err)
	}
	return &GeminiOpener{client: client, model: model, schema: s}, nil
}

// Open implements Opener.
func (o *GeminiOpener) Open(ctx context.Context, req Request) (artifact.Source, error) {
	seq := o.client.Models.GenerateContentStream(ctx, o.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		SystemInstruction:  genai.NewContentFromText(req.system(), genai.RoleUser),
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: o.schema,
	})
	return NewGemini(seq), nil
}

// Gemini adapts a Gemini response stream to artifact.Source.
type Gemini struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
	done bool
}

var (
	_ artifact.Source = (*Gemini)(nil)
	_ io.Closer       = (*Gemini)(nil)
)

// NewGemini wraps a stream returned by Models.GenerateContentStream.
func NewGemini(seq iter.Seq2[*genai.GenerateContentResponse, error]) *Gemini {
	next, stop := iter.Pull2(seq)
	return &Gemini{next: next, stop: stop}
}

// Next implements artifact.Source. Responses without text are skipped.
func (g *Gemini) Next(ctx context.Context) (string, error) {
	for {
		if g.done {
			return "", io.EOF
		}
		if err := ctx.Err(); err != nil {
			g.close()
			return "", err
		}

		resp, err, ok := g.next()
		if !ok {
			g.close()
			return "", io.EOF
		}
		if err != nil {
			g.close()
			return "", fmt.Errorf("gemini stream: %w", err)
		}
		if err := geminiBlocked(resp); err != nil {
			g.close()
			return "", err
		}
		if text := resp.Text(); text != "" {
			return text, nil
		}
	}
}

// Close stops the response stream. It is safe to call more than once.
func (g *Gemini) Close() error {
	g.close()
	return nil
}

func (g *Gemini) close() {
	if !g.done {
		g.done = true
		g.stop()
	}
}

func geminiBlocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return nil
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return fmt.Errorf("%w: prompt blocked (%s)", ErrBlocked, fb.BlockReason)
	}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		switch c.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent,
			genai.FinishReasonBlocklist, genai.FinishReasonSPII:
			return fmt.Errorf("%w: finish reason %s", ErrBlocked, c.FinishReason)
		}
	}
	return nil
}
