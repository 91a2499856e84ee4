package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/deepankarm/artifactstream/pkg/artifact"
	"github.com/deepankarm/artifactstream/pkg/artifact/schema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.ChatModelGPT4oMini

// OpenAIOpener starts streaming chat completions with the document schema as
// a strict response format.
type OpenAIOpener struct {
	client openai.Client
	model  string
	schema map[string]any
}

// NewOpenAIClient creates an OpenAI client. baseURL may be empty.
func NewOpenAIClient(apiKey, baseURL string, opts ...option.RequestOption) openai.Client {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	return openai.NewClient(append(all, opts...)...)
}

// NewOpenAIOpener creates an opener using client and model.
func NewOpenAIOpener(client openai.Client, model string) (*OpenAIOpener, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}
	s, err := schema.ForOpenAI(schema.Options{AllowError: true})
	if err != nil {
		return nil, fmt.Errorf("generate document schema: %w", err)
	}
	return &OpenAIOpener{client: client, model: model, schema: s}, nil
}

// Open implements Opener.
func (o *OpenAIOpener) Open(ctx context.Context, req Request) (artifact.Source, error) {
	stream := o.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.system()),
			openai.UserMessage(req.Prompt),
		},
		Model: o.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "artifact",
					Description: openai.String("A web page split into html, css and js"),
					Schema:      o.schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	return NewOpenAI(stream), nil
}

// OpenAI adapts a chat completion stream to artifact.Source.
type OpenAI struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	refusal strings.Builder
	done    bool
	closed  bool
}

var (
	_ artifact.Source = (*OpenAI)(nil)
	_ io.Closer       = (*OpenAI)(nil)
)

// NewOpenAI wraps a stream returned by Chat.Completions.NewStreaming.
func NewOpenAI(stream *ssestream.Stream[openai.ChatCompletionChunk]) *OpenAI {
	return &OpenAI{stream: stream}
}

// Next implements artifact.Source. A refusal is collected across chunks and
// reported as ErrRefused once the stream ends.
func (o *OpenAI) Next(ctx context.Context) (string, error) {
	if o.done {
		return "", io.EOF
	}
	for o.stream.Next() {
		if err := ctx.Err(); err != nil {
			return "", o.finish(err)
		}

		chunk := o.stream.Current()
		var text strings.Builder
		for _, choice := range chunk.Choices {
			if choice.FinishReason == "content_filter" {
				return text.String(), o.finish(fmt.Errorf("%w: content filter", ErrBlocked))
			}
			o.refusal.WriteString(choice.Delta.Refusal)
			text.WriteString(choice.Delta.Content)
		}
		if text.Len() > 0 {
			return text.String(), nil
		}
	}

	if err := o.stream.Err(); err != nil {
		return "", o.finish(fmt.Errorf("openai stream: %w", err))
	}
	if o.refusal.Len() > 0 {
		return "", o.finish(fmt.Errorf("%w: %s", ErrRefused, o.refusal.String()))
	}
	return "", o.finish(io.EOF)
}

// Close closes the response stream. It is safe to call more than once.
func (o *OpenAI) Close() error {
	o.done = true
	if o.closed {
		return nil
	}
	o.closed = true
	return o.stream.Close()
}

func (o *OpenAI) finish(err error) error {
	_ = o.Close()
	return err
}
