// Package source provides chunk sources for artifact.Run: in-memory replays,
// channels, readers and streaming LLM providers.
package source

import (
	"context"
	"errors"

	"github.com/deepankarm/artifactstream/pkg/artifact"
)

var (
	// ErrBlocked is returned when a provider stops the stream for safety or
	// content-filter reasons.
	ErrBlocked = errors.New("generation blocked by provider")

	// ErrRefused is returned when a provider sends a refusal instead of content.
	ErrRefused = errors.New("generation refused by provider")

	// ErrUnknownProvider is returned by Open for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown provider")
)

// DefaultSystemPrompt instructs a producer to emit the artifact document.
const DefaultSystemPrompt = `You build small self-contained web pages.
Answer with a single JSON object and nothing else. The object has exactly three string keys:
"html" (body markup without <style> or <script> blocks), "css" (the stylesheet) and "js" (the script).
If you cannot fulfil the request, answer with {"error": "<reason>"} instead.`

// Request is one generation request.
type Request struct {
	// System overrides DefaultSystemPrompt when set.
	System string
	Prompt string
}

func (r Request) system() string {
	if r.System != "" {
		return r.System
	}
	return DefaultSystemPrompt
}

// Opener starts a generation and returns its chunk source.
type Opener interface {
	Open(ctx context.Context, req Request) (artifact.Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, req Request) (artifact.Source, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, req Request) (artifact.Source, error) {
	return f(ctx, req)
}
