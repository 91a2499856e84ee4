package source

import (
	"context"
	"fmt"
	"time"

	"github.com/deepankarm/artifactstream/pkg/artifact"
)

// Provider names accepted by NewOpener.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderReplay = "replay"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string

	// ChunkSize and ChunkDelay shape the replay provider's stream.
	ChunkSize  int
	ChunkDelay time.Duration
}

// NewOpener builds the Opener for s.Provider.
func NewOpener(ctx context.Context, s Settings) (Opener, error) {
	switch s.Provider {
	case ProviderGemini:
		client, err := NewGeminiClient(ctx, s.APIKey, s.BaseURL)
		if err != nil {
			return nil, err
		}
		o, err := NewGeminiOpener(client, s.Model)
		if err != nil {
			return nil, err
		}
		return o, nil
	case ProviderOpenAI:
		o, err := NewOpenAIOpener(NewOpenAIClient(s.APIKey, s.BaseURL), s.Model)
		if err != nil {
			return nil, err
		}
		return o, nil
	case ProviderReplay:
		return ReplayOpener(s.ChunkSize, s.ChunkDelay), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, s.Provider)
	}
}

// ReplayOpener streams the request prompt back as if a producer had written
// it. It is meant for local testing of clients without an API key.
func ReplayOpener(size int, delay time.Duration) Opener {
	return OpenerFunc(func(_ context.Context, req Request) (artifact.Source, error) {
		return Replay(req.Prompt, size, delay), nil
	})
}
