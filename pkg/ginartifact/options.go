package ginartifact

import (
	"log/slog"

	"github.com/deepankarm/artifactstream/pkg/artifact"
	"github.com/deepankarm/artifactstream/pkg/artifact/schema"
	"github.com/deepankarm/artifactstream/pkg/source"
	"github.com/deepankarm/artifactstream/pkg/store"
)

// Option configures a Server
type Option func(*Server)

// WithOpener sets the source opener used by POST /generate.
// Without one the endpoint answers 503.
func WithOpener(o source.Opener) Option {
	return func(s *Server) {
		s.opener = o
	}
}

// WithStore enables the generation history. Without a store finished
// generations are not saved and the /artifacts endpoints answer 503.
func WithStore(st *store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithRecoverer sets the Recoverer used by /generate and /recover
func WithRecoverer(r *artifact.Recoverer) Option {
	return func(s *Server) {
		if r != nil {
			s.recoverer = r
		}
	}
}

// WithLogger sets the server logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProviderInfo records which provider and model the opener talks to.
// Both are stored with every generation.
func WithProviderInfo(provider, model string) Option {
	return func(s *Server) {
		s.provider = provider
		s.model = model
	}
}

// WithSchemaOptions sets the title and description served by GET /schema
func WithSchemaOptions(opts schema.Options) Option {
	return func(s *Server) {
		s.schemaOpts = opts
	}
}
