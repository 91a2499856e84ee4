// Package ginartifact exposes artifact generation over HTTP with Gin.
//
// POST /generate streams field updates as server-sent events while the
// producer is still writing, then sends the recovered document or failure:
//
//	event:start
//	data:{"id":"6f1c..."}
//
//	event:field
//	data:{"field":"html","value":"<h1>Hel"}
//
//	event:field
//	data:{"field":"html","value":"<h1>Hello</h1>","complete":true}
//
//	event:document
//	data:{"html":"<h1>Hello</h1>","css":"","js":""}
//
// Finished generations are saved when a store is configured and can be
// fetched again from /artifacts/:id.
package ginartifact

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/deepankarm/artifactstream/pkg/artifact"
	"github.com/deepankarm/artifactstream/pkg/artifact/schema"
	"github.com/deepankarm/artifactstream/pkg/source"
	"github.com/deepankarm/artifactstream/pkg/store"
	"github.com/gin-gonic/gin"
)

// SSE event names sent by POST /generate
const (
	EventStart    = "start"
	EventField    = "field"
	EventDocument = "document"
	EventFailure  = "failure"
)

// Server serves the artifact endpoints
type Server struct {
	opener     source.Opener
	store      *store.Store
	recoverer  *artifact.Recoverer
	logger     *slog.Logger
	provider   string
	model      string
	schemaOpts schema.Options
}

// GenerateRequest is the body of POST /generate
type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	System string `json:"system,omitempty"`
}

// RecoverRequest is the body of POST /recover
type RecoverRequest struct {
	Text string `json:"text"`
}

// StartEvent opens a /generate stream
type StartEvent struct {
	ID string `json:"id"`
}

// FieldEvent carries the latest value of one field. Complete is set once the
// value is final; that event may repeat the previous value.
type FieldEvent struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Complete bool   `json:"complete,omitempty"`
}

// FailureResponse describes a recovery failure
type FailureResponse struct {
	Reason   string            `json:"reason"`
	Message  string            `json:"message,omitempty"`
	Excerpt  string            `json:"excerpt,omitempty"`
	Salvaged map[string]string `json:"salvaged,omitempty"`
}

// ArtifactResponse is one saved generation
type ArtifactResponse struct {
	ID             string             `json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	Provider       string             `json:"provider,omitempty"`
	Model          string             `json:"model,omitempty"`
	Prompt         string             `json:"prompt,omitempty"`
	Fingerprint    string             `json:"fingerprint,omitempty"`
	Document       *artifact.Document `json:"document,omitempty"`
	Failure        *FailureResponse   `json:"failure,omitempty"`
	TransportError string             `json:"transport_error,omitempty"`
	Chunks         int                `json:"chunks"`
	Bytes          int                `json:"bytes"`
}

// ErrorResponse is the body of every non-stream error
type ErrorResponse struct {
	Error string `json:"error"`
}

// New creates a Server
func New(opts ...Option) *Server {
	s := &Server{
		recoverer:  artifact.NewRecoverer(),
		logger:     slog.New(slog.DiscardHandler),
		schemaOpts: schema.Options{AllowError: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the artifact routes to r
//
// Example:
//
//	router := gin.New()
//	router.Use(ginartifact.RequestID(), ginartifact.Logger(logger))
//	ginartifact.New(ginartifact.WithOpener(opener)).Register(router.Group("/v1"))
func (s *Server) Register(r gin.IRouter) {
	r.POST("/generate", s.generate)
	r.POST("/recover", s.recoverText)
	r.GET("/schema", s.getSchema)
	r.GET("/artifacts", s.listArtifacts)
	r.GET("/artifacts/:id", s.getArtifact)
	r.GET("/artifacts/:id/preview", s.preview)
}

// Handler returns a Gin engine with the request ID, logging and panic
// recovery middleware and every route registered at the root.
func (s *Server) Handler() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Logger(s.logger), gin.Recovery())
	s.Register(router)
	return router
}

func (s *Server) generate(c *gin.Context) {
	if s.opener == nil {
		abortWithError(c, http.StatusServiceUnavailable, "generation is not configured")
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	id := GetRequestID(c)
	logger := s.logger.With("request_id", id)
	ctx := c.Request.Context()

	src, err := s.opener.Open(ctx, source.Request{System: req.System, Prompt: req.Prompt})
	if err != nil {
		logger.Error("failed to open source", "error", err)
		abortWithError(c, http.StatusBadGateway, err.Error())
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	send := func(event string, data any) {
		c.SSEvent(event, data)
		c.Writer.Flush()
	}
	send(EventStart, StartEvent{ID: id})

	sink := artifact.UpdateFunc(func(u artifact.Update) {
		send(EventField, FieldEvent{Field: u.Field.Name(), Value: u.Value, Complete: u.Complete})
	})
	out := artifact.Run(ctx, src, sink, artifact.WithRecoverer(s.recoverer), artifact.WithLogger(logger))

	if out.Document != nil {
		send(EventDocument, out.Document)
	} else {
		send(EventFailure, NewFailureResponse(out.Failure))
	}

	logger.Info("generation finished",
		"chunks", out.Chunks,
		"bytes", out.Bytes,
		"ok", out.Document != nil,
		"transport_error", out.TransportErr != nil)

	if s.store != nil {
		// Saved even when the client has disconnected.
		rec := store.NewRecord(id, s.provider, s.model, req.Prompt, out)
		if err := s.store.Save(context.WithoutCancel(ctx), rec); err != nil {
			logger.Error("failed to save generation", "error", err)
		}
	}
}

func (s *Server) recoverText(c *gin.Context) {
	var req RecoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	doc, f := s.recoverer.Recover(req.Text)
	if f != nil {
		c.JSON(http.StatusUnprocessableEntity, NewFailureResponse(f))
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) getSchema(c *gin.Context) {
	var (
		sch map[string]any
		err error
	)
	switch provider := c.Query("provider"); provider {
	case "", source.ProviderGemini:
		sch, err = schema.NewGenerator(s.schemaOpts).GenerateFlattened()
	case source.ProviderOpenAI:
		sch, err = schema.ForOpenAI(s.schemaOpts)
	default:
		abortWithError(c, http.StatusBadRequest, "unknown provider: "+provider)
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, sch)
}

func (s *Server) listArtifacts(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			abortWithError(c, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		limit = n
	}

	recs, err := s.store.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list generations", "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to list artifacts")
		return
	}

	resp := make([]ArtifactResponse, 0, len(recs))
	for i := range recs {
		resp = append(resp, artifactResponse(&recs[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getArtifact(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, artifactResponse(rec))
}

// lookup loads the record named by the :id parameter, writing the error
// response itself when it cannot.
func (s *Server) lookup(c *gin.Context) (*store.Record, bool) {
	if !s.requireStore(c) {
		return nil, false
	}

	id := c.Param("id")
	rec, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "artifact not found: "+id)
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to get generation", "id", id, "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to get artifact")
		return nil, false
	}
	return rec, true
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store == nil {
		abortWithError(c, http.StatusServiceUnavailable, "artifact history is not configured")
		return false
	}
	return true
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// NewFailureResponse converts f, returning nil for a nil Failure
func NewFailureResponse(f *artifact.Failure) *FailureResponse {
	if f == nil {
		return nil
	}
	return &FailureResponse{
		Reason:   string(f.Reason),
		Message:  f.Message,
		Excerpt:  f.Excerpt,
		Salvaged: f.Salvaged,
	}
}

func artifactResponse(rec *store.Record) ArtifactResponse {
	resp := ArtifactResponse{
		ID:             rec.ID,
		CreatedAt:      rec.CreatedAt,
		Provider:       rec.Provider,
		Model:          rec.Model,
		Prompt:         rec.Prompt,
		Fingerprint:    rec.Fingerprint,
		Document:       rec.Document,
		TransportError: rec.TransportError,
		Chunks:         rec.Chunks,
		Bytes:          rec.Bytes,
	}
	if rec.Reason != "" {
		resp.Failure = &FailureResponse{
			Reason:   string(rec.Reason),
			Message:  rec.Message,
			Excerpt:  rec.Excerpt,
			Salvaged: rec.Salvaged,
		}
	}
	return resp
}
