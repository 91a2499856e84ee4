package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/deepankarm/artifactstream/internal/config"
	"github.com/deepankarm/artifactstream/pkg/artifact"
	"github.com/deepankarm/artifactstream/pkg/artifact/schema"
	"github.com/deepankarm/artifactstream/pkg/ginartifact"
	"github.com/deepankarm/artifactstream/pkg/source"
	"github.com/deepankarm/artifactstream/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"), c.StringSlice("env-file")...)
	if err != nil {
		return nil, err
	}
	if c.IsSet("provider") {
		cfg.Provider = c.String("provider")
	}
	if c.IsSet("model") {
		cfg.Model = c.String("model")
	}
	if c.IsSet("store") {
		cfg.StorePath = c.String("store")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("listen") {
		cfg.ListenAddr = c.String("listen")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: cfg.Level()}))
}

func newRecoverer(cfg *config.Config, logger *slog.Logger) *artifact.Recoverer {
	return artifact.NewRecoverer(
		artifact.WithMaxExcerpt(cfg.MaxExcerpt),
		artifact.WithRecoverLogger(logger),
	)
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)

	if err := cfg.ValidateProvider(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opener, err := source.NewOpener(ctx, cfg.SourceSettings())
	if err != nil {
		return fmt.Errorf("failed to create %s source: %w", cfg.Provider, err)
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := ginartifact.New(
		ginartifact.WithOpener(opener),
		ginartifact.WithStore(st),
		ginartifact.WithRecoverer(newRecoverer(cfg, logger)),
		ginartifact.WithLogger(logger),
		ginartifact.WithProviderInfo(cfg.Provider, cfg.Model),
	)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.ListenAddr, "provider", cfg.Provider, "store", cfg.StorePath)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func generateAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)

	if err := cfg.ValidateProvider(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opener, err := source.NewOpener(ctx, cfg.SourceSettings())
	if err != nil {
		return fmt.Errorf("failed to create %s source: %w", cfg.Provider, err)
	}
	src, err := opener.Open(ctx, source.Request{System: c.String("system"), Prompt: c.String("prompt")})
	if err != nil {
		return err
	}

	id := uuid.NewString()
	out := run(ctx, c.App.Writer, src, cfg, logger.With("request_id", id))

	if !c.Bool("no-save") {
		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Save(context.WithoutCancel(ctx), store.NewRecord(id, cfg.Provider, cfg.Model, c.String("prompt"), out)); err != nil {
			return err
		}
		logger.Info("generation saved", "id", id, "store", cfg.StorePath)
	}
	return out.Err()
}

func recoverAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	text, err := readInput(c)
	if err != nil {
		return err
	}

	doc, failure := newRecoverer(cfg, newLogger(c, cfg)).Recover(text)
	if failure != nil {
		_ = writeJSON(c.App.Writer, ginartifact.NewFailureResponse(failure))
		return failure
	}
	return writeJSON(c.App.Writer, doc)
}

func replayAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("size") {
		cfg.ChunkSize = c.Int("size")
	}
	if c.IsSet("delay") {
		cfg.ChunkDelay = c.Duration("delay")
	}

	var src artifact.Source
	if path := c.Args().First(); path != "" && path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		src = source.Replay(string(data), cfg.ChunkSize, cfg.ChunkDelay)
	} else {
		// stdin is streamed as it arrives, so a live response can be piped in.
		src = source.NewReader(c.App.Reader, cfg.ChunkSize)
	}

	out := run(c.Context, c.App.Writer, src, cfg, newLogger(c, cfg))
	return out.Err()
}

func schemaAction(c *cli.Context) error {
	opts := schema.Options{AllowError: !c.Bool("no-error")}

	var (
		s   map[string]any
		err error
	)
	if c.Bool("openai") {
		s, err = schema.ForOpenAI(opts)
	} else {
		s, err = schema.NewGenerator(opts).GenerateFlattened()
	}
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, s)
}

func historyAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.List(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	w := c.App.Writer
	if len(recs) == 0 {
		fmt.Fprintln(w, "No generations found")
		return nil
	}

	fmt.Fprintf(w, "%-36s %-20s %-8s %-26s %s\n", "ID", "Created", "Provider", "Result", "Prompt")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range recs {
		result := "ok " + r.Fingerprint
		if r.Reason != "" {
			result = string(r.Reason)
		}
		fmt.Fprintf(w, "%-36s %-20s %-8s %-26s %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Provider, result, truncate(r.Prompt, 40))
	}
	fmt.Fprintf(w, "\nTotal: %d generations\n", len(recs))
	return nil
}

// run streams src through the pipeline, writing each field update and the
// final result to w as JSON lines.
func run(ctx context.Context, w io.Writer, src artifact.Source, cfg *config.Config, logger *slog.Logger) *artifact.Outcome {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	sink := artifact.UpdateFunc(func(u artifact.Update) {
		_ = enc.Encode(ginartifact.FieldEvent{Field: u.Field.Name(), Value: u.Value, Complete: u.Complete})
	})
	out := artifact.Run(ctx, src, sink,
		artifact.WithRecoverer(newRecoverer(cfg, logger)),
		artifact.WithLogger(logger))

	if out.Document != nil {
		_ = enc.Encode(map[string]any{ginartifact.EventDocument: out.Document})
	} else {
		_ = enc.Encode(map[string]any{ginartifact.EventFailure: ginartifact.NewFailureResponse(out.Failure)})
	}
	return out
}

// readInput reads the file named by the first argument, or stdin.
func readInput(c *cli.Context) (string, error) {
	if path := c.Args().First(); path != "" && path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}
