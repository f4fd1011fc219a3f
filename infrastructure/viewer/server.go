// Package viewer serves stored run summaries and the prompts they were
// produced from, together with a single-page results browser.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-concord/internal/ports"
)

// PromptReader returns the content of one prompt. It must return an error
// matching domain.ErrPromptNotFound for unknown ids.
type PromptReader interface {
	ReadPrompt(ctx context.Context, id string) (string, error)
}

// Config holds the viewer configuration.
type Config struct {
	// Addr is the listen address.
	Addr    string
	Store   ports.ResultStore
	Prompts PromptReader
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is the results viewer HTTP server.
type Server struct {
	cfg    Config
	srv    *http.Server
	logger *slog.Logger
	// loads collapses concurrent reads of the same summary or prompt.
	loads singleflight.Group
}

// New creates a viewer server. Store and Prompts are required.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("viewer: result store is required")
	}
	if cfg.Prompts == nil {
		return nil, errors.New("viewer: prompt reader is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:3000"
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}
	mux := http.NewServeMux()
	if err := s.registerRoutes(mux); err != nil {
		return nil, err
	}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("viewer listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("viewer listening", "address", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("viewer shutdown error", "error", err)
		}
	}()

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("viewer server error: %w", err)
	}
	return nil
}
