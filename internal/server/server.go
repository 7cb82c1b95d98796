// Package server exposes letters over HTTP.
//
// Routes:
//
//	POST /api/letters               upload {"letter": <wire letter>}
//	GET  /api/letters               letters delivered to the caller
//	GET  /api/letters/{id}          one letter; marks it read
//	POST /api/letters/{id}/send     {"recipients": [...]}
//	GET  /previews/{name}?auth=...  a published page image
//
// Every JSON response carries an "error" field that is null on success, as
// the original clients expect. The caller is identified by a header set by
// the authenticating proxy in front of the server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pictoswap/pkg/pipeline"
	"github.com/matzehuels/pictoswap/pkg/session"
	"github.com/matzehuels/pictoswap/pkg/store"
)

// Default option values.
const (
	DefaultUserHeader   = "X-Pictoswap-User"
	DefaultMaxBodyBytes = 4 << 20
)

// Options tune a Server. Zero values select defaults.
type Options struct {
	UserHeader     string
	AllowAnonymous bool
	MaxBodyBytes   int64
	Logger         *log.Logger
	// Now stamps new letters and deliveries.
	Now func() time.Time
}

// Server serves the letter API.
type Server struct {
	store  store.Store
	runner *pipeline.Runner
	signer *session.Signer
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New wires a server. runner must have a preview store.
func New(st store.Store, runner *pipeline.Runner, signer *session.Signer, opts Options) *Server {
	if opts.UserHeader == "" {
		opts.UserHeader = DefaultUserHeader
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		store:  st,
		runner: runner,
		signer: signer,
		opts:   opts,
		logger: opts.Logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.identify)
		r.Post("/letters", s.handleCreate)
		r.Get("/letters", s.handleList)
		r.Get("/letters/{id}", s.handleGet)
		r.Post("/letters/{id}/send", s.handleSend)
	})
	r.Get("/previews/{name}", s.handlePreview)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{"error": "no such endpoint"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{"error": "method not allowed"})
	})
	return r
}

// HTTPConfig holds listener settings for Run.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg HTTPConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
