// Package server exposes book checking and conversion over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gbook/config"
	"gbook/state"
	"gbook/text"
)

// Server is HTTP API for books.
type Server struct {
	router chi.Router
	env    *state.LocalEnv
	cfg    config.ServerConfig
	log    *zap.Logger
	// nil when tokenizer could not be loaded, sentences are counted per line
	splitter *text.Splitter
}

// New creates server using configuration and logger from env.
func New(env *state.LocalEnv) *Server {
	s := &Server{
		env: env,
		log: env.Log.Named("server"),
	}
	if env.Cfg != nil {
		s.cfg = env.Cfg.Server
	}
	splitter, err := text.NewSplitter()
	if err != nil {
		s.log.Warn("Sentence statistics are not available", zap.Error(err))
	}
	s.splitter = splitter
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.cfg.APIKey, s.log))

		r.Post("/check", s.handleCheck)
		r.Post("/format", s.handleFormat)
		r.Post("/delta", s.handleDelta)
		r.Get("/new", s.handleNew)
	})

	s.router = r
}

// Run listens on configured address and serves requests until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully waiting for active requests no longer than configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) (err error) {
	srv := &http.Server{
		Handler:           s,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ErrorLog:          zap.NewStdLog(s.log),
	}

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ln)
	}()
	s.log.Info("Server started", zap.Stringer("address", ln.Addr()))

	select {
	case err := <-done:
		return fmt.Errorf("server stopped unexpectedly: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Server shutting down", zap.Duration("timeout", s.cfg.ShutdownTimeout))

	shutdownCtx := context.Background()
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	if er := srv.Shutdown(shutdownCtx); er != nil {
		err = multierr.Append(err, fmt.Errorf("unable to shutdown server: %w", er))
		if er := srv.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close server: %w", er))
		}
	}
	if er := <-done; er != nil && !errors.Is(er, http.ErrServerClosed) {
		err = multierr.Append(err, er)
	}
	s.log.Info("Server stopped", zap.Duration("uptime", s.env.Uptime()))
	return err
}
