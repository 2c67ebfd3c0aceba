// Package server wires configuration, storage and the HTTP API together
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alexbotov/highscore/internal/api"
	"github.com/alexbotov/highscore/internal/config"
	"github.com/alexbotov/highscore/internal/database"
	"github.com/alexbotov/highscore/internal/highscore"
	"github.com/alexbotov/highscore/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Server owns every long-lived resource of the process
type Server struct {
	cfg  *config.Config
	db   *database.DB
	hub  *api.Hub
	http *http.Server
}

// New opens storage, applies the schema once and builds the HTTP server
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	driver, dsn := cfg.DataSource()
	db, err := database.New(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	m := metrics.New()
	hub := api.NewHub()
	scores := highscore.New(db, highscore.Config{Team: cfg.Team}, m, hub)

	best, err := scores.GetBest(ctx, cfg.Team)
	if err != nil {
		db.Close()
		return nil, err
	}
	m.SetBest(cfg.Team, best)

	handler := api.New(scores, m, hub, cfg.Server.StaticDir)

	return &Server{
		cfg: cfg,
		db:  db,
		hub: hub,
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler.SetupRouter(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully and releases storage
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", ln.Addr().String(), "team", s.cfg.Team)
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.hub.Close()
	err := s.http.Shutdown(shutdownCtx)
	s.close()
	if err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func (s *Server) close() {
	if err := s.db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}
