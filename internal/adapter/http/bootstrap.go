package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tasktracker/pkg/config"
)

type Server struct {
	httpServer *http.Server
	container  *Container
}

// NewServer wires the container and the router behind an http.Server.
func NewServer(ctx context.Context, cfg *config.AppConfig, deps Dependencies) (*Server, error) {
	container, err := NewContainer(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}

	router := SetupRouter(container.Handlers(), container.Dependencies, cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		container: container,
	}, nil
}

// Start serves in the background. A listener failure is logged and reported
// on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	cfg := s.container.Config
	slog.Info("Server starting",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"driver", cfg.Database.Driver,
		"rate_limit_enabled", cfg.RateLimitEnabled,
		"cache_enabled", cfg.CacheEnabled,
		"https_enforced", cfg.EnforceHTTPS)

	go func() {
		defer close(errCh)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			errCh <- err
		}
	}()

	return errCh
}

// Shutdown drains in-flight requests, then releases storage and brokers.
func (s *Server) Shutdown(ctx context.Context) error {
	return errors.Join(
		s.httpServer.Shutdown(ctx),
		s.container.Close(),
	)
}
