package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	tomb "gopkg.in/tomb.v2"

	"github.com/PxPatel/auction-engine/internal/logger"
)

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server runs the HTTP API until its context is cancelled, then drains
// in-flight requests.
type Server struct {
	cfg     ServerConfig
	httpSrv *http.Server
	ready   chan string
}

// NewServer creates a server for handler
func NewServer(cfg ServerConfig, handler http.Handler) *Server {
	return &Server{
		cfg: cfg,
		httpSrv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		ready: make(chan string, 1),
	}
}

// Ready yields the listening address once the listener is bound
func (s *Server) Ready() <-chan string {
	return s.ready
}

// Run serves until ctx is done or the listener fails
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	t, ctx := tomb.WithContext(ctx)

	t.Go(func() error {
		s.ready <- listener.Addr().String()
		logger.Info("Server starting", map[string]interface{}{
			"address": listener.Addr().String(),
		})

		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	t.Go(func() error {
		<-ctx.Done()
		logger.Info("Server shutting down...", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	err = t.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
