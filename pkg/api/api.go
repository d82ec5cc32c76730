package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/corpus"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Ensure interface compliance.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.ServerConfig
	store      corpus.Store
	files      *localFileServer
	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer creates an API server over the given run index. Files under
// the configured roots are exposed at /files/.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.ServerConfig,
	store corpus.Store,
) Server {
	return &server{
		log:   log.WithField("component", "api"),
		cfg:   cfg,
		store: store,
		files: newLocalFileServer(log, cfg.Roots),
	}
}

// Start binds the listen address and serves requests until Stop.
func (s *server) Start(ctx context.Context) error {
	listen := s.cfg.Listen
	if listen == "" {
		listen = config.DefaultListen
	}

	s.httpServer = &http.Server{
		Addr:              listen,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", listen).Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	s.log.Info("API server stopped")

	return nil
}
