package api

import (
	"context"
	"net/http"
	"time"

	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server wraps http.Server with the timeouts and shutdown behavior shared by
// the API and worker binaries.
type Server struct {
	srv  *http.Server
	logg *logger.Logger
}

// NewServer binds the handler to addr without starting it.
func NewServer(addr string, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logg: logg,
	}
}

// Start blocks serving requests until Shutdown is called or the listener
// fails. A closed-server error is reported as a clean exit.
func (s *Server) Start(ctx context.Context) error {
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"addr": s.srv.Addr}), "http.server.start")
	}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by shutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if s.logg != nil {
		s.logg.Info(ctx, "http.server.shutdown")
	}
	return s.srv.Shutdown(ctx)
}
