package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

// Server wraps the gin engine in an http.Server so shutdown can drain
// in-flight requests, including open event streams, before the process
// exits.
type Server struct {
	log    *logger.Logger
	server *http.Server
}

func NewServer(log *logger.Logger, engine *gin.Engine, addr string) *Server {
	return &Server{
		log: log,
		server: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until ctx is canceled, then shuts down with a bounded drain
// window (HTTP_SHUTDOWN_TIMEOUT_SECONDS, default 10).
func (s *Server) Run(ctx context.Context) error {
	if s == nil || s.server == nil {
		return fmt.Errorf("server not initialized")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()
	if s.log != nil {
		s.log.Info("HTTP server listening", "addr", s.server.Addr)
	}

	select {
	case <-ctx.Done():
		timeout := time.Duration(envutil.Int("HTTP_SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if s.log != nil {
			s.log.Info("HTTP server shutting down", "timeout", timeout.String())
		}
		_ = s.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
