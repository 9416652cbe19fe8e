package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds how long Serve waits for in-flight requests.
const DefaultShutdownTimeout = 10 * time.Second

// Serve handles requests on ln until ctx is cancelled. It returns only once
// every in-flight request has finished or timeout has passed.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, timeout time.Duration, logger *slog.Logger) error {
	srv := &http.Server{Handler: handler}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server did not shut down cleanly", "error", err)
		}
	}()

	logger.Info("Starting server", "addr", ln.Addr().String())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("Error serving requests:\n%w", err)
	}
	// ErrServerClosed comes back as soon as Shutdown starts
	<-done
	return nil
}

// ListenAndServe serves s on its configured address until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Config.Addr())
	if err != nil {
		return fmt.Errorf("Couldn't listen on %s:\n%w", s.Config.Addr(), err)
	}
	return Serve(ctx, ln, s.Handler(), DefaultShutdownTimeout, s.logger())
}
