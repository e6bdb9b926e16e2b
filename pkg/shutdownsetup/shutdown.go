// Package shutdownsetup wires SIGINT/SIGTERM to a graceful stop.
package shutdownsetup

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tiv91/intimshopbot/pkg/logger"
)

// DefaultTimeout bounds how long in-flight work may run after a signal.
const DefaultTimeout = 10 * time.Second

// NotifyContext returns a context cancelled on SIGINT or SIGTERM.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// ShutdownServer stops the HTTP server once ctx is done, waiting up to timeout.
func ShutdownServer(ctx context.Context, server *http.Server, timeout time.Duration, log *logger.Logger) error {
	<-ctx.Done()
	log.Info("Shutting down HTTP server", "address", server.Addr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	log.Info("HTTP server stopped")
	return nil
}
