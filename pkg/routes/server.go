package routes

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

const (
	shutdownTimeout = 5 * time.Second
	// maxConns caps concurrent admin connections.
	maxConns = 64
)

// StartAdminServer serves the admin API until ctx is cancelled.
func StartAdminServer(ctx context.Context, logger *zap.Logger, host string, port uint32, router http.Handler) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return fmt.Errorf("failed to start admin server on port %d: %w", port, err)
	}
	return Serve(ctx, logger, netutil.LimitListener(ln, maxConns), router)
}

func Serve(ctx context.Context, logger *zap.Logger, ln net.Listener, router http.Handler) error {
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("admin server started", zap.String("address", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down admin server: %w", err)
	}
	logger.Info("admin server stopped")
	return nil
}
