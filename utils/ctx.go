package utils

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

// NewCtx returns the root context. It is cancelled once SIGINT or SIGTERM arrives and
// carries the signal as its cause.
func NewCtx() context.Context {
	ctx, cancel := context.WithCancelCause(context.Background())

	sigs := make(chan os.Signal, 1)
	// os.Interrupt is more portable than syscall.SIGINT
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			cancel(errors.New("received signal " + sig.String()))
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()

	return ctx
}
