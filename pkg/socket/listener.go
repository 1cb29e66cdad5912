package socket

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"go.faultline.dev/socketfaults/pkg/models"
	"go.faultline.dev/socketfaults/utils"
)

const (
	defaultBackoffMin = 5 * time.Millisecond
	defaultBackoffMax = time.Second
)

// Backoff is the exponential delay applied between failing accepts.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

func (b Backoff) next(prev time.Duration) time.Duration {
	lo, hi := b.Min, b.Max
	if lo <= 0 {
		lo = defaultBackoffMin
	}
	if hi < lo {
		hi = defaultBackoffMax
		if hi < lo {
			hi = lo
		}
	}
	if prev <= 0 {
		return lo
	}
	if next := prev * 2; next < hi {
		return next
	}
	return hi
}

// Listener serves one scenario on one bound socket. Connections are handled one at
// a time; later clients wait in the kernel backlog.
type Listener struct {
	binding *Binding
	logger  *zap.Logger
	opts    Options
	backoff Backoff

	state        atomic.Value
	stopped      atomic.Bool
	connections  atomic.Uint64
	connErrors   atomic.Uint64
	acceptErrors atomic.Uint64
}

func NewListener(logger *zap.Logger, b *Binding, opts Options, backoff Backoff) *Listener {
	l := &Listener{
		binding: b,
		logger:  logger.With(zap.String("scenario", b.Name()), zap.Uint32("port", b.Port)),
		opts:    opts,
		backoff: backoff,
	}
	l.state.Store(models.ListenerIdle)
	return l
}

func (l *Listener) Name() string {
	return l.binding.Name()
}

// Serve runs the accept loop until Stop is called or the socket is closed. ctx is
// handed to the scenario handlers; cancelling it aborts the connection in flight.
func (l *Listener) Serve(ctx context.Context) error {
	l.logger.Info("socket handler started")
	defer l.logger.Info("socket handler stopped")

	var delay time.Duration
	for {
		l.setState(models.ListenerAccepting)
		raw, err := l.binding.Listener.Accept()
		if err != nil {
			if l.stopped.Load() || errors.Is(err, net.ErrClosed) {
				l.setState(models.ListenerStopped)
				return nil
			}
			l.acceptErrors.Add(1)
			delay = l.backoff.next(delay)
			utils.LogError(l.logger, err, "failed to accept connection", zap.Duration("retryIn", delay))
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				l.setState(models.ListenerStopped)
				return nil
			}
			continue
		}
		delay = 0

		l.setState(models.ListenerHandling)
		l.handle(ctx, raw)
	}
}

func (l *Listener) handle(ctx context.Context, raw net.Conn) {
	l.connections.Add(1)
	c := NewConn(l.logger, raw)
	stop := context.AfterFunc(ctx, func() { _ = c.CloseAbrupt() })
	defer stop()
	defer func() { _ = c.CloseAbrupt() }()
	defer utils.Recover(c.logger, "socket handler panicked")

	c.logger.Info("new connection")
	err := l.binding.Scenario.Handle(ctx, c, l.opts)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		c.logger.Debug("peer closed the connection early")
	case ctx.Err() != nil:
		c.logger.Warn("connection aborted on shutdown")
	default:
		l.connErrors.Add(1)
		utils.LogError(c.logger, err, "error handling connection")
	}
}

// Stop closes the listening socket. The connection in flight, if any, is left to
// finish.
func (l *Listener) Stop() error {
	if !l.stopped.CompareAndSwap(false, true) {
		return nil
	}
	err := l.binding.Listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (l *Listener) setState(s models.ListenerState) {
	l.state.Store(s)
}

func (l *Listener) Status() models.ListenerStatus {
	return models.ListenerStatus{
		Name:         l.Name(),
		Port:         l.binding.Port,
		Address:      l.binding.Listener.Addr().String(),
		State:        l.state.Load().(models.ListenerState),
		Connections:  l.connections.Load(),
		ConnErrors:   l.connErrors.Load(),
		AcceptErrors: l.acceptErrors.Load(),
	}
}
