package faults

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go.faultline.dev/socketfaults/config"
	"go.faultline.dev/socketfaults/pkg/models"
	"go.faultline.dev/socketfaults/pkg/socket"
	"go.faultline.dev/socketfaults/utils"
	"go.faultline.dev/socketfaults/utils/log"
)

var ErrNoListeners = errors.New("no socket fault listener could be started")

// Faults is the lifecycle coordinator: it binds the configured scenarios, runs one
// listener per binding and shuts them down when the root context is cancelled.
type Faults struct {
	logger  *zap.Logger
	loggers *log.ModuleLoggerFactory
	cfg     *config.Config

	mu        sync.RWMutex
	listeners []*socket.Listener
	ready     chan struct{}
	readyOnce sync.Once
}

func New(logger *zap.Logger, cfg *config.Config) *Faults {
	return &Faults{
		logger:  logger.Named(log.ModuleFaults),
		loggers: log.NewModuleLoggerFactory(logger, cfg.Debug, cfg.DebugModules),
		cfg:     cfg,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once every configured scenario has been bound (or skipped).
func (f *Faults) Ready() <-chan struct{} {
	return f.ready
}

// Run blocks until ctx is cancelled. On cancellation the listening sockets are
// closed first; in flight connections get faults.shutdownGrace to complete before
// they are dropped.
func (f *Faults) Run(ctx context.Context) error {
	defer f.readyOnce.Do(func() { close(f.ready) })

	f.warnUnknownScenarios()

	registry := socket.NewRegistry(ctx, f.loggers.GetLogger(log.ModuleRegistry), f.cfg.SocketPort, socket.BindOptions{
		Host:      f.cfg.Faults.Host,
		ReusePort: f.cfg.Faults.ReusePort,
	})
	defer func() {
		if err := registry.Close(); err != nil {
			utils.LogError(f.logger, err, "failed to close server sockets")
		}
	}()

	listenerLogger := f.loggers.GetLogger(log.ModuleListener)
	backoff := socket.Backoff{Min: f.cfg.Faults.AcceptBackoff.Min, Max: f.cfg.Faults.AcceptBackoff.Max}
	listeners := make([]*socket.Listener, 0, registry.Len())
	for _, b := range registry.Bindings() {
		opts := socket.Options{Pause: f.cfg.PauseFor(b.Name())}
		listeners = append(listeners, socket.NewListener(listenerLogger, b, opts, backoff))
	}
	f.mu.Lock()
	f.listeners = listeners
	f.mu.Unlock()
	f.readyOnce.Do(func() { close(f.ready) })

	if len(listeners) == 0 {
		utils.LogError(f.logger, ErrNoListeners, "no scenario is active; check the faults.socket configuration")
		if f.cfg.Faults.RequireListeners {
			return ErrNoListeners
		}
		<-ctx.Done()
		return nil
	}

	// connCtx outlives ctx so in flight connections are not cut when shutdown starts.
	connCtx, abort := context.WithCancel(context.WithoutCancel(ctx))
	defer abort()

	g := new(errgroup.Group)
	for _, l := range listeners {
		g.Go(func() error {
			return l.Serve(connCtx)
		})
	}
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	f.logger.Info("socket faults generator started", zap.Int("listeners", len(listeners)))

	select {
	case <-ctx.Done():
	case err := <-done:
		return err
	}

	f.logger.Info("stopping socket handlers", zap.Any("reason", context.Cause(ctx)))
	for _, l := range listeners {
		if err := l.Stop(); err != nil {
			utils.LogError(f.logger, err, "failed to close server socket", zap.String("scenario", l.Name()))
		}
	}

	grace := time.NewTimer(f.cfg.Faults.ShutdownGrace)
	defer grace.Stop()
	select {
	case err := <-done:
		f.logger.Info("socket faults generator terminated")
		return err
	case <-grace.C:
		f.logger.Warn("in-flight connections did not finish in time, dropping them", zap.Duration("grace", f.cfg.Faults.ShutdownGrace))
		abort()
	}
	err := <-done
	f.logger.Info("socket faults generator terminated")
	return err
}

func (f *Faults) warnUnknownScenarios() {
	for name := range f.cfg.Faults.Socket {
		if !socket.IsKnown(name) {
			fields := []zap.Field{zap.String("scenario", name)}
			if hint := socket.Suggest(name); hint != "" {
				fields = append(fields, zap.String("didYouMean", hint))
			} else {
				fields = append(fields, zap.Strings("known", socket.Names()))
			}
			f.logger.Warn("ignoring configuration for unknown scenario", fields...)
		}
	}
}

// Status reports every active listener in catalog order.
func (f *Faults) Status() []models.ListenerStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.ListenerStatus, 0, len(f.listeners))
	for _, l := range f.listeners {
		out = append(out, l.Status())
	}
	return out
}

// Catalog lists every scenario with its configured port and whether it is served.
func (f *Faults) Catalog() []models.CatalogEntry {
	active := make(map[string]models.ListenerStatus)
	for _, s := range f.Status() {
		active[s.Name] = s
	}
	entries := make([]models.CatalogEntry, 0)
	for _, s := range socket.Catalog() {
		e := models.CatalogEntry{Name: s.Name, Description: s.Description}
		e.Port, e.Configured = f.cfg.SocketPort(s.Name)
		if st, ok := active[s.Name]; ok {
			e.Active = true
			e.Port = st.Port
		}
		entries = append(entries, e)
	}
	return entries
}
