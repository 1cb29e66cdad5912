package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"go.faultline.dev/socketfaults/utils"
)

// PortResolver maps a scenario name to its configured port. ok is false when the
// scenario is not activated.
type PortResolver func(name string) (port uint32, ok bool)

// BindOptions controls how listening sockets are opened.
type BindOptions struct {
	Host      string
	ReusePort bool
}

// Binding ties one scenario to one bound listening socket.
type Binding struct {
	Scenario Scenario
	Port     uint32
	Listener net.Listener
}

func (b *Binding) Name() string {
	return b.Scenario.Name
}

// Registry is the set of scenarios that were successfully bound at startup. It is
// never modified after NewRegistry returns.
type Registry struct {
	bindings map[string]*Binding
	order    []string
}

// NewRegistry walks the catalog, resolves a port for every scenario and binds it.
// Failures only remove the affected scenario from the registry.
func NewRegistry(ctx context.Context, logger *zap.Logger, resolve PortResolver, opts BindOptions) *Registry {
	r := &Registry{bindings: make(map[string]*Binding)}
	for _, s := range scenarios {
		port, ok := resolve(s.Name)
		if !ok {
			logger.Debug("no port configured for socket", zap.String("scenario", s.Name))
			continue
		}
		ln, err := Bind(ctx, opts, port)
		if err != nil {
			utils.LogError(logger, err, "failed to create server socket", zap.String("scenario", s.Name), zap.Uint32("port", port))
			continue
		}
		bound := boundPort(ln, port)
		r.bindings[s.Name] = &Binding{Scenario: s, Port: bound, Listener: ln}
		r.order = append(r.order, s.Name)
		logger.Info("created server socket", zap.String("scenario", s.Name), zap.String("address", ln.Addr().String()))
	}
	return r
}

// Bind opens a TCP listening socket on the given port.
func Bind(ctx context.Context, opts BindOptions, port uint32) (net.Listener, error) {
	if port > 65535 {
		return nil, fmt.Errorf("port %d out of range", port)
	}
	lc := listenConfig(opts.ReusePort)
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(opts.Host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	return ln, nil
}

// boundPort reports the port the kernel picked when 0 was configured.
func boundPort(ln net.Listener, fallback uint32) uint32 {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return uint32(addr.Port)
	}
	return fallback
}

func (r *Registry) Get(name string) (*Binding, bool) {
	b, ok := r.bindings[name]
	return b, ok
}

// Bindings returns the bound scenarios in catalog order.
func (r *Registry) Bindings() []*Binding {
	out := make([]*Binding, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.bindings[name])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Close closes every listening socket. Sockets that are already closed are ignored.
func (r *Registry) Close() error {
	var errs []error
	for _, b := range r.bindings {
		if err := b.Listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		}
	}
	return errors.Join(errs...)
}
