// Package cli wires the cobra commands of the socket faults server.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.faultline.dev/socketfaults/config"
)

type HookFunc func(ctx context.Context, logger *zap.Logger, cfg *config.Config, serviceFactory ServiceFactory, cmdConfigurator CmdConfigurator) *cobra.Command

// Registered holds the registered command hooks
var Registered map[string]HookFunc

func Register(name string, f HookFunc) {
	if Registered == nil {
		Registered = make(map[string]HookFunc)
	}
	Registered[name] = f
}
