package provider

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"go.faultline.dev/socketfaults/config"
	"go.faultline.dev/socketfaults/pkg/service/faults"
	"go.faultline.dev/socketfaults/pkg/service/tools"
)

var ErrUnknownCommand = errors.New("invalid command")

type ServiceProvider struct {
	logger *zap.Logger
	cfg    *config.Config
}

func NewServiceProvider(logger *zap.Logger, cfg *config.Config) *ServiceProvider {
	return &ServiceProvider{
		logger: logger,
		cfg:    cfg,
	}
}

func (n *ServiceProvider) GetService(_ context.Context, cmd string) (interface{}, error) {
	switch cmd {
	case "serve", "scenarios":
		return faults.New(n.logger, n.cfg), nil
	case "config":
		return tools.New(n.logger), nil
	default:
		return nil, ErrUnknownCommand
	}
}
