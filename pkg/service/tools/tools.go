package tools

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go.faultline.dev/socketfaults/config"
	"go.faultline.dev/socketfaults/utils"
)

type Tools struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Tools {
	return &Tools{
		logger: logger,
	}
}

// CreateConfig writes configData, or the default configuration when it is empty,
// followed by the config guide.
func (t *Tools) CreateConfig(_ context.Context, filePath string, configData string) error {
	var node yaml.Node
	var err error

	if configData == "" {
		configData, err = config.Merge(config.InternalConfig, config.GetDefaultConfig())
		if err != nil {
			utils.LogError(t.logger, err, "failed to create the default config string")
			return err
		}
	}

	if err := yaml.Unmarshal([]byte(configData), &node); err != nil {
		utils.LogError(t.logger, err, "failed to unmarshal the config")
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(node.Content) == 0 {
		return errors.New("config is empty")
	}
	results, err := yaml.Marshal(node.Content[0])
	if err != nil {
		utils.LogError(t.logger, err, "failed to marshal the config")
		return err
	}

	finalOutput := append(results, []byte(utils.ConfigGuide)...)

	if err := os.WriteFile(filePath, finalOutput, 0644); err != nil {
		utils.LogError(t.logger, err, "failed to write config file", zap.String("path", filePath))
		return err
	}

	t.logger.Info("Config file generated successfully", zap.String("path", filePath))
	return nil
}
