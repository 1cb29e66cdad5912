package cli

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.faultline.dev/socketfaults/config"
	toolsSvc "go.faultline.dev/socketfaults/pkg/service/tools"
	"go.faultline.dev/socketfaults/utils"
)

const ConfigFileName = "socket-faults.yml"

func init() {
	Register("config", Config)
}

func Config(ctx context.Context, logger *zap.Logger, _ *config.Config, serviceFactory ServiceFactory, cmdConfigurator CmdConfigurator) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "config",
		Short:   "manage the socket-faults configuration file",
		Example: "socket-faults config --generate --path /path/to/localdir",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmdConfigurator.ValidateFlags(ctx, cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			isGenerate, err := cmd.Flags().GetBool("generate")
			if err != nil {
				utils.LogError(logger, err, "failed to get generate flag")
				return err
			}
			if !isGenerate {
				return errors.New("only generate flag is supported in the config command")
			}

			dir, err := cmd.Flags().GetString("path")
			if err != nil {
				utils.LogError(logger, err, "failed to get path flag")
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				utils.LogError(logger, err, "failed to get force flag")
				return err
			}

			filePath := filepath.Join(dir, ConfigFileName)
			if utils.CheckFileExists(filePath) && !force {
				override, err := utils.AskForConfirmation(cmd.InOrStdin(), cmd.OutOrStdout(), "Config file already exists. Do you want to override it?")
				if err != nil {
					utils.LogError(logger, err, "failed to ask for confirmation")
					return err
				}
				if !override {
					return nil
				}
			}

			svc, err := serviceFactory.GetService(ctx, cmd.Name())
			if err != nil {
				utils.LogError(logger, err, "failed to get service")
				return err
			}
			tools, ok := svc.(toolsSvc.Service)
			if !ok {
				return errors.New("service doesn't satisfy tools service interface")
			}
			return tools.CreateConfig(ctx, filePath, "")
		},
	}
	if err := cmdConfigurator.AddFlags(cmd); err != nil {
		utils.LogError(logger, err, "failed to add config flags")
		return nil
	}
	return cmd
}
