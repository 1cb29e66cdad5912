package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go.faultline.dev/socketfaults/config"
	"go.faultline.dev/socketfaults/pkg/routes"
	"go.faultline.dev/socketfaults/pkg/service/faults"
	"go.faultline.dev/socketfaults/utils"
	"go.faultline.dev/socketfaults/utils/log"
)

func init() {
	Register("serve", Serve)
}

func Serve(ctx context.Context, logger *zap.Logger, cfg *config.Config, serviceFactory ServiceFactory, cmdConfigurator CmdConfigurator) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "serve",
		Short:   "start one listener per configured fault scenario",
		Example: `socket-faults serve --socket reset-after-http-request-line=9001 --adminPort 8080`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmdConfigurator.ValidateFlags(ctx, cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := serviceFactory.GetService(ctx, cmd.Name())
			if err != nil {
				utils.LogError(logger, err, "failed to get service")
				return err
			}
			faultsSvc, ok := svc.(faults.Service)
			if !ok {
				err := errors.New("service doesn't satisfy faults service interface")
				utils.LogError(logger, err, "failed to start socket faults")
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				err := faultsSvc.Run(gctx)
				if err != nil {
					utils.LogError(logger, err, "socket faults generator failed")
				}
				return err
			})
			if cfg.Admin.Port != 0 {
				g.Go(func() error {
					adminLogger := logger.Named(log.ModuleAdmin)
					err := routes.StartAdminServer(gctx, adminLogger, cfg.Faults.Host, cfg.Admin.Port, routes.NewRouter(faultsSvc, adminLogger))
					if err != nil {
						// the admin API is optional; the scenario listeners keep running without it
						utils.LogError(adminLogger, err, "admin server failed", zap.Uint32("port", cfg.Admin.Port))
					}
					return nil
				})
			}
			return g.Wait()
		},
	}

	if err := cmdConfigurator.AddFlags(cmd); err != nil {
		utils.LogError(logger, err, "failed to add serve flags")
		return nil
	}
	return cmd
}
