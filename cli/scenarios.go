package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.faultline.dev/socketfaults/config"
	"go.faultline.dev/socketfaults/pkg/models"
	"go.faultline.dev/socketfaults/pkg/service/faults"
	"go.faultline.dev/socketfaults/utils"
)

func init() {
	Register("scenarios", Scenarios)
}

func Scenarios(ctx context.Context, logger *zap.Logger, _ *config.Config, serviceFactory ServiceFactory, cmdConfigurator CmdConfigurator) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "scenarios",
		Short:   "list the fault scenario catalog with the configured ports",
		Example: `socket-faults scenarios --configPath /path/to/localdir`,
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
				return errors.New("service doesn't satisfy faults service interface")
			}
			return RenderCatalog(cmd.OutOrStdout(), faultsSvc.Catalog())
		},
	}

	if err := cmdConfigurator.AddFlags(cmd); err != nil {
		utils.LogError(logger, err, "failed to add scenarios flags")
		return nil
	}
	return cmd
}

// RenderCatalog prints the catalog as a table.
func RenderCatalog(w io.Writer, entries []models.CatalogEntry) error {
	table := tablewriter.NewWriter(w)
	table.Header("Scenario", "Port", "Behaviour")
	for _, e := range entries {
		port := models.HighlightGrayString("disabled")
		if e.Configured {
			port = models.HighlightPassingString(strconv.FormatUint(uint64(e.Port), 10))
		}
		if err := table.Append([]string{models.HighlightString(e.Name), port, e.Description}); err != nil {
			return fmt.Errorf("failed to render scenario %s: %w", e.Name, err)
		}
	}
	return table.Render()
}
