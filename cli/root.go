package cli

import (
	"context"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.faultline.dev/socketfaults/config"
	"go.faultline.dev/socketfaults/utils"
)

var rootExamples = `
  Serve every configured scenario:
	socket-faults serve

  Serve a subset on custom ports:
	socket-faults serve --socket immediate-termination=9001 --socket timeout-after-http-request=9002 --pause 30s

  List the scenario catalog:
	socket-faults scenarios

  Generate a config file:
	socket-faults config --generate --path /path/to/localdir
`

func Root(ctx context.Context, logger *zap.Logger, cfg *config.Config, svcFactory ServiceFactory, cmdConfigurator CmdConfigurator) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:           "socket-faults",
		Short:         "Deliberately broken TCP/HTTP servers for exercising client resilience",
		Example:       rootExamples,
		Version:       utils.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(`{{with .Version}}{{printf "socket-faults %s" .}}{{end}}{{"\n"}}`)

	if err := cmdConfigurator.AddFlags(rootCmd); err != nil {
		utils.LogError(logger, err, "failed to set the root flags")
		return nil
	}

	names := make([]string, 0, len(Registered))
	for name := range Registered {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if c := Registered[name](ctx, logger, cfg, svcFactory, cmdConfigurator); c != nil {
			rootCmd.AddCommand(c)
		}
	}
	return rootCmd
}
