package main

import (
	"fmt"
	"os"
	"time"

	sentry "github.com/getsentry/sentry-go"

	"go.faultline.dev/socketfaults/cli"
	"go.faultline.dev/socketfaults/cli/provider"
	"go.faultline.dev/socketfaults/config"
	"go.faultline.dev/socketfaults/utils"
	"go.faultline.dev/socketfaults/utils/log"
)

// version is the version of the server and will be injected during build by ldflags
var version string

func main() {
	setVersion()
	os.Exit(start())
}

func setVersion() {
	if version == "" {
		version = "1-dev"
	}
	utils.Version = version
}

func start() int {
	defer utils.HandlePanic()
	defer sentry.Flush(2 * time.Second)

	logger, err := log.New(log.Options{})
	if err != nil {
		fmt.Println("Failed to start the logger for the CLI", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := utils.NewCtx()
	conf := config.New()
	svcProvider := provider.NewServiceProvider(logger, conf)
	cmdConfigurator := provider.NewCmdConfigurator(logger, conf)
	rootCmd := cli.Root(ctx, logger, conf, svcProvider, cmdConfigurator)
	if rootCmd == nil {
		return 1
	}
	if err := rootCmd.Execute(); err != nil {
		if ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, log.Emoji, "error:", err)
		}
		return 1
	}
	return 0
}
