// Package provider wires the command flags, the configuration file and the services
// behind the cobra commands.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"go.faultline.dev/socketfaults/config"
	"go.faultline.dev/socketfaults/pkg/models"
	"go.faultline.dev/socketfaults/utils"
	"go.faultline.dev/socketfaults/utils/log"
)

const configFileName = "socket-faults"

// flagKeys maps flag names to their config keys. Flags missing from the map are
// applied by hand.
var flagKeys = map[string]string{
	"debug":            "debug",
	"debugModules":     "debugModules",
	"disableANSI":      "disableANSI",
	"logFile":          "logFile",
	"configPath":       "configPath",
	"host":             "faults.host",
	"pause":            "faults.pause",
	"shutdownGrace":    "faults.shutdownGrace",
	"requireListeners": "faults.requireListeners",
	"reusePort":        "faults.reusePort",
	"adminPort":        "admin.port",
}

type CmdConfigurator struct {
	logger *zap.Logger
	cfg    *config.Config
	v      *viper.Viper
}

func NewCmdConfigurator(logger *zap.Logger, cfg *config.Config) *CmdConfigurator {
	return &CmdConfigurator{
		logger: logger,
		cfg:    cfg,
		v:      viper.New(),
	}
}

func (c *CmdConfigurator) AddFlags(cmd *cobra.Command) error {
	cfg := c.cfg
	switch cmd.Name() {
	case "socket-faults":
		cmd.PersistentFlags().Bool("debug", cfg.Debug, "Run in debug mode")
		cmd.PersistentFlags().StringSlice("debugModules", cfg.DebugModules, "Enable debug logs for the given modules only e.g. --debugModules listener,registry")
		cmd.PersistentFlags().Bool("disableANSI", cfg.DisableANSI, "Disable the coloured log output")
		cmd.PersistentFlags().String("logFile", cfg.LogFile, "Also write the logs to this file")
		cmd.PersistentFlags().String("configPath", cfg.ConfigPath, "Path to the local directory where the socket-faults configuration file is stored")
	case "serve", "scenarios":
		cmd.Flags().StringToInt("socket", nil, "Activate a scenario on a port e.g. --socket immediate-termination=9001")
		cmd.Flags().StringSlice("disable", nil, "Scenarios to keep offline e.g. --disable timeout-before-http-request")
		if cmd.Name() == "scenarios" {
			return nil
		}
		cmd.Flags().String("host", cfg.Faults.Host, "Address the scenario sockets bind to, empty for all interfaces")
		cmd.Flags().Uint32("adminPort", cfg.Admin.Port, "Port of the admin API, 0 to disable it")
		cmd.Flags().Duration("pause", cfg.Faults.Pause, "How long the timeout scenarios stall")
		cmd.Flags().Duration("shutdownGrace", cfg.Faults.ShutdownGrace, "How long in flight connections may run after a shutdown request")
		cmd.Flags().Bool("requireListeners", cfg.Faults.RequireListeners, "Fail when no scenario could be bound")
		cmd.Flags().Bool("reusePort", cfg.Faults.ReusePort, "Set SO_REUSEPORT on the scenario sockets")
	case "config":
		cmd.Flags().StringP("path", "p", ".", "Path to local directory where generated config is stored")
		cmd.Flags().Bool("generate", false, "Generate a new socket-faults configuration file")
		cmd.Flags().Bool("force", false, "Overwrite an existing configuration file without asking")
	default:
		return errors.New("unknown command name")
	}
	return nil
}

func (c *CmdConfigurator) ValidateFlags(_ context.Context, cmd *cobra.Command) error {
	cfg := c.cfg
	if err := c.bindFlags(cmd.Flags()); err != nil {
		errMsg := "failed to bind flags to config"
		utils.LogError(c.logger, err, errMsg)
		return errors.New(errMsg)
	}

	configPath := c.v.GetString("configPath")
	c.v.SetConfigName(configFileName)
	c.v.SetConfigType("yml")
	c.v.AddConfigPath(configPath)
	if err := c.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			errMsg := "failed to read config file"
			utils.LogError(c.logger, err, errMsg)
			return errors.New(errMsg)
		}
		c.logger.Debug("config file not found; proceeding with flags only", zap.String("configPath", configPath))
	}

	// A socket table in the file replaces the default one instead of extending it.
	if c.v.InConfig("faults.socket") {
		cfg.Faults.Socket = nil
	}
	if err := c.v.Unmarshal(cfg); err != nil {
		errMsg := "failed to unmarshal the config"
		utils.LogError(c.logger, err, errMsg)
		return errors.New(errMsg)
	}

	if err := c.applySocketFlags(cmd); err != nil {
		return err
	}
	if err := c.resetLogger(); err != nil {
		return err
	}
	models.IsAnsiDisabled = cfg.DisableANSI || !term.IsTerminal(int(os.Stdout.Fd()))

	if err := utils.InitSentry(cfg.SentryDSN); err != nil {
		// reporting is optional
		utils.LogError(c.logger, err, "failed to initialise sentry")
	}

	c.logger.Debug("config has been initialised", zap.String("for cmd", cmd.Name()), zap.Any("config", cfg))
	return nil
}

func (c *CmdConfigurator) bindFlags(flags *pflag.FlagSet) error {
	var errs []error
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := c.v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("flag %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (c *CmdConfigurator) applySocketFlags(cmd *cobra.Command) error {
	if f := cmd.Flags().Lookup("socket"); f != nil && f.Changed {
		ports, err := cmd.Flags().GetStringToInt("socket")
		if err != nil {
			errMsg := "failed to read the socket ports"
			utils.LogError(c.logger, err, errMsg)
			return errors.New(errMsg)
		}
		if err := config.SetSocketPorts(c.cfg, ports); err != nil {
			utils.LogError(c.logger, err, "invalid --socket value")
			return err
		}
	}
	if f := cmd.Flags().Lookup("disable"); f != nil && f.Changed {
		names, err := cmd.Flags().GetStringSlice("disable")
		if err != nil {
			errMsg := "failed to read the disabled scenarios"
			utils.LogError(c.logger, err, errMsg)
			return errors.New(errMsg)
		}
		config.DisableSockets(c.cfg, names)
	}
	return nil
}

// resetLogger rebuilds the shared logger in place once the output settings are known.
func (c *CmdConfigurator) resetLogger() error {
	cfg := c.cfg
	if cfg.LogFile != "" || cfg.DisableANSI {
		logger, err := log.New(log.Options{LogFile: cfg.LogFile, DisableANSI: cfg.DisableANSI})
		if err != nil {
			errMsg := "failed to rebuild the logger"
			utils.LogError(c.logger, err, errMsg)
			return errors.New(errMsg)
		}
		*c.logger = *logger
	}
	if cfg.Debug {
		logger, err := log.ChangeLogLevel(zap.DebugLevel)
		if err != nil {
			errMsg := "failed to change log level"
			utils.LogError(c.logger, err, errMsg)
			return errors.New(errMsg)
		}
		*c.logger = *logger
	}
	return nil
}
