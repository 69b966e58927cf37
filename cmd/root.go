// Package cmd implements the monica CLI using cobra.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/monica-concierge/monica/internal/config"
	"github.com/monica-concierge/monica/internal/shared/cmdutils"
)

const version = "0.1.0"

var (
	configPath string
	logLevel   string
	noColor    bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "monica",
	Short: cmdutils.Logo + " monica: fashion shopping assistant",
	Long:  cmdutils.Logo + " monica is a conversational shopping assistant for a fashion storefront",

	SilenceUsage: true,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default $MONICA_HOME/config.json or ~/.monica/config.json)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flags.BoolVar(&noColor, "no-color", false, "Disable coloured log output")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadConfig reads the config file and installs the default logger from its
// logging section, with command-line flags taking precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	slog.SetDefault(newLogger(os.Stderr, parseLevel(level), noColor || cfg.Logging.NoColor))
	return cfg, nil
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.ConfigPath()
}
