package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavesd/internal/config"
	"github.com/llehouerou/wavesd/internal/logging"
)

const appName = "wavesd"

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (replaces the default search path)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
}

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "A headless music player with desktop and remote controls",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Debug("command failed")
		_, _ = fmt.Fprintf(os.Stderr, "%s: %s\n", appName, strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up logging. The returned
// cleanup closes the log file.
func loadConfig(cmd *cobra.Command) (*config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logCfg := cfg.GetLogConfig()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		logCfg.Level = lvl
	}
	closer, err := logging.Setup(logCfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if closer != nil {
			_ = closer.Close()
		}
	}
	return cfg, cleanup, nil
}
