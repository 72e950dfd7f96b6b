package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bessarb/config"
	"github.com/kilianp07/bessarb/infra/logger"
)

const defaultConfig = "config.yaml"

var (
	cfgPath  string
	envFiles []string
	cfg      *config.Config
	logFile  io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "bessarb",
	Short:         "Rolling multi-market battery trading optimiser",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runRolling,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfig, "configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before the configuration (default .env if present)")
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logger.New("main").Errorf("%v", err)
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	return err
}

// loadConfig reads .env files and the configuration. A missing default
// configuration file falls back to environment and defaults.
func loadConfig(cmd *cobra.Command) error {
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	path := cfgPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	c, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.File != "" {
		if logFile, err = logger.OpenFile(c.Logging.FileConfig()); err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
	}
	cfg = c
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
