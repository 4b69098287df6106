// Package main implements the cropkit command line tool.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homebuddy/cropkit/internal/config"
	"github.com/homebuddy/cropkit/internal/logging"
)

var (
	// Global flags
	configPath string
	logLevel   string
	verbose    bool
	timeout    time.Duration

	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cropkit",
	Short: "Crop images the way the preview shows them",
	Long: `cropkit maps a pan/zoom preview with a fixed crop guide back to source pixels,
crops and re-encodes the image, and assembles date-of-birth picker values.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Console)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig reads the config file when present. A missing file is an error only
// when --config was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	explicit := cmd.Flags().Changed("config") && cmd.Annotations["config"] != "optional"
	if path == "" {
		path = config.GetConfigPath()
	}

	c, err := config.LoadFromFile(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		c = config.Default()
	default:
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.config/cropkit/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(cropCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(rectCmd)
	rootCmd.AddCommand(dobCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
