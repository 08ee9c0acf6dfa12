// Package cmd implements the CLI commands for clippa.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clippa-dev/clippa/internal/config"
	"github.com/clippa-dev/clippa/internal/observability"
	"github.com/clippa-dev/clippa/internal/version"
)

// cfgFile holds the config file path from CLI flag.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "clippa",
	Short:   "Clip-and-download service for web video",
	Version: version.Short(),
	Long: `clippa downloads a section of a web video, optionally burns in shifted
subtitles, transcodes it to a shareable MP4, and serves the result over HTTP.

Clips are processed asynchronously: POST a URL and time range, poll the job
until it is ready, then download the artifact.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., ./configs, /etc/clippa, $HOME/.clippa)")
}

// loadConfig reads the configuration and installs the process-wide logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLoggerWithWriter(cfg.Logging, os.Stderr)
	observability.SetDefault(logger)

	return cfg, nil
}
