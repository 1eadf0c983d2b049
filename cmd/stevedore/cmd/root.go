package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stevedore-deploy/stevedore/internal/config"
	"github.com/stevedore-deploy/stevedore/internal/logger"
	"github.com/stevedore-deploy/stevedore/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// targetSpec is the deployment target ("[host]:path").
	targetSpec string
	// logLevel overrides the configured logging level.
	logLevel string

	// rootCmd represents the base command for the deployment manager.
	rootCmd = &cobra.Command{
		Use:   "stevedore",
		Short: "Package-based deployment manager for long-running services",
		Long: `stevedore packages a service's source tree into a versioned archive, ships
it to a deployment target (a local path or a remote host), keeps installed
versions side by side, and switches the live version atomically through
symlink indirection, gated by lifecycle hooks and a health check.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogLevel(cmd)
		},
	}
)

// Execute runs the stevedore CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to the settings file")
	rootCmd.PersistentFlags().StringVarP(&targetSpec, "target", "t", "", "deployment target as [host]:path (default from settings)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "minimum log level (debug, info, warn, error)")
}

// setupLogLevel applies the --log-level flag, falling back to the settings
// file when the flag is not given.
func setupLogLevel(cmd *cobra.Command) error {
	level := logLevel

	if level == "" {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}

		level = cfg.LogLevel
	}

	if parsed, ok := logger.ParseLogLevel(level); ok {
		logger.SetLevel(parsed)
	}

	return nil
}

// signalContext returns a context canceled on SIGTERM/SIGINT for graceful
// shutdown of in-flight operations.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}
