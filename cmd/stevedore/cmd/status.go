package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stevedore-deploy/stevedore/internal/service/checker"
)

var statusCmd = &cobra.Command{
	Use:   "status <app>",
	Short: "Report uploaded, installed and active versions of an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		return checker.Run(ctx, &checker.Options{
			ConfigPath: configPath,
			TargetSpec: targetSpec,
			App:        args[0],
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(statusCmd)
}
