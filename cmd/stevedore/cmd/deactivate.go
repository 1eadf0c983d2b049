package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stevedore-deploy/stevedore/internal/service/deployer"
)

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <app>",
	Short: "Stop the live version and clear the run tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		return deployer.Deactivate(ctx, &deployer.Options{
			ConfigPath: configPath,
			TargetSpec: targetSpec,
			AppSpec:    args[0],
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(deactivateCmd)
}
