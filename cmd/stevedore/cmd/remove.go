package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stevedore-deploy/stevedore/internal/service/deployer"
)

var removeCmd = &cobra.Command{
	Use:   "remove <app[:version]>",
	Short: "Delete a version's archive and installation from the target",
	Long: `Remove cascades through the full teardown: the version is deactivated if
active, uninstalled if installed, and its uploaded archive is deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		return deployer.Remove(ctx, &deployer.Options{
			ConfigPath: configPath,
			TargetSpec: targetSpec,
			AppSpec:    args[0],
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(removeCmd)
}
