package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stevedore-deploy/stevedore/internal/service/deployer"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <app[:version]>",
	Short: "Delete an installed version from the target",
	Long: `Uninstall removes a version's dist tree. If the version is active it is
deactivated first. The uploaded archive is kept, so the version can be
reinstalled later.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		return deployer.Uninstall(ctx, &deployer.Options{
			ConfigPath: configPath,
			TargetSpec: targetSpec,
			AppSpec:    args[0],
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(uninstallCmd)
}
