package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stevedore-deploy/stevedore/internal/service/deployer"
)

var activateCmd = &cobra.Command{
	Use:   "activate <app[:version]>",
	Short: "Make an installed version the live one",
	Long: `Activate tears down the previously active version, rebuilds the run tree to
point at the requested version, and runs its start hook. Without a version
qualifier the latest known version is activated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		return deployer.Activate(ctx, &deployer.Options{
			ConfigPath: configPath,
			TargetSpec: targetSpec,
			AppSpec:    args[0],
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(activateCmd)
}
