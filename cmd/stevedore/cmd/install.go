package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stevedore-deploy/stevedore/internal/service/deployer"
)

var installCmd = &cobra.Command{
	Use:   "install <app[:version]>",
	Short: "Unpack an uploaded archive on the target",
	Long: `Install extracts an uploaded archive into the target's dist tree. Without a
version qualifier the latest uploaded version is installed. Installing does
not activate the version.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		_, err := deployer.Install(ctx, &deployer.Options{
			ConfigPath: configPath,
			TargetSpec: targetSpec,
			AppSpec:    args[0],
		})

		return err
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(installCmd)
}
