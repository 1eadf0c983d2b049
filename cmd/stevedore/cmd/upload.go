package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stevedore-deploy/stevedore/internal/service/packager"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <archive>",
	Short: "Copy a deployment archive to the target's package store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		return packager.RunUpload(ctx, &packager.UploadOptions{
			ConfigPath:  configPath,
			TargetSpec:  targetSpec,
			ArchiveFile: args[0],
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(uploadCmd)
}
