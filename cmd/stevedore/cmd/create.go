package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stevedore-deploy/stevedore/internal/service/packager"
)

var (
	createOutput  string
	createName    string
	createVersion string

	createCmd = &cobra.Command{
		Use:   "create [source-dir]",
		Short: "Package a source tree into a versioned deployment archive",
		Long: `Create reads the deploy manifest from the source directory (or the --name
and --app-version flags) and produces a tar.gz archive named <name>-<version>
ready for upload.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			sourceDir := "."
			if len(args) > 0 {
				sourceDir = args[0]
			}

			_, err := packager.RunCreate(ctx, &packager.CreateOptions{
				SourceDir: sourceDir,
				Output:    createOutput,
				Name:      createName,
				Version:   createVersion,
			})

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	createCmd.Flags().StringVarP(&createOutput, "output", "o", "", "path of the archive to write (default <name>-<version>.tar.gz)")
	createCmd.Flags().StringVar(&createName, "name", "", "package name (overrides the manifest)")
	createCmd.Flags().StringVar(&createVersion, "app-version", "", "package version (overrides the manifest)")

	rootCmd.AddCommand(createCmd)
}
