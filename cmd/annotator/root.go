package main

import (
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-annotator/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "annotator",
		Short: "Annotate video timelines with instant and interval events",
		Long: `annotator records instant and start/end annotations against a catalog of
event types, keeps one annotation set per video, and exports the completed
intervals as JSON, CSV, XML or EDL.

Configuration is read from ANNOTATOR_* environment variables and an optional
.env file.`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newExportCmd(),
		newCheckCmd(),
		newImportCmd(),
		newCategoriesCmd(),
		newSetsCmd(),
	)
	return root
}
