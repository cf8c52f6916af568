package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
)

func newImportCmd() *cobra.Command {
	var category, video string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import an older annotation file into a video's set",
		Long: `Import converts an annotation file written by earlier tools (single video
files, multi-video files, or a dumped annotation set) and appends the records
to the video's stored set. Without --video the video name comes from the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			imp, err := annotation.ParseLegacy(file, category, video)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if imp.Video == "" {
				imp.Video = annotation.VideoStem(args[0])
			}

			a, err := openApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.annotations.Session(ctx, annotation.VideoKey{CategoryID: category, Video: imp.Video})
			if err != nil {
				return err
			}
			warnings, err := sess.Import(ctx, imp.Records)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(out, "imported %d records into %s\n", len(imp.Records), sess.Key())
			if imp.Skipped > 0 {
				color.New(color.FgYellow).Fprintf(out, "skipped %d annotations without a usable time or event\n", imp.Skipped)
			}
			for _, w := range warnings {
				color.New(color.FgYellow).Fprintf(out, "  %s\n", w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category id")
	cmd.Flags().StringVar(&video, "video", "", "video name (required for multi-video files)")
	cmd.MarkFlagRequired("category")
	return cmd
}
