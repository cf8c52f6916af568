package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/export"
)

type exportFlags struct {
	category  string
	video     string
	format    string
	out       string
	frameRate float64
}

func newExportCmd() *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the completed intervals of a video",
		Long: `Export writes every completed start/end pair of a video's annotation set.
Open intervals and instant annotations are left out. --out may name a file or
an existing directory; without it the document goes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.category, "category", "", "category id")
	cmd.Flags().StringVar(&f.video, "video", "", "video name")
	cmd.Flags().StringVar(&f.format, "format", "json", "json, csv, xml or edl")
	cmd.Flags().StringVar(&f.out, "out", "", "output file or directory")
	cmd.Flags().Float64Var(&f.frameRate, "frame-rate", 0, "EDL frame rate (default 30)")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("video")
	return cmd
}

func runExport(cmd *cobra.Command, f exportFlags) error {
	format, err := export.ParseFormat(f.format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	key := annotation.VideoKey{CategoryID: f.category, Video: f.video}
	sess, _, err := a.annotations.Open(ctx, key)
	if err != nil {
		return err
	}

	opts := export.Options{
		Title:     annotation.VideoStem(f.video),
		FrameRate: f.frameRate,
		EventName: func(categoryID, eventID string) string {
			if ev := a.catalog.FindEvent(categoryID, eventID); ev != nil {
				return ev.Name
			}
			return ""
		},
	}
	if path, err := a.playback.Resolve(key.CategoryID, key.Video); err == nil {
		opts.MediaPath = path
	}

	intervals := sess.Intervals()
	data, err := export.Complete(intervals, format, opts)
	if err != nil {
		return err
	}

	path, err := writeExport(cmd.OutOrStdout(), f.out, annotation.VideoStem(f.video), format, data)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d intervals to %s\n", len(intervals), path)
	}
	return nil
}

// writeExport sends data to stdout, into a directory, or to a file path.
// It returns the written path, empty for stdout.
func writeExport(stdout io.Writer, out, name string, format export.Format, data []byte) (string, error) {
	if out == "" {
		_, err := stdout.Write(data)
		return "", err
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return export.WriteFile(filepath.Clean(out), name, format, data)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return out, nil
}
