package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
)

func newCheckCmd() *cobra.Command {
	var category, video string
	var repair bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Rebuild the active index of a video and report inconsistencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			sess, warnings, err := a.annotations.Open(ctx, annotation.VideoKey{CategoryID: category, Video: video})
			if err != nil {
				return err
			}

			printCheck(cmd.OutOrStdout(), sess, warnings)

			if repair && len(warnings) > 0 {
				if err := sess.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "repaired set saved")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category id")
	cmd.Flags().StringVar(&video, "video", "", "video name")
	cmd.Flags().BoolVar(&repair, "repair", false, "save the rebuilt set when problems were found")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("video")
	return cmd
}

func printCheck(w io.Writer, sess *annotation.Session, warnings []annotation.Warning) {
	snap := sess.Snapshot()
	intervals := sess.Intervals()
	active := sess.Active()

	bold := color.New(color.Bold)
	bold.Fprintf(w, "%s\n", sess.Key())
	fmt.Fprintf(w, "  records:   %d\n", len(snap.Records))
	fmt.Fprintf(w, "  intervals: %d\n", len(intervals))

	if len(active) > 0 {
		fmt.Fprintln(w, "  open:")
		events := make([]string, 0, len(active))
		for ev := range active {
			events = append(events, ev)
		}
		slices.Sort(events)
		for _, ev := range events {
			color.New(color.FgCyan).Fprintf(w, "    %s since %s\n", ev, annotation.FormatTime(active[ev].Time))
		}
	}

	if len(warnings) == 0 {
		color.New(color.FgGreen).Fprintln(w, "  no problems found")
		return
	}
	warn := color.New(color.FgYellow)
	warn.Fprintf(w, "  %d problems:\n", len(warnings))
	for _, wr := range warnings {
		warn.Fprintf(w, "    %s\n", wr)
	}
}
