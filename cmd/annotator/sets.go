package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newSetsCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "List the stored annotation sets of a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			sets, err := a.annotations.List(ctx, category)
			if err != nil {
				return err
			}
			if len(sets) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no annotation sets in %q\n", category)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VIDEO\tUPDATED")
			for _, s := range sets {
				fmt.Fprintf(tw, "%s\t%s\n", s.Key.Video, s.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category id")
	cmd.MarkFlagRequired("category")
	return cmd
}
