package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
)

func newCategoriesCmd() *cobra.Command {
	var search string
	var limit int
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories and their events, or search events by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if search != "" {
				matches := a.catalog.SearchEvents(search, limit)
				if len(matches) == 0 {
					fmt.Fprintf(out, "no events match %q\n", search)
					return nil
				}
				for _, m := range matches {
					fmt.Fprintf(out, "%s / ", m.CategoryName)
					swatch(m.Event.Color).Fprintf(out, "%s", m.Event.Name)
					fmt.Fprintf(out, "  (%s/%s)\n", m.CategoryID, m.Event.ID)
				}
				return nil
			}

			categories, err := a.catalog.Categories(ctx)
			if err != nil {
				return err
			}
			for _, c := range categories {
				printCategory(out, c)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "fuzzy search over event names")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum search results")
	return cmd
}

func printCategory(w io.Writer, c catalog.Category) {
	swatch(c.Color).Add(color.Bold).Fprintf(w, "%s", c.Name)
	fmt.Fprintf(w, " [%s]\n", c.ID)
	for _, ev := range c.Events {
		fmt.Fprint(w, "  ")
		swatch(ev.Color).Fprintf(w, "%s", ev.Name)
		fmt.Fprintf(w, " [%s]", ev.ID)
		for _, f := range ev.CustomFields {
			req := ""
			if f.Required {
				req = "*"
			}
			fmt.Fprintf(w, " %s%s:%s", f.Name, req, f.Type)
		}
		fmt.Fprintln(w)
	}
}

// swatch prints in the given #rgb or #rrggbb color.
func swatch(hex string) *color.Color {
	if !catalog.IsColor(hex) {
		return color.New(color.Reset)
	}
	digits := hex[1:]
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return color.New(color.Reset)
	}
	return color.RGB(int(v>>16&0xff), int(v>>8&0xff), int(v&0xff))
}
