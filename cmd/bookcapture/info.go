package main

import (
	"fmt"

	"github.com/porticus-lab/bookcapture/pdf"
	"github.com/spf13/cobra"
)

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.pdf>",
		Short: "Display the page count and page dimensions of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.load(); err != nil {
				return err
			}
			pages, err := pdf.Inspect(a.fs, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:  %s\n", args[0])
			fmt.Fprintf(out, "Pages: %d\n", len(pages))
			if len(pages) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Page dimensions:")
			for _, p := range pages {
				fmt.Fprintf(out, "  Page %d: %.0f x %.0f pt\n", p.Number, p.Width, p.Height)
			}
			return nil
		},
	}
}
