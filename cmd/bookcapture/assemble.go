package main

import (
	"fmt"

	"github.com/porticus-lab/bookcapture/pdf"
	"github.com/spf13/cobra"
)

func newAssembleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assemble [dir] [out.pdf]",
		Short: "Assemble captured page images into a PDF",
		Long: `Assemble writes every .png image in dir, in file name order, to a PDF
with one page per image. Each page has the pixel size of its image.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				a.v.Set("assemble.input_dir", args[0])
			}
			if len(args) > 1 {
				a.v.Set("assemble.output", args[1])
			}
			cfg, err := a.load()
			if err != nil {
				return err
			}

			res, err := pdf.NewAssembler(
				pdf.WithFs(a.fs),
				pdf.WithLogger(a.log),
				pdf.WithProgressEvery(cfg.Assemble.ProgressEvery),
			).Assemble(cmd.Context(), cfg.Assemble.InputDir, cfg.Assemble.Output)
			if err != nil {
				return err
			}
			printAssembled(cmd, res)
			return nil
		},
	}
}

func printAssembled(cmd *cobra.Command, res *pdf.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d pages, %d bytes\n", res.Output, len(res.Pages), res.Size)
	for _, name := range res.Skipped {
		fmt.Fprintf(out, "  skipped %s\n", name)
	}
}
