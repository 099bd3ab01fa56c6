package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/porticus-lab/bookcapture"
	"github.com/porticus-lab/bookcapture/pdf"
	"github.com/spf13/cobra"
)

func newDownloadCommand(a *app) *cobra.Command {
	var pdfOut string

	cmd := &cobra.Command{
		Use:   "download <url> [start-page] [output-dir]",
		Short: "Save every page of a document viewer as a PNG image",
		Long: `Download opens the viewer at url in a headless browser and saves each
page image as page_NNNN.png in the output directory. Pages already on disk
are skipped, so an interrupted download can simply be run again.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			if url == "" {
				return fmt.Errorf("download: url must not be empty")
			}
			flags := cmd.Flags()
			if len(args) > 1 && !flags.Changed("start") {
				a.v.Set("capture.start_page", parseStartPage(args[1]))
			}
			if len(args) > 2 && !flags.Changed("out") {
				a.v.Set("capture.output_dir", args[2])
			}

			cfg, err := a.load()
			if err != nil {
				return err
			}
			opts := append(cfg.CaptureOptions(),
				bookcapture.WithFs(a.fs),
				bookcapture.WithLogger(a.log))

			job := bookcapture.Job{
				URL:       url,
				StartPage: cfg.Capture.StartPage,
				OutputDir: cfg.Capture.OutputDir,
			}
			report, err := a.capture(cmd.Context(), job, opts...)
			if report != nil && report.TotalPages > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d captured, %d skipped, %d failed of %d pages in %s\n",
					report.Captured, report.Skipped, report.Failed, report.TotalPages, report.OutputDir)
			}
			if err != nil {
				return err
			}

			if pdfOut == "" {
				return nil
			}
			res, err := pdf.NewAssembler(
				pdf.WithFs(a.fs),
				pdf.WithLogger(a.log),
				pdf.WithProgressEvery(cfg.Assemble.ProgressEvery),
			).Assemble(cmd.Context(), job.OutputDir, pdfOut)
			if err != nil {
				return err
			}
			printAssembled(cmd, res)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntP("start", "s", 1, "first page to capture")
	f.StringP("out", "o", bookcapture.DefaultOutputDir, "directory page images are written to")
	f.Int("attempts", 1, "attempts per page")
	f.Float64("rate", 0, "maximum pages per minute, 0 for no limit")
	f.Bool("headless", true, "run the browser without a window")
	f.Bool("no-sandbox", false, "disable the Chrome sandbox, needed in some containers")
	f.String("chrome-path", "", "path to the Chrome or Chromium executable")
	f.String("remote-url", "", "DevTools websocket URL of an already running browser")
	f.Bool("auto-download", false, "download Chromium when no browser is installed")
	f.Bool("stealth", false, "hide common automation fingerprints")
	f.StringVar(&pdfOut, "pdf", "", "assemble the captured pages into this PDF")

	bindKey(f, "start", "capture.start_page")
	bindKey(f, "out", "capture.output_dir")
	bindKey(f, "attempts", "capture.attempts")
	bindKey(f, "rate", "capture.pages_per_minute")
	bindKey(f, "headless", "browser.headless")
	bindKey(f, "no-sandbox", "browser.no_sandbox")
	bindKey(f, "chrome-path", "browser.chrome_path")
	bindKey(f, "remote-url", "browser.remote_url")
	bindKey(f, "auto-download", "browser.auto_download")
	bindKey(f, "stealth", "browser.stealth")
	return cmd
}

// parseStartPage reads a start page argument. Anything that is not a
// positive integer starts from the first page.
func parseStartPage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return max(n, 1)
}
