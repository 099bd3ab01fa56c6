// Package bookcapture captures a paginated document shown in a web viewer,
// one page image at a time, by driving headless Chrome through the Chrome
// DevTools Protocol.
//
// # Capturing
//
// A [Capturer] runs the whole acquisition: it opens a [Session], waits for
// the first page images to render, reads the page count from the viewer,
// optionally jumps to a start page and then advances page by page, saving
// every page image as page_NNNN.png:
//
//	c := bookcapture.NewCapturer(
//	    bookcapture.WithNoSandbox(),
//	    bookcapture.WithLogger(logger),
//	)
//
//	report, err := c.Run(ctx, bookcapture.Job{
//	    URL:       "https://viewer.example.com/book/42",
//	    StartPage: 1,
//	    OutputDir: "downloaded_book",
//	})
//
// Per-page failures do not stop a run; they are counted in the [Report].
// Pages whose file already exists are skipped, so rerunning a job over the
// same directory only fills in the pages that are missing.
//
// # Viewers
//
// The DOM of the viewer is described by a [Profile]. [DefaultProfile]
// matches the viewer the tool was written for; other viewers only need the
// selectors that differ:
//
//	c := bookcapture.NewCapturer(bookcapture.WithProfile(bookcapture.Profile{
//	    ImageSelector: "img.leaf",
//	}))
//
// Waits are tuned through [Timing].
//
// # Components
//
// The building blocks are usable on their own against any [Page]:
// [RenderWaiter], [PageLocator], [ImageExtractor], [NavigationController]
// and [PageStore].
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload]:
//
//	c := bookcapture.NewCapturer(bookcapture.WithAutoDownload())
//
// Captured pages are assembled into a PDF by the pdf subpackage.
package bookcapture
