// bookcapture saves every page of an online document viewer as a PNG and
// assembles the pages into a PDF.
//
// Usage:
//
//	bookcapture download <url> [start-page] [output-dir]
//	bookcapture assemble [dir] [out.pdf]
//	bookcapture info <file.pdf>
//	bookcapture config
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	err := newRootCommand(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
