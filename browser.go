package bookcapture

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
)

// resolveBrowser downloads a compatible Chromium binary if one is not
// already cached and returns the path to the executable. The binary is
// stored in ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows).
func resolveBrowser() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("bookcapture: downloading browser: %w", err)
	}
	return path, nil
}

// browserPath picks the executable for a local launch. An explicit path
// wins; with auto-download a system browser is preferred over a download.
// An empty result lets chromedp search its default locations.
func browserPath(cfg config) (string, error) {
	if cfg.chromePath != "" {
		return cfg.chromePath, nil
	}
	if !cfg.autoDownload {
		return "", nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	return resolveBrowser()
}
