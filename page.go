package bookcapture

// Viewport represents the browser window size in CSS pixels.
type Viewport struct {
	Width  int // Width in CSS pixels.
	Height int // Height in CSS pixels.
}

// Standard viewport sizes.
var (
	FullHD = Viewport{Width: 1920, Height: 1080}
	HD     = Viewport{Width: 1280, Height: 720}
	QHD    = Viewport{Width: 2560, Height: 1440}
)

// DefaultViewport returns the viewport used when none is configured.
// Viewers render page images relative to the window, so a large viewport
// yields larger captures.
func DefaultViewport() Viewport {
	return FullHD
}

// resolved returns a Viewport with zero or negative dimensions replaced by
// the defaults.
func (v Viewport) resolved() Viewport {
	d := DefaultViewport()
	if v.Width <= 0 {
		v.Width = d.Width
	}
	if v.Height <= 0 {
		v.Height = d.Height
	}
	return v
}

// PageStatus is the outcome of one page capture.
type PageStatus int

const (
	// StatusPending means the page has not been attempted yet.
	StatusPending PageStatus = iota
	// StatusCaptured means the page image was extracted and written.
	StatusCaptured
	// StatusSkipped means a file for the page already existed.
	StatusSkipped
	// StatusFailed means every attempt for the page failed.
	StatusFailed
)

func (s PageStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCaptured:
		return "captured"
	case StatusSkipped:
		return "skipped-existing"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
