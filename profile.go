package bookcapture

import (
	"regexp"
	"time"
)

// DefaultTotalPages is used when the viewer discloses no page count.
const DefaultTotalPages = 150

// Profile describes the DOM of the document viewer being captured.
//
// A zero-value field falls back to the matching field of [DefaultProfile],
// so callers only need to set the selectors their viewer differs on.
type Profile struct {
	// ImageSelector matches every rendered page image.
	ImageSelector string

	// WrapperSelector matches the container of one logical page.
	WrapperSelector string

	// PageAttribute is the wrapper attribute carrying the page number.
	PageAttribute string

	// PageInputSelector matches the jump-to-page input control.
	PageInputSelector string

	// TotalSelector matches the element whose text is the total page count.
	TotalSelector string

	// InfoSelector matches the element whose text contains TotalPattern.
	InfoSelector string

	// TotalPattern extracts the page count from the InfoSelector text. The
	// first capture group must be the number.
	TotalPattern string

	// NextSelectors are tried in order to find the "next page" control.
	NextSelectors []string

	// FallbackKey is pressed when no next control is present.
	FallbackKey string

	// DefaultTotal is the page count assumed when none is disclosed.
	DefaultTotal int
}

// DefaultProfile returns the selectors of the viewer the tool was written
// against.
func DefaultProfile() Profile {
	return Profile{
		ImageSelector:     ".page-img",
		WrapperSelector:   ".page-wrapper",
		PageAttribute:     "page",
		PageInputSelector: "#page-number-input",
		TotalSelector:     "body > div > div.viewer__main > div.viewer__top-nav.d-block.d-md-flex > div:nth-child(3) > span:nth-child(4)",
		InfoSelector:      ".page-info",
		TotalPattern:      `из (\d+)`,
		NextSelectors: []string{
			".next-page-btn",
			`[aria-label="Следующая страница"]`,
			".toolbar-button.next",
		},
		FallbackKey:  "ArrowRight",
		DefaultTotal: DefaultTotalPages,
	}
}

func (p Profile) resolved() Profile {
	d := DefaultProfile()
	if p.ImageSelector == "" {
		p.ImageSelector = d.ImageSelector
	}
	if p.WrapperSelector == "" {
		p.WrapperSelector = d.WrapperSelector
	}
	if p.PageAttribute == "" {
		p.PageAttribute = d.PageAttribute
	}
	if p.PageInputSelector == "" {
		p.PageInputSelector = d.PageInputSelector
	}
	if p.TotalSelector == "" {
		p.TotalSelector = d.TotalSelector
	}
	if p.InfoSelector == "" {
		p.InfoSelector = d.InfoSelector
	}
	if p.TotalPattern == "" {
		p.TotalPattern = d.TotalPattern
	}
	if len(p.NextSelectors) == 0 {
		p.NextSelectors = d.NextSelectors
	}
	if p.FallbackKey == "" {
		p.FallbackKey = d.FallbackKey
	}
	if p.DefaultTotal <= 0 {
		p.DefaultTotal = d.DefaultTotal
	}
	return p
}

// totalPattern compiles TotalPattern, falling back to the default pattern
// when it does not compile.
func (p Profile) totalPattern() *regexp.Regexp {
	if re, err := regexp.Compile(p.TotalPattern); err == nil {
		return re
	}
	return regexp.MustCompile(DefaultProfile().TotalPattern)
}

// Timing holds every wait used by a capture run.
//
// Zero values fall back to [DefaultTiming]. Settle delays may be disabled
// by setting them negative.
type Timing struct {
	PollInterval   time.Duration // Readiness predicate poll interval.
	InitialTimeout time.Duration // Initial load readiness.
	InitialSettle  time.Duration // Extra wait after initial readiness.
	PageTimeout    time.Duration // Post-navigation readiness.
	AdvanceSettle  time.Duration // Extra wait after each navigation.
	CaptureTimeout time.Duration // Visible page image before capture.
	CaptureSettle  time.Duration // Extra wait before reading the image.
	JumpDelay      time.Duration // Wait after submitting the page input.
	JumpTimeout    time.Duration // Readiness after a jump.
	JumpSettle     time.Duration // Extra wait after a jump.
	ActionTimeout  time.Duration // Bound for a single click, key or script.
}

// DefaultTiming returns the waits the tool was tuned with.
func DefaultTiming() Timing {
	return Timing{
		PollInterval:   100 * time.Millisecond,
		InitialTimeout: 60 * time.Second,
		InitialSettle:  5 * time.Second,
		PageTimeout:    30 * time.Second,
		AdvanceSettle:  time.Second,
		CaptureTimeout: 10 * time.Second,
		CaptureSettle:  time.Second,
		JumpDelay:      time.Second,
		JumpTimeout:    30 * time.Second,
		JumpSettle:     2 * time.Second,
		ActionTimeout:  20 * time.Second,
	}
}

func (t Timing) resolved() Timing {
	d := DefaultTiming()
	pick := func(v, def time.Duration) time.Duration {
		switch {
		case v == 0:
			return def
		case v < 0:
			return 0
		}
		return v
	}
	return Timing{
		PollInterval:   pick(t.PollInterval, d.PollInterval),
		InitialTimeout: pick(t.InitialTimeout, d.InitialTimeout),
		InitialSettle:  pick(t.InitialSettle, d.InitialSettle),
		PageTimeout:    pick(t.PageTimeout, d.PageTimeout),
		AdvanceSettle:  pick(t.AdvanceSettle, d.AdvanceSettle),
		CaptureTimeout: pick(t.CaptureTimeout, d.CaptureTimeout),
		CaptureSettle:  pick(t.CaptureSettle, d.CaptureSettle),
		JumpDelay:      pick(t.JumpDelay, d.JumpDelay),
		JumpTimeout:    pick(t.JumpTimeout, d.JumpTimeout),
		JumpSettle:     pick(t.JumpSettle, d.JumpSettle),
		ActionTimeout:  pick(t.ActionTimeout, d.ActionTimeout),
	}
}
