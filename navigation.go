package bookcapture

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// pageCountText is the decoded result of the pageCountText helper.
type pageCountText struct {
	PrimaryFound   bool   `json:"primaryFound"`
	Primary        string `json:"primary"`
	SecondaryFound bool   `json:"secondaryFound"`
	Secondary      string `json:"secondary"`
}

// NavigationController moves the viewer between pages.
type NavigationController struct {
	page    Page
	waiter  *RenderWaiter
	profile Profile
	timing  Timing
	log     *zap.Logger
}

// NewNavigationController returns a NavigationController for p.
func NewNavigationController(p Page, opts ...Option) *NavigationController {
	return newNavigationController(p, newConfig(opts))
}

func newNavigationController(p Page, cfg config) *NavigationController {
	return &NavigationController{
		page:    p,
		waiter:  newRenderWaiter(p, cfg),
		profile: cfg.profile,
		timing:  cfg.timing,
		log:     cfg.logger.Named("navigation"),
	}
}

// TotalPages returns the page count disclosed by the viewer. The primary
// indicator is read first, then the page info text is matched against the
// profile pattern; when neither discloses a count the profile default is
// returned. TotalPages never fails.
func (c *NavigationController) TotalPages(ctx context.Context) int {
	var text pageCountText
	if err := c.page.Call(ctx, fnPageCountText, &text, c.profile.TotalSelector, c.profile.InfoSelector); err != nil {
		c.log.Debug("reading page count text", zap.Error(err))
		text = pageCountText{}
	}
	total, via := resolveTotal(ctx, c.log, text, c.profile.totalPattern(), c.profile.DefaultTotal)
	c.log.Info("total pages resolved", zap.Int("total", total), zap.String("strategy", via))
	return total
}

// resolveTotal applies the page count strategies to text.
func resolveTotal(ctx context.Context, log *zap.Logger, text pageCountText, re *regexp.Regexp, def int) (int, string) {
	total, via, _ := firstOf(ctx, log,
		strategy[int]{name: "primary indicator", try: func(context.Context) (int, bool, error) {
			if !text.PrimaryFound {
				return 0, false, nil
			}
			n := leadingInt(text.Primary)
			return n, n > 0, nil
		}},
		strategy[int]{name: "page info pattern", try: func(context.Context) (int, bool, error) {
			if !text.SecondaryFound {
				return 0, false, nil
			}
			m := re.FindStringSubmatch(text.Secondary)
			if len(m) < 2 {
				return 0, false, nil
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, false, err
			}
			return n, n > 0, nil
		}},
		strategy[int]{name: "default", try: func(context.Context) (int, bool, error) {
			return def, true, nil
		}},
	)
	if via == "" {
		return def, "default"
	}
	return total, via
}

// leadingInt parses the integer at the start of s, ignoring leading
// whitespace. It returns 0 when s does not start with a digit.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if end < 0 {
		end = len(s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// JumpTo positions the viewer on page n through its page input control.
// When the viewer has no page input the call is a no-op and the viewer
// stays where it is.
func (c *NavigationController) JumpTo(ctx context.Context, n int) error {
	var sel string
	if err := c.page.Call(ctx, fnFirstPresent, &sel, []string{c.profile.PageInputSelector}); err != nil {
		return err
	}
	if sel == "" {
		c.log.Warn("page input not found, staying on the current page", zap.Int("page", n))
		return nil
	}

	var cleared bool
	if err := c.page.Call(ctx, fnClearInput, &cleared, sel); err != nil {
		return err
	}
	if err := c.page.Type(ctx, sel, strconv.Itoa(n)); err != nil {
		return err
	}
	if err := c.page.Press(ctx, "Enter"); err != nil {
		return err
	}
	if err := pause(ctx, c.timing.JumpDelay); err != nil {
		return err
	}
	if err := c.waiter.AwaitLatest(ctx, c.timing.JumpTimeout); err != nil {
		return err
	}
	if err := pause(ctx, c.timing.JumpSettle); err != nil {
		return err
	}
	c.log.Info("jumped to page", zap.Int("page", n))
	return nil
}

// Advance moves the viewer to the next page by activating the first
// present next control, falling back to the profile key. It does not wait
// for the page to render and returns the name of the strategy used.
func (c *NavigationController) Advance(ctx context.Context) (string, error) {
	_, via, err := firstOf(ctx, c.log,
		strategy[struct{}]{name: "next control", try: func(ctx context.Context) (struct{}, bool, error) {
			var sel string
			if err := c.page.Call(ctx, fnFirstPresent, &sel, c.profile.NextSelectors); err != nil {
				return struct{}{}, false, err
			}
			if sel == "" {
				return struct{}{}, false, nil
			}
			return struct{}{}, true, c.page.Click(ctx, sel)
		}},
		strategy[struct{}]{name: "keyboard", try: func(ctx context.Context) (struct{}, bool, error) {
			return struct{}{}, true, c.page.Press(ctx, c.profile.FallbackKey)
		}},
	)
	if via == "" {
		return "", err
	}
	return via, nil
}
