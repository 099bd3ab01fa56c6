package bookcapture

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// PageElement describes the page wrapper chosen for a page number.
type PageElement struct {
	Found    bool   `json:"found"`
	Matched  bool   `json:"matched"`  // The wrapper carries the requested page number.
	Src      string `json:"src"`      // Image source of the wrapper's page image.
	Page     int    `json:"page"`     // Page attribute of the wrapper, 0 if absent.
	Wrappers int    `json:"wrappers"` // Number of wrappers in the document.
}

// PageLocator resolves the rendered page element for a logical page
// number.
type PageLocator struct {
	page    Page
	profile Profile
	log     *zap.Logger
}

// NewPageLocator returns a PageLocator for p.
func NewPageLocator(p Page, opts ...Option) *PageLocator {
	return newPageLocator(p, newConfig(opts))
}

func newPageLocator(p Page, cfg config) *PageLocator {
	return &PageLocator{page: p, profile: cfg.profile, log: cfg.logger.Named("locator")}
}

// Resolve returns the element for page n. The wrapper carrying n in its
// page attribute is authoritative: when its image has not loaded yet the
// page is not found and no other wrapper is considered. The first visible
// wrapper is used only when no wrapper carries n. found is false, with a
// nil error, when no candidate has a loaded image; when the lookups
// themselves failed the error wraps [ErrPageNotFound] and the cause.
func (l *PageLocator) Resolve(ctx context.Context, n int) (PageElement, bool, error) {
	p := l.profile
	locate := func(fn string, args ...any) func(context.Context) (PageElement, bool, error) {
		return func(ctx context.Context) (PageElement, bool, error) {
			var el PageElement
			if err := l.page.Call(ctx, fn, &el, args...); err != nil {
				return PageElement{}, false, err
			}
			return el, el.Found || el.Matched, nil
		}
	}

	el, via, err := firstOf(ctx, l.log,
		strategy[PageElement]{name: "page attribute", try: locate(fnLocateByAttribute, p.WrapperSelector, p.PageAttribute, p.ImageSelector, n)},
		strategy[PageElement]{name: "visible wrapper", try: locate(fnLocateVisible, p.WrapperSelector, p.PageAttribute, p.ImageSelector)},
	)
	if via == "" {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return PageElement{}, false, ctxErr
		}
		if err != nil {
			l.log.Debug("page element not located", zap.Int("page", n), zap.Error(err))
			return PageElement{}, false, fmt.Errorf("%w: %w", ErrPageNotFound, err)
		}
		return PageElement{}, false, nil
	}
	if !el.Found {
		l.log.Debug("page image not loaded", zap.Int("page", n), zap.String("strategy", via))
		return el, false, nil
	}
	if el.Page != 0 && el.Page != n {
		l.log.Debug("located page differs from expected",
			zap.Int("page", n), zap.Int("located", el.Page), zap.String("strategy", via))
	}
	return el, true, nil
}
