package bookcapture

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const minPollInterval = 10 * time.Millisecond

// awaitCondition evaluates cond every poll until it reports true or timeout
// elapses. The condition is evaluated at least once. Evaluation errors do
// not stop the wait; the last one is attached to the returned
// [*RenderTimeoutError]. Cancellation of ctx is returned as ctx.Err().
func awaitCondition(ctx context.Context, name string, cond func(context.Context) (bool, error), timeout, poll time.Duration) error {
	if poll < minPollInterval {
		poll = minPollInterval
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := cond(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !time.Now().Before(deadline) {
			return &RenderTimeoutError{Condition: name, Timeout: timeout, Err: lastErr}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RenderWaiter polls the viewer for the readiness of its page images.
type RenderWaiter struct {
	page    Page
	profile Profile
	timing  Timing
	log     *zap.Logger
}

// NewRenderWaiter returns a RenderWaiter for p.
func NewRenderWaiter(p Page, opts ...Option) *RenderWaiter {
	cfg := newConfig(opts)
	return newRenderWaiter(p, cfg)
}

func newRenderWaiter(p Page, cfg config) *RenderWaiter {
	return &RenderWaiter{
		page:    p,
		profile: cfg.profile,
		timing:  cfg.timing,
		log:     cfg.logger.Named("waiter"),
	}
}

// AwaitInitial waits until at least one page image exists and every page
// image has finished loading with a non-zero natural height.
func (w *RenderWaiter) AwaitInitial(ctx context.Context) error {
	return w.await(ctx, "initial page images", fnImagesReady, w.timing.InitialTimeout)
}

// AwaitLatest waits until the last page image in document order has
// finished loading with a non-zero natural height.
func (w *RenderWaiter) AwaitLatest(ctx context.Context, timeout time.Duration) error {
	return w.await(ctx, "latest page image", fnLastImageReady, timeout)
}

// AwaitVisible waits until some page image is displayed with a non-empty
// bounding box.
func (w *RenderWaiter) AwaitVisible(ctx context.Context) error {
	return w.await(ctx, "visible page image", fnImageVisible, w.timing.CaptureTimeout)
}

func (w *RenderWaiter) await(ctx context.Context, name, fn string, timeout time.Duration) error {
	start := time.Now()
	cond := func(ctx context.Context) (bool, error) {
		var ok bool
		if err := w.page.Call(ctx, fn, &ok, w.profile.ImageSelector); err != nil {
			return false, err
		}
		return ok, nil
	}
	if err := awaitCondition(ctx, name, cond, timeout, w.timing.PollInterval); err != nil {
		return err
	}
	w.log.Debug("condition met", zap.String("condition", name), zap.Duration("elapsed", time.Since(start)))
	return nil
}
