package bookcapture

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// Page is the part of a live browser tab the capture components drive.
//
// [Session] implements it over the Chrome DevTools Protocol.
type Page interface {
	// Call invokes the named viewer helper with args and decodes its
	// JSON result into out. A nil out discards the result.
	Call(ctx context.Context, fn string, out any, args ...any) error

	// Click activates the first element matching selector.
	Click(ctx context.Context, selector string) error

	// Type focuses the element matching selector and types text into it.
	Type(ctx context.Context, selector, text string) error

	// Press sends a single named key ("Enter", "ArrowRight", ...) to the
	// focused element.
	Press(ctx context.Context, key string) error
}

// Session owns one browser process, one isolated browser context and one
// tab. It is not safe for concurrent use by multiple capture attempts.
//
// Call [Session.Close] when the Session is no longer needed to release
// browser resources.
type Session struct {
	cfg           config
	log           *zap.Logger
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	tabCtx        context.Context
	tabCancel     context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var _ Page = (*Session)(nil)

// Open launches a browser sized to the configured viewport, opens a tab in
// a fresh browser context, navigates it to targetURL and waits for network
// quiescence. Every failure is reported as a [*SessionError] after the
// partially created resources have been released.
func Open(ctx context.Context, targetURL string, opts ...Option) (*Session, error) {
	return openSession(ctx, targetURL, newConfig(opts))
}

func openSession(ctx context.Context, targetURL string, cfg config) (*Session, error) {
	if _, err := url.ParseRequestURI(targetURL); err != nil {
		return nil, &SessionError{Op: "parse", URL: targetURL, Err: err}
	}

	s := &Session{cfg: cfg, log: cfg.logger.Named("session")}

	allocCtx, allocCancel, err := newAllocator(cfg)
	if err != nil {
		return nil, &SessionError{Op: "launch", Err: err}
	}
	s.allocCancel = allocCancel

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	s.browserCancel = browserCancel

	// Start the browser eagerly so errors surface at creation time.
	if err := runFirst(ctx, browserCtx, cfg.launchTimeout); err != nil {
		s.Close()
		return nil, &SessionError{Op: "launch", Err: err}
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())
	s.tabCtx = tabCtx
	s.tabCancel = tabCancel

	if err := runFirst(ctx, tabCtx, cfg.launchTimeout, s.setupActions()...); err != nil {
		s.Close()
		return nil, &SessionError{Op: "create context", Err: err}
	}

	s.log.Info("browser ready",
		zap.Int("viewport_width", cfg.viewport.Width),
		zap.Int("viewport_height", cfg.viewport.Height),
		zap.Bool("stealth", cfg.stealth))

	if err := s.navigate(ctx, targetURL); err != nil {
		s.Close()
		return nil, &SessionError{Op: "navigate", URL: targetURL, Err: err}
	}
	return s, nil
}

func newAllocator(cfg config) (context.Context, context.CancelFunc, error) {
	if cfg.remoteURL != "" {
		ctx, cancel := chromedp.NewRemoteAllocator(context.Background(), cfg.remoteURL)
		return ctx, cancel, nil
	}

	var headless any = "new"
	if !cfg.headless {
		headless = false
	}
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", headless),
		chromedp.WindowSize(cfg.viewport.Width, cfg.viewport.Height),
	)
	if cfg.stealth {
		allocOpts = append(allocOpts, chromedp.Flag("disable-blink-features", "AutomationControlled"))
	}

	path, err := browserPath(cfg)
	if err != nil {
		return nil, nil, err
	}
	if path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	ctx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	return ctx, cancel, nil
}

// runFirst performs the first Run on a chromedp context. That Run ties the
// allocated browser or tab to the context it is given, so the timeout is
// enforced from outside instead of through a derived context.
func runFirst(ctx, chromeCtx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(chromeCtx, actions...) }()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case err := <-done:
		return err
	case <-timer:
		return fmt.Errorf("no response from browser within %v", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) setupActions() []chromedp.Action {
	v := s.cfg.viewport
	actions := []chromedp.Action{
		network.Enable(),
		emulation.SetDeviceMetricsOverride(int64(v.Width), int64(v.Height), 1, false),
	}
	if s.cfg.stealth {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealth.JS).Do(ctx)
			return err
		}))
	}
	return actions
}

// navigate loads targetURL and waits until no request has been in flight
// for the configured quiet window.
func (s *Session) navigate(ctx context.Context, targetURL string) error {
	tracker := &networkTracker{}
	tracker.touch()

	listenCtx, stopListening := context.WithCancel(s.tabCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, tracker.observe)

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.navigationTimeout)
	defer cancel()

	start := time.Now()
	if err := s.run(navCtx, chromedp.Navigate(targetURL)); err != nil {
		return err
	}

	remaining := time.Until(start.Add(s.cfg.navigationTimeout))
	quiet := func(context.Context) (bool, error) { return tracker.quietFor(s.cfg.networkIdle), nil }
	if err := awaitCondition(navCtx, "network quiescence", quiet, remaining, 50*time.Millisecond); err != nil {
		return err
	}

	s.log.Info("page loaded",
		zap.String("url", targetURL),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int64("requests", tracker.total.Load()))
	return nil
}

// Call implements [Page].
func (s *Session) Call(ctx context.Context, fn string, out any, args ...any) error {
	expr, err := callExpression(fn, args...)
	if err != nil {
		return err
	}
	err = s.runWithTimeout(ctx, s.cfg.timing.ActionTimeout,
		chromedp.Evaluate(expr, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return fmt.Errorf("bookcapture: evaluating %s: %w", fn, err)
	}
	return nil
}

// Click implements [Page].
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.runWithTimeout(ctx, s.cfg.timing.ActionTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("bookcapture: clicking %q: %w", selector, err)
	}
	return nil
}

// Type implements [Page].
func (s *Session) Type(ctx context.Context, selector, text string) error {
	if err := s.runWithTimeout(ctx, s.cfg.timing.ActionTimeout, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("bookcapture: typing into %q: %w", selector, err)
	}
	return nil
}

// Press implements [Page].
func (s *Session) Press(ctx context.Context, key string) error {
	if err := s.runWithTimeout(ctx, s.cfg.timing.ActionTimeout, chromedp.KeyEvent(keyCode(key))); err != nil {
		return fmt.Errorf("bookcapture: pressing %s: %w", key, err)
	}
	return nil
}

// Close releases all resources held by the Session, including the
// browser process. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.tabCancel != nil {
		s.tabCancel()
	}
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.log.Debug("browser closed")
	return nil
}

func (s *Session) checkClosed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Session) runWithTimeout(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.run(ctx, actions...)
}

// run executes actions on the tab, bounded by ctx's deadline and
// cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// keyCode maps DOM key names to the chromedp key table.
func keyCode(key string) string {
	switch key {
	case "Enter":
		return kb.Enter
	case "ArrowRight":
		return kb.ArrowRight
	case "ArrowLeft":
		return kb.ArrowLeft
	case "ArrowDown":
		return kb.ArrowDown
	case "ArrowUp":
		return kb.ArrowUp
	case "PageDown":
		return kb.PageDown
	case "PageUp":
		return kb.PageUp
	case "Space":
		return " "
	}
	return key
}

// networkTracker counts in-flight requests from CDP network events.
type networkTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
	total    atomic.Int64
}

func (t *networkTracker) touch() {
	t.mu.Lock()
	t.last = time.Now()
	t.mu.Unlock()
}

func (t *networkTracker) observe(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight == nil {
		t.inflight = make(map[network.RequestID]struct{})
	}
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
		t.total.Add(1)
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.last = time.Now()
}

// quietFor reports whether no request is in flight and none started or
// finished within d.
func (t *networkTracker) quietFor(d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && time.Since(t.last) >= d
}
