package bookcapture

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultOutputDir is the output directory used when a [Job] names none.
const DefaultOutputDir = "downloaded_book"

// Job describes one capture run.
type Job struct {
	URL       string // Viewer URL. Required.
	StartPage int    // First page to capture. Values below 1 are treated as 1.
	OutputDir string // Directory page images are written to.
}

// PageRecord is the outcome of the work done for one page number.
type PageRecord struct {
	Number   int
	Status   PageStatus
	Bytes    []byte // Image bytes while the capture is in flight; nil once persisted.
	Size     int    // Size of the persisted image in bytes.
	Attempts int
	Err      error // Last error when Status is StatusFailed.
}

// Report summarises a capture run.
type Report struct {
	RunID      string
	URL        string
	OutputDir  string
	StartPage  int
	TotalPages int
	Captured   int
	Skipped    int
	Failed     int
	Records    []PageRecord
	Duration   time.Duration
}

func (r *Report) add(rec PageRecord) {
	switch rec.Status {
	case StatusCaptured:
		r.Captured++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
	r.Records = append(r.Records, rec)
}

// pageSession is a [Page] owned by a single run.
type pageSession interface {
	Page
	Close() error
}

// Capturer drives a viewer page by page and persists every page image.
//
// A Capturer holds no browser between runs; each call to [Capturer.Run]
// opens and closes its own [Session].
type Capturer struct {
	cfg  config
	log  *zap.Logger
	open func(ctx context.Context, url string, cfg config) (pageSession, error)
}

// NewCapturer returns a Capturer configured by opts.
func NewCapturer(opts ...Option) *Capturer {
	cfg := newConfig(opts)
	return &Capturer{
		cfg: cfg,
		log: cfg.logger,
		open: func(ctx context.Context, url string, cfg config) (pageSession, error) {
			return openSession(ctx, url, cfg)
		},
	}
}

// Run captures job.URL from job.StartPage to the last page disclosed by
// the viewer.
//
// Only failures to prepare the output directory, to open the session or
// to see the first page images render end the run early, as does
// cancellation of ctx. Per-page failures are logged and recorded in the
// returned [Report], and the run moves on to the next page. The session
// is closed on every return path. The Report is never nil.
func (c *Capturer) Run(ctx context.Context, job Job) (*Report, error) {
	start := max(job.StartPage, 1)
	dir := job.OutputDir
	if dir == "" {
		dir = DefaultOutputDir
	}

	cfg := c.cfg
	runID := uuid.NewString()
	cfg.logger = c.log.With(zap.String("run_id", runID))
	log := cfg.logger.Named("capture")

	report := &Report{RunID: runID, URL: job.URL, OutputDir: dir, StartPage: start}
	began := time.Now()
	defer func() { report.Duration = time.Since(began) }()

	if job.URL == "" {
		return report, errors.New("bookcapture: job has no URL")
	}

	log.Info("starting capture",
		zap.String("url", job.URL), zap.Int("start_page", start), zap.String("output_dir", dir))

	store := NewPageStore(cfg.fs, dir)
	if err := store.Prepare(); err != nil {
		log.Error("preparing output directory", zap.Error(err))
		return report, err
	}

	sess, err := c.open(ctx, job.URL, cfg)
	if err != nil {
		log.Error("opening session", zap.Error(err))
		return report, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("closing session", zap.Error(err))
		}
	}()

	r := &run{
		cfg:       cfg,
		log:       log,
		store:     store,
		waiter:    newRenderWaiter(sess, cfg),
		nav:       newNavigationController(sess, cfg),
		locator:   newPageLocator(sess, cfg),
		extractor: newImageExtractor(sess, cfg),
		report:    report,
	}
	if err := r.capture(ctx, start); err != nil {
		log.Error("capture stopped", zap.Error(err))
		r.summary()
		return report, err
	}
	r.summary()
	return report, nil
}

// run holds the components of one capture run.
type run struct {
	cfg       config
	log       *zap.Logger
	store     *PageStore
	waiter    *RenderWaiter
	nav       *NavigationController
	locator   *PageLocator
	extractor *ImageExtractor
	report    *Report
}

func (r *run) capture(ctx context.Context, start int) error {
	timing := r.cfg.timing

	if err := r.waiter.AwaitInitial(ctx); err != nil {
		return err
	}
	if err := pause(ctx, timing.InitialSettle); err != nil {
		return err
	}

	total := r.nav.TotalPages(ctx)
	r.report.TotalPages = total

	if start > 1 {
		if err := r.nav.JumpTo(ctx, start); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn("jump to start page failed, continuing from the displayed page",
				zap.Int("page", start), zap.Error(err))
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if r.cfg.pagesPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.cfg.pagesPerMin/60), 1)
	}

	r.record(r.capturePage(ctx, start))
	for n := start + 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		if _, err := r.nav.Advance(ctx); err != nil {
			r.log.Warn("advance failed", zap.Int("page", n), zap.Error(err))
		}
		if err := r.waiter.AwaitLatest(ctx, timing.PageTimeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn("page not ready, capturing anyway", zap.Int("page", n), zap.Error(err))
		}
		if err := pause(ctx, timing.AdvanceSettle); err != nil {
			return err
		}

		r.record(r.capturePage(ctx, n))
	}
	return ctx.Err()
}

func (r *run) record(rec PageRecord) {
	r.report.add(rec)
	every := r.cfg.progressEvery
	if every > 0 && len(r.report.Records)%every == 0 {
		r.log.Info("progress",
			zap.Int("page", rec.Number),
			zap.Int("total", r.report.TotalPages),
			zap.Int("captured", r.report.Captured),
			zap.Int("skipped", r.report.Skipped),
			zap.Int("failed", r.report.Failed))
	}
}

func (r *run) summary() {
	r.log.Info("capture finished",
		zap.String("output_dir", r.report.OutputDir),
		zap.Int("total", r.report.TotalPages),
		zap.Int("captured", r.report.Captured),
		zap.Int("skipped", r.report.Skipped),
		zap.Int("failed", r.report.Failed))
}

// capturePage runs up to the configured number of attempts for page n.
// A page whose file already exists is skipped without touching the page.
func (r *run) capturePage(ctx context.Context, n int) PageRecord {
	rec := PageRecord{Number: n, Status: StatusPending}

	exists, err := r.store.Exists(n)
	if err != nil {
		r.log.Warn("checking page file", zap.Int("page", n), zap.Error(err))
	}
	if exists {
		rec.Status = StatusSkipped
		r.log.Info("page already captured, skipping", zap.Int("page", n))
		return rec
	}

	for attempt := 1; attempt <= r.cfg.attempts; attempt++ {
		rec.Attempts = attempt
		err := r.attempt(ctx, n, &rec)
		if err == nil {
			return rec
		}
		rec.Err = err
		r.log.Warn("page capture failed",
			zap.Int("page", n), zap.Int("attempt", attempt), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	rec.Status = StatusFailed
	return rec
}

func (r *run) attempt(ctx context.Context, n int, rec *PageRecord) error {
	if err := r.waiter.AwaitVisible(ctx); err != nil {
		return err
	}
	if err := pause(ctx, r.cfg.timing.CaptureSettle); err != nil {
		return err
	}

	el, found, err := r.locator.Resolve(ctx, n)
	if err != nil {
		return err
	}
	if !found {
		return ErrPageNotFound
	}

	img, err := r.extractor.Extract(ctx, n, el)
	if err != nil {
		return err
	}
	rec.Bytes = img.Bytes()

	status, err := r.store.Save(n, rec.Bytes)
	if err != nil {
		rec.Bytes = nil
		return err
	}
	rec.Status = status
	rec.Size = img.Len()
	rec.Bytes = nil
	rec.Err = nil

	r.log.Info("page saved",
		zap.Int("page", n),
		zap.Int("total", r.report.TotalPages),
		zap.Int("located", el.Page),
		zap.Int("bytes", img.Len()),
		zap.Stringer("status", status))
	return nil
}
