package bookcapture

import (
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// config holds internal configuration shared by [Open] and [Capturer].
type config struct {
	chromePath        string
	remoteURL         string
	autoDownload      bool
	headless          bool
	noSandbox         bool
	stealth           bool
	viewport          Viewport
	launchTimeout     time.Duration
	navigationTimeout time.Duration
	networkIdle       time.Duration

	profile       Profile
	timing        Timing
	attempts      int
	progressEvery int
	pagesPerMin   float64
	normalizePNG  bool

	fs     afero.Fs
	logger *zap.Logger
}

func defaultConfig() config {
	return config{
		headless:          true,
		viewport:          DefaultViewport(),
		launchTimeout:     60 * time.Second,
		navigationTimeout: 60 * time.Second,
		networkIdle:       500 * time.Millisecond,
		profile:           DefaultProfile(),
		timing:            DefaultTiming(),
		attempts:          1,
		progressEvery:     10,
		normalizePNG:      true,
		fs:                afero.NewOsFs(),
		logger:            zap.NewNop(),
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cfg.viewport = cfg.viewport.resolved()
	cfg.profile = cfg.profile.resolved()
	cfg.timing = cfg.timing.resolved()
	if cfg.attempts < 1 {
		cfg.attempts = 1
	}
	if cfg.fs == nil {
		cfg.fs = afero.NewOsFs()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}

// Option configures a [Session] or a [Capturer].
type Option func(*config)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default chromedp searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *config) {
		c.chromePath = path
	}
}

// WithRemoteURL connects to an already running browser through its
// DevTools WebSocket URL instead of launching one.
func WithRemoteURL(url string) Option {
	return func(c *config) {
		c.remoteURL = url
	}
}

// WithAutoDownload downloads a compatible Chromium build when no Chrome
// path is configured. The binary is cached by the rod launcher.
func WithAutoDownload() Option {
	return func(c *config) {
		c.autoDownload = true
	}
}

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(headless bool) Option {
	return func(c *config) {
		c.headless = headless
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *config) {
		c.noSandbox = true
	}
}

// WithStealth injects anti-automation-detection scripts into every
// document the session loads.
func WithStealth() Option {
	return func(c *config) {
		c.stealth = true
	}
}

// WithViewport sets the browser window size. Defaults to [FullHD].
func WithViewport(v Viewport) Option {
	return func(c *config) {
		c.viewport = v
	}
}

// WithLaunchTimeout bounds browser start-up. Defaults to 60 seconds.
func WithLaunchTimeout(d time.Duration) Option {
	return func(c *config) {
		c.launchTimeout = d
	}
}

// WithTimeout bounds the initial navigation, including the wait for
// network quiescence. Defaults to 60 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.navigationTimeout = d
	}
}

// WithNetworkIdle sets how long the network must stay quiet before the
// initial navigation is considered settled. Defaults to 500ms.
func WithNetworkIdle(d time.Duration) Option {
	return func(c *config) {
		c.networkIdle = d
	}
}

// WithProfile sets the viewer selectors. Zero fields keep their defaults.
func WithProfile(p Profile) Option {
	return func(c *config) {
		c.profile = p
	}
}

// WithTiming sets the capture waits. Zero fields keep their defaults.
func WithTiming(t Timing) Option {
	return func(c *config) {
		c.timing = t
	}
}

// WithAttempts sets how many times a page capture is attempted before the
// page is marked failed. Defaults to 1.
func WithAttempts(n int) Option {
	return func(c *config) {
		c.attempts = n
	}
}

// WithProgressEvery logs a progress line every n pages. Zero disables it.
func WithProgressEvery(n int) Option {
	return func(c *config) {
		c.progressEvery = n
	}
}

// WithPagesPerMinute caps the navigation rate. Zero means unlimited.
func WithPagesPerMinute(n float64) Option {
	return func(c *config) {
		c.pagesPerMin = n
	}
}

// WithNormalizePNG controls re-encoding of non-PNG page images as PNG.
// Defaults to true.
func WithNormalizePNG(on bool) Option {
	return func(c *config) {
		c.normalizePNG = on
	}
}

// WithFs sets the filesystem page images are written to. Defaults to the
// operating system filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *config) {
		c.fs = fs
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
