package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/porticus-lab/bookcapture"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, path string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, ReadIn(v, path))
	return v
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "bookcapture", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.Viewport.Width)
	assert.Equal(t, 1080, cfg.Browser.Viewport.Height)
	assert.Equal(t, 60*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, bookcapture.DefaultOutputDir, cfg.Capture.OutputDir)
	assert.Equal(t, 1, cfg.Capture.Attempts)
	assert.Equal(t, "book.pdf", cfg.Assemble.Output)

	assert.Equal(t, bookcapture.DefaultProfile(), cfg.Viewer.Profile())
	assert.Equal(t, bookcapture.DefaultTiming(), cfg.Timing.Timing())
	assert.Equal(t, NewDefaultConfig(), cfg)
}

func TestReadInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logger:
  level: debug
  format: json
browser:
  headless: false
  viewport:
    width: 1280
    height: 720
viewer:
  next_selectors: [".forward"]
  default_total: 42
timing:
  page_timeout: 5s
  advance_settle: 0s
capture:
  attempts: 3
  output_dir: pages
`), 0o644))

	cfg, err := Load(newViper(t, path))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.Viewport.Width)
	assert.Equal(t, []string{".forward"}, cfg.Viewer.NextSelectors)
	assert.Equal(t, 42, cfg.Viewer.Profile().DefaultTotal)
	assert.Equal(t, 3, cfg.Capture.Attempts)
	assert.Equal(t, "pages", cfg.Capture.OutputDir)

	timing := cfg.Timing.Timing()
	assert.Equal(t, 5*time.Second, timing.PageTimeout)
	assert.Equal(t, time.Duration(-1), timing.AdvanceSettle, "zero settle stays disabled")
	assert.Equal(t, time.Second, timing.CaptureSettle)
}

func TestReadInMissingExplicitFile(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	err := ReadIn(v, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestReadInEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOOKCAPTURE_CAPTURE_ATTEMPTS", "4")
	t.Setenv("BOOKCAPTURE_BROWSER_NO_SANDBOX", "true")
	t.Setenv("BOOKCAPTURE_TIMING_JUMP_TIMEOUT", "7s")

	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Capture.Attempts)
	assert.True(t, cfg.Browser.NoSandbox)
	assert.Equal(t, 7*time.Second, cfg.Timing.JumpTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
		{"zero attempts", func(c *Config) { c.Capture.Attempts = 0 }, "capture.attempts"},
		{"zero start page", func(c *Config) { c.Capture.StartPage = 0 }, "capture.start_page"},
		{"negative rate", func(c *Config) { c.Capture.PagesPerMinute = -1 }, "pages_per_minute"},
		{"empty output", func(c *Config) { c.Capture.OutputDir = "" }, "output_dir"},
		{"zero viewport", func(c *Config) { c.Browser.Viewport.Width = 0 }, "viewport"},
		{"zero navigation timeout", func(c *Config) { c.Browser.NavigationTimeout = 0 }, "navigation_timeout"},
		{"empty selector", func(c *Config) { c.Viewer.ImageSelector = " " }, "image_selector"},
		{"no next selectors", func(c *Config) { c.Viewer.NextSelectors = nil }, "next_selectors"},
		{"bad pattern", func(c *Config) { c.Viewer.TotalPattern = "из (" }, "total_pattern"},
		{"pattern without group", func(c *Config) { c.Viewer.TotalPattern = `из \d+` }, "total_pattern"},
		{"zero page timeout", func(c *Config) { c.Timing.PageTimeout = 0 }, "page_timeout"},
		{"negative settle", func(c *Config) { c.Timing.CaptureSettle = -time.Second }, "capture_settle"},
	}

	require.NoError(t, NewDefaultConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCaptureOptions(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Len(t, cfg.CaptureOptions(), 11)

	cfg.Browser.ChromePath = "/usr/bin/chromium"
	cfg.Browser.NoSandbox = true
	cfg.Browser.Stealth = true
	assert.Len(t, cfg.CaptureOptions(), 14)
}
