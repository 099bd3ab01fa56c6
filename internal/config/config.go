// Package config loads the bookcapture command configuration from
// defaults, an optional YAML file and BOOKCAPTURE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/porticus-lab/bookcapture"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by [ReadIn].
const EnvPrefix = "BOOKCAPTURE"

// Config holds the entire command configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Viewer   ViewerConfig   `mapstructure:"viewer" yaml:"viewer"`
	Timing   TimingConfig   `mapstructure:"timing" yaml:"timing"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Assemble AssembleConfig `mapstructure:"assemble" yaml:"assemble"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the terminal color of each log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// BrowserConfig holds the settings of the headless browser.
type BrowserConfig struct {
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	ChromePath        string         `mapstructure:"chrome_path" yaml:"chrome_path"`
	RemoteURL         string         `mapstructure:"remote_url" yaml:"remote_url"`
	NoSandbox         bool           `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	AutoDownload      bool           `mapstructure:"auto_download" yaml:"auto_download"`
	Stealth           bool           `mapstructure:"stealth" yaml:"stealth"`
	Viewport          ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	LaunchTimeout     time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	NetworkIdle       time.Duration  `mapstructure:"network_idle" yaml:"network_idle"`
}

// ViewportConfig is the browser window size in CSS pixels.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// ViewerConfig describes the DOM of the document viewer.
type ViewerConfig struct {
	ImageSelector     string   `mapstructure:"image_selector" yaml:"image_selector"`
	WrapperSelector   string   `mapstructure:"wrapper_selector" yaml:"wrapper_selector"`
	PageAttribute     string   `mapstructure:"page_attribute" yaml:"page_attribute"`
	PageInputSelector string   `mapstructure:"page_input_selector" yaml:"page_input_selector"`
	TotalSelector     string   `mapstructure:"total_selector" yaml:"total_selector"`
	InfoSelector      string   `mapstructure:"info_selector" yaml:"info_selector"`
	TotalPattern      string   `mapstructure:"total_pattern" yaml:"total_pattern"`
	NextSelectors     []string `mapstructure:"next_selectors" yaml:"next_selectors"`
	FallbackKey       string   `mapstructure:"fallback_key" yaml:"fallback_key"`
	DefaultTotal      int      `mapstructure:"default_total" yaml:"default_total"`
}

// TimingConfig holds the waits of a capture run. A zero settle delay
// disables it.
type TimingConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	InitialTimeout time.Duration `mapstructure:"initial_timeout" yaml:"initial_timeout"`
	InitialSettle  time.Duration `mapstructure:"initial_settle" yaml:"initial_settle"`
	PageTimeout    time.Duration `mapstructure:"page_timeout" yaml:"page_timeout"`
	AdvanceSettle  time.Duration `mapstructure:"advance_settle" yaml:"advance_settle"`
	CaptureTimeout time.Duration `mapstructure:"capture_timeout" yaml:"capture_timeout"`
	CaptureSettle  time.Duration `mapstructure:"capture_settle" yaml:"capture_settle"`
	JumpDelay      time.Duration `mapstructure:"jump_delay" yaml:"jump_delay"`
	JumpTimeout    time.Duration `mapstructure:"jump_timeout" yaml:"jump_timeout"`
	JumpSettle     time.Duration `mapstructure:"jump_settle" yaml:"jump_settle"`
	ActionTimeout  time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// CaptureConfig tunes the capture loop.
type CaptureConfig struct {
	OutputDir      string  `mapstructure:"output_dir" yaml:"output_dir"`
	StartPage      int     `mapstructure:"start_page" yaml:"start_page"`
	Attempts       int     `mapstructure:"attempts" yaml:"attempts"`
	ProgressEvery  int     `mapstructure:"progress_every" yaml:"progress_every"`
	PagesPerMinute float64 `mapstructure:"pages_per_minute" yaml:"pages_per_minute"`
	NormalizePNG   bool    `mapstructure:"normalize_png" yaml:"normalize_png"`
}

// AssembleConfig configures PDF assembly.
type AssembleConfig struct {
	InputDir      string `mapstructure:"input_dir" yaml:"input_dir"`
	Output        string `mapstructure:"output" yaml:"output"`
	ProgressEvery int    `mapstructure:"progress_every" yaml:"progress_every"`
}

// SetDefaults registers a default for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "bookcapture")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "magenta")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	vp := bookcapture.DefaultViewport()
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.chrome_path", "")
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.auto_download", false)
	v.SetDefault("browser.stealth", false)
	v.SetDefault("browser.viewport.width", vp.Width)
	v.SetDefault("browser.viewport.height", vp.Height)
	v.SetDefault("browser.launch_timeout", "60s")
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.network_idle", "500ms")

	// -- Viewer --
	p := bookcapture.DefaultProfile()
	v.SetDefault("viewer.image_selector", p.ImageSelector)
	v.SetDefault("viewer.wrapper_selector", p.WrapperSelector)
	v.SetDefault("viewer.page_attribute", p.PageAttribute)
	v.SetDefault("viewer.page_input_selector", p.PageInputSelector)
	v.SetDefault("viewer.total_selector", p.TotalSelector)
	v.SetDefault("viewer.info_selector", p.InfoSelector)
	v.SetDefault("viewer.total_pattern", p.TotalPattern)
	v.SetDefault("viewer.next_selectors", p.NextSelectors)
	v.SetDefault("viewer.fallback_key", p.FallbackKey)
	v.SetDefault("viewer.default_total", p.DefaultTotal)

	// -- Timing --
	t := bookcapture.DefaultTiming()
	v.SetDefault("timing.poll_interval", t.PollInterval.String())
	v.SetDefault("timing.initial_timeout", t.InitialTimeout.String())
	v.SetDefault("timing.initial_settle", t.InitialSettle.String())
	v.SetDefault("timing.page_timeout", t.PageTimeout.String())
	v.SetDefault("timing.advance_settle", t.AdvanceSettle.String())
	v.SetDefault("timing.capture_timeout", t.CaptureTimeout.String())
	v.SetDefault("timing.capture_settle", t.CaptureSettle.String())
	v.SetDefault("timing.jump_delay", t.JumpDelay.String())
	v.SetDefault("timing.jump_timeout", t.JumpTimeout.String())
	v.SetDefault("timing.jump_settle", t.JumpSettle.String())
	v.SetDefault("timing.action_timeout", t.ActionTimeout.String())

	// -- Capture --
	v.SetDefault("capture.output_dir", bookcapture.DefaultOutputDir)
	v.SetDefault("capture.start_page", 1)
	v.SetDefault("capture.attempts", 1)
	v.SetDefault("capture.progress_every", 10)
	v.SetDefault("capture.pages_per_minute", 0.0)
	v.SetDefault("capture.normalize_png", true)

	// -- Assemble --
	v.SetDefault("assemble.input_dir", bookcapture.DefaultOutputDir)
	v.SetDefault("assemble.output", "book.pdf")
	v.SetDefault("assemble.progress_every", 10)
}

// ReadIn points v at the configuration file and the environment. With an
// empty path ./bookcapture.yaml is used when present. A missing default
// file is not an error; a missing explicit file is.
func ReadIn(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("bookcapture")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// NewDefaultConfig returns a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.Viewer.Validate(); err != nil {
		return fmt.Errorf("viewer configuration invalid: %w", err)
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("timing configuration invalid: %w", err)
	}
	if c.Capture.Attempts < 1 {
		return fmt.Errorf("capture.attempts must be at least 1")
	}
	if c.Capture.StartPage < 1 {
		return fmt.Errorf("capture.start_page must be at least 1")
	}
	if c.Capture.PagesPerMinute < 0 {
		return fmt.Errorf("capture.pages_per_minute must not be negative")
	}
	if c.Capture.OutputDir == "" {
		return fmt.Errorf("capture.output_dir is required")
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	if b.Viewport.Width <= 0 || b.Viewport.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", b.Viewport.Width, b.Viewport.Height)
	}
	if b.LaunchTimeout <= 0 || b.NavigationTimeout <= 0 {
		return fmt.Errorf("launch_timeout and navigation_timeout must be positive durations")
	}
	if b.NetworkIdle < 0 {
		return fmt.Errorf("network_idle must not be negative")
	}
	return nil
}

// Validate checks the viewer selectors and page count pattern.
func (v *ViewerConfig) Validate() error {
	for name, sel := range map[string]string{
		"image_selector":      v.ImageSelector,
		"wrapper_selector":    v.WrapperSelector,
		"page_attribute":      v.PageAttribute,
		"page_input_selector": v.PageInputSelector,
		"total_selector":      v.TotalSelector,
		"info_selector":       v.InfoSelector,
		"fallback_key":        v.FallbackKey,
	} {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if len(v.NextSelectors) == 0 {
		return fmt.Errorf("next_selectors must list at least one selector")
	}
	re, err := regexp.Compile(v.TotalPattern)
	if err != nil {
		return fmt.Errorf("total_pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return fmt.Errorf("total_pattern must capture the page count in a group")
	}
	if v.DefaultTotal < 1 {
		return fmt.Errorf("default_total must be at least 1")
	}
	return nil
}

// Validate checks that every timeout is positive and no delay is negative.
func (t *TimingConfig) Validate() error {
	for name, d := range map[string]time.Duration{
		"poll_interval":   t.PollInterval,
		"initial_timeout": t.InitialTimeout,
		"page_timeout":    t.PageTimeout,
		"capture_timeout": t.CaptureTimeout,
		"jump_timeout":    t.JumpTimeout,
		"action_timeout":  t.ActionTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	for name, d := range map[string]time.Duration{
		"initial_settle": t.InitialSettle,
		"advance_settle": t.AdvanceSettle,
		"capture_settle": t.CaptureSettle,
		"jump_delay":     t.JumpDelay,
		"jump_settle":    t.JumpSettle,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// Profile converts the viewer settings.
func (v ViewerConfig) Profile() bookcapture.Profile {
	return bookcapture.Profile{
		ImageSelector:     v.ImageSelector,
		WrapperSelector:   v.WrapperSelector,
		PageAttribute:     v.PageAttribute,
		PageInputSelector: v.PageInputSelector,
		TotalSelector:     v.TotalSelector,
		InfoSelector:      v.InfoSelector,
		TotalPattern:      v.TotalPattern,
		NextSelectors:     v.NextSelectors,
		FallbackKey:       v.FallbackKey,
		DefaultTotal:      v.DefaultTotal,
	}
}

// Timing converts the wait settings. Zero delays stay disabled instead of
// falling back to the library defaults.
func (t TimingConfig) Timing() bookcapture.Timing {
	delay := func(d time.Duration) time.Duration {
		if d <= 0 {
			return -1
		}
		return d
	}
	return bookcapture.Timing{
		PollInterval:   t.PollInterval,
		InitialTimeout: t.InitialTimeout,
		InitialSettle:  delay(t.InitialSettle),
		PageTimeout:    t.PageTimeout,
		AdvanceSettle:  delay(t.AdvanceSettle),
		CaptureTimeout: t.CaptureTimeout,
		CaptureSettle:  delay(t.CaptureSettle),
		JumpDelay:      delay(t.JumpDelay),
		JumpTimeout:    t.JumpTimeout,
		JumpSettle:     delay(t.JumpSettle),
		ActionTimeout:  t.ActionTimeout,
	}
}

// CaptureOptions returns the [bookcapture.Option] set described by c.
func (c *Config) CaptureOptions() []bookcapture.Option {
	b := c.Browser
	opts := []bookcapture.Option{
		bookcapture.WithHeadless(b.Headless),
		bookcapture.WithViewport(bookcapture.Viewport{Width: b.Viewport.Width, Height: b.Viewport.Height}),
		bookcapture.WithLaunchTimeout(b.LaunchTimeout),
		bookcapture.WithTimeout(b.NavigationTimeout),
		bookcapture.WithNetworkIdle(b.NetworkIdle),
		bookcapture.WithProfile(c.Viewer.Profile()),
		bookcapture.WithTiming(c.Timing.Timing()),
		bookcapture.WithAttempts(c.Capture.Attempts),
		bookcapture.WithProgressEvery(c.Capture.ProgressEvery),
		bookcapture.WithPagesPerMinute(c.Capture.PagesPerMinute),
		bookcapture.WithNormalizePNG(c.Capture.NormalizePNG),
	}
	if b.ChromePath != "" {
		opts = append(opts, bookcapture.WithChromePath(b.ChromePath))
	}
	if b.RemoteURL != "" {
		opts = append(opts, bookcapture.WithRemoteURL(b.RemoteURL))
	}
	if b.NoSandbox {
		opts = append(opts, bookcapture.WithNoSandbox())
	}
	if b.AutoDownload {
		opts = append(opts, bookcapture.WithAutoDownload())
	}
	if b.Stealth {
		opts = append(opts, bookcapture.WithStealth())
	}
	return opts
}
