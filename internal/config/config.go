package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinIntervalSeconds and MaxIntervalSeconds bound the automation check interval.
	MinIntervalSeconds = 10
	MaxIntervalSeconds = 3600
	// MinWaitTimeoutSeconds and MaxWaitTimeoutSeconds bound the per-click readiness wait.
	MinWaitTimeoutSeconds = 5
	MaxWaitTimeoutSeconds = 120
)

// Config captures all tunable settings for the ClickWatch MCP server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Browser    BrowserConfig    `yaml:"browser"`
	Login      LoginConfig      `yaml:"login"`
	Automation AutomationConfig `yaml:"automation"`
	MCP        MCPConfig        `yaml:"mcp"`
	Journal    JournalConfig    `yaml:"journal"`
	Recorder   RecorderConfig   `yaml:"recorder"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
}

// BrowserConfig configures how Chrome is launched for Rod.
type BrowserConfig struct {
	// Optional path to the Chrome/Chromium binary. Empty lets Rod's launcher find one.
	Bin string `yaml:"bin"`
	// Headless controls whether Chrome runs in headless mode (default: true).
	Headless *bool `yaml:"headless"`
	// Default navigation timeout (e.g., "15s").
	DefaultNavigationTimeout string `yaml:"default_navigation_timeout"`
	// SettleMode selects the post-navigation settle criterion: "load" (DOM ready,
	// faster) or "idle" (network idle, stricter). Default: load.
	SettleMode string `yaml:"settle_mode"`
	// Viewport width for new sessions (default: 1920).
	ViewportWidth int `yaml:"viewport_width"`
	// Viewport height for new sessions (default: 1080).
	ViewportHeight int `yaml:"viewport_height"`
}

// LoginConfig configures the manual login capture flow.
type LoginConfig struct {
	// URL opened in the visible browser for the operator to log in at.
	URL string `yaml:"url"`
	// How often the current URL is checked against the login-complete predicate (e.g., "2s").
	PollInterval string `yaml:"poll_interval"`
	// Overall deadline for the operator to finish logging in (e.g., "180s").
	Timeout string `yaml:"timeout"`
	// Substring that marks a URL as still being part of the login flow.
	Pattern string `yaml:"pattern"`
}

// AutomationConfig configures the periodic click scheduler.
type AutomationConfig struct {
	// TargetURL is the page the executor navigates to on every attempt.
	TargetURL string `yaml:"target_url"`
	// Seconds between scheduled checks. Bounded 10-3600.
	IntervalSeconds int `yaml:"interval_seconds"`
	// Seconds to wait for the target to become ready on each attempt. Bounded 5-120.
	WaitTimeoutSeconds int `yaml:"wait_timeout_seconds"`
	// Cadence of the readiness poll inside one attempt (e.g., "500ms").
	PollInterval string `yaml:"poll_interval"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// JournalConfig controls the embedded deductive engine.
type JournalConfig struct {
	Enable          bool   `yaml:"enable"`
	SchemaPath      string `yaml:"schema_path"`
	FactBufferLimit int    `yaml:"fact_buffer_limit"`
}

// RecorderConfig controls the JSONL flight recorder.
type RecorderConfig struct {
	Enable bool `yaml:"enable"`
	// Directory holding rotated trace files.
	Dir string `yaml:"dir"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "clickwatch-mcp",
			Version: "0.1.0",
			LogFile: "clickwatch-mcp.log",
		},
		Browser: BrowserConfig{
			DefaultNavigationTimeout: "15s",
			SettleMode:               "load",
			ViewportWidth:            1920,
			ViewportHeight:           1080,
		},
		Login: LoginConfig{
			PollInterval: "2s",
			Timeout:      "180s",
			Pattern:      "login",
		},
		Automation: AutomationConfig{
			IntervalSeconds:    30,
			WaitTimeoutSeconds: 15,
			PollInterval:       "500ms",
		},
		MCP: MCPConfig{
			SSEPort: 0,
		},
		Journal: JournalConfig{
			Enable:          true,
			SchemaPath:      "schemas/clickwatch.mg",
			FactBufferLimit: 2048,
		},
		Recorder: RecorderConfig{
			Enable: false,
			Dir:    "data/traces",
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate ensures required fields exist so the server can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if err := ValidateInterval(c.Automation.IntervalSeconds); err != nil {
		return err
	}
	if err := ValidateWaitTimeout(c.Automation.WaitTimeoutSeconds); err != nil {
		return err
	}
	switch c.Browser.SettleMode {
	case "", "load", "idle":
	default:
		return fmt.Errorf("browser.settle_mode must be \"load\" or \"idle\", got %q", c.Browser.SettleMode)
	}
	return nil
}

// ValidateInterval checks the scheduler interval against its bounds.
func ValidateInterval(seconds int) error {
	if seconds < MinIntervalSeconds || seconds > MaxIntervalSeconds {
		return fmt.Errorf("interval must be %d-%d seconds, got %d", MinIntervalSeconds, MaxIntervalSeconds, seconds)
	}
	return nil
}

// ValidateWaitTimeout checks the readiness wait timeout against its bounds.
func ValidateWaitTimeout(seconds int) error {
	if seconds < MinWaitTimeoutSeconds || seconds > MaxWaitTimeoutSeconds {
		return fmt.Errorf("wait timeout must be %d-%d seconds, got %d", MinWaitTimeoutSeconds, MaxWaitTimeoutSeconds, seconds)
	}
	return nil
}

// NavigationTimeout returns the parsed navigation timeout with a sane default.
func (b BrowserConfig) NavigationTimeout() time.Duration {
	if b.DefaultNavigationTimeout == "" {
		return 15 * time.Second
	}
	d, err := time.ParseDuration(b.DefaultNavigationTimeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// IsHeadless returns whether Chrome should run in headless mode (default: true).
func (b BrowserConfig) IsHeadless() bool {
	if b.Headless == nil {
		return true
	}
	return *b.Headless
}

// GetViewportWidth returns the viewport width with a sane default.
func (b BrowserConfig) GetViewportWidth() int {
	if b.ViewportWidth <= 0 {
		return 1920
	}
	return b.ViewportWidth
}

// GetViewportHeight returns the viewport height with a sane default.
func (b BrowserConfig) GetViewportHeight() int {
	if b.ViewportHeight <= 0 {
		return 1080
	}
	return b.ViewportHeight
}

// GetSettleMode returns the settle mode with a sane default.
func (b BrowserConfig) GetSettleMode() string {
	if b.SettleMode == "" {
		return "load"
	}
	return b.SettleMode
}

// GetPollInterval returns the parsed login poll interval with a sane default.
func (l LoginConfig) GetPollInterval() time.Duration {
	if l.PollInterval == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(l.PollInterval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetTimeout returns the parsed login deadline with a sane default.
func (l LoginConfig) GetTimeout() time.Duration {
	if l.Timeout == "" {
		return 180 * time.Second
	}
	d, err := time.ParseDuration(l.Timeout)
	if err != nil {
		return 180 * time.Second
	}
	return d
}

// GetPattern returns the login URL pattern with a sane default.
func (l LoginConfig) GetPattern() string {
	if l.Pattern == "" {
		return "login"
	}
	return l.Pattern
}

// GetPollInterval returns the parsed readiness poll cadence with a sane default.
func (a AutomationConfig) GetPollInterval() time.Duration {
	if a.PollInterval == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(a.PollInterval)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// Interval returns the check interval as a duration.
func (a AutomationConfig) Interval() time.Duration {
	return time.Duration(a.IntervalSeconds) * time.Second
}

// WaitTimeout returns the readiness wait timeout as a duration.
func (a AutomationConfig) WaitTimeout() time.Duration {
	return time.Duration(a.WaitTimeoutSeconds) * time.Second
}
