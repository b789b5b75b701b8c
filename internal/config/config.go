package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a field (or the whole file) is absent.
const (
	DefaultEndpoint   = "ws://127.0.0.1:2345"
	DefaultListenAddr = "127.0.0.1:2345"

	DefaultReconnectFloor = 1 * time.Second
	DefaultReconnectCap   = 30 * time.Second

	DefaultScrollY = 500
	DefaultWaitMs  = 2000

	DefaultElementLimit       = 30
	DefaultElementTextLimit   = 50
	DefaultScreenshotMaxWidth = 1280

	DefaultRatePerMinute = 60
	DefaultRateBurst     = 10
)

// Duration wraps time.Duration so yaml accepts "2s" style values. Bare
// numbers are taken as milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var ms int64
	if err := value.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	return fmt.Errorf("invalid duration: %s", value.Value)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the on-disk configuration for both the agent and the bridge.
type Config struct {
	Agent  AgentConfig  `yaml:"agent"`
	Bridge BridgeConfig `yaml:"bridge"`
}

// AgentConfig drives the relay daemon and its browser session.
type AgentConfig struct {
	Endpoint  string          `yaml:"endpoint"`
	Headless  bool            `yaml:"headless"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Elements  ElementsConfig  `yaml:"elements"`

	// Fallbacks for commands that omit their argument.
	ScrollY int `yaml:"scroll_y"`
	WaitMs  int `yaml:"wait_ms"`

	ScreenshotMaxWidth int `yaml:"screenshot_max_width"`
}

// ReconnectConfig bounds the reconnect backoff.
type ReconnectConfig struct {
	Floor      Duration `yaml:"floor"`
	Cap        Duration `yaml:"cap"`
	Multiplier float64  `yaml:"multiplier"`
}

// ElementsConfig tunes interactive element listing.
type ElementsConfig struct {
	Selector  string `yaml:"selector"`
	Limit     int    `yaml:"limit"`
	TextLimit int    `yaml:"text_limit"`
}

// BridgeConfig drives the command server side.
type BridgeConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	MomentsDir string `yaml:"moments_dir"`

	// Inbound command rate limit.
	RatePerMinute int `yaml:"rate_per_minute"`
	RateBurst     int `yaml:"rate_burst"`
}

// Default returns a Config with every field at its default.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Endpoint: DefaultEndpoint,
			Reconnect: ReconnectConfig{
				Floor: Duration(DefaultReconnectFloor),
				Cap:   Duration(DefaultReconnectCap),
			},
			Elements: ElementsConfig{
				Limit:     DefaultElementLimit,
				TextLimit: DefaultElementTextLimit,
			},
			ScrollY:            DefaultScrollY,
			WaitMs:             DefaultWaitMs,
			ScreenshotMaxWidth: DefaultScreenshotMaxWidth,
		},
		Bridge: BridgeConfig{
			ListenAddr:    DefaultListenAddr,
			MomentsDir:    defaultMomentsDir(),
			RatePerMinute: DefaultRatePerMinute,
			RateBurst:     DefaultRateBurst,
		},
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// present fields override them.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize backfills zero values so a sparse file still yields a usable
// config.
func (c *Config) normalize() {
	d := Default()
	if c.Agent.Endpoint == "" {
		c.Agent.Endpoint = d.Agent.Endpoint
	}
	if c.Agent.Reconnect.Floor <= 0 {
		c.Agent.Reconnect.Floor = d.Agent.Reconnect.Floor
	}
	if c.Agent.Reconnect.Cap <= 0 {
		c.Agent.Reconnect.Cap = d.Agent.Reconnect.Cap
	}
	if c.Agent.Elements.Limit <= 0 {
		c.Agent.Elements.Limit = d.Agent.Elements.Limit
	}
	if c.Agent.Elements.TextLimit <= 0 {
		c.Agent.Elements.TextLimit = d.Agent.Elements.TextLimit
	}
	if c.Agent.ScrollY <= 0 {
		c.Agent.ScrollY = d.Agent.ScrollY
	}
	if c.Agent.WaitMs <= 0 {
		c.Agent.WaitMs = d.Agent.WaitMs
	}
	if c.Agent.ScreenshotMaxWidth <= 0 {
		c.Agent.ScreenshotMaxWidth = d.Agent.ScreenshotMaxWidth
	}
	if c.Bridge.ListenAddr == "" {
		c.Bridge.ListenAddr = d.Bridge.ListenAddr
	}
	if c.Bridge.MomentsDir == "" {
		c.Bridge.MomentsDir = d.Bridge.MomentsDir
	}
	if c.Bridge.RatePerMinute <= 0 {
		c.Bridge.RatePerMinute = d.Bridge.RatePerMinute
	}
	if c.Bridge.RateBurst <= 0 {
		c.Bridge.RateBurst = d.Bridge.RateBurst
	}
}

func defaultMomentsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".leo", "moments")
	}
	return filepath.Join(home, ".leo", "moments")
}
