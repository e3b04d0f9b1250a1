package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/tunerd/tunerd/internal/logger"
)

// Config is the top-level TOML structure.
type Config struct {
	Listen    string          `mapstructure:"listen"`
	Log       logger.Config   `mapstructure:"log"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Channels  []ChannelConfig `mapstructure:"channels"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Recording RecordingConfig `mapstructure:"recording"`
	Tuner     TunerConfig     `mapstructure:"tuner"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
}

// ProviderConfig locates the upstream channel-status endpoint.
type ProviderConfig struct {
	URL          string        `mapstructure:"url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ChannelConfig is one configured channel.
type ChannelConfig struct {
	Name   string `mapstructure:"name"`
	Record bool   `mapstructure:"record"`
}

// StreamConfig controls the per-viewer live stream pipeline.
type StreamConfig struct {
	Mode          string        `mapstructure:"mode"` // direct | discover
	URLTemplate   string        `mapstructure:"url_template"`
	Extractor     string        `mapstructure:"extractor"`
	Fetcher       string        `mapstructure:"fetcher"`
	Quality       string        `mapstructure:"quality"`
	TranscodeArgs []string      `mapstructure:"transcode_args"`
	GracePeriod   time.Duration `mapstructure:"grace_period"`
	URLTTL        time.Duration `mapstructure:"url_ttl"`
}

// RecordingConfig controls the recording supervisor.
type RecordingConfig struct {
	Root          string            `mapstructure:"root"`
	RetentionDays int               `mapstructure:"retention_days"`
	Quality       string            `mapstructure:"quality"`
	Interval      time.Duration     `mapstructure:"interval"`
	Log           logger.FileConfig `mapstructure:"log"`
}

// TunerConfig feeds the HDHomeRun-compatible documents.
type TunerConfig struct {
	FriendlyName string `mapstructure:"friendly_name"`
	DeviceID     string `mapstructure:"device_id"`
	BaseURL      string `mapstructure:"base_url"`
	TunerCount   int    `mapstructure:"tuner_count"`
}

// WebhookConfig is the optional guide-refresh trigger.
type WebhookConfig struct {
	URL string `mapstructure:"url"`
}

// Load reads a TOML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":6077"
	}
	if c.Provider.PollInterval <= 0 {
		c.Provider.PollInterval = time.Minute
	}
	if c.Stream.Mode == "" {
		c.Stream.Mode = "direct"
	}
	if c.Stream.URLTemplate == "" {
		c.Stream.URLTemplate = "https://twitch.tv/{channel}"
	}
	if c.Stream.Extractor == "" {
		c.Stream.Extractor = "streamlink"
	}
	if c.Stream.Fetcher == "" {
		c.Stream.Fetcher = "ffmpeg"
	}
	if c.Stream.Quality == "" {
		c.Stream.Quality = "best"
	}
	if c.Stream.GracePeriod <= 0 {
		c.Stream.GracePeriod = 5 * time.Second
	}
	if c.Stream.URLTTL <= 0 {
		c.Stream.URLTTL = 5 * time.Minute
	}
	if c.Recording.RetentionDays <= 0 {
		c.Recording.RetentionDays = 14
	}
	if c.Recording.Quality == "" {
		c.Recording.Quality = c.Stream.Quality
	}
	if c.Recording.Interval <= 0 {
		c.Recording.Interval = 5 * time.Minute
	}
	if c.Tuner.FriendlyName == "" {
		c.Tuner.FriendlyName = "tunerd"
	}
	if c.Tuner.DeviceID == "" {
		c.Tuner.DeviceID = "12345678"
	}
	if c.Tuner.TunerCount <= 0 {
		c.Tuner.TunerCount = 4
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Provider.URL == "" {
		return fmt.Errorf("config: provider.url is required")
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("config: at least one [[channels]] entry is required")
	}
	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("config: channel with empty name")
		}
		if seen[ch.Name] {
			return fmt.Errorf("config: duplicate channel %q", ch.Name)
		}
		seen[ch.Name] = true
	}
	switch c.Stream.Mode {
	case "direct", "discover":
	default:
		return fmt.Errorf("config: stream.mode must be \"direct\" or \"discover\", got %q", c.Stream.Mode)
	}
	if anyRecord(c.Channels) && c.Recording.Root == "" {
		return fmt.Errorf("config: recording.root is required when a channel has record = true")
	}
	return nil
}

func anyRecord(chs []ChannelConfig) bool {
	for _, ch := range chs {
		if ch.Record {
			return true
		}
	}
	return false
}

// Logins returns the configured channel names in order.
func (c *Config) Logins() []string {
	out := make([]string, 0, len(c.Channels))
	for _, ch := range c.Channels {
		out = append(out, ch.Name)
	}
	return out
}
