package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/lockwatch-dev/lockwatch/internal/errors"
	"github.com/lockwatch-dev/lockwatch/pkg/engine"
	"github.com/lockwatch-dev/lockwatch/pkg/mirror"
)

const (
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "lockwatch.json"

	// DefaultAPIAddress is where the local control API listens.
	DefaultAPIAddress = "127.0.0.1:8787"

	// RetryModeForever keeps reconnecting after every failure.
	RetryModeForever = "forever"

	// RetryModeGiveUp stops after the first failure.
	RetryModeGiveUp = "give-up"
)

// Config represents the complete lockwatch configuration.
type Config struct {
	// Host is the address of the monitored PC.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the WebSocket port on the monitored PC.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Retry configures reconnection.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`

	// Handshake sends the legacy client-role literal after connecting.
	Handshake bool `json:"handshake,omitempty" yaml:"handshake,omitempty"`

	// API configures the local control API.
	API APIConfig `json:"api,omitempty" yaml:"api,omitempty"`

	// Metrics exposes /metrics on the control API.
	Metrics bool `json:"metrics" yaml:"metrics"`

	// Mirror configures the S3 latest-image mirror.
	Mirror MirrorConfig `json:"mirror,omitempty" yaml:"mirror,omitempty"`

	// Log configures logging.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RetryConfig contains reconnect settings.
type RetryConfig struct {
	// Mode is "forever" or "give-up".
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Delay is the pause between attempts (e.g., "3s").
	Delay string `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// APIConfig contains control API settings.
type APIConfig struct {
	// Address is the listen address. Empty disables the API.
	Address string `json:"address" yaml:"address"`
}

// MirrorConfig contains S3 image mirror settings.
type MirrorConfig struct {
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Key       string `json:"key,omitempty" yaml:"key,omitempty"`
	// Region falls back to AWS_REGION, then us-east-1, when empty.
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty"`
}

// Enabled reports whether a bucket is configured.
func (m MirrorConfig) Enabled() bool {
	return m.Bucket != ""
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Port: engine.DefaultPort,
		Retry: RetryConfig{
			Mode:  RetryModeForever,
			Delay: engine.DefaultRetryDelay.String(),
		},
		API: APIConfig{
			Address: DefaultAPIAddress,
		},
		Metrics: true,
		Mirror: MirrorConfig{
			Key: mirror.DefaultKey,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads lockwatch.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from path. Files ending in .yaml or .yml are
// parsed as YAML; anything else as JSON with comments.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E101").
				WithDetail("No configuration at " + path)
		}
		return nil, errors.New("E102").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	}
	if err != nil {
		return nil, errors.New("E102").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Path returns the path the config was loaded from, if any.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = engine.DefaultPort
	}
	if c.Retry.Mode == "" {
		c.Retry.Mode = RetryModeForever
	}
	if c.Retry.Delay == "" {
		c.Retry.Delay = engine.DefaultRetryDelay.String()
	}
	if c.Mirror.Key == "" {
		c.Mirror.Key = mirror.DefaultKey
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks that the configuration can build an engine.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("E103").WithDetail("No host given")
	}
	if _, _, err := net.SplitHostPort(strings.TrimSpace(c.Host)); err == nil {
		return errors.New("E103").
			WithDetail("Host must not include a port, got " + c.Host).
			WithSuggestion("Use --port (or \"port\") for the port")
	}
	host := c.hostname()
	if host == "" || strings.ContainsAny(host, "/ []") || strings.Contains(host, "://") {
		return errors.New("E103").WithDetail("Host must be a bare address, got " + c.Host)
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("E104").
			WithDetail("Port must be between 1 and 65535")
	}
	if _, err := c.RetryMode(); err != nil {
		return err
	}
	if _, err := c.RetryDelay(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("E107").WithDetail("Unknown log format " + c.Log.Format)
	}
	return nil
}

// RetryMode maps the configured mode to an engine.RetryMode.
func (c *Config) RetryMode() (engine.RetryMode, error) {
	switch strings.ToLower(c.Retry.Mode) {
	case RetryModeForever, "":
		return engine.RetryForever, nil
	case RetryModeGiveUp, "giveup":
		return engine.GiveUpAfterFirstFailure, nil
	default:
		return 0, errors.New("E105").WithDetail("Unknown retry mode " + c.Retry.Mode)
	}
}

// RetryDelay parses the configured delay.
func (c *Config) RetryDelay() (time.Duration, error) {
	if c.Retry.Delay == "" {
		return engine.DefaultRetryDelay, nil
	}
	d, err := time.ParseDuration(c.Retry.Delay)
	if err != nil {
		return 0, errors.New("E106").Wrap(err)
	}
	if d <= 0 {
		return 0, errors.New("E106").WithDetail("Delay must be positive, got " + c.Retry.Delay)
	}
	return d, nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.New("E107").WithDetail("Unknown log level " + c.Log.Level)
	}
	return level, nil
}

// Endpoint returns the engine endpoint. Call Validate first.
func (c *Config) Endpoint() engine.Endpoint {
	return engine.Endpoint{Host: c.hostname(), Port: c.Port}
}

// hostname is the configured host with surrounding space and IPv6 brackets
// removed. Endpoint.URL adds the brackets back.
func (c *Config) hostname() string {
	host := strings.TrimSpace(c.Host)
	if len(host) > 1 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	return host
}

// Policy returns the reconnect policy. Invalid values fall back to defaults;
// call Validate first to reject them.
func (c *Config) Policy() engine.Policy {
	policy := engine.DefaultPolicy()
	if mode, err := c.RetryMode(); err == nil {
		policy.Mode = mode
	}
	if delay, err := c.RetryDelay(); err == nil {
		policy.Delay = delay
	}
	return policy
}
