package config

import (
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/europython/sponsorbot/pkg/sponsors"
)

// Config represents the sponsorbot configuration
type Config struct {
	// Telegram
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Root for plugin configuration (key file, templates)
	ConfigDir string `json:"config_dir" mapstructure:"config_dir"`

	// Root for plugin data (generated agreements, PID file)
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Overrides merged over the sponsors plugin defaults
	Sponsors map[string]any `json:"sponsors,omitempty" mapstructure:"sponsors"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	Enabled   bool    `json:"enabled" mapstructure:"enabled"`
	BotToken  string  `json:"bot_token" mapstructure:"bot_token"`
	Allowlist []int64 `json:"allowlist,omitempty" mapstructure:"allowlist"` // empty allows every chat
	Timeout   int     `json:"timeout" mapstructure:"timeout"`               // long polling, seconds
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	AuditFile string `json:"audit_file" mapstructure:"audit_file"` // defaults to <data_dir>/audit.log
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Addr string `json:"addr" mapstructure:"addr"` // empty disables the endpoint
	Path string `json:"path" mapstructure:"path"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Enabled: true,
			Timeout: 60,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// AuditPath returns where the audit trail is written
func (c *Config) AuditPath() string {
	if c.Logging.AuditFile != "" {
		return c.Logging.AuditFile
	}
	return filepath.Join(c.DataDir, "audit.log")
}

// Roots returns the directory roots the sponsors defaults are built from
func (c *Config) Roots() sponsors.Roots {
	return sponsors.Roots{
		ConfigDir: c.ConfigDir,
		DataDir:   c.DataDir,
	}
}

// SponsorSettings returns the sponsors overrides with their keys restored
// to upper case, since viper lower-cases every key it reads.
func (c *Config) SponsorSettings() sponsors.Settings {
	if len(c.Sponsors) == 0 {
		return nil
	}
	out := make(sponsors.Settings, len(c.Sponsors))
	for k, v := range c.Sponsors {
		out[strings.ToUpper(k)] = v
	}
	return out
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	v := NewValidator()

	if c.Telegram.Enabled {
		if err := v.ValidateTelegramToken(c.Telegram.BotToken); err != nil {
			return err
		}
	}

	if c.Telegram.Timeout < 0 {
		return fmt.Errorf("telegram timeout must not be negative, got %d", c.Telegram.Timeout)
	}

	if err := v.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}

	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return fmt.Errorf("invalid metrics address %q: %w", c.Metrics.Addr, err)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics path must start with /, got %q", c.Metrics.Path)
		}
	}

	if c.DataDir == "" || c.ConfigDir == "" {
		return fmt.Errorf("config_dir and data_dir must be set")
	}

	return nil
}
