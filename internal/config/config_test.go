package config

import (
	"path/filepath"
	"testing"

	"github.com/europython/sponsorbot/pkg/sponsors"
	"github.com/stretchr/testify/assert"
)

func validConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Telegram.BotToken = "123456789:ABCdefGHIjklMNOpqrsTUVwxyz"
	cfg.ConfigDir = t.TempDir()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, 60, cfg.Telegram.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redaction)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Empty(t, cfg.Sponsors)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, validConfig(t).Validate())
	})

	t.Run("telegram disabled needs no token", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Telegram.Enabled = false
		cfg.Telegram.BotToken = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing bot token", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Telegram.BotToken = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "bot token is required")
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Logging.Level = "verbose"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("invalid metrics address", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Metrics.Addr = "nope"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid metrics address")
	})

	t.Run("missing roots", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.DataDir = ""

		assert.Error(t, cfg.Validate())
	})
}

func TestConfigRoots(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfigDir = "/etc/sponsorbot"
	cfg.DataDir = "/var/lib/sponsorbot"

	roots := cfg.Roots()
	assert.Equal(t, "/etc/sponsorbot", roots.ConfigDir)
	assert.Equal(t, "/var/lib/sponsorbot", roots.DataDir)
	assert.Equal(t, filepath.Join("/etc/sponsorbot", "plugins", "sponsors"), roots.PluginConfigDir())
}

func TestAuditPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/sponsorbot"
	assert.Equal(t, filepath.Join("/var/lib/sponsorbot", "audit.log"), cfg.AuditPath())

	cfg.Logging.AuditFile = "/var/log/sponsorbot-audit.log"
	assert.Equal(t, "/var/log/sponsorbot-audit.log", cfg.AuditPath())
}

func TestSponsorSettings(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.SponsorSettings())

	cfg.Sponsors = map[string]any{
		"sponsors_sheet_key": "abc",
		"template_file":      map[string]any{"eps": "a.tex"},
	}

	settings := cfg.SponsorSettings()
	assert.Equal(t, "abc", settings[sponsors.KeySheetKey])
	assert.Equal(t, map[string]any{"eps": "a.tex"}, settings[sponsors.KeyTemplateFile])
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/data"

	str := cfg.String()
	assert.Contains(t, str, `"data_dir": "/data"`)
	assert.Contains(t, str, `"telegram"`)
}
