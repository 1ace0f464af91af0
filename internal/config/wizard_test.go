package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/europython/sponsorbot/pkg/sponsors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardRun(t *testing.T) {
	t.Run("google sheet with retry on bad token", func(t *testing.T) {
		input := strings.Join([]string{
			"y",
			"not-a-token",
			"123456789:ABCdefGHIjklMNOpqrsTUVwxyz",
			"16ohl6y4n9RXfG5jizBYl1ns12UKFS3Crauyc1ZsP1G0",
			"/etc/sponsorbot/key.json",
			"",
			"debug",
		}, "\n") + "\n"
		out := &bytes.Buffer{}

		cfg, err := NewWizardIO(strings.NewReader(input), out).Run(DefaultConfig())
		require.NoError(t, err)

		assert.True(t, cfg.Telegram.Enabled)
		assert.Equal(t, "123456789:ABCdefGHIjklMNOpqrsTUVwxyz", cfg.Telegram.BotToken)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "16ohl6y4n9RXfG5jizBYl1ns12UKFS3Crauyc1ZsP1G0", cfg.Sponsors[sponsors.KeySheetKey])
		assert.Equal(t, "/etc/sponsorbot/key.json", cfg.Sponsors[sponsors.KeyAPIKeyFile])
		assert.NotContains(t, cfg.Sponsors, sponsors.KeySheetTab)
		assert.Contains(t, out.String(), "Error: invalid Telegram bot token format")
	})

	t.Run("local workbook without telegram", func(t *testing.T) {
		input := "n\n/srv/sponsors.xlsx\nSheet1\n\n"

		cfg, err := NewWizardIO(strings.NewReader(input), &bytes.Buffer{}).Run(DefaultConfig())
		require.NoError(t, err)

		assert.False(t, cfg.Telegram.Enabled)
		assert.Equal(t, "xlsx", cfg.Sponsors[sponsors.KeySource])
		assert.Equal(t, "Sheet1", cfg.Sponsors[sponsors.KeySheetTab])
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("existing overrides keep one key per setting", func(t *testing.T) {
		base := DefaultConfig()
		base.Sponsors = map[string]any{
			"sponsors_sheet_key": "old-sheet",
			"TEMPLATE_FILE":      map[string]any{"Gold": "g.tex"},
		}
		input := "n\nnew-sheet\n\n\n\n"

		cfg, err := NewWizardIO(strings.NewReader(input), &bytes.Buffer{}).Run(base)
		require.NoError(t, err)

		assert.Equal(t, "new-sheet", cfg.Sponsors[sponsors.KeySheetKey])
		assert.NotContains(t, cfg.Sponsors, "sponsors_sheet_key")
		assert.Equal(t, map[string]any{"Gold": "g.tex"}, cfg.Sponsors[sponsors.KeyTemplateFile])
	})

	t.Run("input ends early", func(t *testing.T) {
		_, err := NewWizardIO(strings.NewReader("y\n"), &bytes.Buffer{}).Run(DefaultConfig())
		assert.Error(t, err)
	})
}
