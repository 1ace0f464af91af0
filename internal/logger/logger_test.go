package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("create logger with console output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{
			Level:   "info",
			Console: true,
			Output:  buf,
		})
		require.NoError(t, err)
		defer logger.Close()

		logger.Info().Str("company", "Acme").Msg("Sponsor found")
		assert.Contains(t, buf.String(), `"company":"Acme"`)
	})

	t.Run("create logger with file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "test.log")

		logger, err := New(Config{
			Level: "debug",
			File:  logFile,
		})
		require.NoError(t, err)

		logger.Debug().Msg("test message")
		require.NoError(t, logger.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "test message")
	})

	t.Run("create logger with redaction", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{
			Level:     "info",
			Console:   true,
			Output:    buf,
			Redaction: true,
		})
		require.NoError(t, err)
		assert.NotNil(t, logger.redactor)

		logger.Error().Str("url", "https://api.telegram.org/bot123456789:ABCdefGHIjklMNOpqrsTUVwxyz-1234567/getMe").Msg("request failed")
		assert.NotContains(t, buf.String(), "ABCdefGHIjklMNOpqrsTUVwxyz")
		assert.Contains(t, buf.String(), "[REDACTED]")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "chatty", Console: true, Output: buf})
		require.NoError(t, err)

		logger.Debug().Msg("hidden")
		logger.Info().Msg("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Console: true, Output: buf})
	require.NoError(t, err)

	child := logger.Component("telegram")
	child.Info().Msg("started")
	assert.Contains(t, buf.String(), `"component":"telegram"`)
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Info().Msg("discarded")
	assert.NoError(t, logger.Close())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Empty(t, cfg.File)
}
