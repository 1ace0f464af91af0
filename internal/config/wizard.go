package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/europython/sponsorbot/pkg/sponsors"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading from stdin
func NewWizard() *Wizard {
	return NewWizardIO(os.Stdin, os.Stdout)
}

// NewWizardIO creates a wizard on the given streams
func NewWizardIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run asks for the settings needed to start the bot, starting from base
func (w *Wizard) Run(base *Config) (*Config, error) {
	cfg := *base
	validator := NewValidator()
	overrides := make(map[string]any, len(base.Sponsors))
	for k, v := range base.Sponsors {
		overrides[strings.ToUpper(k)] = v
	}

	w.printf("=== Sponsorbot Configuration Wizard ===\n\n")

	enable, err := w.ask("Enable Telegram integration? (y/n) [y]: ")
	if err != nil {
		return nil, err
	}
	cfg.Telegram.Enabled = enable == "" || strings.EqualFold(enable, "y")

	if cfg.Telegram.Enabled {
		for {
			token, err := w.ask("Telegram Bot Token: ")
			if err != nil {
				return nil, err
			}
			if err := validator.ValidateTelegramToken(token); err != nil {
				w.printf("Error: %v\n", err)
				continue
			}
			cfg.Telegram.BotToken = token
			break
		}
	}

	w.printf("\nSponsor spreadsheet:\n")
	for {
		key, err := w.ask("Spreadsheet key or .xlsx path: ")
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateSheetKey(key); err != nil {
			w.printf("Error: %v\n", err)
			continue
		}
		overrides[sponsors.KeySheetKey] = key
		if strings.HasSuffix(strings.ToLower(key), ".xlsx") {
			overrides[sponsors.KeySource] = sponsors.SourceXLSX
		}
		break
	}

	if overrides[sponsors.KeySource] != sponsors.SourceXLSX {
		keyFile, err := w.ask("Google service account key file (press Enter for default): ")
		if err != nil {
			return nil, err
		}
		if keyFile != "" {
			overrides[sponsors.KeyAPIKeyFile] = keyFile
		}
	}

	tab, err := w.ask("Worksheet name (press Enter for default): ")
	if err != nil {
		return nil, err
	}
	if tab != "" {
		overrides[sponsors.KeySheetTab] = tab
	}

	w.printf("\nLogging:\n")
	level, err := w.ask("Log level (debug/info/warn/error) [info]: ")
	if err != nil {
		return nil, err
	}
	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			w.printf("Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	cfg.Sponsors = overrides

	w.printf("\nConfiguration complete!\n")
	return &cfg, nil
}

func (w *Wizard) ask(prompt string) (string, error) {
	w.printf("%s", prompt)
	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (w *Wizard) printf(format string, args ...any) {
	fmt.Fprintf(w.out, format, args...)
}
