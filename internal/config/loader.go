package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override
	EnvPrefix = "SPONSORBOT"

	// EnvConfigDir and EnvDataDir name the two directory roots
	EnvConfigDir = EnvPrefix + "_CONFIG_DIR"
	EnvDataDir   = EnvPrefix + "_DATA_DIR"

	configFileName = "sponsorbot.json"
)

// ErrConfigNotFound is returned when an explicitly given config file does
// not exist.
var ErrConfigNotFound = errors.New("config file not found")

// envKeys are the settings that may be overridden from the environment,
// e.g. SPONSORBOT_TELEGRAM_BOT_TOKEN.
var envKeys = []string{
	"telegram.enabled",
	"telegram.bot_token",
	"logging.level",
	"logging.file",
	"logging.audit_file",
	"metrics.addr",
	"config_dir",
	"data_dir",
}

// Loader handles configuration loading
type Loader struct {
	configPath string
	getenv     func(string) string
	homeDir    func() (string, error)
}

// NewLoader creates a new config loader. An empty path means
// <config dir>/sponsorbot.json.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		getenv:     os.Getenv,
		homeDir:    os.UserHomeDir,
	}
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads the configuration from file and environment
func (l *Loader) Load() (*Config, error) {
	configDir, err := l.defaultConfigDir()
	if err != nil {
		return nil, err
	}

	configPath := l.configPath
	if configPath == "" {
		configPath = filepath.Join(configDir, configFileName)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	fileFound := false
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		fileFound = true
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	} else if l.configPath != "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	if err := NewValidator().ValidateDocument(v.AllSettings()); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if fileFound {
		raw, err := rawSponsors(configPath)
		if err != nil {
			return nil, err
		}
		if raw != nil {
			cfg.Sponsors = raw
		}
	}

	fillRoots(cfg, configDir)
	return cfg, nil
}

// Defaults returns the default config with the directory roots resolved,
// as Load would without a config file.
func (l *Loader) Defaults() (*Config, error) {
	configDir, err := l.defaultConfigDir()
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	fillRoots(cfg, configDir)
	return cfg, nil
}

func fillRoots(cfg *Config, configDir string) {
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = configDir
	}
	if cfg.DataDir == "" {
		cfg.DataDir = configDir
	}
}

// rawSponsors re-reads the sponsors section with the key case preserved.
// Viper folds keys at every depth, which would make mixed-case contract
// types unreachable.
func rawSponsors(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc map[string]any
	switch configType(path) {
	case "json":
		err = json.Unmarshal(data, &doc)
	case "yaml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode sponsors settings: %w", err)
	}

	for k, v := range doc {
		if strings.EqualFold(k, "sponsors") {
			section, _ := v.(map[string]any)
			return section, nil
		}
	}
	return nil, nil
}

func configType(path string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "yml", "yaml":
		return "yaml"
	default:
		return ext
	}
}

// Save writes the configuration file. The format follows the file
// extension, JSON unless it is .yaml or .yml.
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if configType(configPath) == "yaml" {
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if data, err = yaml.Marshal(doc); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}

	dir, err := l.defaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func (l *Loader) defaultConfigDir() (string, error) {
	if dir := l.getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}

	home, err := l.homeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".sponsorbot"), nil
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
