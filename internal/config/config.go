// Package config handles TOML-based configuration loading and validation.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/andybalholm/cascadia"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds all application configuration.
type Config struct {
	TitleSelector  string  `toml:"title_selector"`
	EmbedSelector  string  `toml:"embed_selector"`
	EmbedAttr      string  `toml:"embed_attr"`
	Clipboard      bool    `toml:"clipboard"`
	Headless       bool    `toml:"headless"`
	ChromePath     string  `toml:"chrome_path"`
	UserAgent      string  `toml:"user_agent"`
	Referer        string  `toml:"referer"`
	SettleSeconds  int     `toml:"settle_seconds"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RangeRate      float64 `toml:"range_rate"`
	History        bool    `toml:"history"`
	Database       string  `toml:"database"`
	OutputDir      string  `toml:"output_dir"`
	LogLevel       string  `toml:"log_level"`
	LogFormat      string  `toml:"log_format"`
	Debug          bool    `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		TitleSelector:  "h2.text-title.pt-1",
		EmbedSelector:  `iframe[src*="player.vimeo.com"]`,
		EmbedAttr:      "src",
		Clipboard:      true,
		Headless:       true,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		Referer:        "https://player.vimeo.com/",
		SettleSeconds:  8,
		TimeoutSeconds: 90,
		RangeRate:      4,
		History:        true,
		OutputDir:      "~/Videos/vimeoscan",
		LogLevel:       "info",
		LogFormat:      "console",
		Debug:          false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vimeoscan"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "getting home directory")
	}
	return filepath.Join(home, ".config", "vimeoscan"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, eris.Wrap(err, "reading config")
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, eris.Wrapf(err, "parsing config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if _, err := cascadia.Compile(c.TitleSelector); err != nil {
		return eris.Wrapf(err, "title_selector %q", c.TitleSelector)
	}
	if _, err := cascadia.Compile(c.EmbedSelector); err != nil {
		return eris.Wrapf(err, "embed_selector %q", c.EmbedSelector)
	}
	if strings.TrimSpace(c.EmbedAttr) == "" {
		return eris.New("embed_attr cannot be empty")
	}
	if c.SettleSeconds < 0 {
		return eris.Errorf("settle_seconds must be >= 0, got %d", c.SettleSeconds)
	}
	if c.TimeoutSeconds <= 0 {
		return eris.Errorf("timeout_seconds must be > 0, got %d", c.TimeoutSeconds)
	}
	if c.RangeRate <= 0 {
		return eris.Errorf("range_rate must be > 0, got %v", c.RangeRate)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return eris.Wrapf(err, "log_level %q", c.LogLevel)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return eris.Errorf("unsupported log_format %q (valid: console, json)", c.LogFormat)
	}
	return nil
}

// Settle is how long a live page is left running before collection.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// Timeout bounds a whole browser session.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ExpandOutputDir resolves ~ in the output directory path.
func (c *Config) ExpandOutputDir() (string, error) {
	return expandHome(c.OutputDir)
}

// DatabasePath returns the configured capture database, defaulting to the
// XDG data directory.
func (c *Config) DatabasePath() (string, error) {
	if c.Database != "" {
		return expandHome(c.Database)
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", eris.Wrap(err, "getting home directory")
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "vimeoscan", "captures.db"), nil
}

func expandHome(dir string) (string, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", eris.Wrap(err, "expanding home dir")
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}

// InitLogger initializes the global zap logger.
func InitLogger(level, format string) error {
	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(lvl)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
