package config

import (
	"errors"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for a fixreg invocation.
// Values are populated from .fixreg.yaml, FIXREG_* env vars, and CLI flags.
type Config struct {
	FixturesDir   string `mapstructure:"fixtures_dir"`
	Manifest      string `mapstructure:"manifest"`
	LockPath      string `mapstructure:"lock_path"`  // relative paths resolve against FixturesDir
	HistoryDB     string `mapstructure:"history_db"` // "" disables run history
	TelemetryPath string `mapstructure:"telemetry_path"`
	Verbose       bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("fixtures_dir", ".")
	viper.SetDefault("manifest", "fixtures.toml")
	viper.SetDefault("lock_path", "fixtures.lock")
	viper.SetDefault("history_db", ".fixreg/history.db")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Manifest == "" {
		return Config{}, errors.New("config: manifest must not be empty")
	}
	return cfg, nil
}

// LockFile returns the lock file path, resolving a relative LockPath
// against FixturesDir.
func (c Config) LockFile() string {
	if filepath.IsAbs(c.LockPath) {
		return c.LockPath
	}
	return filepath.Join(c.FixturesDir, c.LockPath)
}
