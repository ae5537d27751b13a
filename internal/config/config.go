// Package config loads blogstore settings from a TOML file, environment
// variables and built-in defaults, in increasing order of precedence:
// defaults, then file, then BLOGSTORE_* variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// DriverBolt selects the embedded bbolt backend. The other drivers are the
// database/sql names understood by sqlstore.
const DriverBolt = "bolt"

// Drivers lists every accepted store.driver value.
var Drivers = []string{"sqlite3", "sqlite", "postgres", DriverBolt}

const (
	configName = "blogstore"
	configType = "toml"
	envPrefix  = "BLOGSTORE"
)

// Config is the effective configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Log       LogConfig       `mapstructure:"log"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type StoreConfig struct {
	Driver      string        `mapstructure:"driver"`
	DSN         string        `mapstructure:"dsn"`
	BoltTimeout time.Duration `mapstructure:"bolt_timeout"`
}

type AnalyticsConfig struct {
	QueueSize       int           `mapstructure:"queue_size"`
	Workers         int           `mapstructure:"workers"`
	RetryMaxElapsed time.Duration `mapstructure:"retry_max_elapsed"`
	DefaultType     string        `mapstructure:"default_type"`
	WeeklyDays      int           `mapstructure:"weekly_days"`
	MarkersPath     string        `mapstructure:"markers_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite3")
	v.SetDefault("store.dsn", "blogstore.db")
	v.SetDefault("store.bolt_timeout", "1s")

	v.SetDefault("analytics.queue_size", 256)
	v.SetDefault("analytics.workers", 1)
	v.SetDefault("analytics.retry_max_elapsed", "5s")
	v.SetDefault("analytics.default_type", "visit")
	v.SetDefault("analytics.weekly_days", 28)
	v.SetDefault("analytics.markers_path", "./version_releases.json")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. When path is empty, blogstore.toml is
// searched for in the working directory and in $HOME/.config/blogstore, and
// a missing file is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(configType)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if !slices.Contains(Drivers, c.Store.Driver) {
		return fmt.Errorf("store.driver %q: must be one of %v", c.Store.Driver, Drivers)
	}
	if c.Store.DSN == "" {
		return errors.New("store.dsn is empty")
	}
	if c.Analytics.QueueSize <= 0 {
		return fmt.Errorf("analytics.queue_size must be positive, got %d", c.Analytics.QueueSize)
	}
	if c.Analytics.Workers <= 0 {
		return fmt.Errorf("analytics.workers must be positive, got %d", c.Analytics.Workers)
	}
	if c.Analytics.RetryMaxElapsed < 0 {
		return fmt.Errorf("analytics.retry_max_elapsed must not be negative, got %s", c.Analytics.RetryMaxElapsed)
	}
	if c.Analytics.WeeklyDays <= 0 {
		return fmt.Errorf("analytics.weekly_days must be positive, got %d", c.Analytics.WeeklyDays)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format %q: must be text or json", c.Log.Format)
	}
	return nil
}

// fileView is the on-disk shape of Config. Durations are written as Go
// duration strings, which is also what Load accepts.
type fileView struct {
	Store struct {
		Driver      string `toml:"driver"`
		DSN         string `toml:"dsn"`
		BoltTimeout string `toml:"bolt_timeout"`
	} `toml:"store"`
	Analytics struct {
		QueueSize       int    `toml:"queue_size"`
		Workers         int    `toml:"workers"`
		RetryMaxElapsed string `toml:"retry_max_elapsed"`
		DefaultType     string `toml:"default_type"`
		WeeklyDays      int    `toml:"weekly_days"`
		MarkersPath     string `toml:"markers_path"`
	} `toml:"analytics"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

// Render encodes c as a TOML document that Load reads back unchanged.
func (c *Config) Render() ([]byte, error) {
	var f fileView
	f.Store.Driver = c.Store.Driver
	f.Store.DSN = c.Store.DSN
	f.Store.BoltTimeout = c.Store.BoltTimeout.String()
	f.Analytics.QueueSize = c.Analytics.QueueSize
	f.Analytics.Workers = c.Analytics.Workers
	f.Analytics.RetryMaxElapsed = c.Analytics.RetryMaxElapsed.String()
	f.Analytics.DefaultType = c.Analytics.DefaultType
	f.Analytics.WeeklyDays = c.Analytics.WeeklyDays
	f.Analytics.MarkersPath = c.Analytics.MarkersPath
	f.Log.Level = c.Log.Level
	f.Log.Format = c.Log.Format

	data, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return data, nil
}
