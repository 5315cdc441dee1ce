package voyagebed

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
)

// Config holds the engine configuration. Ranking constants are fixed and
// not configurable.
type Config struct {
	Store StoreConfig `toml:"store"`
	Data  DataConfig  `toml:"data"`
	Log   LogConfig   `toml:"log"`
}

// StoreConfig selects the sqlite database.
type StoreConfig struct {
	// DSN is a sqlite file path or URI. Empty opens a private in-memory store.
	DSN string `toml:"dsn"`
}

// DataConfig locates the source tables used to populate an empty store.
type DataConfig struct {
	// Dir holds geography.csv and voyages.csv, optionally .bz2 compressed.
	// Files missing from Dir are read from the embedded dataset.
	Dir string `toml:"dir"`
}

// LogConfig configures the engine logger.
type LogConfig struct {
	Level     string `toml:"level"`
	Formatter string `toml:"formatter"` // text, json or logfmt
	Timestamp bool   `toml:"timestamp"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{DSN: "voyagebed.db"},
		Data:  DataConfig{Dir: "./voyagebed-data"},
		Log:   LogConfig{Level: "info", Formatter: "text"},
	}
}

// LoadConfig reads a TOML file over the defaults. A missing file yields the
// defaults; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// config holds what Open and New need once options are applied.
type config struct {
	Config
	logger *Logger
}

// Option is a functional option for configuring an Engine.
type Option func(*config)

// WithDSN sets the sqlite database opened by Open.
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.Store.DSN = dsn
	}
}

// WithDataDir sets the directory the store is populated from when empty.
func WithDataDir(dir string) Option {
	return func(c *config) {
		c.Data.Dir = dir
	}
}

// WithLogger replaces the logger built from the log configuration.
func WithLogger(l *Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithConfig replaces the whole configuration. Options applied after it
// still take effect.
func WithConfig(cfg Config) Option {
	return func(c *config) {
		c.Config = cfg
	}
}

func defaultConfig() *config {
	return &config{Config: DefaultConfig()}
}
