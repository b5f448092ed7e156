// Package config loads service settings from the environment and engine
// thresholds from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/nzoschke/songlab/pkg/structure"
	"gopkg.in/yaml.v3"
)

// Prefix is the environment variable prefix, e.g. SONGLAB_ADDR.
const Prefix = "songlab"

// Config holds the process settings.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `default:":8080"`

	// DBPath is the SQLite database file.
	DBPath string `envconfig:"DB_PATH" default:"songlab.db"`

	// LibraryDir holds feature files and their structure sidecars.
	LibraryDir string `envconfig:"LIBRARY_DIR" default:"music"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Workers bounds concurrent analysis tasks. 0 uses GOMAXPROCS.
	Workers int `default:"0"`

	// Thresholds is an optional YAML file overriding engine thresholds.
	Thresholds string
}

// Load reads the configuration from SONGLAB_* environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	return cfg, nil
}

// Engine returns the engine configuration: defaults, overridden by the
// thresholds file, with the worker count applied.
func (c Config) Engine() (structure.Config, error) {
	cfg, err := LoadEngineConfig(c.Thresholds)
	if err != nil {
		return structure.Config{}, err
	}
	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}
	return cfg, nil
}

// LoadEngineConfig reads a YAML file of threshold overrides on top of
// structure.DefaultConfig. An empty path returns the defaults. Unknown keys
// are rejected.
func LoadEngineConfig(path string) (structure.Config, error) {
	cfg := structure.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return structure.Config{}, fmt.Errorf("read thresholds: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return structure.Config{}, fmt.Errorf("parse thresholds %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return structure.Config{}, fmt.Errorf("thresholds %s: %w", path, err)
	}
	return cfg, nil
}

func validate(cfg structure.Config) error {
	switch {
	case cfg.WindowSeconds <= 0:
		return errors.New("window_seconds must be positive")
	case cfg.MotifLength <= 0:
		return errors.New("motif_length must be positive")
	case cfg.QuoteLength <= 0:
		return errors.New("quote_length must be positive")
	case cfg.TempoCeiling <= 0:
		return errors.New("tempo_ceiling must be positive")
	case cfg.Workers < 0:
		return errors.New("workers must not be negative")
	}
	for _, l := range cfg.LoopLengths {
		if l <= 0 {
			return fmt.Errorf("loop length %d must be positive", l)
		}
	}
	return nil
}
