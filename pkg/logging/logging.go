// Package logging builds the zap loggers used by the CLI and server.
package logging

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// baseConfig logs JSON to stderr so stdout stays free for command output.
var baseConfig = []byte(`{
  "level": "info",
  "encoding": "json",
  "outputPaths": ["stderr"],
  "errorOutputPaths": ["stderr"],
  "encoderConfig": {
    "messageKey": "message",
    "levelKey": "level",
    "timeKey": "time",
    "nameKey": "logger",
    "levelEncoder": "lowercase",
    "timeEncoder": "iso8601"
  }
}`)

// New returns a JSON logger at the given level ("debug", "info", "warn", "error").
func New(level string) (*zap.Logger, error) {
	var cfg zap.Config
	if err := json.Unmarshal(baseConfig, &cfg); err != nil {
		return nil, fmt.Errorf("parse logger config: %w", err)
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = lvl
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// NewTest returns a debug logger and the logs it records.
func NewTest() (*zap.Logger, *observer.ObservedLogs) {
	core, recorded := observer.New(zap.DebugLevel)
	return zap.New(core), recorded
}
