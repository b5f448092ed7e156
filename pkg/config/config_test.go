package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nzoschke/songlab/pkg/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Addr:       ":8080",
		DBPath:     "songlab.db",
		LibraryDir: "music",
		LogLevel:   "info",
	}, cfg)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("SONGLAB_ADDR", ":9090")
	t.Setenv("SONGLAB_DB_PATH", "/tmp/x.db")
	t.Setenv("SONGLAB_LIBRARY_DIR", "/data")
	t.Setenv("SONGLAB_LOG_LEVEL", "debug")
	t.Setenv("SONGLAB_WORKERS", "3")
	t.Setenv("SONGLAB_THRESHOLDS", "t.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Addr:       ":9090",
		DBPath:     "/tmp/x.db",
		LibraryDir: "/data",
		LogLevel:   "debug",
		Workers:    3,
		Thresholds: "t.yaml",
	}, cfg)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("SONGLAB_WORKERS", "many")
	_, err := Load()
	assert.Error(t, err)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEngineConfig(t *testing.T) {
	cfg, err := LoadEngineConfig("")
	require.NoError(t, err)
	assert.Equal(t, structure.DefaultConfig(), cfg)

	cfg, err = LoadEngineConfig(writeFile(t, `
window_seconds: 4
energy_change_threshold: 0.25
loop_lengths: [2, 4]
default_key: C
`))
	require.NoError(t, err)

	want := structure.DefaultConfig()
	want.WindowSeconds = 4
	want.EnergyChangeThreshold = 0.25
	want.LoopLengths = []int{2, 4}
	want.DefaultKey = "C"
	assert.Equal(t, want, cfg)

	cfg, err = LoadEngineConfig(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, structure.DefaultConfig(), cfg)
}

func TestLoadEngineConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "window_size: 3"},
		{"bad type", "motif_length: four"},
		{"zero window", "window_seconds: 0"},
		{"negative loop", "loop_lengths: [4, -8]"},
		{"negative workers", "workers: -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadEngineConfig(writeFile(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEngine(t *testing.T) {
	cfg, err := Config{Workers: 4}.Engine()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 2.0, cfg.WindowSeconds)

	_, err = Config{Thresholds: writeFile(t, "quote_length: 0")}.Engine()
	assert.Error(t, err)
}
