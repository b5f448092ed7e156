package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nzoschke/songlab/pkg/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlags(t *testing.T) {
	t.Setenv("SONGLAB_ADDR", ":9000")
	t.Setenv("SONGLAB_DB_PATH", "env.db")

	require.NoError(t, serveCmd.ParseFlags([]string{"--addr", ":7000", "--workers", "2"}))
	t.Cleanup(func() {
		serveCmd.Flags().Set("addr", "")
		serveCmd.Flags().Set("workers", "0")
		serveCmd.Flags().Lookup("addr").Changed = false
		serveCmd.Flags().Lookup("workers").Changed = false
	})

	cfg, err := loadConfig(serveCmd)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "env.db", cfg.DBPath)
	assert.Equal(t, 2, cfg.Workers)
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.features.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"sampleRate": 2,
		"hopSize": 1,
		"energy": [0.5, 0.5, 0.5, 0.5],
		"beats": [0, 0.5, 1, 1.5, 2]
	}`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"inspect", path, "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	var ts analysis.TrackStructure
	require.NoError(t, json.Unmarshal(out.Bytes(), &ts))
	assert.Equal(t, "song.features.json", ts.File)
	assert.Equal(t, 2.0, ts.Duration)
	assert.Equal(t, 120.0, ts.Structure.BeatMarkers.BPM)
}
