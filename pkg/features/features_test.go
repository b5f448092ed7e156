package features

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{"number", `0.75`, V(0.75)},
		{"value object", `{"value": 0.4, "dfa": [1, 2]}`, V(0.4)},
		{"bpm object", `{"bpm": 128}`, V(128)},
		{"null", `null`, Value{}},
		{"unknown object", `{"confidence": 0.9}`, Value{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.want, v)
		})
	}

	var v Value
	assert.Error(t, json.Unmarshal([]byte(`"loud"`), &v))
}

func TestValueMarshal(t *testing.T) {
	data, err := json.Marshal([]Value{V(0.5), {}})
	require.NoError(t, err)
	assert.JSONEq(t, `[0.5, null]`, string(data))
}

func TestDecodeTrack(t *testing.T) {
	doc := `{
		"sampleRate": 22050,
		"hopSize": 1024,
		"danceability": [{"value": 0.8}, 0.6],
		"dynamicComplexity": [0.2, {"value": 0.3}],
		"tempo": [{"bpm": 120}, 122],
		"harmony": [{"chords": ["C", "Am"]}],
		"timbre": [{"mfcc": [1, 2, 3]}],
		"melody": [{"pitch": [220, 0], "pitchConfidence": [0.9, 0]}],
		"beats": [1.0, 0.5, 0.5, -1, 1.5]
	}`

	track, err := Decode([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 22050, track.SampleRate)
	assert.Equal(t, []Value{V(0.2), V(0.3)}, track.Energy, "dynamicComplexity is used as energy")
	assert.Equal(t, []Value{V(120), V(122)}, track.Tempo)
	assert.Equal(t, []string{"C", "Am"}, track.Harmony[0].Chords)
	assert.Equal(t, []float64{0.5, 1.0, 1.5}, track.Beats)
	assert.Equal(t, 2, track.FrameCount())
	assert.InDelta(t, 1024.0/22050.0, track.FrameDuration(), 1e-12)
	assert.InDelta(t, 2*1024.0/22050.0, track.Duration(), 1e-12)
}

func TestDecodeDefaults(t *testing.T) {
	track, err := Decode([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultSampleRate, track.SampleRate)
	assert.Equal(t, DefaultHopSize, track.HopSize)
	assert.Zero(t, track.FrameCount())
	assert.Zero(t, track.Duration())
	assert.Empty(t, track.Beats)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte(`{"energy": "high"`))
	assert.Error(t, err)
}

func TestNormalizeBeats(t *testing.T) {
	assert.Empty(t, NormalizeBeats(nil))
	assert.Equal(t, []float64{0, 0.5, 1}, NormalizeBeats([]float64{1, 0, 0.5, 1, 0}))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.features.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"energy": [0.1, 0.2], "beats": [0, 0.5]}`), 0644))

	track, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, track.Energy, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
