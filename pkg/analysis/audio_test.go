package analysis

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pcm encodes mono values as 16-bit stereo sample pairs.
func pcm(vals ...int16) []byte {
	var buf bytes.Buffer
	for _, v := range vals {
		binary.Write(&buf, binary.LittleEndian, v)
		binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func TestWaveformFromPCM(t *testing.T) {
	data := pcm(16384, -16384, 8192, 0, 0, -8192, 100, 200, 300)

	w, err := waveformFromPCM(bytes.NewReader(data), 4, 2, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, w.PixelsPerSec)
	assert.Equal(t, []float64{0.5, 0.25, 0, 200.0 / 32768}, w.Peaks)
	assert.Equal(t, []float64{-0.5, 0, -0.25, 100.0 / 32768}, w.Troughs)
}

func TestWaveformFromPCMSkip(t *testing.T) {
	data := pcm(32000, 32000, 8192, 8192)

	w, err := waveformFromPCM(bytes.NewReader(data), 2, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25}, w.Peaks)

	_, err = waveformFromPCM(bytes.NewReader(data), 2, 1, 4)
	assert.EqualError(t, err, "audio too short")
}

func TestWaveformFromPCMPartialFrame(t *testing.T) {
	data := append(pcm(16384, 16384), 0x01, 0x02)

	w, err := waveformFromPCM(bytes.NewReader(data), 100, 100, 0)
	require.NoError(t, err)
	assert.Len(t, w.Peaks, 2)
}

func TestWaveformFromPCMResolution(t *testing.T) {
	_, err := waveformFromPCM(bytes.NewReader(pcm(1)), 44100, 0, 0)
	assert.Error(t, err)
}

func TestEncoderDelay(t *testing.T) {
	header := func(marker int, b0, b1 byte) []byte {
		h := make([]byte, 300)
		copy(h[marker:], "LAME")
		h[marker+21] = b0
		h[marker+22] = b1
		return h
	}

	truncated := make([]byte, 295)
	copy(truncated[280:], "LAME")

	tests := []struct {
		name   string
		header []byte
		want   int
	}{
		{"lame 576", header(100, 0x24, 0x00), 576},
		{"lame 1105", header(100, 0x45, 0x10), 1105},
		{"no marker", make([]byte, 300), defaultEncoderDelay},
		{"short header", make([]byte, 100), defaultEncoderDelay},
		{"truncated field", truncated, defaultEncoderDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encoderDelay(tt.header))
		})
	}
}

func TestGenerateWaveformErrors(t *testing.T) {
	_, err := GenerateWaveform("track.wav", 100)
	assert.ErrorContains(t, err, "unsupported audio format")

	_, err = GenerateWaveform(filepath.Join(t.TempDir(), "missing.mp3"), 100)
	assert.ErrorContains(t, err, "open audio")
}
