package analysis

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// DefaultPixelsPerSec is the waveform overview resolution.
const DefaultPixelsPerSec = 100

// Waveform contains downsampled waveform data for visualization.
type Waveform struct {
	PixelsPerSec int       `json:"pixels_per_sec"`
	Peaks        []float64 `json:"peaks"`
	Troughs      []float64 `json:"troughs"`
}

// Additional samples that go-mp3 produces compared to a browser's decoder.
// Measured: browser first transient at 48446, go-mp3 at 50735, LAME header 1365.
const goMP3DecoderDelay = 924

// Default encoder delay if it can't be read from the LAME header.
const defaultEncoderDelay = 576

// pcmFrameSize is one 16-bit little-endian stereo sample pair.
const pcmFrameSize = 4

// GenerateWaveform decodes an MP3 file and reduces it to per-pixel peaks and
// troughs. pixelsPerSec controls the resolution (100 = 100 points per second).
// The file is streamed, never held in memory as samples.
func GenerateWaveform(audioPath string, pixelsPerSec int) (*Waveform, error) {
	ext := strings.ToLower(filepath.Ext(audioPath))
	if ext != ".mp3" {
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	header := make([]byte, 4096)
	n, _ := io.ReadFull(f, header)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind audio: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("create MP3 decoder: %w", err)
	}

	// skip the encoder and decoder delay to line up with browser playback
	skip := encoderDelay(header[:n]) + goMP3DecoderDelay
	return waveformFromPCM(decoder, decoder.SampleRate(), pixelsPerSec, skip)
}

// encoderDelay reads the encoder delay from a LAME/Xing header if present.
func encoderDelay(header []byte) int {
	if len(header) < 200 {
		return defaultEncoderDelay
	}

	idx := bytes.Index(header, []byte("LAME"))
	if idx == -1 {
		return defaultEncoderDelay
	}

	// 12 bit delay then 12 bit padding, 21 bytes after the marker
	offset := idx + 21
	if offset+3 > len(header) {
		return defaultEncoderDelay
	}
	b := header[offset : offset+3]
	delay := (int(b[0]) << 4) | (int(b[1]) >> 4)

	if delay > 4096 {
		return defaultEncoderDelay
	}
	return delay
}

// waveformFromPCM reduces 16-bit stereo PCM to mono peaks and troughs,
// dropping the first skip sample pairs and any trailing partial pixel.
func waveformFromPCM(r io.Reader, sampleRate, pixelsPerSec, skip int) (*Waveform, error) {
	if pixelsPerSec <= 0 {
		return nil, fmt.Errorf("invalid resolution: %d px/s", pixelsPerSec)
	}
	samplesPerPixel := max(1, sampleRate/pixelsPerSec)

	w := &Waveform{PixelsPerSec: pixelsPerSec}
	br := bufio.NewReaderSize(r, 64*1024)
	var frame [pcmFrameSize]byte

	hi, lo := float32(-1), float32(1)
	count := 0
	for i := 0; ; i++ {
		if _, err := io.ReadFull(br, frame[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("decode audio: %w", err)
		}
		if i < skip {
			continue
		}

		left := int16(binary.LittleEndian.Uint16(frame[0:]))
		right := int16(binary.LittleEndian.Uint16(frame[2:]))
		mono := (float32(left) + float32(right)) / 2 / 32768

		hi, lo = max(hi, mono), min(lo, mono)
		count++
		if count == samplesPerPixel {
			w.Peaks = append(w.Peaks, float64(hi))
			w.Troughs = append(w.Troughs, float64(lo))
			hi, lo = -1, 1
			count = 0
		}
	}

	if len(w.Peaks) == 0 {
		return nil, errors.New("audio too short")
	}
	return w, nil
}
