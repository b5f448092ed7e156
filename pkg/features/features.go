// Package features models the per-frame audio descriptors produced by an
// external feature-extraction library. The structure engine only consumes them.
package features

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// Defaults applied when a feature document omits its framing.
const (
	DefaultSampleRate = 44100
	DefaultHopSize    = 512
)

// Value is one scalar descriptor frame (danceability, energy, tempo).
// It decodes from a bare number or from an object carrying the number under
// "value" or "bpm". A null or unrecognised frame decodes as invalid.
type Value struct {
	V     float64
	Valid bool
}

// V returns a valid Value.
func V(v float64) Value {
	return Value{V: v, Valid: true}
}

// Values wraps plain numbers as a series of valid frames.
func Values(vs ...float64) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = V(v)
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Value{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '{' {
		var obj struct {
			Value *float64 `json:"value"`
			BPM   *float64 `json:"bpm"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode descriptor frame: %w", err)
		}
		switch {
		case obj.Value != nil:
			*v = V(*obj.Value)
		case obj.BPM != nil:
			*v = V(*obj.BPM)
		}
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode descriptor frame: %w", err)
	}
	*v = V(f)
	return nil
}

// MarshalJSON implements json.Marshaler. Invalid frames encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid || math.IsNaN(v.V) || math.IsInf(v.V, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// HarmonyFrame holds the chord labels detected in one frame.
type HarmonyFrame struct {
	Chords []string `json:"chords"`
}

// TimbreFrame holds the MFCC coefficients of one frame.
type TimbreFrame struct {
	MFCC []float64 `json:"mfcc"`
}

// MelodyFrame holds the pitch estimates (Hz) of one frame.
type MelodyFrame struct {
	Pitch           []float64 `json:"pitch"`
	PitchConfidence []float64 `json:"pitchConfidence,omitempty"`
}

// Track is a complete, frame-aligned feature series for one audio track.
type Track struct {
	SampleRate int `json:"sampleRate"`
	HopSize    int `json:"hopSize"`

	Danceability []Value        `json:"danceability"`
	Energy       []Value        `json:"energy"`
	Tempo        []Value        `json:"tempo"`
	Harmony      []HarmonyFrame `json:"harmony"`
	Timbre       []TimbreFrame  `json:"timbre"`
	Melody       []MelodyFrame  `json:"melody"`
	Beats        []float64      `json:"beats"`

	// Audio is an optional path to the analysed audio file, relative to the
	// feature document.
	Audio string `json:"audio,omitempty"`
}

// UnmarshalJSON decodes a Track, accepting "dynamicComplexity" as the energy
// series when "energy" is absent.
func (t *Track) UnmarshalJSON(data []byte) error {
	type plain Track
	var doc struct {
		plain
		DynamicComplexity []Value `json:"dynamicComplexity"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*t = Track(doc.plain)
	if len(t.Energy) == 0 && len(doc.DynamicComplexity) > 0 {
		t.Energy = doc.DynamicComplexity
	}
	return nil
}

// Normalize fills framing defaults and cleans the beat series in place.
func (t *Track) Normalize() {
	if t.SampleRate <= 0 {
		t.SampleRate = DefaultSampleRate
	}
	if t.HopSize <= 0 {
		t.HopSize = DefaultHopSize
	}
	t.Beats = NormalizeBeats(t.Beats)
}

// FrameDuration returns the duration of one frame in seconds.
func (t *Track) FrameDuration() float64 {
	sr, hop := t.SampleRate, t.HopSize
	if sr <= 0 {
		sr = DefaultSampleRate
	}
	if hop <= 0 {
		hop = DefaultHopSize
	}
	return float64(hop) / float64(sr)
}

// FrameCount returns the length of the longest descriptor series.
func (t *Track) FrameCount() int {
	return max(len(t.Danceability), len(t.Energy), len(t.Tempo),
		len(t.Harmony), len(t.Timbre), len(t.Melody))
}

// Duration returns the covered duration in seconds.
func (t *Track) Duration() float64 {
	return float64(t.FrameCount()) * t.FrameDuration()
}

// NormalizeBeats returns the beats sorted ascending with duplicates,
// negative and non-finite values removed.
func NormalizeBeats(beats []float64) []float64 {
	out := make([]float64, 0, len(beats))
	for _, b := range beats {
		if math.IsNaN(b) || math.IsInf(b, 0) || b < 0 {
			continue
		}
		out = append(out, b)
	}
	sort.Float64s(out)

	deduped := out[:0]
	for i, b := range out {
		if i > 0 && b == deduped[len(deduped)-1] {
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

// Decode parses a feature document and normalizes it.
func Decode(data []byte) (*Track, error) {
	var t Track
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse features: %w", err)
	}
	t.Normalize()
	return &t, nil
}

// Load reads a feature document from disk.
func Load(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	return Decode(data)
}
