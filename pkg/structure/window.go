package structure

import (
	"slices"

	"github.com/nzoschke/songlab/pkg/features"
)

// Window is the aggregate of a fixed-duration run of frames.
type Window struct {
	StartFrame int     `json:"startFrame"`
	EndFrame   int     `json:"endFrame"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`

	AvgEnergy         float64 `json:"avgEnergy"`
	MaxEnergy         float64 `json:"maxEnergy"`
	EnergyVariance    float64 `json:"energyVariance"`
	AvgTempo          float64 `json:"avgTempo"`
	HarmonyChangeRate float64 `json:"harmonyChangeRate"`
	TimbreChangeRate  float64 `json:"timbreChangeRate"`
}

// SectionInput holds the frame-aligned series used for section detection.
type SectionInput struct {
	Energy  []features.Value
	Tempo   []features.Value
	Harmony []features.HarmonyFrame
	Timbre  []features.TimbreFrame
	Melody  []features.MelodyFrame

	// FrameDuration is hopSize / sampleRate in seconds.
	FrameDuration float64
	// Frames is the track length in frames. Windows cover at least this many
	// frames so sections span series the detector does not read.
	Frames int
}

// SectionInputFromTrack selects the section detection series of a track.
func SectionInputFromTrack(t *features.Track) SectionInput {
	return SectionInput{
		Energy:        t.Energy,
		Tempo:         t.Tempo,
		Harmony:       t.Harmony,
		Timbre:        t.Timbre,
		Melody:        t.Melody,
		FrameDuration: t.FrameDuration(),
		Frames:        t.FrameCount(),
	}
}

// frames returns the track length or the longest series length, whichever is larger.
func (in SectionInput) frames() int {
	return max(in.Frames, len(in.Energy), len(in.Tempo), len(in.Harmony), len(in.Timbre), len(in.Melody))
}

// WindowFrames returns how many frames fit in a window of the given duration.
// It is never less than one.
func WindowFrames(windowSeconds, frameDuration float64) int {
	if frameDuration <= 0 {
		return 1
	}
	return max(1, int(windowSeconds/frameDuration+1e-9))
}

// AggregateWindows slices the input into windows of cfg.WindowSeconds and
// summarises every descriptor per window. Series shorter than the window
// range are truncated; a window without frames for a descriptor reports 0.
func AggregateWindows(in SectionInput, cfg *Config) []Window {
	cfg = orDefault(cfg)
	n := in.frames()
	if n == 0 {
		return nil
	}

	size := WindowFrames(cfg.WindowSeconds, in.FrameDuration)
	windows := make([]Window, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		energy := Summarize(in.Energy, start, end)
		windows = append(windows, Window{
			StartFrame:        start,
			EndFrame:          end,
			Start:             float64(start) * in.FrameDuration,
			End:               float64(end) * in.FrameDuration,
			AvgEnergy:         energy.Mean,
			MaxEnergy:         energy.Max,
			EnergyVariance:    energy.Variance,
			AvgTempo:          Summarize(in.Tempo, start, end).Mean,
			HarmonyChangeRate: HarmonyChangeRate(in.Harmony, start, end),
			TimbreChangeRate:  TimbreChangeRate(in.Timbre, start, end, cfg.MFCCCoefficients),
		})
	}
	return windows
}

// HarmonyChangeRate is the fraction of consecutive frame pairs in [start, end)
// whose chord label sets differ.
func HarmonyChangeRate(harmony []features.HarmonyFrame, start, end int) float64 {
	start, end = clampRange(start, end, len(harmony))
	pairs := end - start - 1
	if pairs <= 0 {
		return 0
	}
	changes := 0
	for i := start + 1; i < end; i++ {
		if !slices.Equal(harmony[i-1].Chords, harmony[i].Chords) {
			changes++
		}
	}
	return float64(changes) / float64(pairs)
}

// TimbreChangeRate is the mean Euclidean distance between consecutive MFCC
// vectors in [start, end), over the first coeffs coefficients.
func TimbreChangeRate(timbre []features.TimbreFrame, start, end, coeffs int) float64 {
	start, end = clampRange(start, end, len(timbre))
	pairs := end - start - 1
	if pairs <= 0 {
		return 0
	}
	var total float64
	for i := start + 1; i < end; i++ {
		total += euclidean(timbre[i-1].MFCC, timbre[i].MFCC, coeffs)
	}
	return total / float64(pairs)
}
