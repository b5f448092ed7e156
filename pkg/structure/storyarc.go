package structure

import (
	"math"
	"strings"

	"github.com/nzoschke/songlab/pkg/features"
)

// NarrativeUnknown is reported when the tension curve has no peaks.
const NarrativeUnknown = "unknown"

// narrativeLabels cycle after the opening intro peak.
var narrativeLabels = [...]string{"verse", "chorus"}

// AnalyzeStoryArc derives the tension/release curve of a melody with the
// default configuration.
func AnalyzeStoryArc(melody []features.MelodyFrame, tb Timebase) StoryArc {
	return AnalyzeStoryArcConfig(melody, tb, nil)
}

// AnalyzeStoryArcConfig derives the tension/release curve of a melody.
//
// Tension at a frame is the variance of its voiced (positive) pitch values;
// unvoiced frames add no point. Releases are the local minima of the curve
// and the narrative labels its peaks above cfg.TensionPeakThreshold.
func AnalyzeStoryArcConfig(melody []features.MelodyFrame, tb Timebase, cfg *Config) StoryArc {
	cfg = orDefault(cfg)
	arc := StoryArc{
		Tension:            []Point{},
		Release:            []Point{},
		NarrativeStructure: NarrativeUnknown,
	}

	for i, frame := range melody {
		voiced := make([]float64, 0, len(frame.Pitch))
		for _, p := range frame.Pitch {
			if p > 0 && !math.IsInf(p, 0) {
				voiced = append(voiced, p)
			}
		}
		if len(voiced) == 0 {
			continue
		}
		arc.Tension = append(arc.Tension, Point{Time: tb.Seconds(i), Value: popVariance(voiced)})
	}

	for i := 1; i+1 < len(arc.Tension); i++ {
		prev, curr, next := arc.Tension[i-1].Value, arc.Tension[i].Value, arc.Tension[i+1].Value
		if curr < prev && curr < next {
			arc.Release = append(arc.Release, arc.Tension[i])
		}
	}

	arc.NarrativeStructure = narrative(arc.Tension, cfg.TensionPeakThreshold)
	return arc
}

// narrative labels the curve's peaks intro, verse, chorus, verse, chorus...
func narrative(tension []Point, threshold float64) string {
	var labels []string
	for i := 1; i+1 < len(tension); i++ {
		curr := tension[i].Value
		if curr > tension[i-1].Value && curr > tension[i+1].Value && curr > threshold {
			if len(labels) == 0 {
				labels = append(labels, "intro")
			} else {
				labels = append(labels, narrativeLabels[(len(labels)-1)%len(narrativeLabels)])
			}
		}
	}
	if len(labels) == 0 {
		return NarrativeUnknown
	}
	return strings.Join(labels, "-")
}
