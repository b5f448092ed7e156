package analysis

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/nzoschke/songlab/pkg/structure"
)

// Cue point defaults.
const (
	DefaultMaxCues        = 8
	DefaultMinCueDistance = 8.0
)

// CuePoint marks a navigable position in a track.
type CuePoint struct {
	Time       float64 `json:"time"`       // Time in seconds
	Type       string  `json:"type"`       // Section type: intro, verse, chorus, bridge, outro
	Confidence float64 `json:"confidence"` // Confidence score 0-1
	Name       string  `json:"name"`       // Display name
}

// CuePointsFromStructure picks up to maxCues section starts at least
// minDistance seconds apart, preferring higher confidence. Cues are returned
// in time order and named per type, e.g. "Chorus 2".
func CuePointsFromStructure(meta *structure.EnhancedMetadata, maxCues int, minDistance float64) []CuePoint {
	cues := []CuePoint{}
	if meta == nil || maxCues <= 0 {
		return cues
	}

	candidates := make([]CuePoint, len(meta.Sections))
	for i, s := range meta.Sections {
		candidates[i] = CuePoint{Time: s.Start, Type: string(s.Type), Confidence: s.Confidence}
	}
	slices.SortStableFunc(candidates, func(a, b CuePoint) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	for _, c := range candidates {
		if len(cues) == maxCues {
			break
		}
		if slices.ContainsFunc(cues, func(kept CuePoint) bool {
			return math.Abs(kept.Time-c.Time) < minDistance
		}) {
			continue
		}
		cues = append(cues, c)
	}

	slices.SortFunc(cues, func(a, b CuePoint) int {
		return cmp.Compare(a.Time, b.Time)
	})
	counts := map[string]int{}
	for i := range cues {
		counts[cues[i].Type]++
		cues[i].Name = fmt.Sprintf("%s %d", title(cues[i].Type), counts[cues[i].Type])
	}
	return cues
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
