package structure

import "fmt"

// beatTolerance absorbs float error when comparing loop ends to the last beat.
const beatTolerance = 1e-9

// AvgBeatInterval returns the mean gap between consecutive beats, or 0 when
// fewer than two beats are given.
func AvgBeatInterval(beats []float64) float64 {
	if len(beats) < 2 {
		return 0
	}
	return (beats[len(beats)-1] - beats[0]) / float64(len(beats)-1)
}

// BPM converts the average beat interval to beats per minute, or returns def
// when the interval is unknown.
func BPM(beats []float64, def float64) float64 {
	interval := AvgBeatInterval(beats)
	if interval <= 0 {
		return def
	}
	return 60 / interval
}

// GenerateLoopPoints cuts beat-aligned loops of every requested length.
// Beats must be sorted and free of duplicates.
//
// For each length L, loops start at beat 0, L, 2L, ... and span L average
// beat intervals. A loop is kept only if it ends at or before the last beat.
func GenerateLoopPoints(beats []float64, lengths []int) []LoopPoint {
	loops := []LoopPoint{}
	interval := AvgBeatInterval(beats)
	if interval <= 0 {
		return loops
	}
	last := beats[len(beats)-1]

	for _, length := range lengths {
		if length <= 0 || length > len(beats) {
			continue
		}
		for start := 0; start < len(beats); start += length {
			end := beats[start] + float64(length)*interval
			if end > last+beatTolerance {
				break
			}
			loops = append(loops, LoopPoint{
				ID:             fmt.Sprintf("loop-%d-%d", length, start),
				Start:          beats[start],
				End:            end,
				LengthInBeats:  length,
				Type:           loopType(length),
				StartBeatIndex: start,
				EndBeatIndex:   start + length,
			})
		}
	}
	return loops
}

// loopType names a loop by bars of four beats when it can.
func loopType(length int) string {
	if length%4 == 0 {
		return fmt.Sprintf("%d-bar", length/4)
	}
	return fmt.Sprintf("%d-beat", length)
}
