package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grid returns n beats spaced by interval seconds, starting at 0.
func grid(n int, interval float64) []float64 {
	beats := make([]float64, n)
	for i := range beats {
		beats[i] = float64(i) * interval
	}
	return beats
}

func TestAvgBeatInterval(t *testing.T) {
	assert.Equal(t, 0.0, AvgBeatInterval(nil))
	assert.Equal(t, 0.0, AvgBeatInterval([]float64{1}))
	assert.Equal(t, 0.5, AvgBeatInterval(grid(8, 0.5)))
	assert.Equal(t, 1.5, AvgBeatInterval([]float64{0, 1, 3}))
}

func TestBPM(t *testing.T) {
	assert.Equal(t, 120.0, BPM(grid(8, 0.5), 0))
	assert.Equal(t, 90.0, BPM(nil, 90))
	assert.Equal(t, 90.0, BPM([]float64{2, 2}, 90))
}

func TestGenerateLoopPoints(t *testing.T) {
	beats := grid(8, 0.5)
	loops := GenerateLoopPoints(beats, []int{4})

	require.Len(t, loops, 1)
	assert.Equal(t, LoopPoint{
		ID:             "loop-4-0",
		Start:          0,
		End:            2,
		LengthInBeats:  4,
		Type:           "1-bar",
		StartBeatIndex: 0,
		EndBeatIndex:   4,
	}, loops[0])

	for _, l := range loops {
		assert.LessOrEqual(t, l.End, beats[len(beats)-1])
		assert.Equal(t, 4, l.LengthInBeats)
	}
}

func TestGenerateLoopPointsLengths(t *testing.T) {
	beats := grid(17, 0.5)
	loops := GenerateLoopPoints(beats, []int{4, 8, 16})

	var ids []string
	for _, l := range loops {
		ids = append(ids, l.ID)
		assert.LessOrEqual(t, l.End, 8.0)
		assert.Less(t, l.Start, l.End)
		assert.Equal(t, l.StartBeatIndex+l.LengthInBeats, l.EndBeatIndex)
	}
	assert.Equal(t, []string{
		"loop-4-0", "loop-4-4", "loop-4-8", "loop-4-12",
		"loop-8-0", "loop-8-8",
		"loop-16-0",
	}, ids)
	assert.Equal(t, "2-bar", loops[4].Type)
	assert.Equal(t, "4-bar", loops[6].Type)
}

func TestGenerateLoopPointsShort(t *testing.T) {
	tests := []struct {
		name    string
		beats   []float64
		lengths []int
	}{
		{"no beats", nil, []int{4}},
		{"one beat", []float64{1}, []int{4}},
		{"fewer beats than length", []float64{0, 0.5}, []int{4}},
		{"zero length", grid(8, 0.5), []int{0}},
		{"no lengths", grid(8, 0.5), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loops := GenerateLoopPoints(tt.beats, tt.lengths)
			assert.NotNil(t, loops)
			assert.Empty(t, loops)
		})
	}
}

func TestLoopType(t *testing.T) {
	assert.Equal(t, "1-bar", loopType(4))
	assert.Equal(t, "4-bar", loopType(16))
	assert.Equal(t, "3-beat", loopType(3))
	assert.Equal(t, "6-beat", loopType(6))
}
