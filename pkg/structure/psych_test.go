package structure

import (
	"math"
	"testing"

	"github.com/nzoschke/songlab/pkg/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePsychologicalDescriptors(t *testing.T) {
	p := CalculatePsychologicalDescriptors(
		features.Values(0.2, 0.2, 0.8),
		features.Values(0, 0, 1),
		features.Values(100, 100, 100),
		Timebase{FrameDuration: 0.5},
	)

	require.Len(t, p.EmotionalTrajectory, 3)
	assert.InDelta(t, 0.2, p.EmotionalTrajectory[0].Arousal, 1e-9)
	assert.InDelta(t, 0.8, p.EmotionalTrajectory[2].Arousal, 1e-9)
	assert.Equal(t, 1.0, p.EmotionalTrajectory[2].Time)
	assert.InDelta(t, 0.4, p.OverallValence, 1e-9)
	assert.InDelta(t, 0.4, p.OverallArousal, 1e-9)

	require.Len(t, p.ParadigmShifts, 1)
	shift := p.ParadigmShifts[0]
	assert.Equal(t, 1.0, shift.Time)
	assert.InDelta(t, 0.6, shift.Magnitude, 1e-9)
	assert.InDelta(t, 0.2, shift.From.Valence, 1e-9)
	assert.InDelta(t, 0.8, shift.To.Arousal, 1e-9)
}

func TestCalculatePsychologicalDescriptorsDefaults(t *testing.T) {
	p := CalculatePsychologicalDescriptors(nil, nil, nil, Timebase{FrameDuration: 1})
	assert.Equal(t, 0.5, p.OverallValence)
	assert.Equal(t, 0.5, p.OverallArousal)
	assert.NotNil(t, p.EmotionalTrajectory)
	assert.Empty(t, p.EmotionalTrajectory)
	assert.NotNil(t, p.ParadigmShifts)
	assert.Empty(t, p.ParadigmShifts)
}

func TestCalculatePsychologicalDescriptorsMissingFrames(t *testing.T) {
	p := CalculatePsychologicalDescriptors(
		[]features.Value{features.V(1.4), {}},
		features.Values(math.NaN()),
		nil,
		Timebase{FrameDuration: 1},
	)

	require.Len(t, p.EmotionalTrajectory, 2)
	assert.Equal(t, 1.0, p.EmotionalTrajectory[0].Valence)
	assert.Equal(t, 0.5, p.EmotionalTrajectory[1].Valence)
	// energy 0.5 and tempo 120 by default
	assert.InDelta(t, 0.54, p.EmotionalTrajectory[1].Arousal, 1e-9)
	assert.InDelta(t, 0.54, p.EmotionalTrajectory[0].Arousal, 1e-9)
	for _, pt := range p.EmotionalTrajectory {
		assert.False(t, math.IsNaN(pt.Arousal))
	}
	assert.InDelta(t, 0.75, p.OverallValence, 1e-9)
}

func TestCalculatePsychologicalDescriptorsClamp(t *testing.T) {
	p := CalculatePsychologicalDescriptors(nil, features.Values(3), features.Values(400), Timebase{FrameDuration: 1})
	require.Len(t, p.EmotionalTrajectory, 1)
	assert.Equal(t, 1.0, p.EmotionalTrajectory[0].Arousal)
}

func TestDetectParadigmShifts(t *testing.T) {
	trajectory := []EmotionPoint{
		{Time: 0, Valence: 0.2, Arousal: 0.2},
		{Time: 1, Valence: 0.2, Arousal: 0.2},
		{Time: 2, Valence: 0.8, Arousal: 0.8},
	}
	shifts := DetectParadigmShifts(trajectory, 0.3)

	require.Len(t, shifts, 1)
	assert.Equal(t, 2.0, shifts[0].Time)
	assert.GreaterOrEqual(t, shifts[0].Magnitude, 0.3)
	assert.Equal(t, Mood{Valence: 0.2, Arousal: 0.2}, shifts[0].From)
	assert.Equal(t, Mood{Valence: 0.8, Arousal: 0.8}, shifts[0].To)
}

func TestDetectParadigmShiftsType(t *testing.T) {
	tests := []struct {
		name     string
		from, to EmotionPoint
		want     []ParadigmShift
	}{
		{
			"below threshold",
			EmotionPoint{Valence: 0.5, Arousal: 0.5},
			EmotionPoint{Time: 1, Valence: 0.75, Arousal: 0.25},
			[]ParadigmShift{},
		},
		{
			"valence",
			EmotionPoint{Valence: 0, Arousal: 0.5},
			EmotionPoint{Time: 1, Valence: 1, Arousal: 0.25},
			[]ParadigmShift{{Time: 1, Type: ShiftValence, Magnitude: 1, From: Mood{0, 0.5}, To: Mood{1, 0.25}}},
		},
		{
			"arousal",
			EmotionPoint{Valence: 0.5, Arousal: 0},
			EmotionPoint{Time: 1, Valence: 0.25, Arousal: 0.5},
			[]ParadigmShift{{Time: 1, Type: ShiftArousal, Magnitude: 0.5, From: Mood{0.5, 0}, To: Mood{0.25, 0.5}}},
		},
		{
			"tie goes to valence",
			EmotionPoint{Valence: 0, Arousal: 0},
			EmotionPoint{Time: 1, Valence: 0.5, Arousal: 0.5},
			[]ParadigmShift{{Time: 1, Type: ShiftValence, Magnitude: 0.5, From: Mood{0, 0}, To: Mood{0.5, 0.5}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectParadigmShifts([]EmotionPoint{tt.from, tt.to}, 0.3))
		})
	}
}
