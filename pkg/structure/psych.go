package structure

import (
	"math"

	"github.com/nzoschke/songlab/pkg/features"
)

// CalculatePsychologicalDescriptors maps danceability, energy and tempo to a
// valence/arousal trajectory using the default configuration.
func CalculatePsychologicalDescriptors(danceability, energy, tempo []features.Value, tb Timebase) PsychologicalProfile {
	return CalculatePsychologicalDescriptorsConfig(danceability, energy, tempo, tb, nil)
}

// CalculatePsychologicalDescriptorsConfig maps the series frame by frame up to
// the longest of them. Missing frames use the configured defaults, so an
// all-empty input yields neutral overall scores and no trajectory.
func CalculatePsychologicalDescriptorsConfig(danceability, energy, tempo []features.Value, tb Timebase, cfg *Config) PsychologicalProfile {
	cfg = orDefault(cfg)
	n := max(len(danceability), len(energy), len(tempo))

	trajectory := make([]EmotionPoint, n)
	valences := make([]float64, n)
	arousals := make([]float64, n)
	for i := range trajectory {
		valence := clamp01(frameValue(danceability, i, cfg.DefaultValence))
		e := frameValue(energy, i, cfg.DefaultEnergy)
		t := frameValue(tempo, i, cfg.DefaultTempo)
		arousal := clamp01(cfg.ArousalEnergyWeight*e + cfg.ArousalTempoWeight*math.Min(1, t/cfg.TempoCeiling))

		trajectory[i] = EmotionPoint{Time: tb.Seconds(i), Valence: valence, Arousal: arousal}
		valences[i] = valence
		arousals[i] = arousal
	}

	return PsychologicalProfile{
		OverallValence:      mean(valences, cfg.DefaultValence),
		OverallArousal:      mean(arousals, cfg.DefaultArousal),
		EmotionalTrajectory: trajectory,
		ParadigmShifts:      DetectParadigmShifts(trajectory, cfg.ParadigmShiftThreshold),
	}
}

// DetectParadigmShifts reports every consecutive pair of trajectory points
// whose valence or arousal moves by more than threshold. The shift is typed
// by the larger move, valence winning ties.
func DetectParadigmShifts(trajectory []EmotionPoint, threshold float64) []ParadigmShift {
	shifts := []ParadigmShift{}
	for i := 1; i < len(trajectory); i++ {
		from, to := trajectory[i-1], trajectory[i]
		dv := math.Abs(to.Valence - from.Valence)
		da := math.Abs(to.Arousal - from.Arousal)
		if dv <= threshold && da <= threshold {
			continue
		}

		kind := ShiftValence
		if da > dv {
			kind = ShiftArousal
		}
		shifts = append(shifts, ParadigmShift{
			Time:      to.Time,
			Type:      kind,
			Magnitude: math.Max(dv, da),
			From:      from.Mood(),
			To:        to.Mood(),
		})
	}
	return shifts
}

// frameValue returns series[i] when present, valid and finite, else def.
func frameValue(series []features.Value, i int, def float64) float64 {
	if i >= len(series) {
		return def
	}
	v := series[i]
	if !v.Valid || math.IsNaN(v.V) || math.IsInf(v.V, 0) {
		return def
	}
	return v.V
}
