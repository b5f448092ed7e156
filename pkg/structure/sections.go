package structure

import "math"

// DetectSections segments a track into classified sections using the default
// configuration. Sections are contiguous, start at 0 and end at the last
// window's end. An empty energy series yields no sections.
func DetectSections(in SectionInput) []Section {
	return DetectSectionsConfig(in, nil)
}

// DetectSectionsConfig segments a track with the given thresholds.
func DetectSectionsConfig(in SectionInput, cfg *Config) []Section {
	cfg = orDefault(cfg)
	sections := []Section{}
	if len(in.Energy) == 0 {
		return sections
	}

	windows := AggregateWindows(in, cfg)
	if len(windows) == 0 {
		return sections
	}

	bounds := Boundaries(windows, cfg)
	for i, start := range bounds {
		end := len(windows)
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		span := windows[start:end]

		sectionType, confidence := cfg.classify(span, i == len(bounds)-1)
		sections = append(sections, Section{
			Type:       sectionType,
			Start:      span[0].Start,
			End:        span[len(span)-1].End,
			Confidence: confidence,
		})
	}
	return sections
}

// Boundaries returns the indices of windows that open a new section. The
// first window always opens one.
func Boundaries(windows []Window, cfg *Config) []int {
	cfg = orDefault(cfg)
	if len(windows) == 0 {
		return nil
	}

	bounds := []int{0}
	for i := 1; i < len(windows); i++ {
		if cfg.isBoundary(windows[i-1], windows[i]) {
			bounds = append(bounds, i)
		}
	}
	return bounds
}

func (cfg *Config) isBoundary(prev, curr Window) bool {
	switch {
	case cfg.relativeChange(prev.AvgEnergy, curr.AvgEnergy) > cfg.EnergyChangeThreshold:
		return true
	case cfg.relativeChange(prev.AvgTempo, curr.AvgTempo) > cfg.TempoChangeThreshold:
		return true
	case curr.HarmonyChangeRate > cfg.HarmonyChangeThreshold:
		return true
	case curr.TimbreChangeRate > cfg.TimbreChangeThreshold:
		return true
	}
	return false
}

func (cfg *Config) relativeChange(prev, curr float64) float64 {
	return math.Abs(curr-prev) / (prev + cfg.Epsilon)
}

// classify labels a span of windows by its averaged statistics, checking
// chorus, intro, outro, bridge and finally verse.
func (cfg *Config) classify(span []Window, last bool) (SectionType, float64) {
	var energy, variance float64
	for _, w := range span {
		energy += w.AvgEnergy
		variance += w.EnergyVariance
	}
	energy /= float64(len(span))
	variance /= float64(len(span))

	switch {
	case energy > cfg.ChorusEnergy && variance < cfg.ChorusVariance:
		return SectionChorus, clamp01(cfg.ChorusConfidence)
	case energy < cfg.IntroEnergy:
		return SectionIntro, clamp01(cfg.IntroConfidence)
	case last && energy < cfg.OutroEnergy:
		return SectionOutro, clamp01(cfg.OutroConfidence)
	case variance > cfg.BridgeVariance:
		return SectionBridge, clamp01(cfg.BridgeConfidence)
	default:
		return SectionVerse, clamp01(cfg.VerseConfidence)
	}
}
