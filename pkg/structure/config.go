package structure

// Config holds the tunable thresholds of the structure engine.
// Every field has a yaml tag so a partial file can override the defaults.
type Config struct {
	// WindowSeconds is the aggregation window for section detection.
	// Default: 2.0
	WindowSeconds float64 `yaml:"window_seconds"`

	// Boundary thresholds between consecutive windows.
	// Defaults: energy 0.3, tempo 0.15, harmony 0.5, timbre 0.4
	EnergyChangeThreshold  float64 `yaml:"energy_change_threshold"`
	TempoChangeThreshold   float64 `yaml:"tempo_change_threshold"`
	HarmonyChangeThreshold float64 `yaml:"harmony_change_threshold"`
	TimbreChangeThreshold  float64 `yaml:"timbre_change_threshold"`

	// Epsilon guards relative changes against division by zero.
	// Default: 0.001
	Epsilon float64 `yaml:"epsilon"`

	// MFCCCoefficients is how many leading MFCCs enter timbre distances.
	// Default: 13
	MFCCCoefficients int `yaml:"mfcc_coefficients"`

	// Section classification. Defaults match the classic heuristics:
	// chorus energy > 0.7 with variance < 0.1, intro energy < 0.3,
	// outro energy < 0.4 on the last span, bridge variance > 0.3.
	ChorusEnergy   float64 `yaml:"chorus_energy"`
	ChorusVariance float64 `yaml:"chorus_variance"`
	IntroEnergy    float64 `yaml:"intro_energy"`
	OutroEnergy    float64 `yaml:"outro_energy"`
	BridgeVariance float64 `yaml:"bridge_variance"`

	// Confidences reported per section type.
	// Defaults: chorus 0.8, intro 0.7, outro 0.7, bridge 0.6, verse 0.5
	ChorusConfidence float64 `yaml:"chorus_confidence"`
	IntroConfidence  float64 `yaml:"intro_confidence"`
	OutroConfidence  float64 `yaml:"outro_confidence"`
	BridgeConfidence float64 `yaml:"bridge_confidence"`
	VerseConfidence  float64 `yaml:"verse_confidence"`

	// Pattern mining.
	// Defaults: motifs of 4 frames seen twice (once inside a section),
	// quotes of 8 frames seen twice.
	MotifLength                int `yaml:"motif_length"`
	MotifMinOccurrences        int `yaml:"motif_min_occurrences"`
	SectionMotifMinOccurrences int `yaml:"section_motif_min_occurrences"`
	QuoteLength                int `yaml:"quote_length"`
	QuoteMinOccurrences        int `yaml:"quote_min_occurrences"`

	// Canonical projections: leading pitch values per melodic frame and
	// leading chord labels per harmonic frame.
	// Defaults: 5 and 4
	MelodicProjection  int `yaml:"melodic_projection"`
	HarmonicProjection int `yaml:"harmonic_projection"`

	// Motif evolution thresholds on positional similarity.
	// Defaults: stable >= 0.8, variation >= 0.5, tolerance 0.1
	StableSimilarity    float64 `yaml:"stable_similarity"`
	VariationSimilarity float64 `yaml:"variation_similarity"`
	SimilarityTolerance float64 `yaml:"similarity_tolerance"`

	// TensionPeakThreshold is the minimum tension of a narrative peak.
	// Default: 0.5
	TensionPeakThreshold float64 `yaml:"tension_peak_threshold"`

	// Psychological model. Missing frames fall back to the defaults.
	// Defaults: valence 0.5, arousal 0.5, energy 0.5, tempo 120, tempo ceiling 200,
	// arousal = 0.6*energy + 0.4*tempo, shift threshold 0.3
	DefaultValence         float64 `yaml:"default_valence"`
	DefaultArousal         float64 `yaml:"default_arousal"`
	DefaultEnergy          float64 `yaml:"default_energy"`
	DefaultTempo           float64 `yaml:"default_tempo"`
	TempoCeiling           float64 `yaml:"tempo_ceiling"`
	ArousalEnergyWeight    float64 `yaml:"arousal_energy_weight"`
	ArousalTempoWeight     float64 `yaml:"arousal_tempo_weight"`
	ParadigmShiftThreshold float64 `yaml:"paradigm_shift_threshold"`

	// LoopLengths are the loop sizes in beats.
	// Default: [4, 8, 16]
	LoopLengths []int `yaml:"loop_lengths"`

	// BeatConfidence is reported on beat markers.
	// Default: 0.85
	BeatConfidence float64 `yaml:"beat_confidence"`

	// DefaultBPM and DefaultKey are used when the input cannot provide them.
	// Defaults: 120 and "unknown"
	DefaultBPM float64 `yaml:"default_bpm"`
	DefaultKey string  `yaml:"default_key"`

	// Workers bounds concurrent section and loop metadata tasks.
	// Default: 0 (GOMAXPROCS)
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		WindowSeconds: 2.0,

		EnergyChangeThreshold:  0.3,
		TempoChangeThreshold:   0.15,
		HarmonyChangeThreshold: 0.5,
		TimbreChangeThreshold:  0.4,
		Epsilon:                0.001,
		MFCCCoefficients:       13,

		ChorusEnergy:   0.7,
		ChorusVariance: 0.1,
		IntroEnergy:    0.3,
		OutroEnergy:    0.4,
		BridgeVariance: 0.3,

		ChorusConfidence: 0.8,
		IntroConfidence:  0.7,
		OutroConfidence:  0.7,
		BridgeConfidence: 0.6,
		VerseConfidence:  0.5,

		MotifLength:                4,
		MotifMinOccurrences:        2,
		SectionMotifMinOccurrences: 1,
		QuoteLength:                8,
		QuoteMinOccurrences:        2,
		MelodicProjection:          5,
		HarmonicProjection:         4,

		StableSimilarity:    0.8,
		VariationSimilarity: 0.5,
		SimilarityTolerance: 0.1,

		TensionPeakThreshold: 0.5,

		DefaultValence:         0.5,
		DefaultArousal:         0.5,
		DefaultEnergy:          0.5,
		DefaultTempo:           120,
		TempoCeiling:           200,
		ArousalEnergyWeight:    0.6,
		ArousalTempoWeight:     0.4,
		ParadigmShiftThreshold: 0.3,

		LoopLengths:    []int{4, 8, 16},
		BeatConfidence: 0.85,
		DefaultBPM:     120,
		DefaultKey:     "unknown",
	}
}

// orDefault resolves a nil config to the defaults.
func orDefault(cfg *Config) *Config {
	if cfg == nil {
		d := DefaultConfig()
		return &d
	}
	return cfg
}
