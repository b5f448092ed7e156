package structure

import "encoding/json"

// SectionType labels a span of the song.
type SectionType string

const (
	SectionIntro  SectionType = "intro"
	SectionVerse  SectionType = "verse"
	SectionChorus SectionType = "chorus"
	SectionBridge SectionType = "bridge"
	SectionOutro  SectionType = "outro"
)

// PatternType tells which descriptor a motif or quote was mined from.
type PatternType string

const (
	PatternMelodic  PatternType = "melodic"
	PatternHarmonic PatternType = "harmonic"
)

// Evolution describes how a motif changes between its first and last occurrence.
type Evolution string

const (
	EvolutionStable         Evolution = "stable"
	EvolutionVariation      Evolution = "variation"
	EvolutionTransformation Evolution = "transformation"
)

// Paradigm shift types, named after the axis that moved the most.
const (
	ShiftValence = "valence"
	ShiftArousal = "arousal"
)

// EnhancedMetadata is the document produced for one track.
type EnhancedMetadata struct {
	Song        Song        `json:"song"`
	Sections    []Section   `json:"sections"`
	Loops       []LoopPoint `json:"loops"`
	BeatMarkers BeatMarkers `json:"beatMarkers"`
}

// Song holds the track-level results.
type Song struct {
	Duration      float64              `json:"duration"`
	BPM           float64              `json:"bpm"`
	Key           string               `json:"key"`
	StoryArc      StoryArc             `json:"storyArc"`
	Psychological PsychologicalProfile `json:"psychological"`
	Motifs        []Motif              `json:"motifs"`
	Quotes        []Quote              `json:"quotes"`
}

// BeatMarkers summarises the beat grid.
type BeatMarkers struct {
	BPM        float64   `json:"bpm"`
	Beats      []float64 `json:"beats"`
	Confidence float64   `json:"confidence"`
	TotalBeats int       `json:"totalBeats"`
}

// Section is a contiguous, classified span of the track.
type Section struct {
	Type       SectionType      `json:"type"`
	Start      float64          `json:"start"`
	End        float64          `json:"end"`
	Confidence float64          `json:"confidence"`
	Metadata   *SectionMetadata `json:"metadata,omitempty"`
}

// SectionMetadata is the analysis re-run on a section's frames.
type SectionMetadata struct {
	BPM           float64              `json:"bpm"`
	Key           string               `json:"key"`
	Energy        float64              `json:"energy"`
	Psychological PsychologicalProfile `json:"psychological"`
	Motifs        []Motif              `json:"motifs"`
	Quotes        []Quote              `json:"quotes"`
	StoryArc      StoryArc             `json:"storyArc"`
}

// LoopPoint is a beat-aligned loop region.
type LoopPoint struct {
	ID             string        `json:"id"`
	Start          float64       `json:"start"`
	End            float64       `json:"end"`
	LengthInBeats  int           `json:"lengthInBeats"`
	Type           string        `json:"type"`
	StartBeatIndex int           `json:"startBeatIndex"`
	EndBeatIndex   int           `json:"endBeatIndex"`
	Metadata       *LoopMetadata `json:"metadata,omitempty"`
}

// LoopMetadata is the condensed analysis of a loop's frames.
type LoopMetadata struct {
	Energy        float64  `json:"energy"`
	Harmony       []string `json:"harmony"`
	Psychological Mood     `json:"psychological"`
}

// Span locates one occurrence of a pattern, in seconds and in frames.
type Span struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	StartFrame int     `json:"startFrame"`
	EndFrame   int     `json:"endFrame"`
}

// Motif is a short pattern recurring at least a minimum number of times.
type Motif struct {
	ID          string          `json:"id"`
	Type        PatternType     `json:"type"`
	Pattern     json.RawMessage `json:"pattern"`
	Occurrences []Span          `json:"occurrences"`
	Evolution   Evolution       `json:"evolution"`
}

// Quote is a longer pattern repeated verbatim after its first appearance.
type Quote struct {
	Type     PatternType `json:"type"`
	Original Span        `json:"original"`
	Quoted   []Span      `json:"quoted"`
}

// Point is one sample of a curve over time.
type Point struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// StoryArc is the tension/release curve of a melody.
type StoryArc struct {
	Tension            []Point `json:"tension"`
	Release            []Point `json:"release"`
	NarrativeStructure string  `json:"narrativeStructure"`
}

// Mood is a valence/arousal pair.
type Mood struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// EmotionPoint is the mood at one frame.
type EmotionPoint struct {
	Time    float64 `json:"time"`
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// Mood drops the timestamp.
func (p EmotionPoint) Mood() Mood {
	return Mood{Valence: p.Valence, Arousal: p.Arousal}
}

// ParadigmShift is an abrupt frame-to-frame mood change.
type ParadigmShift struct {
	Time      float64 `json:"time"`
	Type      string  `json:"type"`
	Magnitude float64 `json:"magnitude"`
	From      Mood    `json:"from"`
	To        Mood    `json:"to"`
}

// PsychologicalProfile is the valence/arousal summary of a frame range.
type PsychologicalProfile struct {
	OverallValence      float64         `json:"overallValence"`
	OverallArousal      float64         `json:"overallArousal"`
	EmotionalTrajectory []EmotionPoint  `json:"emotionalTrajectory"`
	ParadigmShifts      []ParadigmShift `json:"paradigmShifts"`
}

// Timebase maps frame indices of a (possibly sliced) series to absolute time.
type Timebase struct {
	// FrameDuration is the length of one frame in seconds.
	FrameDuration float64
	// Offset is the absolute index of the series' first frame.
	Offset int
}

// Frame returns the absolute frame index of local index i.
func (tb Timebase) Frame(i int) int {
	return tb.Offset + i
}

// Seconds returns the absolute time of local index i.
func (tb Timebase) Seconds(i int) float64 {
	return float64(tb.Offset+i) * tb.FrameDuration
}

// Span returns the occurrence covering local frames [start, end).
func (tb Timebase) Span(start, end int) Span {
	return Span{
		Start:      tb.Seconds(start),
		End:        tb.Seconds(end),
		StartFrame: tb.Frame(start),
		EndFrame:   tb.Frame(end),
	}
}
