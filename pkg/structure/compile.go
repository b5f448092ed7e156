// Package structure derives song structure and songwriting metadata from
// per-frame audio descriptors: beat-aligned loops, classified sections,
// motifs and quotes, a tension story arc and a valence/arousal profile.
//
// Every function is pure and safe for concurrent use. Short or empty input
// degrades to empty collections and documented defaults instead of errors.
package structure

import (
	"math"
	"runtime"

	"github.com/nzoschke/songlab/pkg/features"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// frameEpsilon keeps time-to-frame conversion stable at exact frame edges.
const frameEpsilon = 1e-9

// Engine compiles EnhancedMetadata documents.
type Engine struct {
	cfg Config
	log *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug and recovery messages.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New creates an Engine. A nil config uses DefaultConfig.
func New(cfg *Config, opts ...Option) *Engine {
	e := &Engine{cfg: *orDefault(cfg), log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Compile analyses a whole track and nests per-section and per-loop
// metadata. The same input always yields the same document.
func (e *Engine) Compile(t *features.Track) *EnhancedMetadata {
	cfg := &e.cfg
	tb := Timebase{FrameDuration: t.FrameDuration()}
	beats := features.NormalizeBeats(t.Beats)

	doc := &EnhancedMetadata{
		Song: Song{
			Duration:      t.Duration(),
			BPM:           songBPM(beats, t.Tempo, cfg),
			Key:           InferKey(t.Harmony, cfg),
			StoryArc:      AnalyzeStoryArcConfig(t.Melody, tb, cfg),
			Psychological: CalculatePsychologicalDescriptorsConfig(t.Danceability, t.Energy, t.Tempo, tb, cfg),
			Motifs:        ExtractMotifsConfig(t.Melody, t.Harmony, cfg.MotifMinOccurrences, tb, cfg),
			Quotes:        DetectQuotesConfig(t.Melody, t.Harmony, tb, cfg),
		},
		Sections: DetectSectionsConfig(SectionInputFromTrack(t), cfg),
		Loops:    GenerateLoopPoints(beats, cfg.LoopLengths),
		BeatMarkers: BeatMarkers{
			BPM:        BPM(beats, cfg.DefaultBPM),
			Beats:      beats,
			Confidence: cfg.BeatConfidence,
			TotalBeats: len(beats),
		},
	}

	e.nest(t, doc)

	e.log.Debug("compiled structure",
		zap.Float64("duration", doc.Song.Duration),
		zap.Float64("bpm", doc.Song.BPM),
		zap.Int("sections", len(doc.Sections)),
		zap.Int("loops", len(doc.Loops)),
		zap.Int("motifs", len(doc.Song.Motifs)),
		zap.Int("quotes", len(doc.Song.Quotes)),
	)
	return doc
}

// nest computes section and loop metadata concurrently. Each task writes
// only its own slot, so results keep their original order.
func (e *Engine) nest(t *features.Track, doc *EnhancedMetadata) {
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range doc.Sections {
		i := i
		g.Go(func() error {
			doc.Sections[i].Metadata = e.sectionMetadata(t, i, doc.Sections[i])
			return nil
		})
	}
	for i := range doc.Loops {
		i := i
		g.Go(func() error {
			doc.Loops[i].Metadata = e.loopMetadata(t, i, doc.Loops[i])
			return nil
		})
	}
	_ = g.Wait()
}

// sectionMetadata re-runs the song-level analysis on a section's frames.
// Malformed frames that make a component panic yield default metadata.
func (e *Engine) sectionMetadata(t *features.Track, i int, s Section) (meta *SectionMetadata) {
	cfg := &e.cfg
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("section metadata failed, using defaults",
				zap.Int("section", i), zap.String("type", string(s.Type)), zap.Any("panic", r))
			meta = defaultSectionMetadata(cfg)
		}
	}()

	fd := t.FrameDuration()
	start, end := FrameRange(s.Start, s.End, fd)
	sl := sliceTrack(t, start, end)
	tb := Timebase{FrameDuration: fd, Offset: start}

	return &SectionMetadata{
		BPM:           mean(validValues(sl.Tempo, 0, len(sl.Tempo)), cfg.DefaultBPM),
		Key:           SectionKey(sl.Harmony, cfg.DefaultKey),
		Energy:        mean(validValues(sl.Energy, 0, len(sl.Energy)), 0),
		Psychological: CalculatePsychologicalDescriptorsConfig(sl.Danceability, sl.Energy, sl.Tempo, tb, cfg),
		Motifs:        ExtractMotifsConfig(sl.Melody, sl.Harmony, cfg.SectionMotifMinOccurrences, tb, cfg),
		Quotes:        DetectQuotesConfig(sl.Melody, sl.Harmony, tb, cfg),
		StoryArc:      AnalyzeStoryArcConfig(sl.Melody, tb, cfg),
	}
}

// loopMetadata condenses a loop's frames to energy, chords and mood.
func (e *Engine) loopMetadata(t *features.Track, i int, l LoopPoint) (meta *LoopMetadata) {
	cfg := &e.cfg
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("loop metadata failed, using defaults",
				zap.Int("loop", i), zap.String("id", l.ID), zap.Any("panic", r))
			meta = &LoopMetadata{
				Harmony:       []string{},
				Psychological: Mood{Valence: cfg.DefaultValence, Arousal: cfg.DefaultArousal},
			}
		}
	}()

	fd := t.FrameDuration()
	start, end := FrameRange(l.Start, l.End, fd)
	sl := sliceTrack(t, start, end)
	profile := CalculatePsychologicalDescriptorsConfig(sl.Danceability, sl.Energy, sl.Tempo, Timebase{FrameDuration: fd, Offset: start}, cfg)

	return &LoopMetadata{
		Energy:  mean(validValues(sl.Energy, 0, len(sl.Energy)), 0),
		Harmony: DistinctChords(sl.Harmony),
		Psychological: Mood{
			Valence: profile.OverallValence,
			Arousal: profile.OverallArousal,
		},
	}
}

// FrameRange converts [start, end) seconds to frame indices.
func FrameRange(start, end, frameDuration float64) (int, int) {
	if frameDuration <= 0 {
		return 0, 0
	}
	from := int(math.Floor(start/frameDuration + frameEpsilon))
	to := int(math.Floor(end/frameDuration + frameEpsilon))
	return max(from, 0), max(to, from, 0)
}

// sliceTrack returns a track view limited to frames [start, end).
func sliceTrack(t *features.Track, start, end int) *features.Track {
	return &features.Track{
		SampleRate:   t.SampleRate,
		HopSize:      t.HopSize,
		Danceability: sliceFrames(t.Danceability, start, end),
		Energy:       sliceFrames(t.Energy, start, end),
		Tempo:        sliceFrames(t.Tempo, start, end),
		Harmony:      sliceFrames(t.Harmony, start, end),
		Timbre:       sliceFrames(t.Timbre, start, end),
		Melody:       sliceFrames(t.Melody, start, end),
	}
}

func sliceFrames[T any](s []T, start, end int) []T {
	start, end = clampRange(start, end, len(s))
	return s[start:end]
}

// InferKey returns the song key. Key estimation is a placeholder that always
// reports cfg.DefaultKey.
// TODO: estimate the key from chroma once the feature document carries HPCP frames.
func InferKey(_ []features.HarmonyFrame, cfg *Config) string {
	return orDefault(cfg).DefaultKey
}

// SectionKey is the first chord label of the first non-empty harmony frame.
func SectionKey(harmony []features.HarmonyFrame, def string) string {
	for _, h := range harmony {
		for _, c := range h.Chords {
			if c != "" {
				return c
			}
		}
	}
	return def
}

// DistinctChords lists the chord labels of harmony in order of first appearance.
func DistinctChords(harmony []features.HarmonyFrame) []string {
	seen := make(map[string]bool)
	chords := []string{}
	for _, h := range harmony {
		for _, c := range h.Chords {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			chords = append(chords, c)
		}
	}
	return chords
}

// songBPM prefers the beat grid, then the mean tempo series, then the default.
func songBPM(beats []float64, tempo []features.Value, cfg *Config) float64 {
	if bpm := BPM(beats, 0); bpm > 0 {
		return bpm
	}
	return mean(validValues(tempo, 0, len(tempo)), cfg.DefaultBPM)
}

func defaultSectionMetadata(cfg *Config) *SectionMetadata {
	return &SectionMetadata{
		BPM: cfg.DefaultBPM,
		Key: cfg.DefaultKey,
		Psychological: PsychologicalProfile{
			OverallValence:      cfg.DefaultValence,
			OverallArousal:      cfg.DefaultArousal,
			EmotionalTrajectory: []EmotionPoint{},
			ParadigmShifts:      []ParadigmShift{},
		},
		Motifs: []Motif{},
		Quotes: []Quote{},
		StoryArc: StoryArc{
			Tension:            []Point{},
			Release:            []Point{},
			NarrativeStructure: NarrativeUnknown,
		},
	}
}
