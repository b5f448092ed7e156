// Package analysis turns feature files into song structure sidecars.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/nzoschke/songlab/pkg/features"
	"github.com/nzoschke/songlab/pkg/structure"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// File name suffixes of feature documents and their structure sidecars.
const (
	FeaturesSuffix  = ".features.json"
	StructureSuffix = ".structure.json"
)

// TrackStructure represents the JSON sidecar written for a feature file.
type TrackStructure struct {
	File       string                      `json:"file"`
	Duration   float64                     `json:"duration"`
	SampleRate int                         `json:"sample_rate"`
	HopSize    int                         `json:"hop_size"`
	Structure  *structure.EnhancedMetadata `json:"structure"`
	CuePoints  []CuePoint                  `json:"cue_points,omitempty"`
	Waveform   *Waveform                   `json:"waveform,omitempty"`
}

// Analyzer compiles feature documents with a structure engine.
type Analyzer struct {
	engine *structure.Engine
	log    *zap.Logger

	workers        int
	pixelsPerSec   int
	maxCues        int
	minCueDistance float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger for the analyzer and its engine.
func WithLogger(log *zap.Logger) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// WithWorkers bounds how many files AnalyzeDir processes at once.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithPixelsPerSec sets the waveform resolution. 0 disables waveforms.
func WithPixelsPerSec(n int) Option {
	return func(a *Analyzer) {
		a.pixelsPerSec = n
	}
}

// WithCues sets the cue point limit and minimum spacing in seconds.
func WithCues(maxCues int, minDistance float64) Option {
	return func(a *Analyzer) {
		a.maxCues = maxCues
		a.minCueDistance = minDistance
	}
}

// New creates an Analyzer. A nil config uses structure.DefaultConfig.
func New(cfg *structure.Config, opts ...Option) *Analyzer {
	a := &Analyzer{
		log:            zap.NewNop(),
		pixelsPerSec:   DefaultPixelsPerSec,
		maxCues:        DefaultMaxCues,
		minCueDistance: DefaultMinCueDistance,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.engine = structure.New(cfg, structure.WithLogger(a.log))
	return a
}

// Engine returns the structure engine.
func (a *Analyzer) Engine() *structure.Engine {
	return a.engine
}

// Analyze compiles a decoded feature track and derives its cue points.
func (a *Analyzer) Analyze(name string, t *features.Track) *TrackStructure {
	meta := a.engine.Compile(t)
	return &TrackStructure{
		File:       name,
		Duration:   meta.Song.Duration,
		SampleRate: t.SampleRate,
		HopSize:    t.HopSize,
		Structure:  meta,
		CuePoints:  CuePointsFromStructure(meta, a.maxCues, a.minCueDistance),
	}
}

// AnalyzeFileWithPath analyzes a single feature file. When the document
// names an MP3 audio file, a waveform overview is added; waveform failures
// are logged and do not fail the analysis.
func (a *Analyzer) AnalyzeFileWithPath(path string) (*TrackStructure, error) {
	t, err := features.Load(path)
	if err != nil {
		return nil, err
	}

	result := a.Analyze(filepath.Base(path), t)

	if t.Audio != "" && a.pixelsPerSec > 0 {
		audioPath := t.Audio
		if !filepath.IsAbs(audioPath) {
			audioPath = filepath.Join(filepath.Dir(path), audioPath)
		}
		waveform, err := GenerateWaveform(audioPath, a.pixelsPerSec)
		if err != nil {
			a.log.Warn("could not generate waveform", zap.String("file", result.File), zap.Error(err))
		} else {
			result.Waveform = waveform
		}
	}

	return result, nil
}

// Report counts the outcome of AnalyzeDir.
type Report struct {
	Analyzed int `json:"analyzed"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// AnalyzeDir recursively analyzes all feature files in a directory.
// For each feature file, it creates a corresponding .structure.json sidecar.
// If force is true, existing sidecars are overwritten. A file that fails to
// analyze is logged and counted; only write errors abort the walk.
func (a *Analyzer) AnalyzeDir(ctx context.Context, dir string, force bool) (Report, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsFeatureFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("walk %s: %w", dir, err)
	}

	workers := a.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var analyzed, skipped, failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			name := filepath.Base(path)
			sidecar := SidecarPath(path)
			if !force {
				if _, err := os.Stat(sidecar); err == nil {
					a.log.Info("skipping, already analyzed", zap.String("file", name))
					skipped.Add(1)
					return nil
				}
			}

			a.log.Info("analyzing", zap.String("file", name))
			result, err := a.AnalyzeFileWithPath(path)
			if err != nil {
				a.log.Error("analysis failed", zap.String("file", name), zap.Error(err))
				failed.Add(1)
				return nil
			}

			if err := result.WriteJSON(sidecar); err != nil {
				return err
			}

			a.log.Info("analyzed",
				zap.String("file", name),
				zap.Float64("duration", result.Duration),
				zap.Float64("bpm", result.Structure.Song.BPM),
				zap.Int("sections", len(result.Structure.Sections)),
				zap.Int("loops", len(result.Structure.Loops)),
				zap.Int("cue_points", len(result.CuePoints)),
				zap.Bool("waveform", result.Waveform != nil),
			)
			analyzed.Add(1)
			return nil
		})
	}

	err = g.Wait()
	report := Report{
		Analyzed: int(analyzed.Load()),
		Skipped:  int(skipped.Load()),
		Failed:   int(failed.Load()),
	}
	return report, err
}

// IsFeatureFile reports whether path names a feature document.
func IsFeatureFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), FeaturesSuffix)
}

// SidecarPath returns the structure sidecar path for a feature file.
func SidecarPath(path string) string {
	if IsFeatureFile(path) {
		return path[:len(path)-len(FeaturesSuffix)] + StructureSuffix
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + StructureSuffix
}

// WriteJSON writes the analysis to a JSON file.
func (ts *TrackStructure) WriteJSON(path string) error {
	data, err := json.MarshalIndent(ts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}
