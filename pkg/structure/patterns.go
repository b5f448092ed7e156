package structure

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/nzoschke/songlab/pkg/features"
)

// pattern is a group of windows sharing one canonical form.
type pattern struct {
	canonical json.RawMessage
	starts    []int
}

// canonicalizer serialises the window of k frames starting at start.
// Unvoiced and unlabelled frames are part of the form like any other.
type canonicalizer func(start, k int) json.RawMessage

// minePatterns groups every length-k window of a series of n frames by its
// canonical form and keeps groups with at least minOccurrences members.
// Groups are ordered by their first occurrence.
func minePatterns(n, k, minOccurrences int, canon canonicalizer) []pattern {
	if k <= 0 || n < k {
		return nil
	}
	minOccurrences = max(minOccurrences, 1)

	index := make(map[string]int)
	var groups []pattern
	for start := 0; start+k <= n; start++ {
		key := canon(start, k)
		if g, seen := index[string(key)]; seen {
			groups[g].starts = append(groups[g].starts, start)
			continue
		}
		index[string(key)] = len(groups)
		groups = append(groups, pattern{canonical: key, starts: []int{start}})
	}

	kept := groups[:0]
	for _, g := range groups {
		if len(g.starts) >= minOccurrences {
			kept = append(kept, g)
		}
	}
	return kept
}

// melodicCanon projects each frame to its first proj pitch values.
func melodicCanon(melody []features.MelodyFrame, proj int) canonicalizer {
	proj = max(proj, 0)
	return func(start, k int) json.RawMessage {
		window := make([][]float64, k)
		for j := range window {
			pitch := melody[start+j].Pitch
			p := make([]float64, 0, min(proj, len(pitch)))
			for _, v := range pitch[:min(proj, len(pitch))] {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					v = 0
				}
				p = append(p, v)
			}
			window[j] = p
		}
		return marshalCanonical(window)
	}
}

// harmonicCanon projects each frame to its first proj chord labels.
func harmonicCanon(harmony []features.HarmonyFrame, proj int) canonicalizer {
	proj = max(proj, 0)
	return func(start, k int) json.RawMessage {
		window := make([][]string, k)
		for j := range window {
			chords := harmony[start+j].Chords
			window[j] = append([]string{}, chords[:min(proj, len(chords))]...)
		}
		return marshalCanonical(window)
	}
}

func marshalCanonical(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// ExtractMotifs mines short melodic and harmonic patterns that recur at least
// minOccurrences times, using the default configuration.
func ExtractMotifs(melody []features.MelodyFrame, harmony []features.HarmonyFrame, minOccurrences int, tb Timebase) []Motif {
	return ExtractMotifsConfig(melody, harmony, minOccurrences, tb, nil)
}

// ExtractMotifsConfig mines motifs of cfg.MotifLength frames.
func ExtractMotifsConfig(melody []features.MelodyFrame, harmony []features.HarmonyFrame, minOccurrences int, tb Timebase, cfg *Config) []Motif {
	cfg = orDefault(cfg)
	k := cfg.MotifLength
	motifs := []Motif{}

	add := func(kind PatternType, groups []pattern, similarity func(a, b int) float64) {
		for _, g := range groups {
			first, last := g.starts[0], g.starts[len(g.starts)-1]
			motifs = append(motifs, Motif{
				ID:          fmt.Sprintf("motif-%d", len(motifs)),
				Type:        kind,
				Pattern:     g.canonical,
				Occurrences: spans(g.starts, k, tb),
				Evolution:   cfg.evolution(similarity(first, last)),
			})
		}
	}

	add(PatternMelodic,
		minePatterns(len(melody), k, minOccurrences, melodicCanon(melody, cfg.MelodicProjection)),
		func(a, b int) float64 { return melodicSimilarity(melody, a, b, k, cfg.SimilarityTolerance) })
	add(PatternHarmonic,
		minePatterns(len(harmony), k, minOccurrences, harmonicCanon(harmony, cfg.HarmonicProjection)),
		func(a, b int) float64 { return harmonicSimilarity(harmony, a, b, k) })

	return motifs
}

// DetectQuotes finds longer patterns repeated verbatim, using the default
// configuration. The earliest occurrence is the original.
func DetectQuotes(melody []features.MelodyFrame, harmony []features.HarmonyFrame, tb Timebase) []Quote {
	return DetectQuotesConfig(melody, harmony, tb, nil)
}

// DetectQuotesConfig finds quotes of cfg.QuoteLength frames. A quote always
// needs at least one repeat, whatever cfg.QuoteMinOccurrences says.
func DetectQuotesConfig(melody []features.MelodyFrame, harmony []features.HarmonyFrame, tb Timebase, cfg *Config) []Quote {
	cfg = orDefault(cfg)
	k := cfg.QuoteLength
	minOccurrences := max(cfg.QuoteMinOccurrences, 2)
	quotes := []Quote{}

	add := func(kind PatternType, groups []pattern) {
		for _, g := range groups {
			quotes = append(quotes, Quote{
				Type:     kind,
				Original: tb.Span(g.starts[0], g.starts[0]+k),
				Quoted:   spans(g.starts[1:], k, tb),
			})
		}
	}

	add(PatternMelodic, minePatterns(len(melody), k, minOccurrences, melodicCanon(melody, cfg.MelodicProjection)))
	add(PatternHarmonic, minePatterns(len(harmony), k, minOccurrences, harmonicCanon(harmony, cfg.HarmonicProjection)))

	return quotes
}

func spans(starts []int, k int, tb Timebase) []Span {
	out := make([]Span, len(starts))
	for i, s := range starts {
		out[i] = tb.Span(s, s+k)
	}
	return out
}

// melodicSimilarity is the fraction of the k frame positions whose full
// pitch vectors at a and b lie within tolerance of each other.
func melodicSimilarity(melody []features.MelodyFrame, a, b, k int, tolerance float64) float64 {
	if k <= 0 {
		return 1
	}
	near := 0
	for j := 0; j < k; j++ {
		pa, pb := melody[a+j].Pitch, melody[b+j].Pitch
		if len(pa) == len(pb) && euclidean(pa, pb, len(pa)) < tolerance {
			near++
		}
	}
	return float64(near) / float64(k)
}

// harmonicSimilarity is the fraction of the k frame positions whose chord
// sets at a and b are equal.
func harmonicSimilarity(harmony []features.HarmonyFrame, a, b, k int) float64 {
	if k <= 0 {
		return 1
	}
	same := 0
	for j := 0; j < k; j++ {
		if slices.Equal(harmony[a+j].Chords, harmony[b+j].Chords) {
			same++
		}
	}
	return float64(same) / float64(k)
}

func (cfg *Config) evolution(similarity float64) Evolution {
	switch {
	case similarity >= cfg.StableSimilarity:
		return EvolutionStable
	case similarity >= cfg.VariationSimilarity:
		return EvolutionVariation
	default:
		return EvolutionTransformation
	}
}
