// Package synth turns a free-text description and a set of reference-track
// summaries into a display title and an enriched generation prompt. It is
// pure: no I/O, no state beyond intentional randomness in title wording.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/songsmith/api/internal/model"
)

// Defaults used when a reference track carries no audio features, and as
// the aggregate values when no reference tracks are supplied at all.
const (
	DefaultTempo   = 120.0
	DefaultEnergy  = 0.5
	DefaultValence = 0.5
)

// Aggregates are the feature means across the reference tracks, computed
// once at submission time and stored on the track record.
type Aggregates struct {
	Genres  []string
	Tempo   float64
	Energy  float64
	Valence float64
}

// Aggregate computes mean tempo/energy/valence and the deduplicated genre
// list (capped at 5). Tracks without features contribute the defaults.
func Aggregate(refs []model.ReferenceTrack) Aggregates {
	agg := Aggregates{
		Tempo:   DefaultTempo,
		Energy:  DefaultEnergy,
		Valence: DefaultValence,
	}

	seen := map[string]bool{}
	for _, ref := range refs {
		for _, g := range ref.Genres {
			key := strings.ToLower(g)
			if seen[key] || len(agg.Genres) >= 5 {
				continue
			}
			seen[key] = true
			agg.Genres = append(agg.Genres, g)
		}
	}

	if len(refs) == 0 {
		return agg
	}

	var tempo, energy, valence float64
	for _, ref := range refs {
		if ref.Features != nil {
			tempo += ref.Features.Tempo
			energy += ref.Features.Energy
			valence += ref.Features.Valence
		} else {
			tempo += DefaultTempo
			energy += DefaultEnergy
			valence += DefaultValence
		}
	}
	n := float64(len(refs))
	agg.Tempo = tempo / n
	agg.Energy = round2(energy / n)
	agg.Valence = round2(valence / n)
	return agg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Synthesize returns a generated title and the enriched prompt for a
// generation request. Both are derived once at creation and never
// recomputed.
func Synthesize(description string, refs []model.ReferenceTrack) (string, string) {
	agg := Aggregate(refs)
	return Title(agg), Prompt(description, refs, agg)
}

// Title builds a 2-8 word title from the word banks. No word repeats within
// one title unless a category is exhausted.
func Title(agg Aggregates) string {
	length := 2 + rand.Intn(7)
	used := map[string]bool{}
	words := make([]string, 0, length)

	// First word: mood vocabulary steered by valence.
	var first []string
	switch {
	case agg.Valence > 0.7:
		first = moodsPositive
	case agg.Valence < 0.3:
		first = moodsMelancholic
	default:
		first = append(append([]string{}, moodsGeneral...), descriptors...)
	}
	words = append(words, pick(first, used))

	// Middle words rotate through the general categories, augmented with
	// genre-matched and tempo-band vocabulary.
	pools := [][]string{times, places, instruments, weather, descriptors, emotions}
	if matched := matchGenres(agg.Genres); len(matched) > 0 {
		pools = append(pools, matched)
	}
	if agg.Tempo > 140 {
		pools = append(pools, fastWords)
	} else if agg.Tempo < 80 {
		pools = append(pools, slowWords)
	}
	offset := rand.Intn(len(pools))
	for i := 0; i < length-2; i++ {
		words = append(words, pick(pools[(offset+i)%len(pools)], used))
	}

	// Last word: activities and places, with dance vocabulary when the
	// references run hot.
	if length >= 2 {
		last := append(append([]string{}, activities...), places...)
		if agg.Energy > 0.6 {
			last = append(last, activitiesDance...)
		}
		words = append(words, pick(last, used))
	}

	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// pick draws a uniformly random unused word from the category, marking it
// used. If every word in the category has been used it falls back to any
// word, even a repeat.
func pick(category []string, used map[string]bool) string {
	fresh := make([]string, 0, len(category))
	for _, w := range category {
		if !used[w] {
			fresh = append(fresh, w)
		}
	}
	if len(fresh) == 0 {
		return category[rand.Intn(len(category))]
	}
	w := fresh[rand.Intn(len(fresh))]
	used[w] = true
	return w
}

// matchGenres returns genre-bank words that appear (case-insensitively) as a
// substring of any reference genre, or vice versa.
func matchGenres(genres []string) []string {
	var matched []string
	for _, word := range genreWords {
		for _, g := range genres {
			lg := strings.ToLower(g)
			if strings.Contains(lg, word) || strings.Contains(word, lg) {
				matched = append(matched, word)
				break
			}
		}
	}
	return matched
}

// Prompt enriches the raw description with aggregate clauses. With no
// reference tracks the description passes through unmodified, empty or not.
func Prompt(description string, refs []model.ReferenceTrack, agg Aggregates) string {
	prompt := strings.TrimSpace(description)
	if len(refs) == 0 {
		return prompt
	}

	var clauses []string
	if len(agg.Genres) > 0 {
		genres := agg.Genres
		if len(genres) > 3 {
			genres = genres[:3]
		}
		clauses = append(clauses, fmt.Sprintf("blending %s influences", strings.Join(genres, ", ")))
	}
	clauses = append(clauses, fmt.Sprintf("around %d BPM", int(math.Round(agg.Tempo))))
	if agg.Energy > 0.7 {
		clauses = append(clauses, "with a high-energy, driving feel")
	} else if agg.Energy < 0.3 {
		clauses = append(clauses, "with a calm, laid-back feel")
	}
	if agg.Valence > 0.7 {
		clauses = append(clauses, "carrying an upbeat, uplifting mood")
	} else if agg.Valence < 0.3 {
		clauses = append(clauses, "carrying a melancholic, introspective mood")
	}

	enrichment := "A track " + strings.Join(clauses, ", ") + "."
	if prompt == "" {
		return enrichment
	}
	return prompt + ". " + enrichment
}
