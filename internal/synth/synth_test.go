package synth

import (
	"strings"
	"testing"

	"github.com/songsmith/api/internal/model"
)

func refWithFeatures(f model.AudioFeatures) model.ReferenceTrack {
	return model.ReferenceTrack{
		ID:       "ref",
		Name:     "Some Song",
		Artist:   "Some Artist",
		Features: &f,
	}
}

func TestTitle_LengthAndUniqueWords(t *testing.T) {
	// Title wording is random; run enough iterations to exercise the
	// category rotation and dedup set.
	for i := 0; i < 200; i++ {
		title := Title(Aggregate(nil))
		words := strings.Fields(title)
		if len(words) < 2 || len(words) > 8 {
			t.Fatalf("expected 2-8 words, got %d (%q)", len(words), title)
		}
		seen := map[string]bool{}
		for _, w := range words {
			if seen[w] {
				t.Fatalf("duplicate word %q in title %q", w, title)
			}
			seen[w] = true
		}
	}
}

func TestSynthesize_EmptyInput(t *testing.T) {
	title, prompt := Synthesize("", nil)
	if title == "" {
		t.Error("expected a title for empty input")
	}
	if prompt != "" {
		t.Errorf("expected empty prompt for empty input, got %q", prompt)
	}
}

func TestAggregate_Defaults(t *testing.T) {
	agg := Aggregate(nil)
	if agg.Tempo != 120 || agg.Energy != 0.5 || agg.Valence != 0.5 {
		t.Errorf("unexpected defaults: %+v", agg)
	}
	if len(agg.Genres) != 0 {
		t.Errorf("expected no genres, got %v", agg.Genres)
	}
}

func TestAggregate_Means(t *testing.T) {
	refs := []model.ReferenceTrack{
		refWithFeatures(model.AudioFeatures{Energy: 0.2, Valence: 0.4, Tempo: 100}),
		refWithFeatures(model.AudioFeatures{Energy: 0.8, Valence: 0.6, Tempo: 140}),
	}
	agg := Aggregate(refs)
	if agg.Energy != 0.5 {
		t.Errorf("expected mean energy 0.5, got %v", agg.Energy)
	}
	if agg.Tempo != 120 {
		t.Errorf("expected mean tempo 120, got %v", agg.Tempo)
	}
	if agg.Valence != 0.5 {
		t.Errorf("expected mean valence 0.5, got %v", agg.Valence)
	}
}

func TestAggregate_RoundsToTwoDecimals(t *testing.T) {
	refs := []model.ReferenceTrack{
		refWithFeatures(model.AudioFeatures{Energy: 0.333, Valence: 0.666, Tempo: 120}),
		refWithFeatures(model.AudioFeatures{Energy: 0.333, Valence: 0.666, Tempo: 120}),
		refWithFeatures(model.AudioFeatures{Energy: 0.334, Valence: 0.667, Tempo: 120}),
	}
	agg := Aggregate(refs)
	if agg.Energy != 0.33 {
		t.Errorf("expected energy 0.33, got %v", agg.Energy)
	}
	if agg.Valence != 0.67 {
		t.Errorf("expected valence 0.67, got %v", agg.Valence)
	}
}

func TestAggregate_MissingFeaturesUseDefaults(t *testing.T) {
	refs := []model.ReferenceTrack{
		refWithFeatures(model.AudioFeatures{Energy: 0.8, Valence: 0.9, Tempo: 140}),
		{ID: "bare", Name: "No Features"},
	}
	agg := Aggregate(refs)
	if agg.Energy != 0.65 {
		t.Errorf("expected energy 0.65, got %v", agg.Energy)
	}
	if agg.Valence != 0.7 {
		t.Errorf("expected valence 0.70, got %v", agg.Valence)
	}
	if agg.Tempo != 130 {
		t.Errorf("expected tempo 130, got %v", agg.Tempo)
	}
}

func TestAggregate_GenresDedupedAndCapped(t *testing.T) {
	refs := []model.ReferenceTrack{
		{ID: "a", Name: "A", Genres: []string{"pop", "Pop", "indie pop", "synthpop"}},
		{ID: "b", Name: "B", Genres: []string{"rock", "jazz", "blues", "folk"}},
	}
	agg := Aggregate(refs)
	if len(agg.Genres) != 5 {
		t.Fatalf("expected 5 genres, got %v", agg.Genres)
	}
	if agg.Genres[0] != "pop" || agg.Genres[1] != "indie pop" {
		t.Errorf("unexpected dedup result: %v", agg.Genres)
	}
}

func TestPrompt_NoRefsPassesThrough(t *testing.T) {
	agg := Aggregate(nil)
	if got := Prompt("lofi beat", nil, agg); got != "lofi beat" {
		t.Errorf("expected unmodified prompt, got %q", got)
	}
	if got := Prompt("", nil, agg); got != "" {
		t.Errorf("expected empty prompt, got %q", got)
	}
}

func TestPrompt_Enrichment(t *testing.T) {
	refs := []model.ReferenceTrack{
		{
			ID:     "a",
			Name:   "A",
			Genres: []string{"house", "techno", "electro", "disco"},
			Features: &model.AudioFeatures{
				Energy:  0.9,
				Valence: 0.9,
				Tempo:   128,
			},
		},
	}
	agg := Aggregate(refs)
	prompt := Prompt("club anthem", refs, agg)

	if !strings.HasPrefix(prompt, "club anthem. ") {
		t.Errorf("expected prompt to start with the description, got %q", prompt)
	}
	if !strings.Contains(prompt, "128 BPM") {
		t.Errorf("expected tempo clause, got %q", prompt)
	}
	if !strings.Contains(prompt, "house, techno, electro") {
		t.Errorf("expected at most 3 genres named, got %q", prompt)
	}
	if strings.Contains(prompt, "disco") {
		t.Errorf("expected 4th genre dropped, got %q", prompt)
	}
	if !strings.Contains(prompt, "high-energy") {
		t.Errorf("expected high-energy clause, got %q", prompt)
	}
	if !strings.Contains(prompt, "upbeat") {
		t.Errorf("expected upbeat clause, got %q", prompt)
	}
}

func TestPrompt_CalmMelancholicClauses(t *testing.T) {
	refs := []model.ReferenceTrack{
		refWithFeatures(model.AudioFeatures{Energy: 0.1, Valence: 0.1, Tempo: 70}),
	}
	agg := Aggregate(refs)
	prompt := Prompt("sad piano", refs, agg)

	if !strings.Contains(prompt, "calm") {
		t.Errorf("expected calm clause, got %q", prompt)
	}
	if !strings.Contains(prompt, "melancholic") {
		t.Errorf("expected melancholic clause, got %q", prompt)
	}
}

func TestPrompt_MidRangeOmitsMoodClauses(t *testing.T) {
	refs := []model.ReferenceTrack{
		refWithFeatures(model.AudioFeatures{Energy: 0.5, Valence: 0.5, Tempo: 110}),
	}
	agg := Aggregate(refs)
	prompt := Prompt("background music", refs, agg)

	for _, banned := range []string{"high-energy", "calm", "upbeat", "melancholic"} {
		if strings.Contains(prompt, banned) {
			t.Errorf("expected no %q clause for mid-range features, got %q", banned, prompt)
		}
	}
	if !strings.Contains(prompt, "110 BPM") {
		t.Errorf("expected tempo clause, got %q", prompt)
	}
}
