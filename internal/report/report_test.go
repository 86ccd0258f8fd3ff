package report

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/metrics"
)

type fakeAnalyses map[string]*analysis.Analysis

func (f fakeAnalyses) Load(_ context.Context, id string) (*analysis.Analysis, error) {
	a, ok := f[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 0, "analysis %s not found", id)
	}
	return a, nil
}

func count(t *testing.T, id string, maxN, skip int, texts ...string) *analysis.Analysis {
	t.Helper()
	acc, err := ngram.NewAccumulator(ngram.Options{MaxN: maxN, Skipgrams: skip})
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range texts {
		acc.Ingest(text)
	}
	return &analysis.Analysis{ID: id + "-run", CorpusID: id, NGrams: acc.NGrams(), Skipgrams: acc.Skipgrams()}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildWeightsSources(t *testing.T) {
	analyses := fakeAnalyses{
		"a": count(t, "a", 2, 1, "aa"),
		"b": count(t, "b", 2, 1, "bb"),
	}
	b := NewBuilder(store.New(t.TempDir()), analyses, nil)
	r, err := b.Build(context.Background(), &Recipe{
		Metadata: RecipeMetadata{ID: "mix", Name: "Mix", Languages: []string{"en"}},
		Sources: []Source{
			{ID: "a", Type: SourceAnalysis, Weight: 3},
			{ID: "b", Type: SourceAnalysis, Weight: 1},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	unigrams, ok := r.NGrams(1)
	if !ok {
		t.Fatal("report has no unigram table")
	}
	if v, _ := unigrams.Get("a"); !near(v, 0.75) {
		t.Errorf("freq(a) = %v, want 0.75", v)
	}
	if v, _ := unigrams.Get("b"); !near(v, 0.25) {
		t.Errorf("freq(b) = %v, want 0.25", v)
	}
	if !near(unigrams.Sum(), 1) {
		t.Errorf("unigram frequencies sum to %v", unigrams.Sum())
	}
	if r.Counts.Table(1).Count("a") != 2 || r.Counts.Table(1).Count("b") != 2 {
		t.Errorf("counts are not the plain sum: a=%d b=%d",
			r.Counts.Table(1).Count("a"), r.Counts.Table(1).Count("b"))
	}
	if r.Metadata.ProcessDate.IsZero() || r.Metadata.Name != "Mix" {
		t.Errorf("metadata = %+v", r.Metadata)
	}
	// "aa" and "bb" are too short for a 1-skipgram, so the table is empty.
	if skips, ok := r.Skipgrams(1); !ok || len(skips) != 0 {
		t.Errorf("skipgrams(1) = %v, %v", skips, ok)
	}
}

func TestBuildStripsWhitespace(t *testing.T) {
	analyses := fakeAnalyses{"a": count(t, "a", 2, 0, "a b")}
	m := metrics.New(prometheus.NewRegistry())
	b := NewBuilder(store.New(t.TempDir()), analyses, m)
	r, err := b.Build(context.Background(), &Recipe{
		Metadata: RecipeMetadata{ID: "clean"},
		Sources:  []Source{{ID: "a", Type: SourceAnalysis, Weight: 1, StripWhitespace: true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.Counts.Table(1).Count(" ") != 0 || r.Counts.Table(2).Len() != 0 {
		t.Errorf("whitespace survived: %v", r.Counts.Table(2).Entries())
	}
	// " ", "a " and " b" were removed.
	if got := r.Counts.FilteredChars()[' ']; got != 3 {
		t.Errorf("filtered space tally = %d, want 3", got)
	}
	if got := testutil.ToFloat64(m.FilteredCharsTotal); got != 3 {
		t.Errorf("filtered chars metric = %v, want 3", got)
	}
	if r.SkipgramCounts != nil || r.SkipgramFrequencies != nil {
		t.Error("skipgrams should be omitted when a source has none")
	}
}

func TestBuildFromStoredReport(t *testing.T) {
	analyses := fakeAnalyses{
		"a": count(t, "a", 1, 0, "xy"),
		"b": count(t, "b", 1, 0, "zz"),
	}
	b := NewBuilder(store.New(t.TempDir()), analyses, nil)
	base, err := b.Build(context.Background(), &Recipe{
		Metadata: RecipeMetadata{ID: "base"},
		Sources:  []Source{{ID: "a", Type: SourceAnalysis, Weight: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Save(base); err != nil {
		t.Fatal(err)
	}

	r, err := b.Build(context.Background(), &Recipe{
		Metadata: RecipeMetadata{ID: "derived"},
		Sources: []Source{
			{ID: "base", Type: SourceReport, Weight: 1},
			{ID: "b", Type: SourceAnalysis, Weight: 1},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	unigrams, _ := r.NGrams(1)
	if v, _ := unigrams.Get("z"); !near(v, 0.5) {
		t.Errorf("freq(z) = %v, want 0.5", v)
	}
	if v, _ := unigrams.Get("x"); !near(v, 0.25) {
		t.Errorf("freq(x) = %v, want 0.25", v)
	}

	ids, err := b.List()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []string{"base"}) {
		t.Errorf("List = %v", ids)
	}
}

func TestBuildRejectsMismatchedMaxN(t *testing.T) {
	analyses := fakeAnalyses{
		"a": count(t, "a", 2, 0, "ab"),
		"b": count(t, "b", 3, 0, "abc"),
	}
	b := NewBuilder(store.New(t.TempDir()), analyses, nil)
	_, err := b.Build(context.Background(), &Recipe{
		Metadata: RecipeMetadata{ID: "bad"},
		Sources: []Source{
			{ID: "a", Type: SourceAnalysis, Weight: 1},
			{ID: "b", Type: SourceAnalysis, Weight: 1},
		},
	})
	if !apperrors.Is(err, apperrors.ErrConfigMismatch) {
		t.Errorf("err = %v, want ErrConfigMismatch", err)
	}
}

func TestBuildMissingSource(t *testing.T) {
	b := NewBuilder(store.New(t.TempDir()), fakeAnalyses{}, nil)
	_, err := b.Build(context.Background(), &Recipe{
		Metadata: RecipeMetadata{ID: "r"},
		Sources:  []Source{{ID: "gone", Type: SourceAnalysis, Weight: 1}},
	})
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRecipeValidate(t *testing.T) {
	tests := []struct {
		name   string
		recipe Recipe
	}{
		{"missing id", Recipe{Sources: []Source{{ID: "a", Type: SourceAnalysis, Weight: 1}}}},
		{"no sources", Recipe{Metadata: RecipeMetadata{ID: "r"}}},
		{"unknown type", Recipe{Metadata: RecipeMetadata{ID: "r"}, Sources: []Source{{ID: "a", Type: "csv", Weight: 1}}}},
		{"zero weight", Recipe{Metadata: RecipeMetadata{ID: "r"}, Sources: []Source{{ID: "a", Type: SourceAnalysis}}}},
		{"negative weight", Recipe{Metadata: RecipeMetadata{ID: "r"}, Sources: []Source{
			{ID: "a", Type: SourceAnalysis, Weight: 2},
			{ID: "b", Type: SourceAnalysis, Weight: -1},
		}}},
		{"self reference", Recipe{Metadata: RecipeMetadata{ID: "r"}, Sources: []Source{{ID: "r", Type: SourceReport, Weight: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.recipe.Validate(); !apperrors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("Validate() = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestLoadRecipe(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "recipe.yaml")
	yamlRecipe := `metadata:
  id: eng-mix
  name: English mix
  languages: [en]
  version: 1.0.0
sources:
  - id: eng_news
    type: analysis
    weight: 2
    strip_punctuation: true
  - id: base
    type: report
    weight: 1
`
	if err := os.WriteFile(yamlPath, []byte(yamlRecipe), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadRecipe(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if r.Metadata.ID != "eng-mix" || len(r.Sources) != 2 || !r.Sources[0].StripPunctuation || r.Sources[1].Type != SourceReport {
		t.Errorf("recipe = %+v", r)
	}

	jsonPath := filepath.Join(dir, "recipe.json")
	jsonRecipe := `{"metadata":{"id":"j"},"sources":[{"id":"a","type":"analysis","weight":0.5,"strip_numbers":true}]}`
	if err := os.WriteFile(jsonPath, []byte(jsonRecipe), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err = LoadRecipe(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if r.Sources[0].Weight != 0.5 || !r.Sources[0].StripNumbers {
		t.Errorf("json recipe = %+v", r)
	}

	if _, err := LoadRecipe(filepath.Join(dir, "missing.yaml")); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("missing recipe err = %v", err)
	}
}

func TestStrippedGroups(t *testing.T) {
	s := Source{StripWhitespace: true, StripNonlatin: true}
	allow, err := s.AllowList()
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range "az09" {
		if !allow.Contains(r) {
			t.Errorf("%q should be kept", r)
		}
	}
	for _, r := range " æ.(+'@" {
		if allow.Contains(r) {
			t.Errorf("%q should be stripped", r)
		}
	}
	groups := s.StrippedGroups()
	seen := map[string]int{}
	for _, g := range groups {
		seen[g]++
		if seen[g] > 1 {
			t.Errorf("group %s listed twice", g)
		}
	}
}
