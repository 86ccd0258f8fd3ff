package report

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/metrics"
)

// Metadata is the recipe metadata plus the time the report was built.
type Metadata struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Languages   []string       `json:"languages"`
	Version     string         `json:"version"`
	Extra       map[string]any `json:"extra,omitempty"`
	ProcessDate time.Time      `json:"process_date"`
}

// Report is a weighted combination of sources. Counts are the plain sum of
// the filtered source counts; frequencies weight each source's counts by
// its share of the total recipe weight before normalizing.
type Report struct {
	Metadata            Metadata                        `json:"metadata"`
	Sources             []Source                        `json:"sources"`
	Counts              *ngram.Set                      `json:"counts"`
	SkipgramCounts      *ngram.Set                      `json:"skipgram_counts,omitempty"`
	Frequencies         map[string]ngram.FrequencyTable `json:"frequencies"`
	SkipgramFrequencies map[string]ngram.FrequencyTable `json:"skipgram_frequencies,omitempty"`
}

// NGrams returns the frequency table for length n.
func (r *Report) NGrams(n int) (ngram.FrequencyTable, bool) {
	t, ok := r.Frequencies[strconv.Itoa(n)]
	return t, ok
}

// Skipgrams returns the frequency table for skip distance k.
func (r *Report) Skipgrams(k int) (ngram.FrequencyTable, bool) {
	t, ok := r.SkipgramFrequencies[strconv.Itoa(k)]
	return t, ok
}

// AnalysisLoader reads stored analyses.
type AnalysisLoader interface {
	Load(ctx context.Context, corpusID string) (*analysis.Analysis, error)
}

// Builder builds and stores reports.
type Builder struct {
	store    *store.Store
	analyses AnalysisLoader
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewBuilder creates a builder. m may be nil.
func NewBuilder(st *store.Store, analyses AnalysisLoader, m *metrics.Metrics) *Builder {
	return &Builder{
		store:    st,
		analyses: analyses,
		metrics:  m,
		logger:   slog.Default().With("component", "report"),
	}
}

// sourceCounts is what a single recipe source contributes before weighting.
type sourceCounts struct {
	ngrams    *ngram.Set
	skipgrams *ngram.Set
}

// accumulator sums filtered counts and weighted counts across sources.
type accumulator struct {
	counts   *ngram.Set
	skipOK   bool
	skips    *ngram.Set
	weighted map[int]map[string]float64
	wSkips   map[int]map[string]float64
}

func newAccumulator() *accumulator {
	return &accumulator{
		skipOK:   true,
		weighted: make(map[int]map[string]float64),
		wSkips:   make(map[int]map[string]float64),
	}
}

func (a *accumulator) add(src Source, sc sourceCounts, share float64) error {
	if a.counts == nil {
		a.counts = sc.ngrams
	} else {
		combined, err := a.counts.Combine(sc.ngrams)
		if err != nil {
			return fmt.Errorf("source %s: %w", src.ID, err)
		}
		a.counts = combined
	}
	addWeighted(a.weighted, sc.ngrams, share)

	if !a.skipOK {
		return nil
	}
	if sc.skipgrams == nil {
		a.skipOK = false
		a.skips = nil
		a.wSkips = nil
		return nil
	}
	if a.skips == nil {
		a.skips = sc.skipgrams
	} else {
		combined, err := a.skips.Combine(sc.skipgrams)
		if err != nil {
			return fmt.Errorf("source %s skipgrams: %w", src.ID, err)
		}
		a.skips = combined
	}
	addWeighted(a.wSkips, sc.skipgrams, share)
	return nil
}

func addWeighted(into map[int]map[string]float64, set *ngram.Set, share float64) {
	for n := 1; n <= set.MaxN(); n++ {
		m, ok := into[n]
		if !ok {
			m = make(map[string]float64)
			into[n] = m
		}
		for _, e := range set.Table(n).Entries() {
			m[e.Seq] += float64(e.Count) * share
		}
	}
}

func normalizeAll(weighted map[int]map[string]float64) map[string]ngram.FrequencyTable {
	out := make(map[string]ngram.FrequencyTable, len(weighted))
	for n, w := range weighted {
		out[strconv.Itoa(n)] = ngram.Normalize(w)
	}
	return out
}

// Build combines the recipe's sources into a report. Each source is
// filtered by its strip flags before it is added. Sources must share the
// same max n; skipgrams are kept only when every source has them.
func (b *Builder) Build(ctx context.Context, recipe *Recipe) (*Report, error) {
	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	var totalWeight float64
	for _, s := range recipe.Sources {
		totalWeight += s.Weight
	}
	logger := b.logger.With("report_id", recipe.Metadata.ID)

	acc := newAccumulator()
	for _, src := range recipe.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sc, err := b.loadSource(ctx, src)
		if err != nil {
			return nil, err
		}
		allow, err := src.AllowList()
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.ID, err)
		}
		before := tallyTotal(sc.ngrams)
		sc.ngrams = sc.ngrams.Filter(allow)
		if sc.skipgrams != nil {
			sc.skipgrams = sc.skipgrams.Filter(allow)
		}
		if b.metrics != nil {
			b.metrics.FilteredCharsTotal.Add(float64(tallyTotal(sc.ngrams) - before))
		}
		if err := acc.add(src, sc, src.Weight/totalWeight); err != nil {
			return nil, err
		}
		logger.Debug("source added", "source", src.ID, "type", src.Type, "weight", src.Weight)
	}
	if !acc.skipOK {
		logger.Warn("not every source has skipgram counts, report omits skipgrams")
	}

	r := &Report{
		Metadata: Metadata{
			ID:          recipe.Metadata.ID,
			Name:        recipe.Metadata.Name,
			Languages:   recipe.Metadata.Languages,
			Version:     recipe.Metadata.Version,
			Extra:       recipe.Metadata.Extra,
			ProcessDate: time.Now().UTC(),
		},
		Sources:     recipe.Sources,
		Counts:      acc.counts,
		Frequencies: normalizeAll(acc.weighted),
	}
	if acc.skipOK && acc.skips != nil {
		r.SkipgramCounts = acc.skips
		r.SkipgramFrequencies = normalizeAll(acc.wSkips)
	}
	logger.Info("report built", "sources", len(recipe.Sources), "max_n", r.Counts.MaxN())
	return r, nil
}

func (b *Builder) loadSource(ctx context.Context, src Source) (sourceCounts, error) {
	switch src.Type {
	case SourceAnalysis:
		a, err := b.analyses.Load(ctx, src.ID)
		if err != nil {
			return sourceCounts{}, fmt.Errorf("loading analysis %s: %w", src.ID, err)
		}
		return sourceCounts{ngrams: a.NGrams, skipgrams: a.Skipgrams}, nil
	case SourceReport:
		r, err := b.Load(src.ID)
		if err != nil {
			return sourceCounts{}, fmt.Errorf("loading report %s: %w", src.ID, err)
		}
		return sourceCounts{ngrams: r.Counts, skipgrams: r.SkipgramCounts}, nil
	default:
		return sourceCounts{}, apperrors.Newf(apperrors.ErrInvalidInput, 0, "source %s has unknown type %q", src.ID, src.Type)
	}
}

func tallyTotal(s *ngram.Set) int64 {
	var total int64
	for _, c := range s.FilteredChars() {
		total += c
	}
	return total
}

// Save stores the report under its metadata id.
func (b *Builder) Save(r *Report) error {
	if err := b.store.Save(store.KindReport, r.Metadata.ID, r); err != nil {
		return fmt.Errorf("storing report %s: %w", r.Metadata.ID, err)
	}
	return nil
}

// Load reads a stored report.
func (b *Builder) Load(id string) (*Report, error) {
	var r Report
	if err := b.store.Load(store.KindReport, id, &r); err != nil {
		return nil, err
	}
	if r.Counts == nil {
		return nil, apperrors.Newf(apperrors.ErrInternal, 0, "report %s has no counts", id)
	}
	return &r, nil
}

// List returns the ids of stored reports.
func (b *Builder) List() ([]string, error) {
	return b.store.List(store.KindReport)
}
