// Package export converts analyses and reports into formats consumed by
// other tools.
package export

import (
	"fmt"
	"maps"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/report"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

// Format names, also used as the export directory under the data dir.
const (
	FormatOxeylyzer = "oxeylyzer"
	FormatCorpus    = "corpus"
)

// Oxeylyzer is the language data file read by the oxeylyzer layout
// analyser.
type Oxeylyzer struct {
	Language   string               `json:"language"`
	Characters ngram.FrequencyTable `json:"characters"`
	Bigrams    ngram.FrequencyTable `json:"bigrams"`
	Trigrams   ngram.FrequencyTable `json:"trigrams"`
	Skipgrams  ngram.FrequencyTable `json:"skipgrams"`
	Skipgrams2 ngram.FrequencyTable `json:"skipgrams2"`
	Skipgrams3 ngram.FrequencyTable `json:"skipgrams3"`
}

// NewOxeylyzer builds oxeylyzer data from a report. The report needs
// n-grams up to length 3 and skipgrams up to distance 3.
func NewOxeylyzer(r *report.Report) (*Oxeylyzer, error) {
	out := &Oxeylyzer{Language: r.Metadata.ID}
	ngrams := []*ngram.FrequencyTable{&out.Characters, &out.Bigrams, &out.Trigrams}
	for i, dst := range ngrams {
		t, ok := r.NGrams(i + 1)
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0,
				"report %s has no %d-gram frequencies (oxeylyzer needs n=3)", r.Metadata.ID, i+1)
		}
		*dst = t
	}
	skips := []*ngram.FrequencyTable{&out.Skipgrams, &out.Skipgrams2, &out.Skipgrams3}
	for i, dst := range skips {
		t, ok := r.Skipgrams(i + 1)
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0,
				"report %s has no %d-skipgram frequencies (oxeylyzer needs k=3)", r.Metadata.ID, i+1)
		}
		*dst = t
	}
	return out, nil
}

// CorpusRecord publishes an analysis as a corpus record. Unset source
// fields fall back to the analysis provenance, with the source version
// derived from the source date. Sequences with characters outside allow
// are dropped before normalizing.
func CorpusRecord(a *analysis.Analysis, meta corpus.Meta, allow ngram.CharSet) (*corpus.Corpus, error) {
	if meta.ID == "" {
		meta.ID = a.CorpusID
	}
	if meta.Source.URL == "" {
		meta.Source.URL = a.Source.OriginURL
	}
	if meta.Source.Name == "" {
		meta.Source.Name = a.Source.OriginName
	}
	if meta.Source.License == "" {
		meta.Source.License = a.Source.License
	}
	if meta.Source.Version == "" && !a.Source.Date.IsZero() {
		d := a.Source.Date
		meta.Source.Version = fmt.Sprintf("%d.%d.%d", d.Year(), d.Month(), d.Day())
	}
	meta.ExtraMetadata = maps.Clone(meta.ExtraMetadata)
	if meta.ExtraMetadata == nil {
		meta.ExtraMetadata = map[string]any{}
	}
	meta.ExtraMetadata["run_id"] = a.ID
	meta.ExtraMetadata["hash"] = a.Source.Hash
	return corpus.NewCorpus(meta, a.NGrams.Filter(allow).Frequencies())
}

// Save writes an export document under its format.
func Save(st *store.Store, format, id string, v any) (string, error) {
	kind := store.ExportKind(format)
	if err := st.Save(kind, id, v); err != nil {
		return "", fmt.Errorf("storing %s export %s: %w", format, id, err)
	}
	return st.Path(kind, id), nil
}
