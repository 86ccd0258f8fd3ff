package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/report"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

func table(pairs ...any) ngram.FrequencyTable {
	var out ngram.FrequencyTable
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, ngram.Frequency{Seq: pairs[i].(string), Value: pairs[i+1].(float64)})
	}
	return out
}

func fullReport() *report.Report {
	return &report.Report{
		Metadata: report.Metadata{ID: "english"},
		Frequencies: map[string]ngram.FrequencyTable{
			"1": table("e", 0.6, "t", 0.4),
			"2": table("th", 1.0),
			"3": table("the", 1.0),
		},
		SkipgramFrequencies: map[string]ngram.FrequencyTable{
			"1": table("te", 1.0),
			"2": table("tx", 1.0),
			"3": {},
		},
	}
}

func TestNewOxeylyzer(t *testing.T) {
	ox, err := NewOxeylyzer(fullReport())
	if err != nil {
		t.Fatal(err)
	}
	if ox.Language != "english" || len(ox.Characters) != 2 || ox.Trigrams[0].Seq != "the" {
		t.Errorf("oxeylyzer = %+v", ox)
	}
	data, err := json.Marshal(ox)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{`"language":"english"`, `"characters":{"e":0.6,"t":0.4}`, `"skipgrams3":{}`} {
		if !strings.Contains(got, want) {
			t.Errorf("json %s missing %s", got, want)
		}
	}
}

func TestNewOxeylyzerMissingLength(t *testing.T) {
	r := fullReport()
	delete(r.Frequencies, "3")
	if _, err := NewOxeylyzer(r); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("missing trigrams err = %v", err)
	}

	r = fullReport()
	r.SkipgramFrequencies = nil
	if _, err := NewOxeylyzer(r); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("missing skipgrams err = %v", err)
	}
}

func sampleAnalysis(t *testing.T) *analysis.Analysis {
	t.Helper()
	acc, err := ngram.NewAccumulator(ngram.Options{MaxN: 2})
	if err != nil {
		t.Fatal(err)
	}
	acc.Ingest("ab, ab")
	src := analysis.WortschatzSource()
	src.Date = time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)
	src.Hash = "ABC"
	return &analysis.Analysis{ID: "01RUN", CorpusID: "eng_test", Source: src, NGrams: acc.NGrams()}
}

func TestCorpusRecord(t *testing.T) {
	a := sampleAnalysis(t)
	extra := map[string]any{"note": "x"}
	allow, err := ngram.AllowListFromGroups([]string{"latin"})
	if err != nil {
		t.Fatal(err)
	}
	c, err := CorpusRecord(a, corpus.Meta{Name: "English test", Language: "en", Version: "1.0.0", ExtraMetadata: extra}, allow)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != "eng_test" || c.Source.Version != "2024.3.7" || c.Source.URL != a.Source.OriginURL {
		t.Errorf("corpus = %+v", c)
	}
	if c.ExtraMetadata["run_id"] != "01RUN" || c.ExtraMetadata["note"] != "x" {
		t.Errorf("extra metadata = %v", c.ExtraMetadata)
	}
	if _, ok := extra["run_id"]; ok {
		t.Error("caller's extra metadata was modified")
	}
	bigrams := c.NGrams["2"]
	if len(bigrams) != 1 || bigrams[0].Seq != "ab" || bigrams[0].Value != 1 {
		t.Errorf("bigrams = %v, want only ab", bigrams)
	}
}

func TestCorpusRecordInvalidMeta(t *testing.T) {
	_, err := CorpusRecord(sampleAnalysis(t), corpus.Meta{Name: "x", Language: "en", Version: "1.0"}, ngram.DefaultAllowList())
	if !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSave(t *testing.T) {
	st := store.New(t.TempDir())
	path, err := Save(st, FormatOxeylyzer, "english", map[string]string{"language": "english"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "export/oxeylyzer/english.json") {
		t.Errorf("path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}
