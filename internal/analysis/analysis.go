// Package analysis turns corpus archives into stored n-gram analyses. It
// owns the pipeline digest, load, count, persist, catalog and notify.
package analysis

import (
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
)

// Source describes where the analysed text came from.
type Source struct {
	OriginID   string    `json:"origin_id"`
	OriginName string    `json:"origin_name"`
	OriginURL  string    `json:"origin_url"`
	License    string    `json:"license"`
	Date       time.Time `json:"date"`
	Hash       string    `json:"hash"`
}

// WortschatzSource is the provenance recorded for Wortschatz archives
// unless the caller overrides it.
func WortschatzSource() Source {
	return Source{
		OriginID:   "wortschatz",
		OriginName: "Deutsche Wortschatz by Institut fűr Informatik at Universität Leipzig",
		OriginURL:  "https://wortschatz.uni-leipzig.de/en",
		License:    "CC BY-NC",
	}
}

// Metadata records how the counts were produced.
type Metadata struct {
	Date      time.Time `json:"date"`
	MaxN      int       `json:"max_n"`
	Skipgrams int       `json:"skipgrams"`
	Lower     bool      `json:"lower"`
	Language  string    `json:"language"`
	Shards    int       `json:"shards"`
	Duration  string    `json:"duration"`
}

// sameSettings reports whether an analysis with these settings already
// answers req. Shard count does not affect the counts.
func (m Metadata) sameSettings(req Request, tag language.Tag) bool {
	return m.MaxN == req.MaxN &&
		m.Skipgrams == req.Skipgrams &&
		m.Lower == req.Lower &&
		m.Language == tag.String()
}

// Analysis is the stored result of counting one corpus. Counts are raw;
// filtering happens when frequencies are read.
type Analysis struct {
	ID        string     `json:"id"`
	CorpusID  string     `json:"corpus_id"`
	Source    Source     `json:"source"`
	Metadata  Metadata   `json:"metadata"`
	Sentences int64      `json:"sentences"`
	Runes     int64      `json:"runes"`
	NGrams    *ngram.Set `json:"ngrams"`
	Skipgrams *ngram.Set `json:"skipgrams,omitempty"`
}

// CatalogEntry summarises the analysis for the catalog.
func (a *Analysis) CatalogEntry(name, language string) catalog.Entry {
	return catalog.Entry{
		CorpusID:  a.CorpusID,
		RunID:     a.ID,
		Name:      name,
		Language:  language,
		License:   a.Source.License,
		SourceURL: a.Source.OriginURL,
		Hash:      a.Source.Hash,
		MaxN:      a.Metadata.MaxN,
		Skipgrams: a.Metadata.Skipgrams,
		Sentences: a.Sentences,
		Runes:     a.Runes,
		CreatedAt: a.Metadata.Date,
	}
}

// CorpusIDFromPath derives a corpus id from an archive file name, for
// example deu_news_2020_1M.tar.gz becomes deu_news_2020_1M.
func CorpusIDFromPath(path string) string {
	name := filepath.Base(path)
	for _, suffix := range []string{".tar.gz", ".tgz", ".gz", ".tar"} {
		if trimmed, ok := strings.CutSuffix(name, suffix); ok {
			return trimmed
		}
	}
	return name
}
