// Package catalog indexes stored analyses so they can be listed and looked
// up without reading every analysis document. Two backends exist: SQLite for
// local command-line use and PostgreSQL for the shared API server.
package catalog

import (
	"context"
	"database/sql"
	"time"
)

// Entry summarises one stored analysis.
type Entry struct {
	CorpusID  string    `json:"corpus_id"`
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	License   string    `json:"license"`
	SourceURL string    `json:"source_url"`
	Hash      string    `json:"hash"`
	MaxN      int       `json:"max_n"`
	Skipgrams int       `json:"skipgrams"`
	Sentences int64     `json:"sentences"`
	Runes     int64     `json:"runes"`
	CreatedAt time.Time `json:"created_at"`
}

// Catalog stores one Entry per corpus id. Upsert replaces an existing entry.
type Catalog interface {
	Upsert(ctx context.Context, e Entry) error
	Get(ctx context.Context, corpusID string) (*Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Ping(ctx context.Context) error
	Close() error
}

const columns = `corpus_id, run_id, name, language, license, source_url, hash, max_n, skipgrams, sentences, runes, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads a row selected with columns. created is the backend
// specific destination for created_at; parse converts it.
func scanEntry(row rowScanner, created any, parse func() (time.Time, error)) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.CorpusID, &e.RunID, &e.Name, &e.Language, &e.License, &e.SourceURL,
		&e.Hash, &e.MaxN, &e.Skipgrams, &e.Sentences, &e.Runes, created)
	if err != nil {
		return nil, err
	}
	ts, err := parse()
	if err != nil {
		return nil, err
	}
	e.CreatedAt = ts.UTC()
	return &e, nil
}

func collect(rows *sql.Rows, scan func(rowScanner) (*Entry, error)) ([]Entry, error) {
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
