package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

// SQLite is a file-backed Catalog.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens or creates the catalog database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	c := &SQLite{
		db:     db,
		logger: slog.Default().With("component", "catalog-sqlite"),
	}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}
	return c, nil
}

func (c *SQLite) migrate() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS analyses (
		corpus_id  TEXT PRIMARY KEY,
		run_id     TEXT NOT NULL,
		name       TEXT NOT NULL,
		language   TEXT NOT NULL,
		license    TEXT NOT NULL,
		source_url TEXT NOT NULL,
		hash       TEXT NOT NULL,
		max_n      INTEGER NOT NULL,
		skipgrams  INTEGER NOT NULL,
		sentences  INTEGER NOT NULL,
		runes      INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC);
	`)
	return err
}

func (c *SQLite) Upsert(ctx context.Context, e Entry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO analyses (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (corpus_id) DO UPDATE SET
			run_id = excluded.run_id,
			name = excluded.name,
			language = excluded.language,
			license = excluded.license,
			source_url = excluded.source_url,
			hash = excluded.hash,
			max_n = excluded.max_n,
			skipgrams = excluded.skipgrams,
			sentences = excluded.sentences,
			runes = excluded.runes,
			created_at = excluded.created_at`,
		e.CorpusID, e.RunID, e.Name, e.Language, e.License, e.SourceURL, e.Hash,
		e.MaxN, e.Skipgrams, e.Sentences, e.Runes, e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting catalog entry %s: %w", e.CorpusID, err)
	}
	c.logger.Debug("catalog entry upserted", "corpus_id", e.CorpusID, "run_id", e.RunID)
	return nil
}

func (c *SQLite) Get(ctx context.Context, corpusID string) (*Entry, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+columns+` FROM analyses WHERE corpus_id = ?`, corpusID)
	e, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 0, "corpus %q is not in the catalog", corpusID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog entry %s: %w", corpusID, err)
	}
	return e, nil
}

func (c *SQLite) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+columns+` FROM analyses ORDER BY corpus_id`)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	return collect(rows, scanSQLite)
}

func (c *SQLite) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *SQLite) Close() error {
	return c.db.Close()
}

func scanSQLite(row rowScanner) (*Entry, error) {
	var created string
	return scanEntry(row, &created, func() (time.Time, error) {
		return time.Parse(time.RFC3339Nano, created)
	})
}
