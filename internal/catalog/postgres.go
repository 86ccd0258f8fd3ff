package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/postgres"
)

// Postgres is a Catalog backed by PostgreSQL.
//
// It creates an `analyses` table on first use:
//
//	CREATE TABLE analyses (
//	    corpus_id  TEXT PRIMARY KEY,
//	    run_id     TEXT NOT NULL,
//	    ...
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type Postgres struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewPostgres wraps an open client and ensures the schema exists.
func NewPostgres(ctx context.Context, db *postgres.Client) (*Postgres, error) {
	c := &Postgres{
		db:     db,
		logger: slog.Default().With("component", "catalog-postgres"),
	}
	_, err := db.DB.ExecContext(ctx, `
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
		sentences  BIGINT NOT NULL,
		runes      BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("creating analyses table: %w", err)
	}
	return c, nil
}

func (c *Postgres) Upsert(ctx context.Context, e Entry) error {
	return c.db.InTx(ctx, func(tx *sql.Tx) error {
		var previous string
		err := tx.QueryRowContext(ctx,
			`SELECT run_id FROM analyses WHERE corpus_id = $1 FOR UPDATE`, e.CorpusID,
		).Scan(&previous)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("locking catalog entry %s: %w", e.CorpusID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO analyses (`+columns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (corpus_id) DO UPDATE SET
				run_id = EXCLUDED.run_id,
				name = EXCLUDED.name,
				language = EXCLUDED.language,
				license = EXCLUDED.license,
				source_url = EXCLUDED.source_url,
				hash = EXCLUDED.hash,
				max_n = EXCLUDED.max_n,
				skipgrams = EXCLUDED.skipgrams,
				sentences = EXCLUDED.sentences,
				runes = EXCLUDED.runes,
				created_at = EXCLUDED.created_at`,
			e.CorpusID, e.RunID, e.Name, e.Language, e.License, e.SourceURL, e.Hash,
			e.MaxN, e.Skipgrams, e.Sentences, e.Runes, e.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting catalog entry %s: %w", e.CorpusID, err)
		}
		c.logger.Info("catalog entry upserted",
			"corpus_id", e.CorpusID,
			"run_id", e.RunID,
			"replaced_run_id", previous,
		)
		return nil
	})
}

func (c *Postgres) Get(ctx context.Context, corpusID string) (*Entry, error) {
	row := c.db.DB.QueryRowContext(ctx, `SELECT `+columns+` FROM analyses WHERE corpus_id = $1`, corpusID)
	e, err := scanPostgres(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 0, "corpus %q is not in the catalog", corpusID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog entry %s: %w", corpusID, err)
	}
	return e, nil
}

func (c *Postgres) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.DB.QueryContext(ctx, `SELECT `+columns+` FROM analyses ORDER BY corpus_id`)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	return collect(rows, scanPostgres)
}

func (c *Postgres) Ping(ctx context.Context) error {
	return c.db.Ping(ctx)
}

func (c *Postgres) Close() error {
	return c.db.Close()
}

func scanPostgres(row rowScanner) (*Entry, error) {
	var created time.Time
	return scanEntry(row, &created, func() (time.Time, error) {
		return created, nil
	})
}
