package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/postgres"
)

// Open returns the catalog selected by cfg.Catalog.Driver. A relative SQLite
// path is resolved against the storage data directory.
func Open(ctx context.Context, cfg *config.Config) (Catalog, error) {
	switch cfg.Catalog.Driver {
	case "sqlite":
		path := cfg.Catalog.SQLitePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Storage.DataDir, path)
		}
		return OpenSQLite(path)
	case "postgres":
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting catalog: %w", apperrors.New(apperrors.ErrUnavailable, 0, err.Error()))
		}
		c, err := NewPostgres(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return c, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0, "unknown catalog driver %q", cfg.Catalog.Driver)
	}
}
