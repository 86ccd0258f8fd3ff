// Package store persists analyses, reports and exports as JSON documents
// under a data directory. Writes go to a .tmp file that is synced and renamed
// into place, so readers never observe a partial document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

// Document kinds.
const (
	KindAnalysis = "analysis"
	KindReport   = "report"
)

// ExportKind returns the kind for exports in the given format.
func ExportKind(format string) string {
	return filepath.Join("export", format)
}

const ext = ".json"

// Store reads and writes JSON documents by kind and id.
type Store struct {
	dataDir string
	logger  *slog.Logger
}

func New(dataDir string) *Store {
	return &Store{
		dataDir: dataDir,
		logger:  slog.Default().With("component", "store", "data_dir", dataDir),
	}
}

// Path returns the file path of a document.
func (s *Store) Path(kind, id string) string {
	return filepath.Join(s.dataDir, kind, id+ext)
}

// Save writes v as indented JSON, replacing any previous document.
func (s *Store) Save(kind, id string, v any) error {
	if err := validateID(id); err != nil {
		return err
	}
	dir := filepath.Join(s.dataDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	finalPath := s.Path(kind, id)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding %s %s: %w", kind, id, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into %s: %w", finalPath, err)
	}
	s.logger.Debug("document saved", "kind", kind, "id", id, "path", finalPath)
	return nil
}

// Load decodes the document into v. A missing document yields ErrNotFound.
func (s *Store) Load(kind, id string, v any) error {
	if err := validateID(id); err != nil {
		return err
	}
	f, err := os.Open(s.Path(kind, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperrors.Newf(apperrors.ErrNotFound, 0, "%s %q not found", kind, id)
		}
		return fmt.Errorf("opening %s %s: %w", kind, id, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decoding %s %s: %w", kind, id, err)
	}
	return nil
}

// Exists reports whether a document is present.
func (s *Store) Exists(kind, id string) bool {
	_, err := os.Stat(s.Path(kind, id))
	return err == nil
}

// List returns the ids stored under kind in ascending order.
func (s *Store) List(kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	slices.Sort(ids)
	return ids, nil
}

// Ping checks that the data directory is reachable.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dataDir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", s.dataDir)
	}
	return nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "invalid document id %q", id)
	}
	return nil
}
