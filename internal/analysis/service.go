package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/language"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/events"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/shard"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/tracing"
)

// Request describes one archive to analyse.
type Request struct {
	ArchivePath string
	// CorpusID defaults to the archive name without extension.
	CorpusID string
	// Name defaults to CorpusID.
	Name string
	// Force re-counts even when the archive hash is unchanged.
	Force     bool
	MaxN      int
	Skipgrams int
	Lower     bool
	Language  string
	Shards    int
	Source    Source
}

// Result reports what AnalyseArchive did.
type Result struct {
	Analysis *Analysis
	// Skipped is set when an up-to-date analysis already existed.
	Skipped bool
}

// Service runs and loads analyses.
type Service struct {
	store          *store.Store
	catalog        catalog.Catalog
	publisher      events.Publisher
	metrics        *metrics.Metrics
	catalogTimeout time.Duration
	logger         *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

// WithPublisher announces completed analyses.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCatalogTimeout bounds each catalog call.
func WithCatalogTimeout(d time.Duration) Option {
	return func(s *Service) { s.catalogTimeout = d }
}

func NewService(st *store.Store, cat catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		store:          st,
		catalog:        cat,
		catalogTimeout: 5 * time.Second,
		logger:         slog.Default().With("component", "analysis"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyseArchive counts a Wortschatz archive and stores the result.
func (s *Service) AnalyseArchive(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.CorpusID == "" {
		req.CorpusID = CorpusIDFromPath(req.ArchivePath)
	}
	logger := s.logger.With("corpus_id", req.CorpusID, "archive", req.ArchivePath)

	ctx, span := tracing.Start(ctx, "analyse-archive", "corpus_id", req.CorpusID)
	defer s.finish(span)

	_, digest := tracing.Start(ctx, "digest")
	hash, err := corpus.Digest(req.ArchivePath)
	digest.End()
	if err != nil {
		s.observe("failed", start)
		return nil, fmt.Errorf("hashing archive: %w", err)
	}

	if !req.Force {
		tag, err := parseLanguage(req.Language)
		if err != nil {
			s.observe("failed", start)
			return nil, err
		}
		existing, err := s.Load(ctx, req.CorpusID)
		switch {
		case err == nil && existing.Source.Hash == hash && existing.Metadata.sameSettings(req, tag):
			logger.Info("archive unchanged, skipping analysis", "hash", hash, "run_id", existing.ID)
			s.observe("skipped", start)
			return &Result{Analysis: existing, Skipped: true}, nil
		case err == nil && existing.Source.Hash == hash:
			logger.Info("analysis settings changed, re-analysing",
				"run_id", existing.ID,
				"max_n", req.MaxN, "previous_max_n", existing.Metadata.MaxN,
				"skipgrams", req.Skipgrams, "previous_skipgrams", existing.Metadata.Skipgrams,
				"lower", req.Lower, "previous_lower", existing.Metadata.Lower,
				"language", tag.String(), "previous_language", existing.Metadata.Language,
			)
		case err != nil && !apperrors.Is(err, apperrors.ErrNotFound):
			logger.Warn("could not read previous analysis, re-analysing", "error", err)
		}
	}

	_, read := tracing.Start(ctx, "read")
	sentences, err := corpus.LoadWortschatzArchive(req.ArchivePath)
	read.End()
	if err != nil {
		s.observe("failed", start)
		return nil, fmt.Errorf("loading archive: %w", err)
	}
	logger.Info("archive loaded", "sentences", len(sentences), "hash", hash)
	span.Set("sentences", len(sentences))

	a, err := s.Analyse(ctx, req, hash, sentences)
	if err != nil {
		s.observe("failed", start)
		return nil, err
	}
	s.observe("completed", start)
	return &Result{Analysis: a}, nil
}

// Analyse counts texts for req and stores the result. hash identifies the
// input and is recorded on the analysis.
func (s *Service) Analyse(ctx context.Context, req Request, hash string, texts []string) (*Analysis, error) {
	ctx, span := tracing.Start(ctx, "analyse", "shards", req.Shards)
	if span.Root() {
		defer s.finish(span)
	} else {
		defer span.End()
	}

	tag, err := parseLanguage(req.Language)
	if err != nil {
		return nil, err
	}
	if req.Shards < 1 {
		req.Shards = 1
	}
	exec, err := shard.New(req.Shards, ngram.Options{
		MaxN:      req.MaxN,
		Skipgrams: req.Skipgrams,
		Lower:     req.Lower,
		Language:  tag,
	}, s.metrics)
	if err != nil {
		return nil, err
	}
	cctx, count := tracing.Start(ctx, "count")
	res, err := exec.Run(cctx, texts)
	count.End()
	if err != nil {
		return nil, fmt.Errorf("counting %s: %w", req.CorpusID, err)
	}

	src := req.Source
	if src.OriginID == "" {
		src = WortschatzSource()
	}
	src.Hash = hash
	now := time.Now().UTC()
	if src.Date.IsZero() {
		src.Date = now
	}
	a := &Analysis{
		ID:       ulid.Make().String(),
		CorpusID: req.CorpusID,
		Source:   src,
		Metadata: Metadata{
			Date:      now,
			MaxN:      req.MaxN,
			Skipgrams: req.Skipgrams,
			Lower:     req.Lower,
			Language:  tag.String(),
			Shards:    res.Shards,
			Duration:  res.Duration.String(),
		},
		Sentences: res.Texts,
		Runes:     res.Runes,
		NGrams:    res.NGrams,
		Skipgrams: res.Skipgrams,
	}

	span.Set("run_id", a.ID)
	_, save := tracing.Start(ctx, "store")
	err = s.store.Save(store.KindAnalysis, a.CorpusID, a)
	save.End()
	if err != nil {
		return nil, fmt.Errorf("storing analysis: %w", err)
	}

	name := req.Name
	if name == "" {
		name = req.CorpusID
	}
	cat, catSpan := tracing.Start(ctx, "catalog")
	err = resilience.WithTimeout(cat, s.catalogTimeout, "catalog-upsert", func(ctx context.Context) error {
		return s.catalog.Upsert(ctx, a.CatalogEntry(name, tag.String()))
	})
	catSpan.End()
	if err != nil {
		return nil, fmt.Errorf("cataloguing analysis: %w", err)
	}

	if s.publisher != nil {
		evt := events.AnalysisCompleted{
			CorpusID:    a.CorpusID,
			RunID:       a.ID,
			Hash:        hash,
			MaxN:        a.Metadata.MaxN,
			CompletedAt: time.Now().UTC(),
		}
		pctx, publish := tracing.Start(ctx, "publish")
		err := s.publisher.PublishAnalysisCompleted(pctx, evt)
		publish.End()
		if err != nil {
			s.logger.Warn("analysis stored but completion event not published",
				"corpus_id", a.CorpusID, "error", err)
		}
	}

	s.logger.Info("analysis stored",
		"corpus_id", a.CorpusID,
		"run_id", a.ID,
		"sentences", a.Sentences,
		"runes", a.Runes,
		"duration", res.Duration,
	)
	return a, nil
}

// Load reads a stored analysis.
func (s *Service) Load(ctx context.Context, corpusID string) (*Analysis, error) {
	var a Analysis
	if err := s.store.Load(store.KindAnalysis, corpusID, &a); err != nil {
		return nil, err
	}
	if a.NGrams == nil {
		return nil, apperrors.Newf(apperrors.ErrInternal, 0, "analysis %s has no n-gram counts", corpusID)
	}
	return &a, nil
}

// List returns the catalog.
func (s *Service) List(ctx context.Context) ([]catalog.Entry, error) {
	var entries []catalog.Entry
	err := resilience.WithTimeout(ctx, s.catalogTimeout, "catalog-list", func(ctx context.Context) error {
		var err error
		entries, err = s.catalog.List(ctx)
		return err
	})
	return entries, err
}

// Entry returns the catalog entry for corpusID.
func (s *Service) Entry(ctx context.Context, corpusID string) (*catalog.Entry, error) {
	var entry *catalog.Entry
	err := resilience.WithTimeout(ctx, s.catalogTimeout, "catalog-get", func(ctx context.Context) error {
		var err error
		entry, err = s.catalog.Get(ctx, corpusID)
		return err
	})
	return entry, err
}

// parseLanguage resolves a BCP 47 tag; an empty string is undetermined.
func parseLanguage(s string) (language.Tag, error) {
	if s == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, apperrors.Newf(apperrors.ErrInvalidInput, 0, "language %q: %v", s, err)
	}
	return tag, nil
}

// finish closes a root span and logs its phase tree at debug level.
func (s *Service) finish(span *tracing.Span) {
	span.End()
	span.Log(s.logger, slog.LevelDebug)
}

func (s *Service) observe(status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.AnalysesTotal.WithLabelValues(status).Inc()
	if status == "completed" {
		s.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}
}
