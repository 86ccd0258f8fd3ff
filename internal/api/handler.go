// Package api serves stored analyses and their frequency tables over HTTP.
package api

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/logger"
)

const (
	defaultLimit = 100
	maxLimit     = 10000
)

// Analyses is the read side of the analysis service.
type Analyses interface {
	Load(ctx context.Context, corpusID string) (*analysis.Analysis, error)
	List(ctx context.Context) ([]catalog.Entry, error)
	Entry(ctx context.Context, corpusID string) (*catalog.Entry, error)
}

type Handler struct {
	analyses      Analyses
	cache         *cache.FrequencyCache
	defaultGroups []string
	logger        *slog.Logger
}

// New creates a handler. freqCache may be nil to disable caching.
// defaultGroups is the allow-list used when a request names none.
func New(analyses Analyses, freqCache *cache.FrequencyCache, defaultGroups []string) *Handler {
	return &Handler{
		analyses:      analyses,
		cache:         freqCache,
		defaultGroups: defaultGroups,
		logger:        slog.Default().With("component", "api-handler"),
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/corpora", h.ListCorpora)
	mux.HandleFunc("GET /api/v1/corpora/{id}", h.GetCorpus)
	mux.HandleFunc("GET /api/v1/corpora/{id}/frequencies", h.Frequencies)
	mux.HandleFunc("GET /api/v1/corpora/{id}/filtered", h.Filtered)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) ListCorpora(w http.ResponseWriter, r *http.Request) {
	entries, err := h.analyses.List(r.Context())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"corpora": entries, "total": len(entries)})
}

func (h *Handler) GetCorpus(w http.ResponseWriter, r *http.Request) {
	entry, err := h.analyses.Entry(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

// FrequencyResponse is returned by the frequencies endpoint.
type FrequencyResponse struct {
	CorpusID    string               `json:"corpus_id"`
	RunID       string               `json:"run_id"`
	Kind        string               `json:"kind"`
	N           int                  `json:"n"`
	Groups      []string             `json:"groups"`
	CacheHit    bool                 `json:"cache_hit"`
	Total       int                  `json:"total"`
	Frequencies ngram.FrequencyTable `json:"frequencies"`
}

// Frequencies serves one filtered frequency table.
//
// Query parameters: n (length or skip distance, default 1), kind (ngram or
// skipgram), limit (default 100, 0 for all), groups (comma separated).
func (h *Handler) Frequencies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	q := r.URL.Query()

	n, err := intParam(q.Get("n"), 1)
	if err != nil || n < 1 {
		h.writeError(w, http.StatusBadRequest, "n must be a positive integer")
		return
	}
	limit, err := intParam(q.Get("limit"), defaultLimit)
	if err != nil || limit < 0 {
		h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	limit = min(limit, maxLimit)
	kind := cmp.Or(q.Get("kind"), cache.KindNGram)
	if kind != cache.KindNGram && kind != cache.KindSkipgram {
		h.writeError(w, http.StatusBadRequest, "kind must be ngram or skipgram")
		return
	}
	groups := h.groups(q.Get("groups"))
	allow, err := ngram.AllowListFromGroups(groups)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	a, err := h.analyses.Load(ctx, id)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	set := a.NGrams
	if kind == cache.KindSkipgram {
		set = a.Skipgrams
	}
	if set == nil || set.Table(n) == nil {
		h.writeAppError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, 0,
			"corpus %s has no %s table for n=%d", id, kind, n))
		return
	}

	compute := func() (ngram.FrequencyTable, error) {
		kept, _ := set.Table(n).Filter(allow)
		return kept.Frequencies(), nil
	}
	var table ngram.FrequencyTable
	hit := false
	if h.cache != nil {
		// The run id keeps tables of a replaced analysis from being served
		// if an invalidation event is missed.
		key := cache.Key(id+":"+a.ID, kind, n, allow)
		table, hit, err = h.cache.GetOrCompute(ctx, key, compute)
	} else {
		table, err = compute()
	}
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	logger.FromContext(ctx).Debug("frequencies served",
		"corpus_id", id, "kind", kind, "n", n, "cache_hit", hit, "entries", len(table))
	out := table
	if limit > 0 {
		out = table.Top(limit)
	}
	h.writeJSON(w, http.StatusOK, FrequencyResponse{
		CorpusID:    id,
		RunID:       a.ID,
		Kind:        kind,
		N:           n,
		Groups:      groups,
		CacheHit:    hit,
		Total:       len(table),
		Frequencies: out,
	})
}

// FilteredChar is one entry of the filtered-character tally.
type FilteredChar struct {
	Char  string `json:"char"`
	Count int64  `json:"count"`
}

// Filtered reports which characters the given allow-list removes from the
// corpus, and how many distinct sequences each removal affected.
func (h *Handler) Filtered(w http.ResponseWriter, r *http.Request) {
	groups := h.groups(r.URL.Query().Get("groups"))
	allow, err := ngram.AllowListFromGroups(groups)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	a, err := h.analyses.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	tally := a.NGrams.Filter(allow).FilteredChars()
	chars := make([]FilteredChar, 0, len(tally))
	for c, n := range tally {
		chars = append(chars, FilteredChar{Char: string(c), Count: n})
	}
	slices.SortFunc(chars, func(x, y FilteredChar) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Char, y.Char)
	})
	h.writeJSON(w, http.StatusOK, map[string]any{
		"corpus_id": a.CorpusID,
		"groups":    groups,
		"filtered":  chars,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	stats := h.cache.Stats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate drops cached tables for ?corpus=<id>, or all of them.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	var deleted int64
	var err error
	if id := r.URL.Query().Get("corpus"); id != "" {
		deleted, err = h.cache.Invalidate(r.Context(), id)
	} else {
		deleted, err = h.cache.InvalidateAll(r.Context())
	}
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) groups(raw string) []string {
	if raw == "" {
		return h.defaultGroups
	}
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		h.writeError(w, status, http.StatusText(status))
		return
	}
	h.writeError(w, status, err.Error())
}
