// Package cache keeps computed frequency tables in Redis, keyed by corpus,
// table kind, length and allow-list.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/resilience"
)

const keyPrefix = "freq:"

// Table kinds.
const (
	KindNGram    = "ngram"
	KindSkipgram = "skipgram"
)

// Backend is the subset of the Redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats counts lookups since the cache was created.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// FrequencyCache caches frequency tables. A failing backend degrades to
// computing every request; after repeated failures the backend is skipped
// until a breaker cooldown passes.
type FrequencyCache struct {
	backend Backend
	ttl     time.Duration
	metrics *metrics.Metrics
	breaker *resilience.Breaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *FrequencyCache {
	return &FrequencyCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		breaker: resilience.NewBreaker("frequency-cache", resilience.BreakerConfig{}),
		logger:  slog.Default().With("component", "frequency-cache"),
	}
}

// Key builds the cache key for one table.
func Key(corpusID, kind string, n int, allow ngram.CharSet) string {
	return fmt.Sprintf("%s%s:%s:%d:%016x", keyPrefix, corpusID, kind, n, xxhash.Sum64String(allow.String()))
}

func (c *FrequencyCache) get(ctx context.Context, key string) (ngram.FrequencyTable, bool) {
	var data []byte
	miss := false
	err := c.breaker.Do(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			miss = true
			return nil
		}
		return err
	})
	switch {
	case errors.Is(err, resilience.ErrBreakerOpen):
		return nil, false
	case err != nil:
		c.logger.Error("cache get failed", "key", key, "error", err)
		return nil, false
	case miss:
		return nil, false
	}
	var table ngram.FrequencyTable
	if err := json.Unmarshal(data, &table); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return table, true
}

func (c *FrequencyCache) set(ctx context.Context, key string, table ngram.FrequencyTable) {
	data, err := json.Marshal(table)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrBreakerOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached table for key, or computes, stores and
// returns it. Concurrent misses for the same key share one computation.
// The bool reports a cache hit.
func (c *FrequencyCache) GetOrCompute(
	ctx context.Context,
	key string,
	computeFn func() (ngram.FrequencyTable, error),
) (ngram.FrequencyTable, bool, error) {
	if table, ok := c.get(ctx, key); ok {
		c.recordHit(key)
		return table, true, nil
	}
	c.recordMiss()
	val, err, _ := c.group.Do(key, func() (any, error) {
		if table, ok := c.get(ctx, key); ok {
			return table, nil
		}
		table, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, table)
		return table, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(ngram.FrequencyTable), false, nil
}

// Invalidate drops every cached table of a corpus and returns the number of
// keys removed.
func (c *FrequencyCache) Invalidate(ctx context.Context, corpusID string) (int64, error) {
	pattern := keyPrefix + escapeGlob(corpusID) + ":*"
	deleted, err := c.backend.FlushByPattern(ctx, pattern)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache for %s: %w", corpusID, err)
	}
	c.logger.Info("cache invalidated", "corpus_id", corpusID, "keys_deleted", deleted)
	return deleted, nil
}

// InvalidateAll drops every cached table.
func (c *FrequencyCache) InvalidateAll(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// escapeGlob quotes the characters Redis MATCH treats as wildcards so an id
// only ever matches itself.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Stats returns hit and miss counts since the cache was created.
func (c *FrequencyCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *FrequencyCache) recordHit(key string) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key)
}

func (c *FrequencyCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
