// Package shard counts n-grams over a corpus in parallel. Texts are routed to
// shards by hash, each shard owns an independent accumulator, and the shard
// sets are reduced with Set.Combine once every shard has finished.
package shard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/metrics"
)

// Result is the reduced output of a sharded run.
type Result struct {
	NGrams    *ngram.Set
	Skipgrams *ngram.Set
	Texts     int64
	Runes     int64
	Shards    int
	Duration  time.Duration
}

// Executor fans texts out across a fixed number of shards.
type Executor struct {
	shards  int
	opts    ngram.Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Executor. m may be nil.
func New(shards int, opts ngram.Options, m *metrics.Metrics) (*Executor, error) {
	if shards < 1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0, "shard count must be at least 1, got %d", shards)
	}
	if opts.MaxN < 1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0, "max n must be at least 1, got %d", opts.MaxN)
	}
	return &Executor{
		shards:  shards,
		opts:    opts,
		metrics: m,
		logger:  slog.Default().With("component", "shard-executor"),
	}, nil
}

// Assign returns the shard that owns text.
func (e *Executor) Assign(text string) int {
	return int(xxhash.Sum64String(text) % uint64(e.shards))
}

// Run counts every text and returns the combined sets. The result is
// independent of the shard count.
func (e *Executor) Run(ctx context.Context, texts []string) (*Result, error) {
	start := time.Now()
	buckets := make([][]string, e.shards)
	for _, text := range texts {
		id := e.Assign(text)
		buckets[id] = append(buckets[id], text)
	}

	accs := make([]*ngram.Accumulator, e.shards)
	g, gctx := errgroup.WithContext(ctx)
	for id, bucket := range buckets {
		acc, err := ngram.NewAccumulator(e.opts)
		if err != nil {
			return nil, fmt.Errorf("creating accumulator for shard %d: %w", id, err)
		}
		accs[id] = acc
		g.Go(func() error {
			return e.runShard(gctx, id, acc, bucket)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Shards: e.shards}
	for id, acc := range accs {
		res.Texts += acc.Texts()
		res.Runes += acc.Runes()
		if id == 0 {
			res.NGrams = acc.NGrams()
			res.Skipgrams = acc.Skipgrams()
			continue
		}
		merged, err := res.NGrams.Combine(acc.NGrams())
		if err != nil {
			return nil, fmt.Errorf("combining shard %d: %w", id, err)
		}
		res.NGrams = merged
		if res.Skipgrams != nil {
			mergedSkip, err := res.Skipgrams.Combine(acc.Skipgrams())
			if err != nil {
				return nil, fmt.Errorf("combining skipgrams of shard %d: %w", id, err)
			}
			res.Skipgrams = mergedSkip
		}
	}
	res.Duration = time.Since(start)

	e.logger.Info("sharded count finished",
		"shards", e.shards,
		"texts", res.Texts,
		"runes", res.Runes,
		"duration", res.Duration,
	)
	return res, nil
}

func (e *Executor) runShard(ctx context.Context, id int, acc *ngram.Accumulator, texts []string) error {
	start := time.Now()
	for i, text := range texts {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("shard %d cancelled after %d texts: %w", id, i, err)
			}
		}
		acc.Ingest(text)
	}
	if e.metrics != nil {
		e.metrics.TextsIngestedTotal.Add(float64(acc.Texts()))
		e.metrics.RunesIngestedTotal.Add(float64(acc.Runes()))
		e.metrics.ShardDuration.WithLabelValues(strconv.Itoa(id)).Observe(time.Since(start).Seconds())
	}
	e.logger.Debug("shard finished", "shard_id", id, "texts", len(texts), "runes", acc.Runes())
	return nil
}
