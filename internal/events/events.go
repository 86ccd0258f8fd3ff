// Package events carries analysis notifications over Kafka. Only completion
// notices travel on the topic; counts and texts stay in the store.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/resilience"
)

// TypeAnalysisCompleted is the event-type header value for AnalysisCompleted.
const TypeAnalysisCompleted = "analysis.completed"

// AnalysisCompleted is published after an analysis has been stored and
// catalogued.
type AnalysisCompleted struct {
	CorpusID    string    `json:"corpus_id"`
	RunID       string    `json:"run_id"`
	Hash        string    `json:"hash"`
	MaxN        int       `json:"max_n"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher announces completed analyses.
type Publisher interface {
	PublishAnalysisCompleted(ctx context.Context, evt AnalysisCompleted) error
}

// KafkaPublisher publishes events keyed by corpus id so all notices for one
// corpus land on the same partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	metrics  *metrics.Metrics
}

// NewKafkaPublisher wraps producer. m may be nil.
func NewKafkaPublisher(producer *kafka.Producer, m *metrics.Metrics) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, metrics: m}
}

func (p *KafkaPublisher) PublishAnalysisCompleted(ctx context.Context, evt AnalysisCompleted) error {
	err := resilience.Retry(ctx, "publish-analysis-completed", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		return p.producer.Publish(ctx, kafka.Event{
			Key:   evt.CorpusID,
			Type:  TypeAnalysisCompleted,
			Value: evt,
		})
	})
	status := "ok"
	if err != nil {
		status = "failed"
	}
	if p.metrics != nil {
		p.metrics.EventsPublishedTotal.WithLabelValues(status).Inc()
	}
	if err != nil {
		return fmt.Errorf("publishing completion of %s: %w", evt.CorpusID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Invalidator drops cached data derived from a corpus.
type Invalidator interface {
	Invalidate(ctx context.Context, corpusID string) (int64, error)
}

// HandleAnalysisCompleted returns the consumer handler that invalidates
// cached frequencies whenever a corpus is re-analysed.
func HandleAnalysisCompleted(inv Invalidator) kafka.MessageHandler {
	logger := slog.Default().With("component", "analysis-events")
	return kafka.JSONHandler(func(ctx context.Context, key string, evt AnalysisCompleted) error {
		if evt.CorpusID == "" {
			logger.Warn("ignoring event without corpus id", "key", key)
			return nil
		}
		removed, err := inv.Invalidate(ctx, evt.CorpusID)
		if err != nil {
			return fmt.Errorf("invalidating cache for %s: %w", evt.CorpusID, err)
		}
		logger.Info("cache invalidated after analysis",
			"corpus_id", evt.CorpusID,
			"run_id", evt.RunID,
			"keys_removed", removed,
		)
		return nil
	})
}
