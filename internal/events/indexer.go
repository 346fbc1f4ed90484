package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"blog-service/internal/models"
	"blog-service/internal/search"
	"blog-service/internal/util"
)

// Consumer is satisfied by *client.KafkaConsumer.
type Consumer interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessage(ctx context.Context, msg kafka.Message) error
}

// SearchIndex is satisfied by *search.BlogIndex.
type SearchIndex interface {
	Index(ctx context.Context, doc search.BlogDocument) error
	Delete(ctx context.Context, blogID string) error
}

// Indexer applies blog events to the search index.
type Indexer struct {
	consumer Consumer
	index    SearchIndex
	backoff  time.Duration
}

func NewIndexer(c Consumer, idx SearchIndex) *Indexer {
	return &Indexer{consumer: c, index: idx, backoff: time.Second}
}

// Run consumes until ctx is cancelled. A message is committed once it has
// been applied or found irrelevant; failed applications are retried.
func (i *Indexer) Run(ctx context.Context) error {
	util.Info("Search indexer started")
	for {
		msg, err := i.consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				util.Info("Search indexer stopped")
				return nil
			}
			util.Warn("Search indexer fetch failed", zap.Error(err))
			if !sleep(ctx, i.backoff) {
				return nil
			}
			continue
		}

		for {
			err := i.Apply(ctx, msg.Value)
			if err == nil {
				break
			}
			util.Warn("Search indexer apply failed",
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			if !sleep(ctx, i.backoff) {
				return nil
			}
		}

		if err := i.consumer.CommitMessage(ctx, msg); err != nil && ctx.Err() == nil {
			util.Warn("Search indexer commit failed", zap.Error(err))
		}
	}
}

// Apply handles one encoded event. Undecodable and unrelated events are
// skipped.
func (i *Indexer) Apply(ctx context.Context, value []byte) error {
	var evt models.DomainEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		util.Warn("Skipping undecodable event", zap.Error(err))
		return nil
	}

	switch evt.Type {
	case models.EventBlogCreated, models.EventBlogUpdated:
		doc := search.BlogDocument{
			BlogID:      evt.Key,
			UserID:      evt.ActorID,
			Description: evt.Attributes["description"],
			CreatedAt:   evt.OccurredAt,
		}
		if ts, err := time.Parse(time.RFC3339Nano, evt.Attributes["created_at"]); err == nil {
			doc.CreatedAt = ts
		}
		return i.index.Index(ctx, doc)
	case models.EventBlogDeleted:
		return i.index.Delete(ctx, evt.Key)
	default:
		return nil
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
