// Package events publishes domain events to Kafka and consumes them to
// keep the search index current.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog-service/internal/models"
	"blog-service/internal/util"
)

type Publisher interface {
	Publish(ctx context.Context, evt models.DomainEvent) error
}

// Producer is satisfied by *client.KafkaProducer.
type Producer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// New stamps an event with a fresh id and the current time.
func New(eventType, key, actorID string, attrs map[string]string) models.DomainEvent {
	return models.DomainEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		Key:        key,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Attributes: attrs,
	}
}

type KafkaPublisher struct {
	producer Producer
	topic    string
	timeout  time.Duration
}

func NewKafkaPublisher(p Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic, timeout: 5 * time.Second}
}

// Publish writes evt keyed by evt.Key.
func (p *KafkaPublisher) Publish(ctx context.Context, evt models.DomainEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	headers := map[string]string{"event_type": evt.Type, "event_id": evt.EventID}
	if err := p.producer.ProduceMessage(ctx, p.topic, []byte(evt.Key), value, headers); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

// NopPublisher drops events. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(_ context.Context, evt models.DomainEvent) error {
	util.Debug("Event dropped, no publisher configured", zap.String("type", evt.Type), zap.String("key", evt.Key))
	return nil
}
