package events

import (
	"context"

	"github.com/Almishev/pos-shop/internal/domain"
	"github.com/Almishev/pos-shop/pkg/cloudevents"
	"github.com/Almishev/pos-shop/pkg/kafka"
)

// Publisher adapts domain events onto CloudEvents over Kafka. It implements
// the application layer's EventPublisher port.
type Publisher struct {
	producer kafka.Publisher
	factory  *cloudevents.Factory
	topic    string
}

// NewPublisher creates a Publisher for the inventory events topic.
func NewPublisher(producer kafka.Publisher, source string) *Publisher {
	return &Publisher{
		producer: producer,
		factory:  cloudevents.NewFactory(source),
		topic:    kafka.TopicInventoryEvents,
	}
}

// Publish wraps the domain event in a CloudEvents envelope keyed by subject
// and sends it to the inventory topic.
func (p *Publisher) Publish(ctx context.Context, subject string, event domain.DomainEvent) error {
	ce, err := p.factory.New(event.EventType(), subject, event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, p.topic, ce)
}
