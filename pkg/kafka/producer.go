package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Almishev/pos-shop/pkg/cloudevents"
	"github.com/Almishev/pos-shop/pkg/logging"
	"github.com/Almishev/pos-shop/pkg/metrics"
	"github.com/Almishev/pos-shop/pkg/resilience"
)

// Publisher publishes CloudEvents to Kafka
type Publisher interface {
	Publish(ctx context.Context, topic string, event *cloudevents.Event) error
	Close() error
}

// Producer is a circuit-breaker protected Kafka publisher.
// Events are keyed by subject so per-item ordering is preserved.
type Producer struct {
	writer  *kafka.Writer
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewProducer creates a Producer with the given configuration
func NewProducer(config *Config, logger *logging.Logger, m *metrics.Metrics) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: config.BatchTimeout,
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		MaxAttempts:  config.MaxAttempts,
		Compression:  kafka.Snappy,
	}

	return &Producer{
		writer:  writer,
		breaker: resilience.NewCircuitBreaker("kafka-producer", logger),
		logger:  logger.WithComponent("kafka-producer"),
		metrics: m,
	}
}

// Publish sends a CloudEvent to the topic. Failures trip the circuit
// breaker; callers treat publishing as best-effort.
func (p *Producer) Publish(ctx context.Context, topic string, event *cloudevents.Event) error {
	payload, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal cloudevent: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.Subject),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "ce-id", Value: []byte(event.ID)},
			{Key: "ce-type", Value: []byte(event.Type)},
			{Key: "ce-source", Value: []byte(event.Source)},
			{Key: "content-type", Value: []byte("application/cloudevents+json")},
		},
	}
	if event.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "ce-correlationid", Value: []byte(event.CorrelationID)})
	}

	start := time.Now()
	err = p.breaker.Execute(func() error {
		return p.writer.WriteMessages(ctx, msg)
	})
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.ObserveKafkaPublish(topic, err == nil, duration)
	}
	p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, duration)

	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
