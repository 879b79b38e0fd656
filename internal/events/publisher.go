// Package events ships domain events to Kafka and to any other in-process
// subscribers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shopdesk/shopdesk/internal/shared"
)

// Observer records the outcome of each publish.
type Observer interface {
	ObserveEvent(eventType string, err error)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by the event key.
type KafkaPublisher struct {
	writer   messageWriter
	observer Observer
	logger   *slog.Logger
}

// NewKafkaPublisher returns nil when no brokers are configured so callers
// can leave the publisher out of the fan-out.
func NewKafkaPublisher(brokers []string, topic string, observer Observer, logger *slog.Logger) *KafkaPublisher {
	if len(brokers) == 0 {
		return nil
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, observer, logger)
}

func newKafkaPublisher(w messageWriter, observer Observer, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{writer: w, observer: observer, logger: logger}
}

// Publish implements shared.Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event shared.Event) error {
	if p == nil || p.writer == nil {
		return nil
	}
	err := p.write(ctx, event)
	if p.observer != nil {
		p.observer.ObserveEvent(event.Type, err)
	}
	return err
}

func (p *KafkaPublisher) write(ctx context.Context, event shared.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: body,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event %s: %w", event.Type, err)
	}
	p.logger.Debug("event published", slog.String("type", event.Type), slog.String("key", event.Key))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Fanout delivers every event to each publisher and joins their errors.
type Fanout []shared.Publisher

// Publish implements shared.Publisher.
func (f Fanout) Publish(ctx context.Context, event shared.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
