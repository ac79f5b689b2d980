// Package kafka publishes committed trades to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one JSON message per trade, keyed by account id so an
// account's trades land on one partition in order.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a Publisher for topic on the given brokers.
// Writes are asynchronous; delivery failures are logged by the writer.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
			Async:    true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Error().Err(err).Str("topic", topic).Int("messages", len(messages)).Msg("Kafka delivery failed")
				}
			},
		},
		topic: topic,
	}
}

// PublishTrade implements services.TradePublisher.
func (p *Publisher) PublishTrade(ctx context.Context, ev models.TradeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode trade %d: %w", ev.EntryID, err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.UserID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("trade." + ev.Kind)},
		},
	})
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
