package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-invoicing/internal/config"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes ledger events, one topic per event type.
type Producer struct {
	Writer messageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// TopicFor maps a ledger event type to its topic.
func (p *Producer) TopicFor(eventType string) (string, error) {
	switch eventType {
	case models.LedgerRegistrationCreated:
		return p.Topics.RegistrationCreated, nil
	case models.LedgerRegistrationPaid:
		return p.Topics.RegistrationPaid, nil
	default:
		return "", fmt.Errorf("no topic for ledger event %q", eventType)
	}
}

func (p *Producer) PublishLedgerEvent(ctx context.Context, evt models.LedgerEvent) error {
	topic, err := p.TopicFor(evt.Type)
	if err != nil {
		return err
	}

	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(evt.RegistrationID),
		Value: value,
		Time:  evt.OccurredAt,
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		p.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish to %s: %v", topic, err))
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%s %s", evt.InvoiceNo, evt.Status))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
