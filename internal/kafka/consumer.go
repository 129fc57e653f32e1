package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads ledger events from every instance in the consumer group.
type Consumer struct {
	reader messageReader
	Logger *logger.Logger
	// RetryDelay is how long to wait after a failed read.
	RetryDelay time.Duration
}

func NewConsumer(brokers []string, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     500 * time.Millisecond,
	})
	return &Consumer{reader: reader, Logger: log, RetryDelay: time.Second}
}

func DecodeLedgerEvent(msg kafka.Message) (models.LedgerEvent, error) {
	var evt models.LedgerEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return evt, fmt.Errorf("decode ledger event from %s: %w", msg.Topic, err)
	}
	if evt.Type == "" || evt.RegistrationID == "" {
		return evt, fmt.Errorf("ledger event from %s is missing type or registration id", msg.Topic)
	}
	return evt, nil
}

// Start blocks, handing each decoded event to handler until ctx is done.
func (c *Consumer) Start(ctx context.Context, handler func(models.LedgerEvent)) error {
	c.Logger.LogKafka("CONSUME", "ledger", "consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.RetryDelay):
			}
			continue
		}

		evt, err := DecodeLedgerEvent(msg)
		if err != nil {
			c.Logger.Warn("KAFKA", err.Error())
			continue
		}

		c.Logger.LogKafka("RECEIVE", msg.Topic, evt.InvoiceNo)
		handler(evt)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
