// Package kafka carries scoring requests and list-computed events over
// segmentio/kafka-go with JSON payloads.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/config"
)

// Handler processes one message. Returning ErrSkip commits the message
// without processing it again; any other error leaves it uncommitted.
type Handler func(ctx context.Context, key, value []byte) error

// ErrSkip marks a message that can never succeed, such as a malformed
// payload.
var ErrSkip = errors.New("skip message")

type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	logger  *slog.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler Handler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0,
	})
	return &Consumer{
		reader:  r,
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Run fetches and handles messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		log := c.logger.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
		err = c.handler(ctx, msg.Key, msg.Value)
		switch {
		case err == nil:
		case errors.Is(err, ErrSkip):
			log.Warn("message skipped", "error", err)
		default:
			log.Error("message failed", "error", err)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error("commit failed", "error", err)
		}
	}
}

// Decode unmarshals a JSON payload, wrapping failures in ErrSkip.
func Decode[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("%w: decoding payload: %v", ErrSkip, err)
	}
	return v, nil
}
