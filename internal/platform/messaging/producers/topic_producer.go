package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/securebank-ledger/internal/config"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

const correlationHeader = "correlation-id"

// TopicProducer publishes JSON values to a single topic
type TopicProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewLedgerEventProducer writes synchronously with full acknowledgement,
// so the outbox only marks a row processed once the broker has it.
func NewLedgerEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TopicProducer, error) {
	return newTopicProducer(logger, cfg, cfg.LedgerEventsTopic, kafka.RequireAll, false)
}

// NewBatchImportProducer queues batch import requests asynchronously for the worker
func NewBatchImportProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TopicProducer, error) {
	return newTopicProducer(logger, cfg, cfg.BatchImportTopic, kafka.RequireOne, true)
}

func newTopicProducer(logger *slog.Logger, cfg *config.KafkaConfig, topic string, acks kafka.RequiredAcks, async bool) (*TopicProducer, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for producer on %s: %w", topic, err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists: %w", topic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // same key, same partition
		RequiredAcks: acks,
		Async:        async,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages", "topic", topic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages", "topic", topic, "count", len(messages))
			}
		},
	}

	return &TopicProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}, nil
}

// Publish marshals value to JSON and writes it under key.
// The correlation id from ctx travels as a header.
func (p *TopicProducer) Publish(ctx context.Context, key string, value any) error {
	var jsonValue []byte
	switch v := value.(type) {
	case json.RawMessage:
		jsonValue = v
	default:
		var err error
		if jsonValue, err = json.Marshal(value); err != nil {
			return fmt.Errorf("failed to marshal message value for %s: %w", p.topic, err)
		}
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}
	if id := shared.CorrelationIDFromContext(ctx); id != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: correlationHeader, Value: []byte(id)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published message",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

// Topic returns the destination topic
func (p *TopicProducer) Topic() string {
	return p.topic
}

func (p *TopicProducer) Close() error {
	p.logger.Info("Closing Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
