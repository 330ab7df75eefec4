package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/securebank-ledger/internal/domain/outbox"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/platform/messaging/producers"
)

// ErrUndeliverable marks a message that was parked instead of published. Retrying it cannot help.
var ErrUndeliverable = errors.New("outbox message is undeliverable")

// EventPublisher delivers one outbox message downstream and settles it
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisher forwards outbox payloads to the ledger events topic
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewKafkaEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent writes the stored payload unchanged, keyed by transaction id so all
// events of one transaction stay ordered on one partition.
func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil {
		p.logger.Error("Outbox payload cannot be decoded, parking message",
			"outbox_id", message.ID, "transaction_id", message.TransactionID.String(), "error", err,
		)
		if parkErr := p.outboxRepo.MarkUndeliverable(ctx, message.ID); parkErr != nil {
			return fmt.Errorf("decode payload for outbox %d: %v; parking it also failed: %w", message.ID, err, parkErr)
		}
		return fmt.Errorf("decode payload for outbox %d: %v: %w", message.ID, err, ErrUndeliverable)
	}

	logger := p.logger.With("outbox_id", message.ID, "event_type", string(event.Type))
	if event.CorrelationID != "" {
		ctx = shared.ContextWithCorrelationID(ctx, event.CorrelationID)
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	key := message.TransactionID.String()
	if err := p.producer.Publish(ctx, key, json.RawMessage(message.Payload)); err != nil {
		return fmt.Errorf("publish ledger event for outbox %d: %w", message.ID, err)
	}

	err = p.outboxRepo.MarkPublished(ctx, message.ID)
	var notPending outbox.ErrMessageNotPending
	switch {
	case errors.As(err, &notPending):
		// another relay settled it first; consumers dedupe on transaction id
		logger.Warn("Ledger event published for an already settled outbox message", "transaction_id", key)
	case err != nil:
		return fmt.Errorf("event for %s published, but marking outbox %d as PROCESSED failed: %w", key, message.ID, err)
	default:
		logger.Info("Ledger event published", "transaction_id", key)
	}
	return nil
}
