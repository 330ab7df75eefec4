package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/securebank-ledger/internal/config"
	"github.com/securebank-ledger/internal/domain/outbox"
)

// Poller relays pending outbox messages to the event publisher
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start relays whatever is already pending, then polls until ctx is cancelled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		if err := p.processPendingMessages(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.Pending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	var published, failed int
	for _, msg := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.relay(ctx, msg) {
			published++
		} else {
			failed++
		}
	}

	p.logger.Info("Outbox batch relayed", "published", published, "failed", failed)
	return nil
}

// relay publishes one message and records the outcome. It reports whether the publish succeeded.
func (p *Poller) relay(ctx context.Context, msg *outbox.Message) bool {
	logger := p.logger.With("outbox_id", msg.ID, "transaction_id", msg.TransactionID.String())
	if ev, err := msg.Event(); err == nil && ev.CorrelationID != "" {
		logger = logger.With("correlation_id", ev.CorrelationID)
	}

	err := p.publisher.PublishEvent(ctx, msg)
	if err == nil {
		logger.Debug("Outbox message relayed")
		return true
	}

	var notPending outbox.ErrMessageNotPending
	if errors.Is(err, ErrUndeliverable) || errors.As(err, &notPending) {
		// already settled; counting an attempt would be wrong
		logger.Warn("Outbox message settled without publishing", "error", err)
		return false
	}

	logger.Error("Failed to relay outbox message", "attempts_before", msg.Attempts, "error", err)
	if errRecord := p.outboxRepo.RecordFailure(ctx, msg, p.maxRetryAttempts); errRecord != nil {
		logger.Error("Failed to record outbox publish failure", "error", errRecord)
		return false
	}
	if msg.Parked() {
		logger.Warn("Max retry attempts reached for outbox message, marked FAILED_TO_PUBLISH",
			"attempts", msg.Attempts, "max_retry_attempts", p.maxRetryAttempts,
		)
	}
	return false
}
