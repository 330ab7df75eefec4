package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/securebank-ledger/internal/domain/outbox"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/platform/persistence"
)

const (
	insertOutboxSQL = `
		INSERT INTO ledger_outbox (transaction_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING id`

	selectPendingOutboxSQL = `
		SELECT id, transaction_id, event_type, payload, status, attempts, created_at, last_attempt_at
		FROM ledger_outbox
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`

	settleOutboxSQL = `
		UPDATE ledger_outbox
		SET status = $1, last_attempt_at = $2
		WHERE id = $3 AND status = $4`

	// attempts on the right-hand side is the value before this update
	recordOutboxFailureSQL = `
		UPDATE ledger_outbox
		SET attempts = attempts + 1,
		    last_attempt_at = $1,
		    status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE status END
		WHERE id = $4 AND status = $5
		RETURNING attempts, status, last_attempt_at`
)

// OutboxRepository implements outbox.Repository for PostgreSQL
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
	now     func() time.Time
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithTx binds the repository to tx so the event commits with the ledger write
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
		now:     r.now,
	}
}

func (r *OutboxRepository) clock() time.Time {
	if r.now == nil {
		return time.Now().UTC()
	}
	return r.now()
}

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	err := r.querier.QueryRow(ctx, insertOutboxSQL,
		message.TransactionID,
		message.EventType,
		message.Payload,
		shared.OutboxStatusPending,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to create outbox message",
			"transaction_id", message.TransactionID.String(),
			"event_type", string(message.EventType),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	message.Status = shared.OutboxStatusPending
	message.Attempts = 0
	return nil
}

func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	rows, err := r.querier.Query(ctx, selectPendingOutboxSQL, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to query pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*outbox.Message, 0, limit)
	for rows.Next() {
		var message outbox.Message
		if err := rows.Scan(
			&message.ID,
			&message.TransactionID,
			&message.EventType,
			&message.Payload,
			&message.Status,
			&message.Attempts,
			&message.CreatedAt,
			&message.LastAttemptAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over outbox messages: %w", err)
	}

	return messages, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id int64) error {
	return r.settle(ctx, id, shared.OutboxStatusProcessed)
}

func (r *OutboxRepository) MarkUndeliverable(ctx context.Context, id int64) error {
	return r.settle(ctx, id, shared.OutboxStatusFailedToPublish)
}

func (r *OutboxRepository) settle(ctx context.Context, id int64, status shared.OutboxStatus) error {
	result, err := r.querier.Exec(ctx, settleOutboxSQL, status, r.clock(), id, shared.OutboxStatusPending)
	if err != nil {
		r.logger.Error("Failed to settle outbox message", "outbox_id", id, "status", string(status), "error", err)
		return fmt.Errorf("failed to mark outbox message %d as %s: %w", id, status, err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotPending{ID: id}
	}
	return nil
}

func (r *OutboxRepository) RecordFailure(ctx context.Context, message *outbox.Message, maxAttempts int) error {
	var lastAttempt time.Time
	err := r.querier.QueryRow(ctx, recordOutboxFailureSQL,
		r.clock(),
		maxAttempts,
		shared.OutboxStatusFailedToPublish,
		message.ID,
		shared.OutboxStatusPending,
	).Scan(&message.Attempts, &message.Status, &lastAttempt)
	if errors.Is(err, pgx.ErrNoRows) {
		return outbox.ErrMessageNotPending{ID: message.ID}
	}
	if err != nil {
		r.logger.Error("Failed to record outbox publish failure", "outbox_id", message.ID, "error", err)
		return fmt.Errorf("failed to record failure for outbox message %d: %w", message.ID, err)
	}

	message.LastAttemptAt = &lastAttempt
	return nil
}
