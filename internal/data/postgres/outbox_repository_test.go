package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/securebank-ledger/internal/domain/outbox"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var outboxClock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newOutboxTestRepo(t *testing.T) (*OutboxRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &OutboxRepository{
		querier: mock,
		logger:  newTestLogger(),
		now:     func() time.Time { return outboxClock },
	}, mock
}

func TestOutboxRepository_WithTxKeepsClockAndLogger(t *testing.T) {
	repo, _ := newOutboxTestRepo(t)

	txRepo, ok := repo.WithTx(pgx.Tx(nil)).(*OutboxRepository)
	require.True(t, ok)
	assert.Nil(t, txRepo.querier)
	assert.Same(t, repo.logger, txRepo.logger)
	assert.Equal(t, outboxClock, txRepo.clock())
}

func TestOutboxRepository_CreateAlwaysStartsPending(t *testing.T) {
	repo, mock := newOutboxTestRepo(t)

	msg := &outbox.Message{
		TransactionID: uuid.New(),
		EventType:     outbox.EventTransactionCommitted,
		Payload:       []byte(`{"type":"transaction.committed"}`),
		Status:        shared.OutboxStatusProcessed,
		Attempts:      4,
		CreatedAt:     outboxClock,
	}

	mock.ExpectQuery("INSERT INTO ledger_outbox").
		WithArgs(msg.TransactionID, msg.EventType, msg.Payload, shared.OutboxStatusPending, msg.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, repo.Create(context.Background(), msg))
	assert.Equal(t, int64(42), msg.ID)
	assert.Equal(t, shared.OutboxStatusPending, msg.Status)
	assert.Zero(t, msg.Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_Pending(t *testing.T) {
	repo, mock := newOutboxTestRepo(t)
	earlier := outboxClock.Add(-time.Minute)

	rows := pgxmock.NewRows([]string{"id", "transaction_id", "event_type", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
		AddRow(int64(1), uuid.New(), outbox.EventTransactionCommitted, []byte(`{}`), shared.OutboxStatusPending, 0, earlier, (*time.Time)(nil)).
		AddRow(int64(2), uuid.New(), outbox.EventTransactionAnnotated, []byte(`{}`), shared.OutboxStatusPending, 2, earlier, &outboxClock)

	mock.ExpectQuery("WHERE status = \\$1\\s+ORDER BY created_at ASC, id ASC").
		WithArgs(shared.OutboxStatusPending, 10).
		WillReturnRows(rows)

	msgs, err := repo.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Nil(t, msgs[0].LastAttemptAt)
	assert.Equal(t, outbox.EventTransactionAnnotated, msgs[1].EventType)
	assert.Equal(t, 2, msgs[1].Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_Settle(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		settle func(*OutboxRepository, context.Context, int64) error
		status shared.OutboxStatus
	}{
		{"MarkPublished", (*OutboxRepository).MarkPublished, shared.OutboxStatusProcessed},
		{"MarkUndeliverable", (*OutboxRepository).MarkUndeliverable, shared.OutboxStatusFailedToPublish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newOutboxTestRepo(t)
			mock.ExpectExec("UPDATE ledger_outbox").
				WithArgs(tt.status, outboxClock, int64(1), shared.OutboxStatusPending).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))

			assert.NoError(t, tt.settle(repo, ctx, 1))
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run(tt.name+"AlreadySettled", func(t *testing.T) {
			repo, mock := newOutboxTestRepo(t)
			mock.ExpectExec("UPDATE ledger_outbox").
				WithArgs(tt.status, outboxClock, int64(9), shared.OutboxStatusPending).
				WillReturnResult(pgxmock.NewResult("UPDATE", 0))

			err := tt.settle(repo, ctx, 9)
			var notPending outbox.ErrMessageNotPending
			require.ErrorAs(t, err, &notPending)
			assert.Equal(t, int64(9), notPending.ID)
		})
	}
}

func TestOutboxRepository_RecordFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("KeepsPendingBelowLimit", func(t *testing.T) {
		repo, mock := newOutboxTestRepo(t)
		msg := &outbox.Message{ID: 3, Attempts: 0, Status: shared.OutboxStatusPending}

		mock.ExpectQuery("SET attempts = attempts \\+ 1").
			WithArgs(outboxClock, 3, shared.OutboxStatusFailedToPublish, int64(3), shared.OutboxStatusPending).
			WillReturnRows(pgxmock.NewRows([]string{"attempts", "status", "last_attempt_at"}).
				AddRow(1, shared.OutboxStatusPending, outboxClock))

		require.NoError(t, repo.RecordFailure(ctx, msg, 3))
		assert.Equal(t, 1, msg.Attempts)
		assert.False(t, msg.Parked())
		require.NotNil(t, msg.LastAttemptAt)
		assert.Equal(t, outboxClock, *msg.LastAttemptAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ParksAtLimit", func(t *testing.T) {
		repo, mock := newOutboxTestRepo(t)
		msg := &outbox.Message{ID: 4, Attempts: 2, Status: shared.OutboxStatusPending}

		mock.ExpectQuery("SET attempts = attempts \\+ 1").
			WithArgs(outboxClock, 3, shared.OutboxStatusFailedToPublish, int64(4), shared.OutboxStatusPending).
			WillReturnRows(pgxmock.NewRows([]string{"attempts", "status", "last_attempt_at"}).
				AddRow(3, shared.OutboxStatusFailedToPublish, outboxClock))

		require.NoError(t, repo.RecordFailure(ctx, msg, 3))
		assert.Equal(t, 3, msg.Attempts)
		assert.True(t, msg.Parked())
	})

	t.Run("SettledMessage", func(t *testing.T) {
		repo, mock := newOutboxTestRepo(t)
		msg := &outbox.Message{ID: 5}

		mock.ExpectQuery("SET attempts = attempts \\+ 1").
			WithArgs(outboxClock, 3, shared.OutboxStatusFailedToPublish, int64(5), shared.OutboxStatusPending).
			WillReturnError(pgx.ErrNoRows)

		err := repo.RecordFailure(ctx, msg, 3)
		assert.ErrorAs(t, err, &outbox.ErrMessageNotPending{})
	})

	t.Run("DatabaseError", func(t *testing.T) {
		repo, mock := newOutboxTestRepo(t)
		dbErr := errors.New("db down")

		mock.ExpectQuery("SET attempts = attempts \\+ 1").
			WithArgs(outboxClock, 3, shared.OutboxStatusFailedToPublish, int64(6), shared.OutboxStatusPending).
			WillReturnError(dbErr)

		err := repo.RecordFailure(ctx, &outbox.Message{ID: 6}, 3)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
