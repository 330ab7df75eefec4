package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTransferService_Transfer(t *testing.T) {
	logger := slog.Default()
	amount := decimal.RequireFromString("25.50")

	request := &shared.TransferRequest{
		FromAccount:   " ACC-1 ",
		ToAccount:     "ACC-2",
		Amount:        shared.AmountFromString("25.50"),
		Description:   "invoice 42",
		CorrelationID: "corr-1",
	}

	t.Run("commits a valid transfer", func(t *testing.T) {
		repo := &MockLedgerRepository{}
		validator := &MockTransferValidator{}
		svc := NewTransferService(repo, validator, logger)

		committed := &ledger.Transaction{
			ID:          uuid.New(),
			FromAccount: "ACC-1",
			ToAccount:   "ACC-2",
			Amount:      amount,
			Description: request.Description,
			Status:      shared.TransactionStatusCompleted,
			CreatedAt:   time.Now().UTC(),
		}

		validator.On("Validate", mock.Anything, request).Return(nil).Once()
		repo.On("Append",
			mock.MatchedBy(func(ctx context.Context) bool { return shared.CorrelationIDFromContext(ctx) == "corr-1" }),
			mock.MatchedBy(func(draft *ledger.Transaction) bool {
				return draft.FromAccount == "ACC-1" && draft.ToAccount == "ACC-2" && draft.Amount.Equal(amount)
			}),
		).Return(committed, nil).Once()

		tx, err := svc.Transfer(context.Background(), request)
		require.NoError(t, err)
		assert.Equal(t, shared.TransactionStatusCompleted, tx.Status)
		assert.True(t, tx.Amount.Equal(amount))

		validator.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("validation failure never reaches the ledger", func(t *testing.T) {
		repo := &MockLedgerRepository{}
		validator := &MockTransferValidator{}
		svc := NewTransferService(repo, validator, logger)

		invalid := shared.ErrInvalidArgument{Field: "to_account", Reason: "must differ from from_account"}
		validator.On("Validate", mock.Anything, request).Return(invalid).Once()

		tx, err := svc.Transfer(context.Background(), request)
		assert.Nil(t, tx)
		assert.Equal(t, shared.KindInvalidArgument, shared.KindOf(err))
		repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("storage failure is surfaced", func(t *testing.T) {
		repo := &MockLedgerRepository{}
		validator := &MockTransferValidator{}
		svc := NewTransferService(repo, validator, logger)

		validator.On("Validate", mock.Anything, request).Return(nil).Once()
		repo.On("Append", mock.Anything, mock.Anything).
			Return(nil, shared.ErrStorage{Op: "append", Err: errors.New("connection reset")}).Once()

		tx, err := svc.Transfer(context.Background(), request)
		assert.Nil(t, tx)
		assert.Equal(t, shared.KindStorageError, shared.KindOf(err))
	})
}
