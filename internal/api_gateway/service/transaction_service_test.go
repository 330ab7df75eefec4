package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/config"
	"github.com/securebank-ledger/internal/data/memory"
	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/export"
	"github.com/securebank-ledger/internal/platform/messaging/producers"
	"github.com/securebank-ledger/internal/transaction_processor/components"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value any) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTransactionService(t *testing.T, producer producers.MessagePublisher) TransactionService {
	t.Helper()
	logger := testLogger()
	store := memory.NewTransactionStore()
	cfg := &config.Config{Batch: config.BatchConfig{MaxItems: 3, WorkerPoolSize: 1}}
	transfers := components.CreateTransferProcessor(store, logger)
	importer := components.CreateBatchImporter(transfers, logger, cfg)
	return NewTransactionService(logger, store, transfers, importer, export.NewPipeline(logger, store), producer, cfg.Batch.MaxItems)
}

func transfer(from, to, amount, description string) *shared.TransferRequest {
	return &shared.TransferRequest{
		FromAccount: from,
		ToAccount:   to,
		Amount:      shared.AmountFromString(amount),
		Description: description,
	}
}

func TestTransactionService_TransferGetAnnotate(t *testing.T) {
	svc := newTestTransactionService(t, nil)
	ctx := context.Background()

	tx, err := svc.Transfer(ctx, transfer("ACC-1", "ACC-2", "25.00", "dinner"))
	require.NoError(t, err)
	assert.Equal(t, shared.TransactionStatusCompleted, tx.Status)

	got, err := svc.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("25")))

	annotated, err := svc.AnnotateTransaction(ctx, tx.ID, "split with <b>Sam</b>")
	require.NoError(t, err)
	require.NotNil(t, annotated.Note)
	assert.Equal(t, "split with <b>Sam</b>", *annotated.Note)

	_, err = svc.GetTransaction(ctx, uuid.New())
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))

	_, err = svc.AnnotateTransaction(ctx, uuid.New(), "x")
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))

	_, err = svc.AnnotateTransaction(ctx, tx.ID, strings.Repeat("n", ledger.MaxNoteLength+1))
	var invalid shared.ErrInvalidArgument
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "note", invalid.Field)
}

func TestTransactionService_ListTransactions(t *testing.T) {
	svc := newTestTransactionService(t, nil)
	ctx := context.Background()

	for _, amount := range []string{"5.00", "50.00", "20.00"} {
		_, err := svc.Transfer(ctx, transfer("ACC-1", "ACC-2", amount, "payment "+amount))
		require.NoError(t, err)
	}
	_, err := svc.Transfer(ctx, transfer("ACC-3", "ACC-4", "1.00", "unrelated"))
	require.NoError(t, err)

	txs, err := svc.ListTransactions(ctx, " ACC-2 ", "amount", "asc")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "5", txs[0].Amount.String())
	assert.Equal(t, "20", txs[1].Amount.String())
	assert.Equal(t, "50", txs[2].Amount.String())

	tests := []struct {
		name    string
		account string
		sort    string
		order   string
		field   string
	}{
		{"missing account", " ", "", "", "accountId"},
		{"account too long", strings.Repeat("a", ledger.MaxAccountIDLength+1), "", "", "accountId"},
		{"sort outside the enumeration", "ACC-1", "amount; DROP TABLE transactions", "", "sort"},
		{"bad order", "ACC-1", "date", "sideways", "order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListTransactions(ctx, tt.account, tt.sort, tt.order)
			var invalid shared.ErrInvalidArgument
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestTransactionService_Export(t *testing.T) {
	svc := newTestTransactionService(t, nil)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, transfer("ACC-1", "ACC-2", "10.50", `rent, "march"`))
	require.NoError(t, err)

	doc, err := svc.Export(ctx, "ACC-1", "CSV", "", "")
	require.NoError(t, err)
	assert.Equal(t, export.FormatCSV, doc.Format)
	assert.Contains(t, string(doc.Body), `"rent, ""march"""`)

	_, err = svc.Export(ctx, "ACC-1", "pdf", "", "")
	assert.Equal(t, shared.KindUnsupportedFormat, shared.KindOf(err))

	_, err = svc.Export(ctx, "ACC-1", "csv", "2024-02-01", "2024-01-01")
	assert.Equal(t, shared.KindInvalidArgument, shared.KindOf(err))

	_, err = svc.Export(ctx, "ACC-1", "csv", "yesterday", "")
	assert.Equal(t, shared.KindInvalidArgument, shared.KindOf(err))
}

func TestTransactionService_ImportBatch(t *testing.T) {
	svc := newTestTransactionService(t, nil)

	result, err := svc.ImportBatch(context.Background(), []shared.TransferRequest{
		*transfer("ACC-1", "ACC-2", "1.00", "a"),
		*transfer("ACC-1", "ACC-1", "1.00", "self"),
		*transfer("ACC-2", "ACC-3", "2.00", "c"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Rejected)

	list, err := svc.ListTransactions(context.Background(), "ACC-2", "", "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestTransactionService_SubmitBatch(t *testing.T) {
	items := []shared.TransferRequest{*transfer("ACC-1", "ACC-2", "1.00", "a")}

	t.Run("disabled without producer", func(t *testing.T) {
		svc := newTestTransactionService(t, nil)
		_, err := svc.SubmitBatch(context.Background(), items)
		assert.ErrorIs(t, err, ErrAsyncImportUnavailable)
	})

	t.Run("publishes batch keyed by batch id", func(t *testing.T) {
		producer := &MockMessagePublisher{}
		svc := newTestTransactionService(t, producer)
		ctx := shared.ContextWithCorrelationID(context.Background(), "corr-batch")

		var published shared.BatchImportRequest
		producer.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("shared.BatchImportRequest")).
			Run(func(args mock.Arguments) {
				published = args.Get(2).(shared.BatchImportRequest)
			}).Return(nil).Once()

		batchID, err := svc.SubmitBatch(ctx, items)
		require.NoError(t, err)
		_, err = uuid.Parse(batchID)
		assert.NoError(t, err)
		assert.Equal(t, batchID, published.BatchID)
		assert.Equal(t, "corr-batch", published.CorrelationID)
		assert.Len(t, published.Transactions, 1)
		producer.AssertExpectations(t)
	})

	t.Run("size limits are checked before publishing", func(t *testing.T) {
		producer := &MockMessagePublisher{}
		svc := newTestTransactionService(t, producer)

		_, err := svc.SubmitBatch(context.Background(), nil)
		assert.Equal(t, shared.KindInvalidArgument, shared.KindOf(err))

		_, err = svc.SubmitBatch(context.Background(), make([]shared.TransferRequest, 4))
		assert.Equal(t, shared.KindInvalidArgument, shared.KindOf(err))
		producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publish failure is returned", func(t *testing.T) {
		producer := &MockMessagePublisher{}
		svc := newTestTransactionService(t, producer)
		producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

		_, err := svc.SubmitBatch(context.Background(), items)
		assert.ErrorContains(t, err, "broker down")
	})
}
