package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, draft *ledger.Transaction) (*ledger.Transaction, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) ListByAccount(ctx context.Context, accountID string, key ledger.SortKey, dir ledger.SortDirection) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, accountID, key, dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) Annotate(ctx context.Context, id uuid.UUID, note string) (*ledger.Transaction, error) {
	args := m.Called(ctx, id, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

type MockTransferValidator struct {
	mock.Mock
}

func (m *MockTransferValidator) Validate(ctx context.Context, request *shared.TransferRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

type MockTransferProcessor struct {
	mock.Mock
}

func (m *MockTransferProcessor) Transfer(ctx context.Context, request *shared.TransferRequest) (*ledger.Transaction, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

type MockBatchImporter struct {
	mock.Mock
}

func (m *MockBatchImporter) ImportBatch(ctx context.Context, requests []shared.TransferRequest) (*BatchImportResult, error) {
	args := m.Called(ctx, requests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BatchImportResult), args.Error(1)
}
