package service

import (
	"context"

	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
)

// TransferProcessor validates and commits single transfers
type TransferProcessor interface {
	Transfer(ctx context.Context, request *shared.TransferRequest) (*ledger.Transaction, error)
}

// BatchImporter ingests many transfers with per-item isolation
type BatchImporter interface {
	ImportBatch(ctx context.Context, requests []shared.TransferRequest) (*BatchImportResult, error)
}

// TransferValidator checks a request before it reaches the ledger
type TransferValidator interface {
	Validate(ctx context.Context, request *shared.TransferRequest) error
}
