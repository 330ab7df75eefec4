package service

import (
	"context"
	"log/slog"

	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
)

type TransferServiceImpl struct {
	ledgerRepo ledger.Repository
	validator  TransferValidator
	logger     *slog.Logger
}

func NewTransferService(
	ledgerRepo ledger.Repository,
	validator TransferValidator,
	logger *slog.Logger,
) TransferProcessor {
	return &TransferServiceImpl{
		ledgerRepo: ledgerRepo,
		validator:  validator,
		logger:     logger,
	}
}

// Transfer validates the request and appends one completed transaction.
// The append is atomic, so a failure leaves no record behind.
func (s *TransferServiceImpl) Transfer(ctx context.Context, request *shared.TransferRequest) (*ledger.Transaction, error) {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
		if shared.CorrelationIDFromContext(ctx) == "" {
			ctx = shared.ContextWithCorrelationID(ctx, request.CorrelationID)
		}
	}

	if err := s.validator.Validate(ctx, request); err != nil {
		logger.Warn("Transfer rejected by validation",
			"from_account", request.FromAccount,
			"to_account", request.ToAccount,
			"error", err,
		)
		return nil, err
	}

	amount, err := request.Amount.Decimal()
	if err != nil {
		return nil, err
	}
	draft := ledger.NewDraft(request.FromAccount, request.ToAccount, amount, request.Description)
	tx, err := s.ledgerRepo.Append(ctx, draft)
	if err != nil {
		logger.Error("Failed to append transfer to ledger",
			"from_account", draft.FromAccount,
			"to_account", draft.ToAccount,
			"error", err,
		)
		return nil, err
	}

	logger.Info("Transfer committed",
		"transaction_id", tx.ID.String(),
		"from_account", tx.FromAccount,
		"to_account", tx.ToAccount,
		"amount", tx.Amount.String(),
	)
	return tx, nil
}
