package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/transaction_processor/service"
	"github.com/shopspring/decimal"
)

// maxAmount matches the NUMERIC(18,2) column
var maxAmount = decimal.New(1, 16)

type TransferValidatorImpl struct {
	logger *slog.Logger
}

func NewTransferValidator(logger *slog.Logger) service.TransferValidator {
	return &TransferValidatorImpl{logger: logger}
}

// Validate rejects malformed transfers. Nothing is coerced: a negative amount is an error, not a flipped sign.
func (v *TransferValidatorImpl) Validate(ctx context.Context, request *shared.TransferRequest) error {
	if err := validateAccount("from_account", request.FromAccount); err != nil {
		return err
	}
	if err := validateAccount("to_account", request.ToAccount); err != nil {
		return err
	}
	if strings.TrimSpace(request.FromAccount) == strings.TrimSpace(request.ToAccount) {
		return shared.ErrInvalidArgument{Field: "to_account", Reason: "must differ from from_account"}
	}

	amount, err := request.Amount.Decimal()
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return shared.ErrInvalidArgument{Field: "amount", Reason: "must be greater than zero"}
	}
	if amount.Exponent() < -ledger.AmountScale && !amount.Equal(amount.Truncate(ledger.AmountScale)) {
		return shared.ErrInvalidArgument{Field: "amount", Reason: fmt.Sprintf("must have at most %d decimal places", ledger.AmountScale)}
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return shared.ErrInvalidArgument{Field: "amount", Reason: "exceeds the maximum transferable amount"}
	}

	if utf8.RuneCountInString(request.Description) > ledger.MaxDescriptionLength {
		return shared.ErrInvalidArgument{Field: "description", Reason: fmt.Sprintf("must be at most %d characters", ledger.MaxDescriptionLength)}
	}

	v.logger.Debug("Transfer request valid", "correlation_id", request.CorrelationID)
	return nil
}

func validateAccount(field, raw string) error {
	id := strings.TrimSpace(raw)
	if id == "" {
		return shared.ErrInvalidArgument{Field: field, Reason: "is required"}
	}
	if utf8.RuneCountInString(id) > ledger.MaxAccountIDLength {
		return shared.ErrInvalidArgument{Field: field, Reason: fmt.Sprintf("must be at most %d characters", ledger.MaxAccountIDLength)}
	}
	return nil
}
