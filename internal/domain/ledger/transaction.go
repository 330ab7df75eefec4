package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	// MaxAccountIDLength bounds account identifiers accepted from callers
	MaxAccountIDLength = 64
	// MaxDescriptionLength bounds the free-text description of a transfer
	MaxDescriptionLength = 512
	// MaxNoteLength bounds note annotations
	MaxNoteLength = 4096
	// AmountScale is the number of fractional digits kept for monetary amounts
	AmountScale = 2
)

// Transaction is one immutable ledger record. Only the note fields change after append.
type Transaction struct {
	ID            uuid.UUID                `json:"id" bson:"id"`
	FromAccount   string                   `json:"from_account" bson:"from_account"`
	ToAccount     string                   `json:"to_account" bson:"to_account"`
	Amount        decimal.Decimal          `json:"amount" bson:"amount"`
	Description   string                   `json:"description" bson:"description"`
	Status        shared.TransactionStatus `json:"status" bson:"status"`
	CreatedAt     time.Time                `json:"created_at" bson:"created_at"`
	Note          *string                  `json:"note,omitempty" bson:"note,omitempty"`
	NoteUpdatedAt *time.Time               `json:"note_updated_at,omitempty" bson:"note_updated_at,omitempty"`
}

// NewDraft builds an unsaved transaction from raw transfer fields.
// The store assigns ID, CreatedAt and Status on append.
func NewDraft(fromAccount, toAccount string, amount decimal.Decimal, description string) *Transaction {
	return &Transaction{
		FromAccount: strings.TrimSpace(fromAccount),
		ToAccount:   strings.TrimSpace(toAccount),
		Amount:      amount,
		Description: description,
	}
}

// CheckInvariants verifies the ledger invariants that every stored record must satisfy
func (t *Transaction) CheckInvariants() error {
	if !t.Amount.IsPositive() {
		return shared.ErrConstraintViolation{Constraint: "amount must be greater than zero"}
	}
	if t.FromAccount == t.ToAccount {
		return shared.ErrConstraintViolation{Constraint: "from_account and to_account must differ"}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored state
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Note != nil {
		n := *t.Note
		c.Note = &n
	}
	if t.NoteUpdatedAt != nil {
		ts := *t.NoteUpdatedAt
		c.NoteUpdatedAt = &ts
	}
	return &c
}

// Touches reports whether the account is either side of the transaction
func (t *Transaction) Touches(accountID string) bool {
	return t.FromAccount == accountID || t.ToAccount == accountID
}
