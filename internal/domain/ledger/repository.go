package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/domain/shared"
)

// Repository is the append-only transaction store.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Append assigns id, timestamp and completed status, then stores the record atomically.
	// Returns ErrConstraintViolation when the record breaks a ledger invariant.
	Append(ctx context.Context, draft *Transaction) (*Transaction, error)

	// Get returns ErrNotFound when no record has the id
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// ListByAccount returns every record where the account is sender or receiver
	ListByAccount(ctx context.Context, accountID string, key SortKey, dir SortDirection) ([]*Transaction, error)

	// Annotate replaces the note of an existing record
	Annotate(ctx context.Context, id uuid.UUID, note string) (*Transaction, error)
}

// Reader is the read-only view handed to exporters and report generators
type Reader interface {
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByAccount(ctx context.Context, accountID string, key SortKey, dir SortDirection) ([]*Transaction, error)
}

// ErrTransactionNotFound builds the not-found error for a transaction id
func ErrTransactionNotFound(id uuid.UUID) error {
	return shared.ErrNotFound{Resource: "transaction", ID: id.String()}
}
