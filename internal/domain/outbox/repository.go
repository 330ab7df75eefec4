package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Repository stores ledger events between the ledger commit and their publication.
// Every state change applies only to a message that is still pending.
type Repository interface {
	// Create stores message as pending. Bind it with WithTx to commit it together with the ledger row.
	Create(ctx context.Context, message *Message) error

	// Pending returns up to limit unpublished messages, oldest first
	Pending(ctx context.Context, limit int) ([]*Message, error)

	// MarkPublished settles a message after the broker accepted it
	MarkPublished(ctx context.Context, id int64) error

	// MarkUndeliverable parks a message that can never be published, such as one with a corrupt payload
	MarkUndeliverable(ctx context.Context, id int64) error

	// RecordFailure counts one failed publish and parks the message once maxAttempts is reached.
	// message is updated with the stored attempts, status and attempt time.
	RecordFailure(ctx context.Context, message *Message, maxAttempts int) error

	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotPending is returned when a message is missing or already settled
type ErrMessageNotPending struct {
	ID int64
}

func (e ErrMessageNotPending) Error() string {
	return fmt.Sprintf("outbox message %d is not pending", e.ID)
}
