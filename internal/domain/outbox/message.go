package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
)

// EventType names the ledger change carried by a message
type EventType string

const (
	EventTransactionCommitted EventType = "transaction.committed"
	EventTransactionAnnotated EventType = "transaction.annotated"
)

// Event is the payload published to the ledger events topic
type Event struct {
	Type          EventType           `json:"type"`
	Transaction   *ledger.Transaction `json:"transaction"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// Message stores a ledger event until the poller has published it
type Message struct {
	ID            int64               `json:"id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	EventType     EventType           `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(eventType EventType, tx *ledger.Transaction, correlationID string) (*Message, error) {
	now := time.Now().UTC()
	payload, err := json.Marshal(Event{
		Type:          eventType,
		Transaction:   tx,
		CorrelationID: correlationID,
		OccurredAt:    now,
	})
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: tx.ID,
		EventType:     eventType,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		CreatedAt:     now,
	}, nil
}

// Parked reports whether the message was given up on and will not be retried
func (m *Message) Parked() bool {
	return m.Status == shared.OutboxStatusFailedToPublish
}

// Event decodes the stored payload
func (m *Message) Event() (*Event, error) {
	var ev Event
	if err := json.Unmarshal(m.Payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
