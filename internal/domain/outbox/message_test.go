package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransaction() *ledger.Transaction {
	return &ledger.Transaction{
		ID:          uuid.New(),
		FromAccount: "ACC-1",
		ToAccount:   "ACC-2",
		Amount:      decimal.RequireFromString("125.50"),
		Description: "rent, march",
		Status:      shared.TransactionStatusCompleted,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestNewMessage(t *testing.T) {
	tx := sampleTransaction()

	msg, err := NewMessage(EventTransactionCommitted, tx, "corr-1")
	require.NoError(t, err)

	assert.Equal(t, tx.ID, msg.TransactionID)
	assert.Equal(t, EventTransactionCommitted, msg.EventType)
	assert.Equal(t, shared.OutboxStatusPending, msg.Status)
	assert.Zero(t, msg.Attempts)
	assert.Nil(t, msg.LastAttemptAt)

	ev, err := msg.Event()
	require.NoError(t, err)
	assert.Equal(t, EventTransactionCommitted, ev.Type)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, tx.ID, ev.Transaction.ID)
	assert.True(t, tx.Amount.Equal(ev.Transaction.Amount))
	assert.True(t, tx.CreatedAt.Equal(ev.Transaction.CreatedAt))
}

func TestMessage_Parked(t *testing.T) {
	for status, parked := range map[shared.OutboxStatus]bool{
		shared.OutboxStatusPending:         false,
		shared.OutboxStatusProcessed:       false,
		shared.OutboxStatusFailedToPublish: true,
	} {
		msg := &Message{Status: status}
		assert.Equal(t, parked, msg.Parked(), string(status))
	}
}

func TestMessage_EventInvalidPayload(t *testing.T) {
	msg := &Message{Payload: []byte("{not json")}
	_, err := msg.Event()
	assert.Error(t, err)
}
