package producers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("WrapsOriginalMessage", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newDLQProducer(testLogger(), mockWriter, "batch_import_requests_dlq")
		producer.now = func() time.Time { return fixed }
		ctx := shared.ContextWithCorrelationID(context.Background(), "corr-1")

		var written kafka.Message
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Run(func(args mock.Arguments) {
			written = args.Get(1).([]kafka.Message)[0]
		}).Return(nil).Once()

		err := producer.PublishToDLQ(ctx, "batch-7", []byte("{not json"), "unmarshal failed")
		require.NoError(t, err)

		var letter DeadLetter
		require.NoError(t, json.Unmarshal(written.Value, &letter))
		assert.Equal(t, "batch-7", letter.OriginalKey)
		assert.Equal(t, "{not json", letter.OriginalValue)
		assert.Equal(t, "unmarshal failed", letter.Reason)
		assert.Equal(t, "corr-1", letter.CorrelationID)
		assert.Equal(t, fixed.Format(time.RFC3339Nano), letter.Timestamp)
		require.Len(t, written.Headers, 2)
		assert.Equal(t, "dlq-reason", written.Headers[0].Key)
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterErrorIsWrapped", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newDLQProducer(testLogger(), mockWriter, "dlq")
		writerError := errors.New("broker unavailable")
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(writerError).Once()

		err := producer.PublishToDLQ(context.Background(), "k", []byte("v"), "r")
		assert.ErrorIs(t, err, writerError)
	})

	t.Run("DisabledProducer", func(t *testing.T) {
		var producer *DLQProducer
		assert.ErrorIs(t, producer.PublishToDLQ(context.Background(), "k", nil, "r"), ErrDLQDisabled)
		assert.NoError(t, producer.Close())
	})
}

func TestDLQProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := newDLQProducer(testLogger(), mockWriter, "dlq")
	mockWriter.On("Close").Return(nil).Once()

	require.NoError(t, producer.Close())
	mockWriter.AssertExpectations(t)
}
