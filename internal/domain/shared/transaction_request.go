package shared

// TransferRequest is one requested movement of funds, as received over HTTP or Kafka
type TransferRequest struct {
	FromAccount    string `json:"from_account"`
	ToAccount      string `json:"to_account"`
	Amount         Amount `json:"amount"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	CorrelationID  string `json:"correlation_id,omitempty"`
}

// BatchImportRequest is the Kafka message consumed by the batch import worker
type BatchImportRequest struct {
	BatchID       string            `json:"batch_id"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Transactions  []TransferRequest `json:"transactions"`
}
