package shared

// TransactionStatus defines transaction processing states
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// CanTransitionTo reports whether moving from s to next is allowed.
// Only pending may move, and only forward.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == TransactionStatusPending &&
		(next == TransactionStatusCompleted || next == TransactionStatusFailed)
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// RejectionReason labels why a batch item was not imported
type RejectionReason string

const (
	RejectionInvalidArgument     RejectionReason = "INVALID_ARGUMENT"
	RejectionConstraintViolation RejectionReason = "CONSTRAINT_VIOLATION"
	RejectionStorageError        RejectionReason = "STORAGE_ERROR"
)
