package shared

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable category of a failure.
type ErrorKind string

const (
	KindInvalidArgument     ErrorKind = "INVALID_ARGUMENT"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindConstraintViolation ErrorKind = "CONSTRAINT_VIOLATION"
	KindUnsupportedFormat   ErrorKind = "UNSUPPORTED_FORMAT"
	KindSyntaxError         ErrorKind = "SYNTAX_ERROR"
	KindUndefinedVariable   ErrorKind = "UNDEFINED_VARIABLE"
	KindDomainError         ErrorKind = "DOMAIN_ERROR"
	KindStorageError        ErrorKind = "STORAGE_ERROR"
	KindSchedulerOverrun    ErrorKind = "SCHEDULER_OVERRUN"
	KindInternal            ErrorKind = "INTERNAL"
)

// Kinded is implemented by every error that belongs to the taxonomy
type Kinded interface {
	error
	Kind() ErrorKind
}

// KindOf returns the kind of the first classified error in err's chain,
// or KindInternal if there is none.
func KindOf(err error) ErrorKind {
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// ErrInvalidArgument indicates a malformed or out-of-range input field
type ErrInvalidArgument struct {
	Field  string
	Reason string
}

func (e ErrInvalidArgument) Error() string {
	if e.Field == "" {
		return "invalid argument: " + e.Reason
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}

func (e ErrInvalidArgument) Kind() ErrorKind { return KindInvalidArgument }

// ErrNotFound indicates an unknown identifier or name
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e ErrNotFound) Error() string {
	return e.Resource + " not found: " + e.ID
}

func (e ErrNotFound) Kind() ErrorKind { return KindNotFound }

// Is matches any ErrNotFound for the same resource when the target ID is empty
func (e ErrNotFound) Is(target error) bool {
	t, ok := target.(ErrNotFound)
	if !ok {
		return false
	}
	if t.Resource != "" && t.Resource != e.Resource {
		return false
	}
	return t.ID == "" || t.ID == e.ID
}

// ErrConstraintViolation indicates a ledger invariant breach
type ErrConstraintViolation struct {
	Constraint string
}

func (e ErrConstraintViolation) Error() string {
	return "constraint violation: " + e.Constraint
}

func (e ErrConstraintViolation) Kind() ErrorKind { return KindConstraintViolation }

// ErrUnsupportedFormat indicates an export format outside the supported set
type ErrUnsupportedFormat struct {
	Format string
}

func (e ErrUnsupportedFormat) Error() string {
	return "unsupported format: " + e.Format
}

func (e ErrUnsupportedFormat) Kind() ErrorKind { return KindUnsupportedFormat }

// ErrStorage wraps a failure of the underlying ledger storage
type ErrStorage struct {
	Op  string
	Err error
}

func (e ErrStorage) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e ErrStorage) Unwrap() error { return e.Err }

func (e ErrStorage) Kind() ErrorKind { return KindStorageError }

// ErrSchedulerOverrun indicates a trigger skipped because the previous run was still in flight
type ErrSchedulerOverrun struct {
	JobID string
}

func (e ErrSchedulerOverrun) Error() string {
	return "previous run still in progress for job: " + e.JobID
}

func (e ErrSchedulerOverrun) Kind() ErrorKind { return KindSchedulerOverrun }
