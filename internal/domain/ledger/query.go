package ledger

import (
	"strings"
	"time"

	"github.com/securebank-ledger/internal/domain/shared"
)

// SortKey is the closed set of orderings ListByAccount accepts
type SortKey string

const (
	SortByDate        SortKey = "date"
	SortByAmount      SortKey = "amount"
	SortByDescription SortKey = "description"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// ParseSortKey validates a caller-supplied sort key. Empty means date.
func ParseSortKey(raw string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SortByDate:
		return SortByDate, nil
	case SortByAmount:
		return SortByAmount, nil
	case SortByDescription:
		return SortByDescription, nil
	}
	return "", shared.ErrInvalidArgument{Field: "sort", Reason: "must be one of date, amount, description"}
}

// ParseSortDirection validates a caller-supplied direction. Empty means descending.
func ParseSortDirection(raw string) (SortDirection, error) {
	switch SortDirection(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SortDescending:
		return SortDescending, nil
	case SortAscending:
		return SortAscending, nil
	}
	return "", shared.ErrInvalidArgument{Field: "order", Reason: "must be asc or desc"}
}

// DateRange is a half-open interval [Start, End). A zero bound is unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls inside the range
func (r DateRange) Contains(ts time.Time) bool {
	if !r.Start.IsZero() && ts.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !ts.Before(r.End) {
		return false
	}
	return true
}

// Validate rejects ranges whose end is not after their start
func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && !r.End.After(r.Start) {
		return shared.ErrInvalidArgument{Field: "endDate", Reason: "must be after startDate"}
	}
	return nil
}

// DateLayout is the accepted wire format for date-only parameters
const DateLayout = "2006-01-02"

// ParseDateRange parses optional YYYY-MM-DD (or RFC3339) bounds
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	var err error
	if r.Start, err = parseDate("startDate", start); err != nil {
		return DateRange{}, err
	}
	if r.End, err = parseDate("endDate", end); err != nil {
		return DateRange{}, err
	}
	return r, r.Validate()
}

func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(DateLayout, raw); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Time{}, shared.ErrInvalidArgument{Field: field, Reason: "must be YYYY-MM-DD or RFC3339"}
}
