package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOrderNotFound is returned when the commerce order behind a sync record does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderInvalid is returned when an order has no persisted identity.
	ErrOrderInvalid = errors.New("order is invalid")
	// ErrInvalidArgument marks caller misuse: bad status literals, thresholds or page values.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPersistence wraps repository save/delete failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidSearchCriteria is returned for non-positive page or page size.
	ErrInvalidSearchCriteria = errors.New("invalid search criteria")
)

// RowError describes why a single legacy row was rejected.
type RowError struct {
	Index  int
	Field  string
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Index, e.Field, e.Reason)
}

// ValidationError aggregates every rejected row of a batch.
type ValidationError struct {
	Rows []RowError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for _, row := range e.Rows {
		parts = append(parts, row.Error())
	}
	return fmt.Sprintf("validation failed for %d row(s): %s", len(e.Rows), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Rows))
	for _, row := range e.Rows {
		errs = append(errs, row)
	}
	return errs
}
