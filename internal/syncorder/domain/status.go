package domain

import (
	"database/sql/driver"
	"fmt"
)

// Status is the synchronization state of an order. Values read from storage
// that do not match a known state parse to StatusUnknown, which never allows
// a sync to be initiated.
type Status uint8

const (
	StatusUnset Status = iota
	StatusNotRegistered
	StatusQueued
	StatusProcessing
	StatusRetry
	StatusPartial
	StatusSynced
	StatusError
	StatusUnknown
)

var statusNames = map[Status]string{
	StatusUnset:         "",
	StatusNotRegistered: "NOT_REGISTERED",
	StatusQueued:        "QUEUED",
	StatusProcessing:    "PROCESSING",
	StatusRetry:         "RETRY",
	StatusPartial:       "PARTIAL",
	StatusSynced:        "SYNCED",
	StatusError:         "ERROR",
	StatusUnknown:       "UNKNOWN",
}

// ParseStatus maps a stored status string onto a Status. It never fails.
func ParseStatus(value string) Status {
	for status, name := range statusNames {
		if status == StatusUnknown {
			continue
		}
		if name == value {
			return status
		}
	}
	return StatusUnknown
}

// ParseKnownStatus is ParseStatus for caller input: unknown values are rejected.
func ParseKnownStatus(value string) (Status, error) {
	status := ParseStatus(value)
	if status == StatusUnknown {
		return StatusUnknown, fmt.Errorf("%w: unknown sync status %q", ErrInvalidArgument, value)
	}
	return status, nil
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusUnknown]
}

// CanInitiateSync reports whether an order in this state may be picked up
// for (re-)transmission.
func (s Status) CanInitiateSync() bool {
	switch s {
	case StatusQueued, StatusRetry, StatusPartial:
		return true
	default:
		return false
	}
}

// IsProcessedResult reports whether the status is a valid outcome of a
// processing attempt.
func (s Status) IsProcessedResult() bool {
	switch s {
	case StatusPartial, StatusSynced, StatusError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further sync attempts are expected.
func (s Status) IsTerminal() bool {
	return s == StatusSynced || s == StatusError
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// Scan implements sql.Scanner so pgx can read status columns directly.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = StatusUnset
	case string:
		*s = ParseStatus(v)
	case []byte:
		*s = ParseStatus(string(v))
	default:
		return fmt.Errorf("scan sync status: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if s == StatusUnknown {
		return nil, fmt.Errorf("%w: refusing to persist unknown sync status", ErrInvalidArgument)
	}
	return s.String(), nil
}

// AllStatuses lists every known status, in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusUnset,
		StatusNotRegistered,
		StatusQueued,
		StatusProcessing,
		StatusRetry,
		StatusPartial,
		StatusSynced,
		StatusError,
	}
}
