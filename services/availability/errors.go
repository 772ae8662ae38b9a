package availability

import (
	"errors"
	"fmt"

	availabilityRepo "gigcal/database/repository/availability"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidRange = errors.New("invalid date range")
	ErrInvalidNote  = errors.New("invalid note")
	ErrMissingToken = errors.New("hold token required")

	// ErrStoreUnavailable is the store's transient failure; safe to retry.
	ErrStoreUnavailable = availabilityRepo.ErrUnavailable

	// ErrConflict matches every *ConflictError through errors.Is.
	ErrConflict = errors.New("date conflict")
)

type ConflictReason string

const (
	ReasonDateBusy ConflictReason = "date_busy"
	ReasonDateHeld ConflictReason = "date_held"
)

// ConflictError reports that a hold could not be taken. date_busy is
// permanent; date_held clears once the competing hold expires.
type ConflictError struct {
	Date   string
	Reason ConflictReason
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Date)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func (e *ConflictError) Retryable() bool {
	return e.Reason == ReasonDateHeld
}

func newConflict(date string, reason ConflictReason) error {
	return &ConflictError{Date: date, Reason: reason}
}
