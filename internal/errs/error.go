package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyReturned   = errors.New("checkout already returned")
	ErrInvalidTransition = errors.New("invalid request transition")
	ErrValidation        = errors.New("validation failed")
	ErrActiveCheckouts   = errors.New("active checkouts exist")
)

// InsufficientAvailabilityError names the offending item so a multi-line
// pickup can report exactly which line could not be fulfilled.
type InsufficientAvailabilityError struct {
	ItemUid   string
	ItemName  string
	Requested int
	Available int
}

func (e *InsufficientAvailabilityError) Error() string {
	return fmt.Sprintf("insufficient availability for item %q (%s): requested %d, available %d",
		e.ItemName, e.ItemUid, e.Requested, e.Available)
}

func IsInsufficientAvailability(err error) bool {
	var target *InsufficientAvailabilityError
	return errors.As(err, &target)
}
