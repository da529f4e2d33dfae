/*
errors.go - Centralized error taxonomy for the booking core

PURPOSE:
  All caller-visible error conditions in one place. Every operation returns
  one of these (wrapped with context); the HTTP layer maps them to status
  codes and user-facing messages.

ERROR CATEGORIES:
  1. Lookup errors    - referenced Property/Booking/Dealer absent
  2. State errors     - operation forbidden from the current status
  3. Conflict errors  - another CONFIRMED booking already claimed the window
  4. Storage errors   - transaction aborts surfaced as Unavailable

USAGE:
  if errors.Is(err, booking.ErrConflict) { ... }

  var conflict *booking.ConflictError
  if errors.As(err, &conflict) { log.Println(conflict.WinnerID) }
*/
package booking

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced Property, Booking or Dealer
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation is attempted from a
	// status that forbids it, e.g. approving a non-PENDING booking.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrInvalidInput is returned for malformed input such as a too-short
	// payment reference or an inverted window.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when an overlapping CONFIRMED booking already
	// claims the requested window.
	ErrConflict = errors.New("conflicting confirmed booking")

	// ErrForbidden is returned when the acting user does not own the booking.
	ErrForbidden = errors.New("forbidden")

	// ErrTooLate is returned when a cancellation arrives inside the
	// 24-hour-before-start cutoff.
	ErrTooLate = errors.New("too late to cancel")

	// ErrUnavailable is returned when a multi-row write transaction aborts.
	// It is deliberately not retried here: blind retry of a write that
	// cancels siblings risks double-application without idempotency keys.
	ErrUnavailable = errors.New("storage unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConflictError identifies the CONFIRMED booking that claimed the window.
type ConflictError struct {
	PropertyID PropertyID
	WinnerID   BookingID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("property %s already confirmed for an overlapping window (booking %s)",
		e.PropertyID, e.WinnerID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// TooLateError carries the cutoff that was missed.
type TooLateError struct {
	BookingID BookingID
	StartDate time.Time
	Cutoff    time.Time
	Now       time.Time
}

func (e *TooLateError) Error() string {
	return fmt.Sprintf("booking %s starts %s; cancellation closed at %s (now %s)",
		e.BookingID, e.StartDate.Format(time.RFC3339), e.Cutoff.Format(time.RFC3339),
		e.Now.Format(time.RFC3339))
}

func (e *TooLateError) Unwrap() error { return ErrTooLate }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError reports whether the error is the caller's fault and safe to
// surface as a 4xx.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrTooLate)
}
