/*
store.go - Persistence interfaces for the booking core

PURPOSE:
  Defines the contract between the state machine and the database. The
  store is the only place with authoritative state; the service never
  caches an entity across operations.

KEY INTERFACES:
  Store:   point reads and writes for Property and Booking rows
  TxStore: unit-of-work wrapper for atomic multi-row operations

ATOMICITY CONTRACT:
  Every operation that mutates both a Booking and its Property (Approve,
  Reject, Cancel, Unbook, Sweep) runs inside WithTx. The Store passed to
  the callback is bound to that transaction, so the overlap re-checks in
  Approve read at the same isolation as the writes they guard.

IMPLEMENTATIONS:
  - store/sqlite:       production SQLite (WAL, serialized writers)
  - booking/store:      in-memory substitute for tests

SEE ALSO:
  - service.go: the only caller that mutates state
  - referral/store.go: the dealer-side interfaces
*/
package booking

import (
	"context"
	"time"
)

// Store handles persistence of properties and bookings.
// Bookings are never deleted; transitions only ever rewrite status and
// timestamps (see UpdateBooking).
type Store interface {
	// CreateProperty inserts a new property.
	CreateProperty(ctx context.Context, p *Property) error

	// GetProperty returns a property or ErrNotFound.
	GetProperty(ctx context.Context, id PropertyID) (*Property, error)

	// UpdateProperty rewrites a property's mutable fields (status, dealer
	// attribution). Returns ErrNotFound if the row is missing.
	UpdateProperty(ctx context.Context, p *Property) error

	// ListProperties returns all properties, newest first.
	ListProperties(ctx context.Context) ([]Property, error)

	// CreateBooking inserts a new booking.
	CreateBooking(ctx context.Context, b *Booking) error

	// GetBooking returns a booking or ErrNotFound.
	GetBooking(ctx context.Context, id BookingID) (*Booking, error)

	// UpdateBooking rewrites a booking's mutable fields.
	UpdateBooking(ctx context.Context, b *Booking) error

	// ListBookingsByProperty returns every booking for a property,
	// oldest first.
	ListBookingsByProperty(ctx context.Context, id PropertyID) ([]Booking, error)

	// FindConfirmedOverlap returns the CONFIRMED booking whose window
	// overlaps w, or nil if none exists. At most one can exist by the
	// no-double-confirmation invariant.
	FindConfirmedOverlap(ctx context.Context, id PropertyID, w Window) (*Booking, error)

	// ListPendingOverlapping returns the PENDING bookings on a property
	// whose windows overlap w.
	ListPendingOverlapping(ctx context.Context, id PropertyID, w Window) ([]Booking, error)

	// ListExpiredConfirmed returns CONFIRMED bookings with EndDate before
	// asOf. Used by the sweeper.
	ListExpiredConfirmed(ctx context.Context, asOf time.Time) ([]Booking, error)
}

// TxStore wraps Store with transaction support.
// If fn returns an error the transaction is rolled back; otherwise it is
// committed. Implementations must serialize write transactions so that two
// concurrent Approve calls on the same property cannot interleave.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
