/*
Package booking contains the core of the marketplace: the booking allocation
state machine and the availability rules around it.

PURPOSE:
  A property is a scarce resource. Many users may submit competing booking
  requests with manual payment proof; an admin later picks a winner. This
  package owns that lifecycle end to end:
  1. Create:  validate and persist a PENDING request (property stays FREE)
  2. Approve: confirm exactly one request, cancel overlapping losers,
              flip the property to BOOKED, all in one transaction
  3. Reject/Cancel/Unbook: the exits back to FREE
  4. Sweep:   demote past-due CONFIRMED bookings to EXPIRED

KEY CONCEPTS IN THIS FILE (types.go):
  - Property: the scarce resource with a status flag
  - Booking:  a request for a time window, never physically deleted
  - Window:   inclusive date range with the overlap test used everywhere

DESIGN PRINCIPLES:
  1. PENDING never blocks: competing manual-payment submissions coexist
     until an admin approves one (availability.go)
  2. Atomicity: every operation touching both a Booking and its Property
     runs inside a single store transaction (service.go)
  3. Precision: all money uses decimal.Decimal
  4. Freshness: no entity is cached outside the store; every decision
     re-reads inside its own transaction

SEE ALSO:
  - service.go:      the state machine operations
  - availability.go: the CONFIRMED-overlap query
  - store.go:        persistence interfaces
  - referral package: dealer tree and commission engine
*/
package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PropertyID string
type BookingID string
type UserID string
type DealerID string

// =============================================================================
// PROPERTY - The scarce resource
// =============================================================================

type PropertyStatus string

const (
	PropertyFree   PropertyStatus = "free"
	PropertyBooked PropertyStatus = "booked"
	PropertySold   PropertyStatus = "sold"
)

// Property is a listed unit. Status BOOKED means exactly one CONFIRMED
// booking covers a window containing "now" (up to one sweep interval of lag,
// until the Sweeper demotes past-due bookings).
type Property struct {
	ID     PropertyID
	Title  string
	Price  decimal.Decimal
	Status PropertyStatus

	// OwnerID is the listing owner. Identity itself lives outside this core.
	OwnerID UserID

	// DealerID is the attributed closer, if any. Approve stamps it from the
	// winning booking's validated dealer code; the commission engine reads it.
	DealerID *DealerID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// BOOKING - A request to occupy a property for a window
// =============================================================================

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingExpired   BookingStatus = "expired"
)

// Terminal reports whether a status has no outgoing transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingExpired
}

// Booking records one request. Rows are append-then-mutate-status only:
// cancellation and expiry are terminal states, never deletions, so the
// history stays auditable.
type Booking struct {
	ID         BookingID
	PropertyID PropertyID
	UserID     UserID

	StartDate time.Time
	EndDate   time.Time
	Status    BookingStatus

	// PaymentRef is the free-text proof identifier the user submitted.
	// Payment confirmation is a human decision, not a gateway callback.
	PaymentRef   string
	PaymentProof string

	// DealerCode is the optional referral attribution captured at booking
	// time, validated against the referral tree on Create.
	DealerCode string

	Charges     decimal.Decimal
	TotalAmount decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Window returns the booking's inclusive date window.
func (b *Booking) Window() Window {
	return Window{Start: b.StartDate, End: b.EndDate}
}

// =============================================================================
// WINDOW - Inclusive date range and the single overlap test
// =============================================================================

// Window is an inclusive range [Start, End]. Start must not be after End.
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two windows share at least one instant.
// This is the one overlap test used by availability, approval re-checks
// and sibling cancellation: Start <= other.End && End >= other.Start.
func (w Window) Overlaps(other Window) bool {
	return !w.Start.After(other.End) && !w.End.Before(other.Start)
}

// Valid reports whether the window is well-formed.
func (w Window) Valid() bool {
	return !w.Start.After(w.End)
}
