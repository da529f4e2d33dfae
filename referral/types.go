/*
Package referral contains the dealer hierarchy and the commission engine.

PURPOSE:
  Dealers form a forest: each dealer optionally points at the dealer whose
  referral code they signed up with. The parent link is set once at
  creation and never repoints, so cycles are excluded by construction;
  the walk still bounds itself defensively.

  When a sale or booking closes, the engine walks the attributed dealer's
  ancestor chain and attributes a slice of the base amount to each level
  according to the admin-editable CommissionConfig.

KEY CONCEPTS:
  - Level 1 is the closing dealer itself; level 2 their referrer; and so on
  - Commission rows are an append-only ledger, never mutated after creation
  - Each dealer also carries a running total, incremented in the same
    transaction that inserts the row

SEE ALSO:
  - tree.go:   validation, registration, bounded ancestor walk
  - engine.go: the per-level payout calculation
*/
package referral

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
)

// =============================================================================
// DEALER - A node in the referral forest
// =============================================================================

type DealerStatus string

const (
	DealerPending  DealerStatus = "pending"
	DealerApproved DealerStatus = "approved"
	DealerRejected DealerStatus = "rejected"
)

// Dealer is a referral-tree node tied to one user account.
type Dealer struct {
	ID     booking.DealerID
	UserID booking.UserID

	// ReferralCode is the unique short token new applicants use to record
	// who referred them.
	ReferralCode string

	Status DealerStatus

	// ParentID is set once at creation from a validated referral code and
	// is otherwise immutable. Nil for tree roots.
	ParentID *booking.DealerID

	// Commission is the running total across all levels. Kept consistent
	// with the commission ledger by the engine's per-level transactions.
	Commission decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// COMMISSION - Append-only payout ledger entry
// =============================================================================

type CommissionID string

// Commission records one level of one payout. Never mutated after
// creation.
type Commission struct {
	ID         CommissionID
	DealerID   booking.DealerID
	PropertyID booking.PropertyID

	// BookingID links the originating booking when the payout came from a
	// booking event; empty for direct sales.
	BookingID booking.BookingID

	Amount decimal.Decimal

	// Level is the distance from the closing dealer: 1 = the closer,
	// increasing toward ancestors.
	Level int

	CreatedAt time.Time
}

// =============================================================================
// ANCESTOR WALK RESULTS
// =============================================================================

// Ancestor pairs a dealer with its level relative to the walk origin.
type Ancestor struct {
	Dealer Dealer
	Level  int
}

// SubtreeStats aggregates a dealer's downline.
type SubtreeStats struct {
	DealerID booking.DealerID

	// Descendants counts every dealer below this one, all depths.
	Descendants int

	// TotalCommission sums the running totals across the subtree,
	// including the root dealer.
	TotalCommission decimal.Decimal
}
