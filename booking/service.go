/*
service.go - The booking allocation state machine

PURPOSE:
  Owns every transition in a booking's life and the companion Property
  status flag:

    PENDING ──▶ CONFIRMED ──▶ CANCELLED
       │             │
       ▼             ▼
    CANCELLED     EXPIRED

  CANCELLED and EXPIRED are terminal. Payment confirmation is a manual,
  human-reviewed decision: Create queues a PENDING request, an admin later
  approves exactly one.

CONCURRENCY:
  Two concurrent Approve calls on overlapping PENDING bookings must not
  both succeed. Every multi-row operation here runs through
  TxStore.WithTx; the store serializes write transactions and the overlap
  re-check happens inside the same transaction as the writes it guards.

STATE PAIRING:
  Property.Status and Booking.Status are the two pieces of cross-cutting
  shared state. Any operation that mutates one mutates both in the same
  transaction; a reader can never observe CONFIRMED booking + FREE
  property.

SEE ALSO:
  - availability.go: the advisory pre-check used by Create
  - api/sweeper.go:  the timer that drives Sweep
*/
package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// POLICY CONFIG
// =============================================================================

// Config is the fixed booking policy. These are operator knobs, not
// per-property values: the booking fee is flat and independent of the
// property price.
type Config struct {
	// BookingFee is the flat charge persisted on every new booking.
	BookingFee decimal.Decimal

	// DefaultWindowDays is the length of the window when the caller does
	// not supply one: now .. now + DefaultWindowDays.
	DefaultWindowDays int

	// CancelCutoff is how long before StartDate a user cancellation must
	// arrive.
	CancelCutoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		BookingFee:        decimal.NewFromInt(5000),
		DefaultWindowDays: 3,
		CancelCutoff:      24 * time.Hour,
	}
}

// minPaymentRefLen guards against empty or junk proof identifiers.
const minPaymentRefLen = 4

// =============================================================================
// DEALER CODE VALIDATION - Provided by the referral package
// =============================================================================

// DealerCodeValidator resolves a referral code to an approved dealer.
// Implemented by referral.Tree; declared here so the state machine does
// not depend on the referral package.
type DealerCodeValidator interface {
	Validate(ctx context.Context, code string) (DealerID, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the booking state machine. Construct one per process and
// inject the store; there is no package-level state.
type Service struct {
	Store    TxStore
	Clock    Clock
	Notifier Notifier
	Refunder Refunder
	Codes    DealerCodeValidator
	Config   Config
}

// NewService wires a Service with default collaborators for everything
// not supplied.
func NewService(store TxStore, codes DealerCodeValidator) *Service {
	return &Service{
		Store:    store,
		Clock:    SystemClock{},
		Notifier: LogNotifier{},
		Refunder: LogRefunder{},
		Codes:    codes,
		Config:   DefaultConfig(),
	}
}

// CreateParams carries the user's booking submission.
type CreateParams struct {
	PropertyID   PropertyID
	UserID       UserID
	DealerCode   string // optional referral attribution
	PaymentRef   string // manual payment proof identifier
	PaymentProof string // optional proof URI

	// StartDate/EndDate override the default window when both are set.
	StartDate time.Time
	EndDate   time.Time
}

// Create validates and persists a PENDING booking. The property stays
// FREE while pending requests queue up; only approval claims it.
//
// Fails with ErrNotFound (property missing, or dealer code unknown),
// ErrInvalidState (property not FREE), ErrInvalidInput (payment ref too
// short, inverted window), ErrConflict (a CONFIRMED booking already
// overlaps the window).
func (s *Service) Create(ctx context.Context, params CreateParams) (*Booking, error) {
	if len(params.PaymentRef) < minPaymentRefLen {
		return nil, fmt.Errorf("payment reference must be at least %d characters: %w",
			minPaymentRefLen, ErrInvalidInput)
	}

	now := s.Clock.Now()
	window := Window{Start: params.StartDate, End: params.EndDate}
	if window.Start.IsZero() || window.End.IsZero() {
		window = Window{Start: now, End: now.AddDate(0, 0, s.Config.DefaultWindowDays)}
	}
	if !window.Valid() {
		return nil, fmt.Errorf("booking window start after end: %w", ErrInvalidInput)
	}

	// Resolve attribution up front so a mistyped code fails the submission
	// instead of silently dropping the dealer's commission chain.
	if params.DealerCode != "" {
		if _, err := s.Codes.Validate(ctx, params.DealerCode); err != nil {
			return nil, fmt.Errorf("dealer code %q: %w", params.DealerCode, err)
		}
	}

	booking := &Booking{
		ID:           BookingID(uuid.NewString()),
		PropertyID:   params.PropertyID,
		UserID:       params.UserID,
		StartDate:    window.Start,
		EndDate:      window.End,
		Status:       BookingPending,
		PaymentRef:   params.PaymentRef,
		PaymentProof: params.PaymentProof,
		DealerCode:   params.DealerCode,
		Charges:      s.Config.BookingFee,
		TotalAmount:  s.Config.BookingFee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.Store.WithTx(ctx, func(store Store) error {
		property, err := store.GetProperty(ctx, params.PropertyID)
		if err != nil {
			return fmt.Errorf("property %s: %w", params.PropertyID, err)
		}
		if property.Status != PropertyFree {
			return fmt.Errorf("property %s is %s: %w", property.ID, property.Status, ErrInvalidState)
		}

		// Only CONFIRMED bookings block; competing PENDING submissions are
		// allowed to coexist until an admin picks a winner.
		winner, err := store.FindConfirmedOverlap(ctx, params.PropertyID, window)
		if err != nil {
			return fmt.Errorf("overlap check: %w", err)
		}
		if winner != nil {
			return &ConflictError{PropertyID: params.PropertyID, WinnerID: winner.ID}
		}

		return store.CreateBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	// Fire-and-forget: a notification failure must never fail the booking.
	go s.Notifier.NotifyAdminOfNewBooking(booking)

	return booking, nil
}

// Approve confirms a PENDING booking after re-checking the window inside
// the transaction. Atomically: cancel every other overlapping PENDING
// booking on the property (they lost the race), confirm this one, and
// mark the property BOOKED. A partial application would let a stale
// PENDING booking later be approved against an already-booked property.
func (s *Service) Approve(ctx context.Context, id BookingID) (*Booking, error) {
	var approved *Booking

	// Resolve dealer attribution before opening the write transaction;
	// the referral tree reads through its own store path. The dealer may
	// have been rejected since submission, in which case attribution is
	// skipped, not the approval.
	var attributedDealer *DealerID
	if pending, err := s.Store.GetBooking(ctx, id); err == nil && pending.DealerCode != "" {
		if dealerID, err := s.Codes.Validate(ctx, pending.DealerCode); err == nil {
			attributedDealer = &dealerID
		} else {
			log.Printf("[Booking] dealer code %q no longer valid, skipping attribution: %v",
				pending.DealerCode, err)
		}
	}

	err := s.Store.WithTx(ctx, func(store Store) error {
		booking, err := store.GetBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("booking %s: %w", id, err)
		}
		if booking.Status != BookingPending {
			return fmt.Errorf("cannot approve booking in status %s: %w", booking.Status, ErrInvalidState)
		}

		window := booking.Window()

		// Another approval may have claimed the slot since this request was
		// submitted. This booking stays PENDING in that case.
		winner, err := store.FindConfirmedOverlap(ctx, booking.PropertyID, window)
		if err != nil {
			return fmt.Errorf("overlap re-check: %w", err)
		}
		if winner != nil {
			return &ConflictError{PropertyID: booking.PropertyID, WinnerID: winner.ID}
		}

		now := s.Clock.Now()

		// (a) the overlapping PENDING siblings lost the race
		siblings, err := store.ListPendingOverlapping(ctx, booking.PropertyID, window)
		if err != nil {
			return fmt.Errorf("sibling lookup: %w", err)
		}
		for i := range siblings {
			sibling := &siblings[i]
			if sibling.ID == booking.ID {
				continue
			}
			sibling.Status = BookingCancelled
			sibling.UpdatedAt = now
			if err := store.UpdateBooking(ctx, sibling); err != nil {
				return fmt.Errorf("cancel sibling %s: %w", sibling.ID, err)
			}
		}

		// (b) confirm the winner
		booking.Status = BookingConfirmed
		booking.UpdatedAt = now
		if err := store.UpdateBooking(ctx, booking); err != nil {
			return fmt.Errorf("confirm booking: %w", err)
		}

		// (c) claim the property, stamping dealer attribution from the
		// winning booking's code so the commission engine has one source
		// of truth.
		property, err := store.GetProperty(ctx, booking.PropertyID)
		if err != nil {
			return fmt.Errorf("property %s: %w", booking.PropertyID, err)
		}
		property.Status = PropertyBooked
		if attributedDealer != nil {
			property.DealerID = attributedDealer
		}
		property.UpdatedAt = now
		if err := store.UpdateProperty(ctx, property); err != nil {
			return fmt.Errorf("mark property booked: %w", err)
		}

		approved = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	return approved, nil
}

// Reject declines a PENDING booking and sets the property back to FREE.
//
// Known sharp edge, preserved from the original flow: the property is
// freed unconditionally even when other overlapping PENDING requests
// still exist against it. Since PENDING requests never flip the property
// off FREE in the first place, this is a no-op in the common path, but it
// will also reset a property an admin had moved off FREE by hand.
func (s *Service) Reject(ctx context.Context, id BookingID) error {
	return s.Store.WithTx(ctx, func(store Store) error {
		booking, err := store.GetBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("booking %s: %w", id, err)
		}
		if booking.Status != BookingPending {
			return fmt.Errorf("cannot reject booking in status %s: %w", booking.Status, ErrInvalidState)
		}

		now := s.Clock.Now()
		booking.Status = BookingCancelled
		booking.UpdatedAt = now
		if err := store.UpdateBooking(ctx, booking); err != nil {
			return fmt.Errorf("reject booking: %w", err)
		}

		property, err := store.GetProperty(ctx, booking.PropertyID)
		if err != nil {
			return fmt.Errorf("property %s: %w", booking.PropertyID, err)
		}
		property.Status = PropertyFree
		property.UpdatedAt = now
		return store.UpdateProperty(ctx, property)
	})
}

// Cancel is the user-initiated exit from CONFIRMED. The caller must own
// the booking and be more than CancelCutoff (24h) before StartDate.
// Refund is triggered through the collaborator; a refund failure is
// logged, not fatal; the cancellation itself stands.
func (s *Service) Cancel(ctx context.Context, id BookingID, userID UserID) (*Booking, error) {
	var cancelled *Booking

	err := s.Store.WithTx(ctx, func(store Store) error {
		booking, err := store.GetBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("booking %s: %w", id, err)
		}
		if booking.UserID != userID {
			return fmt.Errorf("booking %s is not owned by user %s: %w", id, userID, ErrForbidden)
		}
		if booking.Status != BookingConfirmed {
			return fmt.Errorf("cannot cancel booking in status %s: %w", booking.Status, ErrInvalidState)
		}

		now := s.Clock.Now()
		cutoff := booking.StartDate.Add(-s.Config.CancelCutoff)
		if !now.Before(cutoff) {
			return &TooLateError{BookingID: id, StartDate: booking.StartDate, Cutoff: cutoff, Now: now}
		}

		if !s.Refunder.RefundPayment(booking.PaymentRef) {
			log.Printf("[Booking] refund failed for payment ref %q (booking %s)", booking.PaymentRef, id)
		}

		booking.Status = BookingCancelled
		booking.UpdatedAt = now
		if err := store.UpdateBooking(ctx, booking); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}

		property, err := store.GetProperty(ctx, booking.PropertyID)
		if err != nil {
			return fmt.Errorf("property %s: %w", booking.PropertyID, err)
		}
		property.Status = PropertyFree
		property.UpdatedAt = now
		if err := store.UpdateProperty(ctx, property); err != nil {
			return fmt.Errorf("free property: %w", err)
		}

		cancelled = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cancelled, nil
}

// Unbook is the administrative override: CONFIRMED → CANCELLED with no
// ownership or time restriction, property back to FREE.
func (s *Service) Unbook(ctx context.Context, id BookingID) (*Booking, error) {
	var cancelled *Booking

	err := s.Store.WithTx(ctx, func(store Store) error {
		booking, err := store.GetBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("booking %s: %w", id, err)
		}
		if booking.Status != BookingConfirmed {
			return fmt.Errorf("cannot unbook booking in status %s: %w", booking.Status, ErrInvalidState)
		}

		now := s.Clock.Now()
		booking.Status = BookingCancelled
		booking.UpdatedAt = now
		if err := store.UpdateBooking(ctx, booking); err != nil {
			return fmt.Errorf("unbook booking: %w", err)
		}

		property, err := store.GetProperty(ctx, booking.PropertyID)
		if err != nil {
			return fmt.Errorf("property %s: %w", booking.PropertyID, err)
		}
		property.Status = PropertyFree
		property.UpdatedAt = now
		if err := store.UpdateProperty(ctx, property); err != nil {
			return fmt.Errorf("free property: %w", err)
		}

		cancelled = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cancelled, nil
}

// Sweep demotes every CONFIRMED booking whose window has fully passed to
// EXPIRED and frees its property. Idempotent: a booking no longer
// CONFIRMED is skipped, so a second run (or a run overlapping itself) has
// no additional effect. Returns the number of bookings expired.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	expired := 0

	err := s.Store.WithTx(ctx, func(store Store) error {
		now := s.Clock.Now()
		dueList, err := store.ListExpiredConfirmed(ctx, now)
		if err != nil {
			return fmt.Errorf("expired lookup: %w", err)
		}

		for i := range dueList {
			booking := &dueList[i]
			// Guard against a concurrent transition: only act on rows still
			// CONFIRMED at write time.
			if booking.Status != BookingConfirmed {
				continue
			}

			booking.Status = BookingExpired
			booking.UpdatedAt = now
			if err := store.UpdateBooking(ctx, booking); err != nil {
				return fmt.Errorf("expire booking %s: %w", booking.ID, err)
			}

			property, err := store.GetProperty(ctx, booking.PropertyID)
			if err != nil {
				return fmt.Errorf("property %s: %w", booking.PropertyID, err)
			}
			// A property an admin has marked SOLD stays SOLD.
			if property.Status == PropertyBooked {
				property.Status = PropertyFree
				property.UpdatedAt = now
				if err := store.UpdateProperty(ctx, property); err != nil {
					return fmt.Errorf("free property %s: %w", property.ID, err)
				}
			}

			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return expired, nil
}
