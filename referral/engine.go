/*
engine.go - Multi-level commission calculation

PURPOSE:
  Given a sale/booking event on a property, attribute a slice of the base
  amount to the property's dealer and each configured ancestor level:

    amount(level) = baseAmount * percentage(level) / 100

TRUNCATION POLICY:
  A level with no configured percentage ends the payout chain. Sparse
  configs truncate rather than continuing with zero: silently paying
  zero-value rows would bury config mistakes in the ledger.

ATOMICITY:
  Per level, "append the Commission row" and "increment the dealer's
  running total" are one transaction. A notify failure after commit is
  logged, never rolled back.
*/
package referral

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
)

// CommissionNotifier delivers "commission earned" alerts. Fire-and-forget.
type CommissionNotifier interface {
	NotifyDealerOfCommission(d *Dealer, amount decimal.Decimal, level int)
}

// LogCommissionNotifier is the default notifier; real channels live
// outside this core.
type LogCommissionNotifier struct{}

func (LogCommissionNotifier) NotifyDealerOfCommission(d *Dealer, amount decimal.Decimal, level int) {
	log.Printf("[Commission] dealer %s earned %s at level %d", d.ID, amount, level)
}

// DefaultMaxLevels caps the walk when the config itself is unbounded.
const DefaultMaxLevels = 3

var oneHundred = decimal.NewFromInt(100)

// Engine computes and persists multi-level payouts.
type Engine struct {
	Dealers    TxStore
	Properties booking.Store
	Tree       *Tree
	Notifier   CommissionNotifier
	Clock      booking.Clock

	// MaxLevels bounds the ancestor walk regardless of config shape.
	MaxLevels int
}

func NewEngine(dealers TxStore, properties booking.Store, tree *Tree) *Engine {
	return &Engine{
		Dealers:    dealers,
		Properties: properties,
		Tree:       tree,
		Notifier:   LogCommissionNotifier{},
		Clock:      booking.SystemClock{},
		MaxLevels:  DefaultMaxLevels,
	}
}

// Calculate walks the attributed dealer's ancestor chain and persists one
// Commission row per configured level, bumping each dealer's running
// total in the same transaction. Returns the rows in level order.
//
// The property's DealerID is the source of truth for attribution; Approve
// stamps it from the winning booking's code. ErrNotFound when the
// property is missing or carries no attribution.
func (e *Engine) Calculate(ctx context.Context, propertyID booking.PropertyID, baseAmount decimal.Decimal) ([]Commission, error) {
	return e.calculate(ctx, propertyID, "", baseAmount)
}

// CalculateForBooking is Calculate with the originating booking recorded
// on every row.
func (e *Engine) CalculateForBooking(ctx context.Context, propertyID booking.PropertyID, bookingID booking.BookingID, baseAmount decimal.Decimal) ([]Commission, error) {
	return e.calculate(ctx, propertyID, bookingID, baseAmount)
}

func (e *Engine) calculate(ctx context.Context, propertyID booking.PropertyID, bookingID booking.BookingID, baseAmount decimal.Decimal) ([]Commission, error) {
	if !baseAmount.IsPositive() {
		return nil, fmt.Errorf("base amount must be positive, got %s: %w", baseAmount, booking.ErrInvalidInput)
	}

	property, err := e.Properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", propertyID, err)
	}
	if property.DealerID == nil {
		return nil, fmt.Errorf("property %s has no attributed dealer: %w", propertyID, booking.ErrNotFound)
	}

	config, err := e.Dealers.GetCommissionConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("commission config: %w", err)
	}

	maxLevels := e.MaxLevels
	if maxLevels <= 0 {
		maxLevels = DefaultMaxLevels
	}

	chain, err := e.Tree.WalkAncestors(ctx, *property.DealerID, maxLevels)
	if err != nil {
		return nil, fmt.Errorf("ancestor walk: %w", err)
	}

	var payouts []Commission
	for _, ancestor := range chain {
		percentage, ok := config[ancestor.Level]
		if !ok {
			// Sparse config truncates the chain.
			break
		}

		amount := baseAmount.Mul(percentage).Div(oneHundred)
		row := Commission{
			ID:         CommissionID(uuid.NewString()),
			DealerID:   ancestor.Dealer.ID,
			PropertyID: propertyID,
			BookingID:  bookingID,
			Amount:     amount,
			Level:      ancestor.Level,
			CreatedAt:  e.Clock.Now(),
		}

		// Row append and running-total bump are one atomic unit per level.
		err := e.Dealers.WithTx(ctx, func(store Store) error {
			if err := store.CreateCommission(ctx, &row); err != nil {
				return fmt.Errorf("commission row for dealer %s: %w", row.DealerID, err)
			}
			return store.AddDealerCommission(ctx, row.DealerID, amount)
		})
		if err != nil {
			return payouts, err
		}

		dealer := ancestor.Dealer
		go e.Notifier.NotifyDealerOfCommission(&dealer, amount, ancestor.Level)

		payouts = append(payouts, row)
	}

	return payouts, nil
}

// =============================================================================
// CONFIG ACCESS - Thin passthroughs for the admin surface
// =============================================================================

// Config returns the level → percentage map.
func (e *Engine) Config(ctx context.Context) (map[int]decimal.Decimal, error) {
	return e.Dealers.GetCommissionConfig(ctx)
}

// SetConfigLevel upserts one level's percentage.
func (e *Engine) SetConfigLevel(ctx context.Context, level int, percentage decimal.Decimal) error {
	if level < 1 {
		return fmt.Errorf("level must be >= 1, got %d: %w", level, booking.ErrInvalidInput)
	}
	if percentage.IsNegative() {
		return fmt.Errorf("percentage must not be negative, got %s: %w", percentage, booking.ErrInvalidInput)
	}
	return e.Dealers.SetCommissionConfigLevel(ctx, level, percentage)
}
