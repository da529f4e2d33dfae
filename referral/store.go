package referral

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
)

// Store handles persistence of dealers, commission rows and the level
// configuration. Commission rows are append-only: there is deliberately
// no update or delete for them.
type Store interface {
	// CreateDealer inserts a new dealer. Returns booking.ErrConflict if
	// the referral code is already taken.
	CreateDealer(ctx context.Context, d *Dealer) error

	// GetDealer returns a dealer or booking.ErrNotFound.
	GetDealer(ctx context.Context, id booking.DealerID) (*Dealer, error)

	// GetDealerByCode resolves a referral code or booking.ErrNotFound.
	GetDealerByCode(ctx context.Context, code string) (*Dealer, error)

	// UpdateDealerStatus moves a dealer through the admin approval flow.
	UpdateDealerStatus(ctx context.Context, id booking.DealerID, status DealerStatus) error

	// ListChildren returns the dealers whose ParentID is id.
	ListChildren(ctx context.Context, id booking.DealerID) ([]Dealer, error)

	// AddDealerCommission increments a dealer's running total.
	AddDealerCommission(ctx context.Context, id booking.DealerID, amount decimal.Decimal) error

	// CreateCommission appends a payout ledger row.
	CreateCommission(ctx context.Context, c *Commission) error

	// ListCommissionsByDealer returns a dealer's payout rows, newest first.
	ListCommissionsByDealer(ctx context.Context, id booking.DealerID) ([]Commission, error)

	// GetCommissionConfig returns the level → percentage map.
	GetCommissionConfig(ctx context.Context) (map[int]decimal.Decimal, error)

	// SetCommissionConfigLevel upserts one level's percentage.
	SetCommissionConfigLevel(ctx context.Context, level int, percentage decimal.Decimal) error
}

// TxStore wraps Store with transaction support, mirroring
// booking.TxStore. The engine uses it to make "insert commission row +
// bump running total" one atomic unit per level.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
