package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/referral"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var baseTime = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedProperty(t *testing.T, s *sqlite.Store, id booking.PropertyID) {
	t.Helper()
	require.NoError(t, s.CreateProperty(context.Background(), &booking.Property{
		ID:        id,
		Title:     "Corner shop, main market",
		Price:     decimal.NewFromInt(1500000),
		Status:    booking.PropertyFree,
		OwnerID:   "owner-1",
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}))
}

func seedBooking(t *testing.T, s *sqlite.Store, id booking.BookingID, propertyID booking.PropertyID, status booking.BookingStatus, start, end time.Time) {
	t.Helper()
	require.NoError(t, s.CreateBooking(context.Background(), &booking.Booking{
		ID:          id,
		PropertyID:  propertyID,
		UserID:      "user-1",
		StartDate:   start,
		EndDate:     end,
		Status:      status,
		PaymentRef:  "UTR-11111",
		Charges:     decimal.NewFromInt(5000),
		TotalAmount: decimal.NewFromInt(5000),
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	}))
}

func seedDealer(t *testing.T, s referral.Store, id booking.DealerID, code string) {
	t.Helper()
	require.NoError(t, s.CreateDealer(context.Background(), &referral.Dealer{
		ID:           id,
		UserID:       "user-" + booking.UserID(id),
		ReferralCode: code,
		Status:       referral.DealerApproved,
		Commission:   decimal.Zero,
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}))
}

// =============================================================================
// ROUND-TRIPS
// =============================================================================

func TestBooking_RoundTrip_PreservesTimesAndOptionals(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProperty(t, s, "prop-1")

	start := baseTime.Add(90 * time.Minute)
	end := start.AddDate(0, 0, 3)
	original := &booking.Booking{
		ID:           "bk-1",
		PropertyID:   "prop-1",
		UserID:       "user-1",
		StartDate:    start,
		EndDate:      end,
		Status:       booking.BookingPending,
		PaymentRef:   "UTR-11111",
		PaymentProof: "https://proof.example/receipt.png",
		DealerCode:   "RS-ABCD1234",
		Charges:      decimal.NewFromInt(5000),
		TotalAmount:  decimal.NewFromInt(5000),
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
	require.NoError(t, s.CreateBooking(ctx, original))

	got, err := s.GetBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(start))
	assert.True(t, got.EndDate.Equal(end))
	assert.Equal(t, original.PaymentProof, got.PaymentProof)
	assert.Equal(t, original.DealerCode, got.DealerCode)
	assert.True(t, got.TotalAmount.Equal(original.TotalAmount))
}

func TestProperty_NullDealerID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProperty(t, s, "prop-1")

	got, err := s.GetProperty(ctx, "prop-1")
	require.NoError(t, err)
	assert.Nil(t, got.DealerID)

	dealer := booking.DealerID("dealer-1")
	got.DealerID = &dealer
	got.Status = booking.PropertyBooked
	require.NoError(t, s.UpdateProperty(ctx, got))

	got, err = s.GetProperty(ctx, "prop-1")
	require.NoError(t, err)
	require.NotNil(t, got.DealerID)
	assert.Equal(t, dealer, *got.DealerID)
}

func TestGetBooking_Missing_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetBooking(context.Background(), "ghost")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestUpdateProperty_Missing_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateProperty(context.Background(), &booking.Property{
		ID: "ghost", Price: decimal.Zero, UpdatedAt: baseTime,
	})
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

// =============================================================================
// OVERLAP AND SWEEPER QUERIES
// =============================================================================

func TestFindConfirmedOverlap_InclusiveBounds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProperty(t, s, "prop-1")

	start := baseTime
	end := baseTime.AddDate(0, 0, 3)
	seedBooking(t, s, "bk-1", "prop-1", booking.BookingConfirmed, start, end)

	// Window touching the end boundary exactly still overlaps.
	got, err := s.FindConfirmedOverlap(ctx, "prop-1", booking.Window{
		Start: end, End: end.AddDate(0, 0, 2),
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, booking.BookingID("bk-1"), got.ID)

	// One nanosecond past the end is clear.
	got, err = s.FindConfirmedOverlap(ctx, "prop-1", booking.Window{
		Start: end.Add(time.Nanosecond), End: end.AddDate(0, 0, 2),
	})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindConfirmedOverlap_IgnoresPendingAndOtherProperties(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProperty(t, s, "prop-1")
	seedProperty(t, s, "prop-2")

	start := baseTime
	end := baseTime.AddDate(0, 0, 3)
	seedBooking(t, s, "bk-pending", "prop-1", booking.BookingPending, start, end)
	seedBooking(t, s, "bk-other", "prop-2", booking.BookingConfirmed, start, end)

	got, err := s.FindConfirmedOverlap(ctx, "prop-1", booking.Window{Start: start, End: end})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListExpiredConfirmed_StrictCutoff(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProperty(t, s, "prop-1")

	end := baseTime.AddDate(0, 0, 3)
	seedBooking(t, s, "bk-1", "prop-1", booking.BookingConfirmed, baseTime, end)

	// At exactly end_date the booking is not yet expired.
	due, err := s.ListExpiredConfirmed(ctx, end)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = s.ListExpiredConfirmed(ctx, end.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, booking.BookingID("bk-1"), due[0].ID)
}

func TestListExpiredConfirmed_SubSecondOrdering(t *testing.T) {
	// The TEXT timestamp layout is fixed-width, so rows with sub-second
	// end dates compare correctly against whole-second cutoffs.

	ctx := context.Background()
	s := newTestStore(t)
	seedProperty(t, s, "prop-1")

	end := baseTime.Add(500 * time.Millisecond)
	seedBooking(t, s, "bk-1", "prop-1", booking.BookingConfirmed, baseTime, end)

	due, err := s.ListExpiredConfirmed(ctx, baseTime.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_ErrorRollsBackAllWrites(t *testing.T) {
	// GIVEN: A transaction that updates a booking and a property
	// WHEN: The callback returns an error after both writes
	// THEN: Neither write is visible afterwards

	ctx := context.Background()
	s := newTestStore(t)
	seedProperty(t, s, "prop-1")
	seedBooking(t, s, "bk-1", "prop-1", booking.BookingPending, baseTime, baseTime.AddDate(0, 0, 3))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(store booking.Store) error {
		b, err := store.GetBooking(ctx, "bk-1")
		require.NoError(t, err)
		b.Status = booking.BookingConfirmed
		require.NoError(t, store.UpdateBooking(ctx, b))

		p, err := store.GetProperty(ctx, "prop-1")
		require.NoError(t, err)
		p.Status = booking.PropertyBooked
		require.NoError(t, store.UpdateProperty(ctx, p))

		return boom
	})
	require.ErrorIs(t, err, boom)

	b, err := s.GetBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, booking.BookingPending, b.Status)

	p, err := s.GetProperty(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, booking.PropertyFree, p.Status)
}

func TestWithTx_ReadsSeeUncommittedWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProperty(t, s, "prop-1")

	err := s.WithTx(ctx, func(store booking.Store) error {
		p, err := store.GetProperty(ctx, "prop-1")
		require.NoError(t, err)
		p.Status = booking.PropertySold
		require.NoError(t, store.UpdateProperty(ctx, p))

		// Same transaction observes its own write.
		p, err = store.GetProperty(ctx, "prop-1")
		require.NoError(t, err)
		assert.Equal(t, booking.PropertySold, p.Status)
		return nil
	})
	require.NoError(t, err)
}

func TestDealerWithTx_RollbackKeepsLedgerAndTotalConsistent(t *testing.T) {
	// GIVEN: A transaction appending a commission row then failing before
	//        the running-total bump
	// WHEN: It rolls back
	// THEN: No orphan ledger row, total unchanged

	ctx := context.Background()
	s := newTestStore(t)
	dealers := s.Dealers()
	seedDealer(t, dealers, "dealer-1", "RS-AAAA1111")

	boom := errors.New("boom")
	err := dealers.WithTx(ctx, func(store referral.Store) error {
		require.NoError(t, store.CreateCommission(ctx, &referral.Commission{
			ID:         "comm-1",
			DealerID:   "dealer-1",
			PropertyID: "prop-1",
			Amount:     decimal.NewFromInt(100),
			Level:      1,
			CreatedAt:  baseTime,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := dealers.ListCommissionsByDealer(ctx, "dealer-1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	d, err := dealers.GetDealer(ctx, "dealer-1")
	require.NoError(t, err)
	assert.True(t, d.Commission.IsZero())
}

// =============================================================================
// DEALERS AND CONFIG
// =============================================================================

func TestCreateDealer_DuplicateCode_Conflict(t *testing.T) {
	s := newTestStore(t)
	dealers := s.Dealers()
	seedDealer(t, dealers, "dealer-1", "RS-AAAA1111")

	err := dealers.CreateDealer(context.Background(), &referral.Dealer{
		ID:           "dealer-2",
		UserID:       "user-2",
		ReferralCode: "RS-AAAA1111",
		Status:       referral.DealerPending,
		Commission:   decimal.Zero,
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	})
	assert.ErrorIs(t, err, booking.ErrConflict)
}

func TestAddDealerCommission_Accumulates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	dealers := s.Dealers()
	seedDealer(t, dealers, "dealer-1", "RS-AAAA1111")

	require.NoError(t, dealers.AddDealerCommission(ctx, "dealer-1", decimal.RequireFromString("12.5")))
	require.NoError(t, dealers.AddDealerCommission(ctx, "dealer-1", decimal.RequireFromString("7.5")))

	d, err := dealers.GetDealer(ctx, "dealer-1")
	require.NoError(t, err)
	assert.True(t, d.Commission.Equal(decimal.NewFromInt(20)), "got %s", d.Commission)
}

func TestCommissionConfig_UpsertOverwritesSeed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	dealers := s.Dealers()

	config, err := dealers.GetCommissionConfig(ctx)
	require.NoError(t, err)
	require.Len(t, config, 3)

	require.NoError(t, dealers.SetCommissionConfigLevel(ctx, 2, decimal.NewFromInt(7)))

	config, err = dealers.GetCommissionConfig(ctx)
	require.NoError(t, err)
	assert.True(t, config[2].Equal(decimal.NewFromInt(7)))
}
