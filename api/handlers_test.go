/*
handlers_test.go - HTTP surface tests

Drives the full stack through the router: sqlite store, referral tree,
commission engine, booking service.
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/referral"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tree := referral.NewTree(store.Dealers())
	engine := referral.NewEngine(store.Dealers(), store, tree)
	service := booking.NewService(store, tree)

	return NewRouter(NewHandler(service, tree, engine, store, store.Dealers()))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func createProperty(t *testing.T, router http.Handler) PropertyResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/properties", CreatePropertyRequest{
		Title: "3BHK flat, Hiran Magri", Price: "2500000", OwnerID: "owner-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeJSON[PropertyResponse](t, rec)
}

func createBooking(t *testing.T, router http.Handler, propertyID, userID string) BookingResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/bookings", CreateBookingRequest{
		PropertyID: propertyID, UserID: userID, PaymentRef: "UTR-" + userID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeJSON[BookingResponse](t, rec)
}

// =============================================================================
// BOOKING LIFECYCLE OVER HTTP
// =============================================================================

func TestBookingLifecycle_CreateApproveUnbook(t *testing.T) {
	router := newTestRouter(t)
	property := createProperty(t, router)

	b := createBooking(t, router, property.ID, "user-1")
	assert.Equal(t, "pending", b.Status)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings/"+b.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decodeJSON[BookingResponse](t, rec)
	assert.Equal(t, "confirmed", approved.Status)

	rec = doJSON(t, router, http.MethodGet, "/api/properties/"+property.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "booked", decodeJSON[PropertyResponse](t, rec).Status)

	rec = doJSON(t, router, http.MethodPost, "/api/bookings/"+b.ID+"/unbook", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/properties/"+property.ID, nil)
	assert.Equal(t, "free", decodeJSON[PropertyResponse](t, rec).Status)
}

func TestAvailability_ReflectsConfirmedBooking(t *testing.T) {
	router := newTestRouter(t)
	property := createProperty(t, router)
	b := createBooking(t, router, property.ID, "user-1")

	query := fmt.Sprintf("/api/properties/%s/availability?start=%s&end=%s",
		property.ID,
		b.StartDate.Format(time.RFC3339),
		b.EndDate.Format(time.RFC3339))

	// PENDING does not block.
	rec := doJSON(t, router, http.MethodGet, query, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeJSON[AvailabilityResponse](t, rec).Available)

	rec = doJSON(t, router, http.MethodPost, "/api/bookings/"+b.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, query, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeJSON[AvailabilityResponse](t, rec).Available)
}

func TestRejectBooking_NoContent(t *testing.T) {
	router := newTestRouter(t)
	property := createProperty(t, router)
	b := createBooking(t, router, property.ID, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/bookings/"+b.ID+"/reject", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/bookings/"+b.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decodeJSON[BookingResponse](t, rec).Status)
}

func TestAdminSweep_EmptyDatabase(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/admin/sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeJSON[SweepResponse](t, rec).Expired)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t)
	property := createProperty(t, router)

	t.Run("unknown booking is 404", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/bookings/ghost/approve", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("short payment ref is 400", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/bookings", CreateBookingRequest{
			PropertyID: property.ID, UserID: "user-1", PaymentRef: "x",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("double approve is 409", func(t *testing.T) {
		b := createBooking(t, router, property.ID, "user-1")
		rec := doJSON(t, router, http.MethodPost, "/api/bookings/"+b.ID+"/approve", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodPost, "/api/bookings/"+b.ID+"/approve", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("cancel by non-owner is 403", func(t *testing.T) {
		p := createProperty(t, router)
		b := createBooking(t, router, p.ID, "user-1")
		rec := doJSON(t, router, http.MethodPost, "/api/bookings/"+b.ID+"/approve", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodPost, "/api/bookings/"+b.ID+"/cancel",
			CancelBookingRequest{UserID: "intruder"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

// =============================================================================
// DEALERS AND COMMISSIONS OVER HTTP
// =============================================================================

func TestDealerRegistrationAndCommissionFlow(t *testing.T) {
	// GIVEN: An approved dealer whose code is attached to a booking
	// WHEN: The booking is approved and commissions calculated on a base
	// THEN: The dealer's ledger shows the level-1 payout

	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/dealers", RegisterDealerRequest{UserID: "user-d1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dealer := decodeJSON[DealerResponse](t, rec)
	assert.Equal(t, "pending", dealer.Status)

	rec = doJSON(t, router, http.MethodPut, "/api/dealers/"+dealer.ID+"/status",
		SetDealerStatusRequest{Status: "approved"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	property := createProperty(t, router)
	rec = doJSON(t, router, http.MethodPost, "/api/bookings", CreateBookingRequest{
		PropertyID: property.ID, UserID: "user-1",
		PaymentRef: "UTR-11111", DealerCode: dealer.ReferralCode,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decodeJSON[BookingResponse](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/bookings/"+b.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/commissions/calculate", CalculateCommissionsRequest{
		PropertyID: property.ID, BookingID: b.ID, BaseAmount: "1000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payouts := decodeJSON[[]CommissionResponse](t, rec)
	require.Len(t, payouts, 1)
	assert.Equal(t, "100", payouts[0].Amount)
	assert.Equal(t, 1, payouts[0].Level)

	rec = doJSON(t, router, http.MethodGet, "/api/dealers/"+dealer.ID+"/commissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[[]CommissionResponse](t, rec), 1)

	rec = doJSON(t, router, http.MethodGet, "/api/dealers/"+dealer.ID+"/subtree", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	subtree := decodeJSON[SubtreeResponse](t, rec)
	assert.Equal(t, 0, subtree.Descendants)
	assert.Equal(t, "100", subtree.TotalCommission)
}

func TestCommissionConfig_RoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/commissions/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	config := decodeJSON[map[string]string](t, rec)
	assert.Equal(t, "10", config["1"])

	rec = doJSON(t, router, http.MethodPut, "/api/commissions/config",
		SetCommissionConfigRequest{Level: 2, Percentage: "7.5"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/commissions/config", nil)
	config = decodeJSON[map[string]string](t, rec)
	assert.Equal(t, "7.5", config["2"])
}

func TestCalculateCommissions_UnattributedProperty_NotFound(t *testing.T) {
	router := newTestRouter(t)
	property := createProperty(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/commissions/calculate", CalculateCommissionsRequest{
		PropertyID: property.ID, BaseAmount: "1000",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
