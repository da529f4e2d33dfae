/*
handlers.go - HTTP handlers for the booking and referral core

PURPOSE:
  Thin translation layer: decode JSON, call the domain services, map
  domain errors to status codes. No business rules live here.

ERROR MAPPING:
  ErrNotFound               -> 404
  ErrInvalidInput           -> 400
  ErrForbidden              -> 403
  ErrInvalidState/Conflict  -> 409
  ErrTooLate                -> 409
  ErrUnavailable            -> 503
  anything else             -> 500

SEE ALSO:
  - server.go: route wiring
  - dto.go:    request/response shapes
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/referral"
)

// Handler holds the wired domain services.
type Handler struct {
	Bookings     *booking.Service
	Availability *booking.Availability
	Tree         *referral.Tree
	Engine       *referral.Engine
	Properties   booking.Store
	Dealers      referral.Store
	Sweeper      *Sweeper
	Clock        booking.Clock
}

func NewHandler(bookings *booking.Service, tree *referral.Tree, engine *referral.Engine, properties booking.Store, dealers referral.Store) *Handler {
	return &Handler{
		Bookings:     bookings,
		Availability: &booking.Availability{Store: properties},
		Tree:         tree,
		Engine:       engine,
		Properties:   properties,
		Dealers:      dealers,
		Clock:        booking.SystemClock{},
	}
}

// =============================================================================
// PROPERTIES
// =============================================================================

func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" || req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "title and owner_id are required")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "price must be a decimal string")
		return
	}

	now := h.Clock.Now()
	property := &booking.Property{
		ID:        booking.PropertyID(newID()),
		Title:     req.Title,
		Price:     price,
		Status:    booking.PropertyFree,
		OwnerID:   booking.UserID(req.OwnerID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Properties.CreateProperty(r.Context(), property); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPropertyResponse(property))
}

func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.Properties.ListProperties(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]PropertyResponse, 0, len(properties))
	for i := range properties {
		resp = append(resp, toPropertyResponse(&properties[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id := booking.PropertyID(chi.URLParam(r, "id"))
	property, err := h.Properties.GetProperty(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyResponse(property))
}

// GetAvailability handles GET /properties/{id}/availability?start=&end=
// with RFC 3339 timestamps.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id := booking.PropertyID(chi.URLParam(r, "id"))

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be RFC 3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be RFC 3339")
		return
	}

	window := booking.Window{Start: start, End: end}
	available, err := h.Availability.IsAvailable(r.Context(), id, window)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		PropertyID: string(id),
		Start:      start,
		End:        end,
		Available:  available,
	})
}

// =============================================================================
// BOOKINGS
// =============================================================================

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	params := booking.CreateParams{
		PropertyID:   booking.PropertyID(req.PropertyID),
		UserID:       booking.UserID(req.UserID),
		DealerCode:   req.DealerCode,
		PaymentRef:   req.PaymentRef,
		PaymentProof: req.PaymentProof,
	}
	if req.StartDate != nil {
		params.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		params.EndDate = *req.EndDate
	}

	created, err := h.Bookings.Create(r.Context(), params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(created))
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "id"))
	b, err := h.Properties.GetBooking(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "id"))
	approved, err := h.Bookings.Approve(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(approved))
}

func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "id"))
	if err := h.Bookings.Reject(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "id"))

	var req CancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cancelled, err := h.Bookings.Cancel(r.Context(), id, booking.UserID(req.UserID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(cancelled))
}

func (h *Handler) UnbookProperty(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "id"))
	cancelled, err := h.Bookings.Unbook(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(cancelled))
}

// TriggerSweep handles the on-demand sweep, same path the scheduler takes.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	expired, err := h.Bookings.Sweep(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{Expired: expired})
}

// =============================================================================
// DEALERS
// =============================================================================

func (h *Handler) RegisterDealer(w http.ResponseWriter, r *http.Request) {
	var req RegisterDealerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	dealer, err := h.Tree.Register(r.Context(), booking.UserID(req.UserID), req.ParentCode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDealerResponse(dealer))
}

func (h *Handler) GetDealer(w http.ResponseWriter, r *http.Request) {
	id := booking.DealerID(chi.URLParam(r, "id"))
	dealer, err := h.Dealers.GetDealer(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDealerResponse(dealer))
}

func (h *Handler) SetDealerStatus(w http.ResponseWriter, r *http.Request) {
	id := booking.DealerID(chi.URLParam(r, "id"))

	var req SetDealerStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.Tree.SetStatus(r.Context(), id, referral.DealerStatus(req.Status)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetDealerSubtree(w http.ResponseWriter, r *http.Request) {
	id := booking.DealerID(chi.URLParam(r, "id"))
	stats, err := h.Tree.SubtreeStats(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SubtreeResponse{
		DealerID:        string(stats.DealerID),
		Descendants:     stats.Descendants,
		TotalCommission: stats.TotalCommission.String(),
	})
}

func (h *Handler) ListDealerCommissions(w http.ResponseWriter, r *http.Request) {
	id := booking.DealerID(chi.URLParam(r, "id"))
	commissions, err := h.Dealers.ListCommissionsByDealer(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]CommissionResponse, 0, len(commissions))
	for i := range commissions {
		resp = append(resp, toCommissionResponse(&commissions[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// COMMISSIONS
// =============================================================================

func (h *Handler) CalculateCommissions(w http.ResponseWriter, r *http.Request) {
	var req CalculateCommissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	base, err := decimal.NewFromString(req.BaseAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "base_amount must be a decimal string")
		return
	}

	payouts, err := h.Engine.CalculateForBooking(r.Context(),
		booking.PropertyID(req.PropertyID), booking.BookingID(req.BookingID), base)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]CommissionResponse, 0, len(payouts))
	for i := range payouts {
		resp = append(resp, toCommissionResponse(&payouts[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetCommissionConfig(w http.ResponseWriter, r *http.Request) {
	config, err := h.Engine.Config(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make(map[int]string, len(config))
	for level, pct := range config {
		resp[level] = pct.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SetCommissionConfig(w http.ResponseWriter, r *http.Request) {
	var req SetCommissionConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	pct, err := decimal.NewFromString(req.Percentage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "percentage must be a decimal string")
		return
	}

	if err := h.Engine.SetConfigLevel(r.Context(), req.Level, pct); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func newID() string {
	return uuid.New().String()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrInvalidState),
		errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrTooLate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("[API] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
