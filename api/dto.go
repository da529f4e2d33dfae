/*
dto.go - Request/response shapes for the HTTP surface

All money travels as decimal strings to keep precision end to end; the
handlers parse them with shopspring/decimal and reject garbage with 400.
*/
package api

import (
	"time"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/referral"
)

// =============================================================================
// PROPERTIES
// =============================================================================

type CreatePropertyRequest struct {
	Title   string `json:"title"`
	Price   string `json:"price"`
	OwnerID string `json:"owner_id"`
}

type PropertyResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	Status    string    `json:"status"`
	OwnerID   string    `json:"owner_id"`
	DealerID  string    `json:"dealer_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPropertyResponse(p *booking.Property) PropertyResponse {
	resp := PropertyResponse{
		ID:        string(p.ID),
		Title:     p.Title,
		Price:     p.Price.String(),
		Status:    string(p.Status),
		OwnerID:   string(p.OwnerID),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.DealerID != nil {
		resp.DealerID = string(*p.DealerID)
	}
	return resp
}

type AvailabilityResponse struct {
	PropertyID string    `json:"property_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Available  bool      `json:"available"`
}

// =============================================================================
// BOOKINGS
// =============================================================================

type CreateBookingRequest struct {
	PropertyID   string `json:"property_id"`
	UserID       string `json:"user_id"`
	DealerCode   string `json:"dealer_code,omitempty"`
	PaymentRef   string `json:"payment_ref"`
	PaymentProof string `json:"payment_proof,omitempty"`

	// Optional; the default policy window applies when omitted.
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type CancelBookingRequest struct {
	UserID string `json:"user_id"`
}

type BookingResponse struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	UserID       string    `json:"user_id"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Status       string    `json:"status"`
	PaymentRef   string    `json:"payment_ref"`
	PaymentProof string    `json:"payment_proof,omitempty"`
	DealerCode   string    `json:"dealer_code,omitempty"`
	Charges      string    `json:"charges"`
	TotalAmount  string    `json:"total_amount"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:           string(b.ID),
		PropertyID:   string(b.PropertyID),
		UserID:       string(b.UserID),
		StartDate:    b.StartDate,
		EndDate:      b.EndDate,
		Status:       string(b.Status),
		PaymentRef:   b.PaymentRef,
		PaymentProof: b.PaymentProof,
		DealerCode:   b.DealerCode,
		Charges:      b.Charges.String(),
		TotalAmount:  b.TotalAmount.String(),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

type SweepResponse struct {
	Expired int `json:"expired"`
}

// =============================================================================
// DEALERS AND COMMISSIONS
// =============================================================================

type RegisterDealerRequest struct {
	UserID     string `json:"user_id"`
	ParentCode string `json:"parent_code,omitempty"`
}

type SetDealerStatusRequest struct {
	Status string `json:"status"`
}

type DealerResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ReferralCode string    `json:"referral_code"`
	Status       string    `json:"status"`
	ParentID     string    `json:"parent_id,omitempty"`
	Commission   string    `json:"commission"`
	CreatedAt    time.Time `json:"created_at"`
}

func toDealerResponse(d *referral.Dealer) DealerResponse {
	resp := DealerResponse{
		ID:           string(d.ID),
		UserID:       string(d.UserID),
		ReferralCode: d.ReferralCode,
		Status:       string(d.Status),
		Commission:   d.Commission.String(),
		CreatedAt:    d.CreatedAt,
	}
	if d.ParentID != nil {
		resp.ParentID = string(*d.ParentID)
	}
	return resp
}

type SubtreeResponse struct {
	DealerID        string `json:"dealer_id"`
	Descendants     int    `json:"descendants"`
	TotalCommission string `json:"total_commission"`
}

type CalculateCommissionsRequest struct {
	PropertyID string `json:"property_id"`
	BookingID  string `json:"booking_id,omitempty"`
	BaseAmount string `json:"base_amount"`
}

type CommissionResponse struct {
	ID         string    `json:"id"`
	DealerID   string    `json:"dealer_id"`
	PropertyID string    `json:"property_id"`
	BookingID  string    `json:"booking_id,omitempty"`
	Amount     string    `json:"amount"`
	Level      int       `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
}

func toCommissionResponse(c *referral.Commission) CommissionResponse {
	return CommissionResponse{
		ID:         string(c.ID),
		DealerID:   string(c.DealerID),
		PropertyID: string(c.PropertyID),
		BookingID:  string(c.BookingID),
		Amount:     c.Amount.String(),
		Level:      c.Level,
		CreatedAt:  c.CreatedAt,
	}
}

type SetCommissionConfigRequest struct {
	Level      int    `json:"level"`
	Percentage string `json:"percentage"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error string `json:"error"`
}
