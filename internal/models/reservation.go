package models

import (
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusPaid      Status = "paid"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusPaid, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Pricing is the price breakdown frozen on the reservation at creation time.
// Total must always equal Subtotal - Discount + CleaningFee + TouristTax.
type Pricing struct {
	NightlyRate float64 `json:"nightly_rate"`
	Nights      int     `json:"nights"`
	Subtotal    float64 `json:"subtotal"`
	Discount    float64 `json:"discount"`
	DiscountPct float64 `json:"discount_pct"`
	CleaningFee float64 `json:"cleaning_fee"`
	TouristTax  float64 `json:"tourist_tax"`
	Total       float64 `json:"total"`
}

type Reservation struct {
	ID              string `json:"id"`
	CapabilityToken string `json:"capability_token"`
	Status          Status `json:"status"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	ArrivalDate   time.Time `json:"arrival_date"`
	DepartureDate time.Time `json:"departure_date"`
	Guests        int       `json:"guests"`
	Message       string    `json:"message,omitempty"`

	Pricing Pricing `json:"pricing"`

	DepositSuggested float64 `json:"deposit_suggested"`
	DepositAmount    float64 `json:"deposit_amount"`
	DepositPaid      bool    `json:"deposit_paid"`

	CalendarBlockID string `json:"calendar_block_id,omitempty"`
	PaymentLinkID   string `json:"payment_link_id,omitempty"`
	PaymentLinkURL  string `json:"payment_link_url,omitempty"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`

	// ConfirmationToken is set once at approval and never changes. It gates
	// the post-payment confirmation page only, not action links.
	ConfirmationToken string `json:"confirmation_token,omitempty"`

	AdminNotes      string `json:"admin_notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	Locale          string `json:"locale,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is bumped on every write and checked by compare-and-swap
	// transitions so that two racing operators cannot both apply a
	// side-effecting state change.
	Version int64 `json:"version"`
}
