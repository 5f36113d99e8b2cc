package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/casa-vistamar/booking-api/internal/auth"
	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/casa-vistamar/booking-api/internal/lifecycle"
	"github.com/casa-vistamar/booking-api/internal/models"
	"github.com/casa-vistamar/booking-api/internal/store"
	"github.com/casa-vistamar/booking-api/internal/token"
	"github.com/danielgtaylor/huma/v2"
)

const dateFormat = "2006-01-02"

type ReservationHandler struct {
	ctrl  *lifecycle.Controller
	store *store.ReservationStore
	auth  *auth.AuthHandler
	cfg   *config.Config
}

func NewReservationHandler(ctrl *lifecycle.Controller, st *store.ReservationStore, authHandler *auth.AuthHandler, cfg *config.Config) *ReservationHandler {
	return &ReservationHandler{ctrl: ctrl, store: st, auth: authHandler, cfg: cfg}
}

// mapError translates domain errors into HTTP responses.
func mapError(err error) error {
	var vErr *lifecycle.ValidationError
	if errors.As(err, &vErr) {
		return huma.Error400BadRequest(vErr.Msg)
	}
	var pErr *lifecycle.PreconditionError
	if errors.As(err, &pErr) {
		return huma.Error400BadRequest(pErr.Msg)
	}
	var sErr *store.StateError
	if errors.As(err, &sErr) {
		return huma.Error400BadRequest(sErr.Error())
	}
	switch {
	case errors.Is(err, lifecycle.ErrDatesUnavailable):
		return huma.Error409Conflict("The requested dates are not available")
	case errors.Is(err, lifecycle.ErrAvailabilityCheck):
		return huma.Error502BadGateway("Availability could not be verified, please try again")
	case errors.Is(err, store.ErrNotFound):
		return huma.Error404NotFound("Record not found")
	case errors.Is(err, store.ErrUnavailable):
		return huma.Error503ServiceUnavailable("Storage backend unavailable")
	case errors.Is(err, store.ErrConflict):
		return huma.Error409Conflict("The reservation was modified concurrently, please retry")
	}
	return huma.Error500InternalServerError("Internal error: " + err.Error())
}

type SubmitReservationInput struct {
	Body struct {
		FirstName     string `json:"first_name" minLength:"1" doc:"Guest first name"`
		LastName      string `json:"last_name" minLength:"1" doc:"Guest last name"`
		Email         string `json:"email" format:"email" doc:"Guest email"`
		Phone         string `json:"phone" minLength:"1" doc:"Guest phone number"`
		ArrivalDate   string `json:"arrival_date" doc:"Arrival date (YYYY-MM-DD)"`
		DepartureDate string `json:"departure_date" doc:"Departure date (YYYY-MM-DD)"`
		Guests        int    `json:"guests" minimum:"1" doc:"Number of guests"`
		Message       string `json:"message,omitempty" doc:"Optional free-text message"`
		Locale        string `json:"locale,omitempty" doc:"Submission locale"`
	}
}

type SubmitReservationOutput struct {
	Body struct {
		ID     string        `json:"id"`
		Status models.Status `json:"status"`
		Total  float64       `json:"total"`
		Nights int           `json:"nights"`
	}
}

func (h *ReservationHandler) HandleSubmit(ctx context.Context, input *SubmitReservationInput) (*SubmitReservationOutput, error) {
	arrival, err := time.Parse(dateFormat, input.Body.ArrivalDate)
	if err != nil {
		return nil, huma.Error400BadRequest("arrival_date must be a YYYY-MM-DD date")
	}
	departure, err := time.Parse(dateFormat, input.Body.DepartureDate)
	if err != nil {
		return nil, huma.Error400BadRequest("departure_date must be a YYYY-MM-DD date")
	}

	r, err := h.ctrl.Submit(ctx, lifecycle.SubmitInput{
		FirstName:     input.Body.FirstName,
		LastName:      input.Body.LastName,
		Email:         input.Body.Email,
		Phone:         input.Body.Phone,
		ArrivalDate:   arrival,
		DepartureDate: departure,
		Guests:        input.Body.Guests,
		Message:       input.Body.Message,
		Locale:        input.Body.Locale,
	})
	if err != nil {
		return nil, mapError(err)
	}

	res := &SubmitReservationOutput{}
	res.Body.ID = r.ID
	res.Body.Status = r.Status
	res.Body.Total = r.Pricing.Total
	res.Body.Nights = r.Pricing.Nights
	return res, nil
}

type GetReservationInput struct {
	ID     string `path:"id" doc:"Reservation id"`
	Token  string `query:"token" doc:"Capability token from the action link"`
	Cookie string `header:"Cookie"`
}

type ReservationOutput struct {
	Body models.Reservation
}

// authorize resolves the dual auth scheme: a matching capability token or an
// operator session. Absence and mismatch are indistinguishable to the caller.
func (h *ReservationHandler) authorize(ctx context.Context, id, capToken, cookie string) (*models.Reservation, error) {
	if h.auth.VerifyCookieHeader(cookie) {
		r, err := h.store.Get(ctx, id)
		if err != nil {
			return nil, mapError(err)
		}
		return r, nil
	}
	if capToken == "" {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	r, err := h.store.GetByCapabilityToken(ctx, id, capToken)
	if err != nil {
		return nil, mapError(err)
	}
	return r, nil
}

func (h *ReservationHandler) HandleGet(ctx context.Context, input *GetReservationInput) (*ReservationOutput, error) {
	r, err := h.authorize(ctx, input.ID, input.Token, input.Cookie)
	if err != nil {
		return nil, err
	}
	return &ReservationOutput{Body: *r}, nil
}

type UpdateReservationInput struct {
	ID     string `path:"id" doc:"Reservation id"`
	Token  string `query:"token" doc:"Capability token from the action link"`
	Cookie string `header:"Cookie"`
	Body   struct {
		Action string `json:"action,omitempty" doc:"One of approve, reject, mark_paid, resend_payment; omit for a field update"`
		Reason string `json:"reason,omitempty" doc:"Rejection reason, required for reject"`

		FirstName     *string  `json:"first_name,omitempty"`
		LastName      *string  `json:"last_name,omitempty"`
		Email         *string  `json:"email,omitempty"`
		Phone         *string  `json:"phone,omitempty"`
		Guests        *int     `json:"guests,omitempty"`
		Message       *string  `json:"message,omitempty"`
		AdminNotes    *string  `json:"admin_notes,omitempty"`
		DepositAmount *float64 `json:"deposit_amount,omitempty"`
		NightlyRate   *float64 `json:"nightly_rate,omitempty"`
		Discount      *float64 `json:"discount,omitempty"`
		CleaningFee   *float64 `json:"cleaning_fee,omitempty"`
		TouristTax    *float64 `json:"tourist_tax,omitempty"`
	}
}

func (h *ReservationHandler) HandleUpdate(ctx context.Context, input *UpdateReservationInput) (*ReservationOutput, error) {
	isOperator := h.auth.VerifyCookieHeader(input.Cookie)

	if _, err := h.authorize(ctx, input.ID, input.Token, input.Cookie); err != nil {
		return nil, err
	}

	var (
		r   *models.Reservation
		err error
	)
	switch input.Body.Action {
	case "approve":
		r, err = h.ctrl.Approve(ctx, input.ID)
	case "reject":
		r, err = h.ctrl.Reject(ctx, input.ID, input.Body.Reason)
	case "mark_paid":
		if !isOperator {
			return nil, huma.Error401Unauthorized("Operator session required")
		}
		r, err = h.ctrl.MarkPaid(ctx, input.ID)
	case "resend_payment":
		if !isOperator {
			return nil, huma.Error401Unauthorized("Operator session required")
		}
		r, err = h.ctrl.ResendPayment(ctx, input.ID)
	case "":
		// The capability token grants view/approve/reject only; plain field
		// edits stay with the operator.
		if !isOperator {
			return nil, huma.Error401Unauthorized("Operator session required")
		}
		r, err = h.store.Update(ctx, input.ID, store.UpdateFields{
			FirstName:     input.Body.FirstName,
			LastName:      input.Body.LastName,
			Email:         input.Body.Email,
			Phone:         input.Body.Phone,
			Guests:        input.Body.Guests,
			Message:       input.Body.Message,
			AdminNotes:    input.Body.AdminNotes,
			DepositAmount: input.Body.DepositAmount,
			NightlyRate:   input.Body.NightlyRate,
			Discount:      input.Body.Discount,
			CleaningFee:   input.Body.CleaningFee,
			TouristTax:    input.Body.TouristTax,
		})
	default:
		return nil, huma.Error400BadRequest("Unknown action: " + input.Body.Action)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &ReservationOutput{Body: *r}, nil
}

type ListReservationsInput struct {
	Status string `query:"status" doc:"Filter by lifecycle status"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100"`
	Offset int    `query:"offset" minimum:"0"`
}

type ListReservationsOutput struct {
	Body struct {
		Items []*models.Reservation `json:"items"`
		Total int                   `json:"total"`
	}
}

func (h *ReservationHandler) HandleList(ctx context.Context, input *ListReservationsInput) (*ListReservationsOutput, error) {
	opts := store.ListOptions{Limit: input.Limit, Offset: input.Offset}
	if input.Status != "" {
		st := models.Status(input.Status)
		if !st.Valid() {
			return nil, huma.Error400BadRequest("Unknown status: " + input.Status)
		}
		opts.Status = &st
	}

	items, total, err := h.store.List(ctx, opts)
	if err != nil {
		return nil, mapError(err)
	}

	res := &ListReservationsOutput{}
	res.Body.Items = items
	if res.Body.Items == nil {
		res.Body.Items = []*models.Reservation{}
	}
	res.Body.Total = total
	return res, nil
}

type DeleteReservationInput struct {
	ID string `path:"id" doc:"Reservation id"`
}

type DeleteReservationOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func (h *ReservationHandler) HandleDelete(ctx context.Context, input *DeleteReservationInput) (*DeleteReservationOutput, error) {
	ok, err := h.ctrl.Delete(ctx, input.ID)
	if err != nil {
		return nil, mapError(err)
	}
	if !ok {
		return nil, huma.Error404NotFound("Reservation not found")
	}
	res := &DeleteReservationOutput{}
	res.Body.Deleted = true
	return res, nil
}

type ConfirmationInput struct {
	Token string `query:"token" doc:"Confirmation token from the payment redirect"`
}

// ConfirmationOutput is the guest-safe projection: no internal identifiers,
// no admin notes, no capability token.
type ConfirmationOutput struct {
	Body struct {
		FirstName     string        `json:"first_name"`
		Status        models.Status `json:"status"`
		ArrivalDate   string        `json:"arrival_date"`
		DepartureDate string        `json:"departure_date"`
		Guests        int           `json:"guests"`
		Total         float64       `json:"total"`
		DepositAmount float64       `json:"deposit_amount"`
		DepositPaid   bool          `json:"deposit_paid"`
		Message       string        `json:"message"`
	}
}

func (h *ReservationHandler) HandleConfirmation(ctx context.Context, input *ConfirmationInput) (*ConfirmationOutput, error) {
	// Unknown, malformed and expired tokens all get the same answer, so the
	// response leaks nothing about which case it was.
	generic := huma.Error404NotFound("This confirmation link is invalid or expired. If you completed a payment it is not lost - we will confirm your booking by email.")

	r, err := h.store.GetByConfirmationToken(ctx, input.Token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, generic
	}
	if err != nil {
		return nil, mapError(err)
	}

	maxAge := time.Duration(h.cfg.ConfirmMaxAge()) * 24 * time.Hour
	if !token.VerifyConfirmation(h.cfg.ConfirmSecret, r.ID, input.Token, maxAge, time.Now()) {
		return nil, generic
	}

	res := &ConfirmationOutput{}
	res.Body.FirstName = r.FirstName
	res.Body.Status = r.Status
	res.Body.ArrivalDate = r.ArrivalDate.Format(dateFormat)
	res.Body.DepartureDate = r.DepartureDate.Format(dateFormat)
	res.Body.Guests = r.Guests
	res.Body.Total = r.Pricing.Total
	res.Body.DepositAmount = r.DepositAmount
	res.Body.DepositPaid = r.DepositPaid
	res.Body.Message = "Thank you! Your payment was received and your stay is being confirmed."
	return res, nil
}
