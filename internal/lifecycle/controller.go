package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/casa-vistamar/booking-api/internal/clients"
	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/casa-vistamar/booking-api/internal/mailer"
	"github.com/casa-vistamar/booking-api/internal/models"
	"github.com/casa-vistamar/booking-api/internal/notifier"
	"github.com/casa-vistamar/booking-api/internal/pricing"
	"github.com/casa-vistamar/booking-api/internal/store"
	"github.com/casa-vistamar/booking-api/internal/token"
	"github.com/sirupsen/logrus"
)

// ErrDatesUnavailable means the calendar reports the range as taken.
var ErrDatesUnavailable = errors.New("requested dates are not available")

// ErrAvailabilityCheck means the calendar could not be consulted at all. We
// refuse to create a reservation we cannot verify, so this propagates.
var ErrAvailabilityCheck = errors.New("availability check failed")

// ValidationError is a missing/malformed input rejected before any side
// effect runs.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// PreconditionError means the requested action is not valid for the
// reservation's current state.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

// Controller drives the reservation state machine. The persisted record is
// the source of truth: every transition persists first where it can, and
// treats calendar, payment and email calls as independently best-effort.
type Controller struct {
	store    *store.ReservationStore
	calendar clients.Calendar
	payments clients.Payments
	mailer   mailer.Mailer
	notifier notifier.Notifier
	cfg      *config.Config
	logger   *logrus.Logger

	// Now is swappable for tests.
	Now func() time.Time
}

func NewController(st *store.ReservationStore, cal clients.Calendar, pay clients.Payments, m mailer.Mailer, n notifier.Notifier, cfg *config.Config, logger *logrus.Logger) *Controller {
	return &Controller{
		store:    st,
		calendar: cal,
		payments: pay,
		mailer:   m,
		notifier: n,
		cfg:      cfg,
		logger:   logger,
		Now:      time.Now,
	}
}

// SubmitInput carries the public booking-form fields.
type SubmitInput struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	ArrivalDate   time.Time
	DepartureDate time.Time
	Guests        int
	Message       string
	Locale        string
}

// Submit validates a stay request, confirms the range is free, quotes it and
// persists a pending reservation. Both notification emails are best-effort:
// the reservation is already durable when they go out, so their failure must
// never fail the submission.
func (c *Controller) Submit(ctx context.Context, in SubmitInput) (*models.Reservation, error) {
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Phone == "" {
		return nil, &ValidationError{Msg: "first name, last name, email and phone are required"}
	}
	if in.Guests <= 0 {
		return nil, &ValidationError{Msg: "guest count must be positive"}
	}
	if !in.DepartureDate.After(in.ArrivalDate) {
		return nil, &ValidationError{Msg: "departure date must be after arrival date"}
	}
	today := c.Now().UTC().Truncate(24 * time.Hour)
	if in.ArrivalDate.Before(today) {
		return nil, &ValidationError{Msg: "arrival date cannot be in the past"}
	}

	available, err := c.calendar.IsAvailable(ctx, in.ArrivalDate, in.DepartureDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAvailabilityCheck, err)
	}
	if !available {
		return nil, ErrDatesUnavailable
	}

	quote := pricing.Quote(in.ArrivalDate, in.DepartureDate, in.Guests, c.rates())

	r := &models.Reservation{
		Status:           models.StatusPending,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Email:            in.Email,
		Phone:            in.Phone,
		ArrivalDate:      in.ArrivalDate,
		DepartureDate:    in.DepartureDate,
		Guests:           in.Guests,
		Message:          in.Message,
		Pricing:          quote.Pricing,
		DepositSuggested: quote.DepositSuggested,
		DepositAmount:    quote.DepositSuggested,
		Locale:           in.Locale,
	}

	created, err := c.store.Create(ctx, r)
	if err != nil {
		return nil, err
	}

	if err := c.mailer.Send(ctx, mailer.KindRequestReceived, created.Email, c.emailData(created)); err != nil {
		c.log().Warnf("request-received email failed for %s: %v", created.ID, err)
	}
	if err := c.mailer.Send(ctx, mailer.KindAdminNewRequest, c.cfg.OperatorEmail, c.emailData(created)); err != nil {
		c.log().Warnf("admin alert email failed for %s: %v", created.ID, err)
	}
	if c.notifier != nil {
		if err := c.notifier.NotifyNewRequest(created); err != nil {
			c.log().Warnf("operator chat alert failed for %s: %v", created.ID, err)
		}
	}

	return created, nil
}

// Approve moves a pending reservation to approved. The calendar block and
// payment link are best-effort: their failure degrades the approval (the
// operator blocks the calendar or sends the link manually) but never fails
// it. The approval email only goes out when a link actually exists, so the
// guest is never told about a payment link that was not created.
func (c *Controller) Approve(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusPending {
		return nil, &PreconditionError{Msg: fmt.Sprintf("cannot approve a %s reservation", r.Status)}
	}

	blockID, err := c.calendar.CreateBlock(ctx, r.ArrivalDate, r.DepartureDate, r.FirstName+" "+r.LastName)
	if err != nil {
		c.log().Errorf("calendar block failed for %s, operator must block manually: %v", id, err)
		blockID = ""
	}

	confirmToken := r.ConfirmationToken
	if confirmToken == "" {
		confirmToken = token.SignConfirmation(c.cfg.ConfirmSecret, id, c.Now())
	}

	// The payment link embeds the confirmation token in its redirect so the
	// guest lands on the confirmation page after paying. It is only created
	// when the calendar block succeeded; a failed block means the operator
	// reviews the calendar before asking for money.
	var linkID, linkURL string
	if blockID != "" {
		link, err := c.payments.CreatePaymentLink(ctx, clients.PaymentLinkRequest{
			// Round, don't truncate: 289.65 is 28964.999... in float64 and
			// must still charge 28965 cents.
			Amount:   int64(math.Round(r.DepositAmount * 100)),
			Currency: c.cfg.Currency,
			Metadata: map[string]string{
				"reservation_id": r.ID,
				"purpose":        "deposit",
			},
			RedirectURL:   c.cfg.PublicBaseURL + "/booking/confirmation?token=" + confirmToken,
			Description:   fmt.Sprintf("Deposit for stay %s to %s", r.ArrivalDate.Format("2006-01-02"), r.DepartureDate.Format("2006-01-02")),
			CustomerEmail: r.Email,
		})
		if err != nil {
			c.log().Errorf("payment link failed for %s, operator must send manually: %v", id, err)
		} else {
			linkID, linkURL = link.ID, link.URL
		}
	}

	updated, err := c.store.Transition(ctx, id, []models.Status{models.StatusPending}, func(r *models.Reservation) error {
		r.Status = models.StatusApproved
		if r.ConfirmationToken == "" {
			r.ConfirmationToken = confirmToken
		}
		if blockID != "" {
			r.CalendarBlockID = blockID
		}
		if linkID != "" {
			r.PaymentLinkID = linkID
			r.PaymentLinkURL = linkURL
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.PaymentLinkURL != "" {
		if err := c.mailer.Send(ctx, mailer.KindApproved, updated.Email, c.emailData(updated)); err != nil {
			c.log().Warnf("approval email failed for %s: %v", id, err)
		}
	}

	return updated, nil
}

// Reject moves a pending reservation to rejected with a required reason.
func (c *Controller) Reject(ctx context.Context, id, reason string) (*models.Reservation, error) {
	if reason == "" {
		return nil, &ValidationError{Msg: "rejection reason is required"}
	}

	r, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusPending {
		return nil, &PreconditionError{Msg: fmt.Sprintf("cannot reject a %s reservation", r.Status)}
	}

	if r.CalendarBlockID != "" {
		if err := c.calendar.CancelBlock(ctx, r.CalendarBlockID); err != nil {
			c.log().Warnf("calendar block cancellation failed for %s: %v", id, err)
		}
	}

	updated, err := c.store.Transition(ctx, id, []models.Status{models.StatusPending}, func(r *models.Reservation) error {
		r.Status = models.StatusRejected
		r.RejectionReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.mailer.Send(ctx, mailer.KindRejected, updated.Email, c.emailData(updated)); err != nil {
		c.log().Warnf("rejection email failed for %s: %v", id, err)
	}

	return updated, nil
}

// ResendPayment re-sends the approval email with the existing payment link.
// It requires an approved reservation that already has a link; the record is
// touched so the resend shows up in its audit trail.
func (c *Controller) ResendPayment(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusApproved {
		return nil, &PreconditionError{Msg: "reservation must be in approved status"}
	}
	if r.PaymentLinkURL == "" {
		return nil, &PreconditionError{Msg: "reservation has no payment link to resend"}
	}

	if err := c.mailer.Send(ctx, mailer.KindApproved, r.Email, c.emailData(r)); err != nil {
		c.log().Warnf("payment link resend email failed for %s: %v", id, err)
	}

	return c.store.Update(ctx, id, store.UpdateFields{})
}

// MarkPaid is the manual operator fallback for when the webhook path is
// unavailable.
func (c *Controller) MarkPaid(ctx context.Context, id string) (*models.Reservation, error) {
	updated, err := c.store.Transition(ctx, id, []models.Status{models.StatusPending, models.StatusApproved}, func(r *models.Reservation) error {
		r.Status = models.StatusPaid
		r.DepositPaid = true
		return nil
	})
	if err != nil {
		var stateErr *store.StateError
		if errors.As(err, &stateErr) {
			return nil, &PreconditionError{Msg: fmt.Sprintf("cannot mark a %s reservation as paid", stateErr.Current)}
		}
		return nil, err
	}

	if err := c.mailer.Send(ctx, mailer.KindPaid, updated.Email, c.emailData(updated)); err != nil {
		c.log().Warnf("payment-confirmed email failed for %s: %v", id, err)
	}

	return updated, nil
}

// HandleCheckoutCompleted reconciles an asynchronous checkout-completed
// event. Delivery is at-least-once, so an already-paid reservation is a
// successful no-op; unknown reservation ids are logged and dropped.
func (c *Controller) HandleCheckoutCompleted(ctx context.Context, reservationID, paymentIntentID string) error {
	r, err := c.store.Get(ctx, reservationID)
	if errors.Is(err, store.ErrNotFound) {
		c.log().Warnf("checkout completed for unknown reservation %s, dropping", reservationID)
		return nil
	}
	if err != nil {
		return err
	}

	if r.Status == models.StatusPaid && r.DepositPaid {
		c.log().Infof("duplicate checkout-completed for %s, already paid", reservationID)
		return nil
	}

	// Payment links only exist after approval, so approved is the only
	// legitimate source state; anything else is a stale or misdirected event.
	_, err = c.store.Transition(ctx, reservationID, []models.Status{models.StatusApproved}, func(r *models.Reservation) error {
		r.Status = models.StatusPaid
		r.DepositPaid = true
		r.PaymentIntentID = paymentIntentID
		return nil
	})
	if err != nil {
		var stateErr *store.StateError
		if errors.As(err, &stateErr) {
			// Lost a race against a concurrent delivery or a manual
			// mark-paid, or the event does not match our state machine;
			// either way there is nothing safe to apply.
			c.log().Infof("checkout-completed for %s skipped, state is %s", reservationID, stateErr.Current)
			return nil
		}
		return err
	}

	// The payment is durably confirmed; a failed email must not make the
	// sender retry the event forever.
	updated, err := c.store.Get(ctx, reservationID)
	if err == nil {
		if err := c.mailer.Send(ctx, mailer.KindPaid, updated.Email, c.emailData(updated)); err != nil {
			c.log().Warnf("payment-confirmed email failed for %s: %v", reservationID, err)
		}
	}
	return nil
}

// HandleCheckoutExpired alerts the operator when an open payment link
// expired. It is only meaningful while the reservation is approved and
// unpaid; anything else is ignored.
func (c *Controller) HandleCheckoutExpired(ctx context.Context, reservationID, reason string) error {
	return c.paymentProblem(ctx, reservationID, reason, "checkout expired")
}

// HandlePaymentFailed alerts the operator about a declined payment attempt,
// carrying the processor's decline message when available.
func (c *Controller) HandlePaymentFailed(ctx context.Context, reservationID, reason string) error {
	return c.paymentProblem(ctx, reservationID, reason, "payment failed")
}

func (c *Controller) paymentProblem(ctx context.Context, reservationID, reason, kind string) error {
	r, err := c.store.Get(ctx, reservationID)
	if errors.Is(err, store.ErrNotFound) {
		c.log().Warnf("%s for unknown reservation %s, dropping", kind, reservationID)
		return nil
	}
	if err != nil {
		return err
	}
	if r.Status != models.StatusApproved || r.DepositPaid {
		return nil
	}

	if reason == "" {
		reason = kind
	}
	if err := c.mailer.Send(ctx, mailer.KindAdminPaymentFailed, c.cfg.OperatorEmail, mailer.Data{
		ReservationID: r.ID,
		GuestName:     r.FirstName + " " + r.LastName,
		FailureReason: reason,
	}); err != nil {
		c.log().Warnf("payment-problem alert email failed for %s: %v", reservationID, err)
	}
	if c.notifier != nil {
		if err := c.notifier.NotifyPaymentFailed(r, reason); err != nil {
			c.log().Warnf("payment-problem chat alert failed for %s: %v", reservationID, err)
		}
	}
	return nil
}

// Delete removes the reservation after a best-effort cancellation of any
// calendar block it created.
func (c *Controller) Delete(ctx context.Context, id string) (bool, error) {
	r, err := c.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if r.CalendarBlockID != "" {
		if err := c.calendar.CancelBlock(ctx, r.CalendarBlockID); err != nil {
			c.log().Warnf("calendar block cancellation failed while deleting %s: %v", id, err)
		}
	}

	return c.store.Delete(ctx, id)
}

func (c *Controller) rates() pricing.Rates {
	return pricing.Rates{
		BaseRate:            c.cfg.BaseRate,
		CleaningFee:         c.cfg.CleaningFee,
		TouristTaxPerNight:  c.cfg.TouristTaxPerNight,
		WeeklyDiscountPct:   c.cfg.WeeklyDiscountPct,
		BiweeklyDiscountPct: c.cfg.BiweeklyDiscountPct,
		MonthlyDiscountPct:  c.cfg.MonthlyDiscountPct,
		DepositPct:          c.cfg.DepositPct,
		DepositMin:          c.cfg.DepositMin,
		DepositUnit:         c.cfg.DepositUnit,
	}
}

func (c *Controller) emailData(r *models.Reservation) mailer.Data {
	return mailer.Data{
		GuestName:       r.FirstName + " " + r.LastName,
		ReservationID:   r.ID,
		ArrivalDate:     r.ArrivalDate.Format("2006-01-02"),
		DepartureDate:   r.DepartureDate.Format("2006-01-02"),
		Guests:          r.Guests,
		Total:           r.Pricing.Total,
		DepositAmount:   r.DepositAmount,
		PaymentLinkURL:  r.PaymentLinkURL,
		RejectionReason: r.RejectionReason,
	}
}

func (c *Controller) log() *logrus.Entry {
	return c.logger.WithField("component", "lifecycle")
}
