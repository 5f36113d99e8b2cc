package handlers

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/casa-vistamar/booking-api/internal/auth"
	"github.com/casa-vistamar/booking-api/internal/clients"
	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/casa-vistamar/booking-api/internal/lifecycle"
	"github.com/casa-vistamar/booking-api/internal/mailer"
	"github.com/casa-vistamar/booking-api/internal/models"
	"github.com/casa-vistamar/booking-api/internal/store"
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type stubCalendar struct {
	available bool
	blockErr  error
}

func (s *stubCalendar) IsAvailable(ctx context.Context, from, to time.Time) (bool, error) {
	return s.available, nil
}

func (s *stubCalendar) CreateBlock(ctx context.Context, from, to time.Time, label string) (string, error) {
	if s.blockErr != nil {
		return "", s.blockErr
	}
	return "block-1", nil
}

func (s *stubCalendar) CancelBlock(ctx context.Context, blockID string) error {
	return nil
}

type stubPayments struct{}

func (s *stubPayments) CreatePaymentLink(ctx context.Context, req clients.PaymentLinkRequest) (*clients.PaymentLink, error) {
	return &clients.PaymentLink{ID: "plink-1", URL: "https://pay.example.com/plink-1"}, nil
}

type recordingMailer struct {
	sent []mailer.Kind
}

func (m *recordingMailer) Send(ctx context.Context, kind mailer.Kind, to string, data mailer.Data) error {
	m.sent = append(m.sent, kind)
	return nil
}

func (m *recordingMailer) countKind(kind mailer.Kind) int {
	n := 0
	for _, k := range m.sent {
		if k == kind {
			n++
		}
	}
	return n
}

type testEnv struct {
	handler  *ReservationHandler
	webhooks *WebhookHandler
	store    *store.ReservationStore
	auth     *auth.AuthHandler
	calendar *stubCalendar
	mailer   *recordingMailer
	cfg      *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	cfg := &config.Config{
		PublicBaseURL:       "https://casa.example.com",
		JWTSecret:           "test-secret",
		OperatorEmail:       "owner@example.com",
		OperatorPassHash:    string(hash),
		ConfirmSecret:       "confirm-secret",
		ConfirmMaxAgeDays:   7,
		WebhookSecret:       "hook-secret",
		Currency:            "eur",
		BaseRate:            120,
		CleaningFee:         50,
		TouristTaxPerNight:  2.88,
		WeeklyDiscountPct:   5,
		BiweeklyDiscountPct: 10,
		MonthlyDiscountPct:  20,
		DepositPct:          0.30,
		DepositMin:          100,
		DepositUnit:         50,
	}

	st := store.NewReservationStore(client, false, logger)
	cal := &stubCalendar{available: true}
	m := &recordingMailer{}
	ctrl := lifecycle.NewController(st, cal, &stubPayments{}, m, nil, cfg, logger)
	authHandler := auth.NewAuthHandler(cfg)

	return &testEnv{
		handler:  NewReservationHandler(ctrl, st, authHandler, cfg),
		webhooks: NewWebhookHandler(ctrl, cfg, logger),
		store:    st,
		auth:     authHandler,
		calendar: cal,
		mailer:   m,
		cfg:      cfg,
	}
}

func (e *testEnv) operatorCookie(t *testing.T) string {
	t.Helper()
	token, err := e.auth.GenerateToken()
	if err != nil {
		t.Fatalf("failed to generate operator token: %v", err)
	}
	return "auth_token=" + token
}

func (e *testEnv) submit(t *testing.T) *models.Reservation {
	t.Helper()
	input := &SubmitReservationInput{}
	input.Body.FirstName = "Ada"
	input.Body.LastName = "Rossi"
	input.Body.Email = "ada@example.com"
	input.Body.Phone = "+39333000111"
	input.Body.ArrivalDate = time.Now().AddDate(0, 1, 0).Format(dateFormat)
	input.Body.DepartureDate = time.Now().AddDate(0, 1, 7).Format(dateFormat)
	input.Body.Guests = 2

	out, err := e.handler.HandleSubmit(context.Background(), input)
	if err != nil {
		t.Fatalf("HandleSubmit returned error: %v", err)
	}
	r, err := e.store.Get(context.Background(), out.Body.ID)
	if err != nil {
		t.Fatalf("submitted reservation not readable: %v", err)
	}
	e.mailer.sent = nil
	return r
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected a status error, got %v", err)
	}
	return se.GetStatus()
}

func TestHandleSubmit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		e := newTestEnv(t)
		input := &SubmitReservationInput{}
		input.Body.FirstName = "Ada"
		input.Body.LastName = "Rossi"
		input.Body.Email = "ada@example.com"
		input.Body.Phone = "+39333000111"
		input.Body.ArrivalDate = time.Now().AddDate(0, 1, 0).Format(dateFormat)
		input.Body.DepartureDate = time.Now().AddDate(0, 1, 7).Format(dateFormat)
		input.Body.Guests = 2

		out, err := e.handler.HandleSubmit(context.Background(), input)
		if err != nil {
			t.Fatalf("HandleSubmit returned error: %v", err)
		}
		if out.Body.Status != models.StatusPending {
			t.Errorf("expected pending, got %s", out.Body.Status)
		}
		if out.Body.Nights != 7 {
			t.Errorf("expected 7 nights, got %d", out.Body.Nights)
		}
		if out.Body.Total != 888.32 {
			t.Errorf("expected total 888.32, got %v", out.Body.Total)
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		e := newTestEnv(t)
		input := &SubmitReservationInput{}
		input.Body.FirstName = "Ada"
		input.Body.LastName = "Rossi"
		input.Body.Email = "ada@example.com"
		input.Body.Phone = "+39333000111"
		input.Body.ArrivalDate = "June 1st"
		input.Body.DepartureDate = "2026-06-08"
		input.Body.Guests = 2

		_, err := e.handler.HandleSubmit(context.Background(), input)
		if statusOf(t, err) != 400 {
			t.Errorf("expected 400, got %d", statusOf(t, err))
		}
	})

	t.Run("date conflict", func(t *testing.T) {
		e := newTestEnv(t)
		e.calendar.available = false
		input := &SubmitReservationInput{}
		input.Body.FirstName = "Ada"
		input.Body.LastName = "Rossi"
		input.Body.Email = "ada@example.com"
		input.Body.Phone = "+39333000111"
		input.Body.ArrivalDate = time.Now().AddDate(0, 1, 0).Format(dateFormat)
		input.Body.DepartureDate = time.Now().AddDate(0, 1, 7).Format(dateFormat)
		input.Body.Guests = 2

		_, err := e.handler.HandleSubmit(context.Background(), input)
		if statusOf(t, err) != 409 {
			t.Errorf("expected 409, got %d", statusOf(t, err))
		}
	})
}

func TestHandleGetAuth(t *testing.T) {
	e := newTestEnv(t)
	r := e.submit(t)
	other := e.submit(t)

	t.Run("capability token", func(t *testing.T) {
		out, err := e.handler.HandleGet(context.Background(), &GetReservationInput{ID: r.ID, Token: r.CapabilityToken})
		if err != nil {
			t.Fatalf("HandleGet returned error: %v", err)
		}
		if out.Body.ID != r.ID {
			t.Errorf("got wrong reservation %s", out.Body.ID)
		}
	})

	t.Run("cross-reservation token refused", func(t *testing.T) {
		_, err := e.handler.HandleGet(context.Background(), &GetReservationInput{ID: r.ID, Token: other.CapabilityToken})
		if statusOf(t, err) != 404 {
			t.Errorf("expected 404, got %d", statusOf(t, err))
		}
	})

	t.Run("no credentials", func(t *testing.T) {
		_, err := e.handler.HandleGet(context.Background(), &GetReservationInput{ID: r.ID})
		if statusOf(t, err) != 401 {
			t.Errorf("expected 401, got %d", statusOf(t, err))
		}
	})

	t.Run("operator session", func(t *testing.T) {
		out, err := e.handler.HandleGet(context.Background(), &GetReservationInput{ID: r.ID, Cookie: e.operatorCookie(t)})
		if err != nil {
			t.Fatalf("HandleGet returned error: %v", err)
		}
		if out.Body.ID != r.ID {
			t.Errorf("got wrong reservation %s", out.Body.ID)
		}
	})
}

func TestHandleUpdateActions(t *testing.T) {
	t.Run("approve via capability token", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.submit(t)

		input := &UpdateReservationInput{ID: r.ID, Token: r.CapabilityToken}
		input.Body.Action = "approve"
		out, err := e.handler.HandleUpdate(context.Background(), input)
		if err != nil {
			t.Fatalf("approve returned error: %v", err)
		}
		if out.Body.Status != models.StatusApproved {
			t.Errorf("expected approved, got %s", out.Body.Status)
		}
		if out.Body.PaymentLinkURL == "" {
			t.Error("expected payment link in response")
		}
	})

	t.Run("approve degraded without calendar", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.submit(t)
		e.calendar.blockErr = errors.New("calendar down")

		input := &UpdateReservationInput{ID: r.ID, Token: r.CapabilityToken}
		input.Body.Action = "approve"
		out, err := e.handler.HandleUpdate(context.Background(), input)
		if err != nil {
			t.Fatalf("degraded approve must still succeed: %v", err)
		}
		if out.Body.Status != models.StatusApproved {
			t.Errorf("expected approved, got %s", out.Body.Status)
		}
		if out.Body.CalendarBlockID != "" || out.Body.PaymentLinkURL != "" {
			t.Errorf("expected no external refs, got block=%q link=%q", out.Body.CalendarBlockID, out.Body.PaymentLinkURL)
		}
		if e.mailer.countKind(mailer.KindApproved) != 0 {
			t.Error("approval email must not be sent without a link")
		}
	})

	t.Run("resend_payment requires approved status", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.submit(t)

		input := &UpdateReservationInput{ID: r.ID, Cookie: e.operatorCookie(t)}
		input.Body.Action = "resend_payment"
		_, err := e.handler.HandleUpdate(context.Background(), input)
		if statusOf(t, err) != 400 {
			t.Errorf("expected 400, got %d", statusOf(t, err))
		}
		if want := "reservation must be in approved status"; !errorContains(err, want) {
			t.Errorf("expected message %q, got %v", want, err)
		}
	})

	t.Run("mark_paid requires operator", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.submit(t)

		input := &UpdateReservationInput{ID: r.ID, Token: r.CapabilityToken}
		input.Body.Action = "mark_paid"
		_, err := e.handler.HandleUpdate(context.Background(), input)
		if statusOf(t, err) != 401 {
			t.Errorf("expected 401, got %d", statusOf(t, err))
		}
	})

	t.Run("field update recomputes total", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.submit(t)

		fee := 80.0
		input := &UpdateReservationInput{ID: r.ID, Cookie: e.operatorCookie(t)}
		input.Body.CleaningFee = &fee
		out, err := e.handler.HandleUpdate(context.Background(), input)
		if err != nil {
			t.Fatalf("field update returned error: %v", err)
		}
		want := out.Body.Pricing.Subtotal - out.Body.Pricing.Discount + 80 + out.Body.Pricing.TouristTax
		if out.Body.Pricing.Total != want {
			t.Errorf("expected recomputed total %v, got %v", want, out.Body.Pricing.Total)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.submit(t)

		input := &UpdateReservationInput{ID: r.ID, Cookie: e.operatorCookie(t)}
		input.Body.Action = "explode"
		_, err := e.handler.HandleUpdate(context.Background(), input)
		if statusOf(t, err) != 400 {
			t.Errorf("expected 400, got %d", statusOf(t, err))
		}
	})
}

func TestHandleListAndDelete(t *testing.T) {
	e := newTestEnv(t)
	r := e.submit(t)
	e.submit(t)

	items, err := e.handler.HandleList(context.Background(), &ListReservationsInput{Limit: 10})
	if err != nil {
		t.Fatalf("HandleList returned error: %v", err)
	}
	if items.Body.Total != 2 {
		t.Errorf("expected total 2, got %d", items.Body.Total)
	}

	t.Run("status filter", func(t *testing.T) {
		out, err := e.handler.HandleList(context.Background(), &ListReservationsInput{Status: "pending", Limit: 10})
		if err != nil {
			t.Fatalf("HandleList returned error: %v", err)
		}
		if out.Body.Total != 2 {
			t.Errorf("expected 2 pending, got %d", out.Body.Total)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := e.handler.HandleList(context.Background(), &ListReservationsInput{Status: "limbo", Limit: 10})
		if statusOf(t, err) != 400 {
			t.Errorf("expected 400, got %d", statusOf(t, err))
		}
	})

	t.Run("delete", func(t *testing.T) {
		out, err := e.handler.HandleDelete(context.Background(), &DeleteReservationInput{ID: r.ID})
		if err != nil {
			t.Fatalf("HandleDelete returned error: %v", err)
		}
		if !out.Body.Deleted {
			t.Error("expected deleted=true")
		}
		_, err = e.handler.HandleDelete(context.Background(), &DeleteReservationInput{ID: r.ID})
		if statusOf(t, err) != 404 {
			t.Errorf("expected 404 on second delete, got %d", statusOf(t, err))
		}
	})
}

func TestHandleConfirmation(t *testing.T) {
	t.Run("unknown token gets generic 404", func(t *testing.T) {
		e := newTestEnv(t)
		_, err := e.handler.HandleConfirmation(context.Background(), &ConfirmationInput{Token: "abc.def"})
		if statusOf(t, err) != 404 {
			t.Errorf("expected 404, got %d", statusOf(t, err))
		}
		if !errorContains(err, "invalid or expired") {
			t.Errorf("expected generic message, got %v", err)
		}

		// Malformed token: same answer, no format leak.
		_, err2 := e.handler.HandleConfirmation(context.Background(), &ConfirmationInput{Token: "not-even-a-token"})
		if statusOf(t, err2) != 404 || !errorContains(err2, "invalid or expired") {
			t.Errorf("malformed token leaked a different answer: %v", err2)
		}
	})

	t.Run("valid token after approval", func(t *testing.T) {
		e := newTestEnv(t)
		r := e.submit(t)

		input := &UpdateReservationInput{ID: r.ID, Cookie: e.operatorCookie(t)}
		input.Body.Action = "approve"
		if _, err := e.handler.HandleUpdate(context.Background(), input); err != nil {
			t.Fatalf("approve returned error: %v", err)
		}
		approved, _ := e.store.Get(context.Background(), r.ID)

		out, err := e.handler.HandleConfirmation(context.Background(), &ConfirmationInput{Token: approved.ConfirmationToken})
		if err != nil {
			t.Fatalf("HandleConfirmation returned error: %v", err)
		}
		if out.Body.FirstName != "Ada" {
			t.Errorf("expected guest projection, got %+v", out.Body)
		}
	})
}

func errorContains(err error, substr string) bool {
	return err != nil && strings.Contains(err.Error(), substr)
}
