package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/casa-vistamar/booking-api/internal/config"
	"gopkg.in/gomail.v2"
)

// Kind selects the email template. Every send is best-effort notification;
// failures are the caller's decision to log and swallow.
type Kind string

const (
	KindRequestReceived    Kind = "request_received"
	KindAdminNewRequest    Kind = "admin_new_request"
	KindApproved           Kind = "approved"
	KindRejected           Kind = "rejected"
	KindPaid               Kind = "paid"
	KindAdminPaymentFailed Kind = "admin_payment_failed"
)

// Data carries the structured values the templates interpolate.
type Data struct {
	GuestName       string
	ReservationID   string
	ArrivalDate     string
	DepartureDate   string
	Guests          int
	Total           float64
	DepositAmount   float64
	PaymentLinkURL  string
	RejectionReason string
	FailureReason   string
}

type Mailer interface {
	Send(ctx context.Context, kind Kind, to string, data Data) error
}

// SMTPMailer sends plain-text emails through the configured SMTP relay.
type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.EmailFrom,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, kind Kind, to string, data Data) error {
	subject, body := render(kind, data)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	return nil
}

func render(kind Kind, data Data) (string, string) {
	var body bytes.Buffer

	switch kind {
	case KindRequestReceived:
		body.WriteString(fmt.Sprintf("Hi %s,\n\n", data.GuestName))
		body.WriteString("we received your booking request and will get back to you shortly.\n\n")
		body.WriteString(fmt.Sprintf("Stay: %s to %s, %d guest(s)\n", data.ArrivalDate, data.DepartureDate, data.Guests))
		body.WriteString(fmt.Sprintf("Total: %.2f EUR\n", data.Total))
		return "We received your booking request", body.String()

	case KindAdminNewRequest:
		body.WriteString("New booking request.\n\n")
		body.WriteString(fmt.Sprintf("Guest: %s\n", data.GuestName))
		body.WriteString(fmt.Sprintf("Stay: %s to %s, %d guest(s)\n", data.ArrivalDate, data.DepartureDate, data.Guests))
		body.WriteString(fmt.Sprintf("Total: %.2f EUR\n", data.Total))
		body.WriteString(fmt.Sprintf("Reservation: %s\n", data.ReservationID))
		return "New booking request", body.String()

	case KindApproved:
		body.WriteString(fmt.Sprintf("Hi %s,\n\n", data.GuestName))
		body.WriteString("your booking request was approved!\n\n")
		body.WriteString(fmt.Sprintf("To confirm your stay, please pay the deposit of %.2f EUR:\n", data.DepositAmount))
		body.WriteString(data.PaymentLinkURL + "\n")
		return "Your booking was approved", body.String()

	case KindRejected:
		body.WriteString(fmt.Sprintf("Hi %s,\n\n", data.GuestName))
		body.WriteString("unfortunately we cannot accommodate your request.\n\n")
		if data.RejectionReason != "" {
			body.WriteString("Reason: " + data.RejectionReason + "\n")
		}
		return "About your booking request", body.String()

	case KindPaid:
		body.WriteString(fmt.Sprintf("Hi %s,\n\n", data.GuestName))
		body.WriteString("we received your deposit. Your stay is confirmed!\n\n")
		body.WriteString(fmt.Sprintf("Stay: %s to %s\n", data.ArrivalDate, data.DepartureDate))
		return "Your stay is confirmed", body.String()

	case KindAdminPaymentFailed:
		body.WriteString("A payment attempt did not complete.\n\n")
		body.WriteString(fmt.Sprintf("Reservation: %s\n", data.ReservationID))
		if data.FailureReason != "" {
			body.WriteString("Reason: " + data.FailureReason + "\n")
		}
		return "Payment problem on a reservation", body.String()
	}

	return string(kind), body.String()
}
