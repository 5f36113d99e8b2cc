package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/sony/gobreaker"
)

// PaymentLinkRequest describes the hosted payment page to create. Amount is
// in the currency's smallest unit.
type PaymentLinkRequest struct {
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
	RedirectURL   string            `json:"redirect_url"`
	Description   string            `json:"description,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty"`
}

type PaymentLink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Payments is the payment-link processor collaborator.
type Payments interface {
	CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error)
}

type HTTPPayments struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPPayments(cfg *config.Config) *HTTPPayments {
	return &HTTPPayments{
		baseURL: strings.TrimRight(cfg.PaymentBaseURL, "/"),
		apiKey:  cfg.PaymentAPIKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "payment-api",
		}),
	}
}

func (p *HTTPPayments) CreatePaymentLink(ctx context.Context, linkReq PaymentLinkRequest) (*PaymentLink, error) {
	out, err := p.breaker.Execute(func() (interface{}, error) {
		data, err := json.Marshal(linkReq)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/payment_links", bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}

		var link PaymentLink
		if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
			return nil, err
		}
		return &link, nil
	})
	if err != nil {
		return nil, fmt.Errorf("payment link creation: %w", err)
	}
	return out.(*PaymentLink), nil
}
