package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2/clientcredentials"
)

const dateFormat = "2006-01-02"

// Calendar is the channel-manager collaborator: availability checks and
// date-range blocks for the apartment.
type Calendar interface {
	IsAvailable(ctx context.Context, from, to time.Time) (bool, error)
	CreateBlock(ctx context.Context, from, to time.Time, label string) (string, error)
	CancelBlock(ctx context.Context, blockID string) error
}

// HTTPCalendar talks to the channel-manager REST API using a
// client-credentials token source, with a circuit breaker in front so a
// flapping upstream fails fast instead of holding requests open.
type HTTPCalendar struct {
	baseURL    string
	propertyID string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewHTTPCalendar(cfg *config.Config) *HTTPCalendar {
	client := &http.Client{Timeout: 10 * time.Second}
	if cfg.CalendarTokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.CalendarClientID,
			ClientSecret: cfg.CalendarClientSecret,
			TokenURL:     cfg.CalendarTokenURL,
		}
		client = cc.Client(context.Background())
		client.Timeout = 10 * time.Second
	}

	return &HTTPCalendar{
		baseURL:    strings.TrimRight(cfg.CalendarBaseURL, "/"),
		propertyID: cfg.CalendarPropertyID,
		client:     client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "calendar-api",
		}),
	}
}

func (c *HTTPCalendar) IsAvailable(ctx context.Context, from, to time.Time) (bool, error) {
	url := fmt.Sprintf("%s/properties/%s/availability?from=%s&to=%s",
		c.baseURL, c.propertyID, from.Format(dateFormat), to.Format(dateFormat))

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var body struct {
			Available bool `json:"available"`
		}
		if err := c.doJSON(ctx, http.MethodGet, url, nil, &body); err != nil {
			return false, err
		}
		return body.Available, nil
	})
	if err != nil {
		return false, fmt.Errorf("calendar availability check: %w", err)
	}
	return out.(bool), nil
}

func (c *HTTPCalendar) CreateBlock(ctx context.Context, from, to time.Time, label string) (string, error) {
	url := fmt.Sprintf("%s/properties/%s/blocks", c.baseURL, c.propertyID)
	req := map[string]string{
		"from":  from.Format(dateFormat),
		"to":    to.Format(dateFormat),
		"label": label,
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var body struct {
			ID string `json:"id"`
		}
		if err := c.doJSON(ctx, http.MethodPost, url, req, &body); err != nil {
			return "", err
		}
		return body.ID, nil
	})
	if err != nil {
		return "", fmt.Errorf("calendar block creation: %w", err)
	}
	return out.(string), nil
}

func (c *HTTPCalendar) CancelBlock(ctx context.Context, blockID string) error {
	url := fmt.Sprintf("%s/blocks/%s", c.baseURL, blockID)

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doJSON(ctx, http.MethodDelete, url, nil, nil)
	})
	if err != nil {
		return fmt.Errorf("calendar block cancellation: %w", err)
	}
	return nil
}

func (c *HTTPCalendar) doJSON(ctx context.Context, method, url string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
