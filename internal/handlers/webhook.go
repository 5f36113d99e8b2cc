package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/casa-vistamar/booking-api/internal/lifecycle"
	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"
)

// signatureTolerance bounds how far a signed timestamp may drift from our
// clock before the event is rejected as a replay.
const signatureTolerance = 5 * time.Minute

const (
	eventCheckoutCompleted = "checkout.completed"
	eventCheckoutExpired   = "checkout.expired"
	eventPaymentFailed     = "payment.failed"
)

// paymentEvent is the processor's envelope. Only the metadata this system
// acts on is decoded; everything else is ignored.
type paymentEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ReservationID   string `json:"reservation_id"`
		PaymentIntentID string `json:"payment_intent_id"`
		Reason          string `json:"reason"`
	} `json:"data"`
}

type WebhookHandler struct {
	ctrl   *lifecycle.Controller
	cfg    *config.Config
	logger *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewWebhookHandler(ctrl *lifecycle.Controller, cfg *config.Config, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{ctrl: ctrl, cfg: cfg, logger: logger, now: time.Now}
}

type WebhookInput struct {
	Signature string `header:"X-Webhook-Signature" doc:"t=<unix>,v1=<hex hmac-sha256>"`
	RawBody   []byte
}

type WebhookOutput struct {
	Body struct {
		Received bool `json:"received"`
	}
}

// HandleEvent authenticates and dispatches an asynchronous payment event.
// Unknown event types are acknowledged without any state change, so the
// sender never retries events this system intentionally ignores.
func (h *WebhookHandler) HandleEvent(ctx context.Context, input *WebhookInput) (*WebhookOutput, error) {
	if !verifySignature(h.cfg.WebhookSecret, input.RawBody, input.Signature, h.now()) {
		return nil, huma.Error401Unauthorized("Invalid webhook signature")
	}

	var event paymentEvent
	if err := json.Unmarshal(input.RawBody, &event); err != nil {
		return nil, huma.Error400BadRequest("Malformed event payload")
	}

	var err error
	switch event.Type {
	case eventCheckoutCompleted:
		err = h.ctrl.HandleCheckoutCompleted(ctx, event.Data.ReservationID, event.Data.PaymentIntentID)
	case eventCheckoutExpired:
		err = h.ctrl.HandleCheckoutExpired(ctx, event.Data.ReservationID, event.Data.Reason)
	case eventPaymentFailed:
		err = h.ctrl.HandlePaymentFailed(ctx, event.Data.ReservationID, event.Data.Reason)
	default:
		h.logger.WithField("component", "webhook").Debugf("ignoring event type %q (%s)", event.Type, event.ID)
	}
	if err != nil {
		return nil, mapError(err)
	}

	res := &WebhookOutput{}
	res.Body.Received = true
	return res, nil
}

// verifySignature checks a "t=<unix>,v1=<hex>" header: the HMAC-SHA256 of
// "<t>.<body>" under the shared secret, compared in constant time, with the
// timestamp within tolerance. Missing or malformed headers fail closed.
func verifySignature(secret string, body []byte, header string, now time.Time) bool {
	if secret == "" || header == "" {
		return false
	}

	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			sig = kv[1]
		}
	}
	if ts == "" || sig == "" {
		return false
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	drift := now.Sub(time.Unix(unix, 0))
	if drift < -signatureTolerance || drift > signatureTolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}
