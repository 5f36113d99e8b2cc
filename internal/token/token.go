package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// signatureLen is the length the hex HMAC is truncated to in confirmation
// tokens. Short enough for a URL, long enough that forgery is not practical.
const signatureLen = 32

// DefaultMaxAge is how long a confirmation token stays valid.
const DefaultMaxAge = 7 * 24 * time.Hour

// NewCapability returns an opaque high-entropy bearer token. It is issued
// once at reservation creation, stored verbatim, and compared for exact
// equality on every action-link request.
func NewCapability() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// SignConfirmation derives a self-contained confirmation token of the form
// "<unix-millis>.<signature>" where the signature is an HMAC-SHA256 over
// "<reservationID>:<unix-millis>", hex-encoded and truncated. The token is
// never stored as a secret; it can always be re-derived from the id and key.
func SignConfirmation(secret, reservationID string, issuedAt time.Time) string {
	ts := strconv.FormatInt(issuedAt.UnixMilli(), 10)
	return ts + "." + sign(secret, reservationID, ts)
}

// VerifyConfirmation checks a confirmation token for the given reservation.
// Malformed tokens fail closed. The signature comparison is constant-time,
// and tokens older than maxAge are rejected.
func VerifyConfirmation(secret, reservationID, tok string, maxAge time.Duration, now time.Time) bool {
	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		return false
	}
	millis, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return false
	}

	expected := sign(secret, reservationID, parts[0])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(parts[1])) != 1 {
		return false
	}

	age := now.Sub(time.UnixMilli(millis))
	if age < 0 || age > maxAge {
		return false
	}
	return true
}

func sign(secret, reservationID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(reservationID + ":" + ts))
	sig := hex.EncodeToString(mac.Sum(nil))
	if len(sig) > signatureLen {
		sig = sig[:signatureLen]
	}
	return sig
}
