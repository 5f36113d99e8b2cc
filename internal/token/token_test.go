package token

import (
	"strings"
	"testing"
	"time"
)

func TestNewCapability(t *testing.T) {
	a := NewCapability()
	b := NewCapability()

	if len(a) != 64 {
		t.Errorf("expected 64-char token, got %d chars", len(a))
	}
	if a == b {
		t.Error("two generated capability tokens are equal")
	}
	if strings.Contains(a, "-") {
		t.Errorf("token contains separator characters: %s", a)
	}
}

func TestConfirmationRoundTrip(t *testing.T) {
	now := time.Now()
	tok := SignConfirmation("secret", "res-1", now)

	if !VerifyConfirmation("secret", "res-1", tok, DefaultMaxAge, now) {
		t.Error("freshly signed token did not verify")
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		t.Fatalf("expected two segments, got %d", len(parts))
	}
	if len(parts[1]) != signatureLen {
		t.Errorf("expected %d-char signature, got %d", signatureLen, len(parts[1]))
	}
}

func TestConfirmationRejections(t *testing.T) {
	now := time.Now()
	tok := SignConfirmation("secret", "res-1", now)

	t.Run("wrong secret", func(t *testing.T) {
		if VerifyConfirmation("other", "res-1", tok, DefaultMaxAge, now) {
			t.Error("token verified with a different secret")
		}
	})

	t.Run("wrong reservation", func(t *testing.T) {
		if VerifyConfirmation("secret", "res-2", tok, DefaultMaxAge, now) {
			t.Error("token verified against a different reservation")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		for _, bad := range []string{"", "abc", "a.b.c", "notanumber.deadbeef", tok + "x"} {
			if VerifyConfirmation("secret", "res-1", bad, DefaultMaxAge, now) {
				t.Errorf("malformed token %q verified", bad)
			}
		}
	})

	t.Run("from the future", func(t *testing.T) {
		future := SignConfirmation("secret", "res-1", now.Add(time.Hour))
		if VerifyConfirmation("secret", "res-1", future, DefaultMaxAge, now) {
			t.Error("token with a future timestamp verified")
		}
	})
}

func TestConfirmationExpiryBoundary(t *testing.T) {
	issued := time.Now()
	tok := SignConfirmation("secret", "res-1", issued)

	justBefore := issued.Add(DefaultMaxAge - time.Millisecond)
	if !VerifyConfirmation("secret", "res-1", tok, DefaultMaxAge, justBefore) {
		t.Error("token invalid just before max age")
	}

	justAfter := issued.Add(DefaultMaxAge + time.Millisecond)
	if VerifyConfirmation("secret", "res-1", tok, DefaultMaxAge, justAfter) {
		t.Error("token still valid just after max age")
	}
}
