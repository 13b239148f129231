package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fivelearn-engagement/internal/config"
	"github.com/fivelearn-engagement/internal/domain"
)

func newTestIssuer(t *testing.T, lifetime time.Duration) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(&config.AuthConfig{
		Secret:        "test-secret",
		TokenLifetime: lifetime,
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return issuer
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)

	for _, userID := range []string{"user-1", "b2c5e9a0-1111-4222-8333-444455556666"} {
		token, err := issuer.Issue(userID)
		if err != nil {
			t.Fatalf("Issue(%q): %v", userID, err)
		}

		got, err := issuer.Verify(token)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if got != userID {
			t.Errorf("Verify returned %q, want %q", got, userID)
		}
	}
}

func TestVerifyExpiredCredential(t *testing.T) {
	issuer := newTestIssuer(t, time.Millisecond)

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	_, err = issuer.Verify(token)
	if !errors.Is(err, domain.ErrExpiredCredential) {
		t.Fatalf("Verify after expiry = %v, want ErrExpiredCredential", err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)

	other, err := NewIssuer(&config.AuthConfig{
		Secret:        "a-different-secret",
		TokenLifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	forged, err := other.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Valid header and claims, signature from the wrong secret.
	parts := strings.Split(token, ".")
	forgedParts := strings.Split(forged, ".")
	tampered := parts[0] + "." + parts[1] + "." + forgedParts[2]

	_, err = issuer.Verify(tampered)
	if !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("Verify tampered = %v, want ErrInvalidCredential", err)
	}
}

func TestVerifyMalformedCredential(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)

	for _, credential := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := issuer.Verify(credential); !errors.Is(err, domain.ErrInvalidCredential) {
			t.Errorf("Verify(%q) = %v, want ErrInvalidCredential", credential, err)
		}
	}
}

func TestNewIssuerRefusesEmptySecret(t *testing.T) {
	_, err := NewIssuer(&config.AuthConfig{Secret: ""})
	if !errors.Is(err, config.ErrMissingSecret) {
		t.Fatalf("NewIssuer with empty secret = %v, want ErrMissingSecret", err)
	}
}
