package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fivelearn-engagement/internal/config"
	"github.com/fivelearn-engagement/internal/domain"
)

// Issuer mints and verifies signed, time-limited credentials. Issue and
// Verify are pure computations; session liveness is a separate layer and
// is never consulted here.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
}

// NewIssuer creates a credential issuer. An empty secret is refused so the
// process fails closed instead of serving unsigned tokens.
func NewIssuer(cfg *config.AuthConfig) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, config.ErrMissingSecret
	}
	lifetime := cfg.TokenLifetime
	if lifetime <= 0 {
		lifetime = 7 * 24 * time.Hour
	}
	return &Issuer{
		secret:   []byte(cfg.Secret),
		lifetime: lifetime,
	}, nil
}

// Issue signs an HS256 credential identifying userID, expiring after the
// configured lifetime.
func (i *Issuer) Issue(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing credential: %w", err)
	}
	return signed, nil
}

// Verify validates a credential string and returns the subject user ID.
// An expired credential is reported distinctly from an invalid one so the
// caller can prompt for re-login rather than a generic auth failure.
func (i *Issuer) Verify(credential string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrExpiredCredential
		}
		return "", domain.ErrInvalidCredential
	}
	if !token.Valid || claims.Subject == "" {
		return "", domain.ErrInvalidCredential
	}
	return claims.Subject, nil
}

// Lifetime returns the configured credential lifetime
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}
