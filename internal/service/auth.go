package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fivelearn-engagement/internal/auth"
	"github.com/fivelearn-engagement/internal/config"
	"github.com/fivelearn-engagement/internal/domain"
)

// SessionStore is the revocable-liveness collaborator. Deleting a session
// logs a user out before their credential's own expiry.
type SessionStore interface {
	SetSession(ctx context.Context, userID string, record domain.SessionRecord, ttl time.Duration) error
	GetSession(ctx context.Context, userID string) (*domain.SessionRecord, error)
	DeleteSession(ctx context.Context, userID string) error
}

// Auth provides account and session business logic
type Auth struct {
	issuer     *auth.Issuer
	sessions   SessionStore
	users      UserRepository
	engagement *Engagement
	sessionTTL time.Duration
	bcryptCost int
	logger     *slog.Logger
}

// NewAuth creates a new auth service
func NewAuth(
	issuer *auth.Issuer,
	sessions SessionStore,
	users UserRepository,
	engagement *Engagement,
	cfg *config.AuthConfig,
	logger *slog.Logger,
) *Auth {
	return &Auth{
		issuer:     issuer,
		sessions:   sessions,
		users:      users,
		engagement: engagement,
		sessionTTL: cfg.SessionTTL,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Register creates an account, opens a session and starts the streak
func (s *Auth) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	if strings.TrimSpace(req.Name) == "" ||
		!strings.Contains(req.Email, "@") ||
		len(req.Password) < 6 {
		return nil, domain.ErrInvalidRequest
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         domain.RoleLearner,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	// First tracked activity; always counts, never pays a bonus.
	if _, err := s.engagement.RecordActivity(ctx, user.ID, time.Now()); err != nil {
		return nil, err
	}

	return &domain.AuthResult{Token: token, User: user}, nil
}

// Login verifies credentials, replaces the user's session and records the
// day's activity. A streak extended across a day boundary pays the bonus.
func (s *Auth) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidLogin
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, domain.ErrInvalidLogin
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.engagement.RecordActivity(ctx, user.ID, time.Now())
	if err != nil {
		return nil, err
	}

	// Re-read so the response carries any bonus just paid.
	if fresh, err := s.users.GetUserByID(ctx, user.ID); err == nil {
		user = fresh
	} else {
		s.logger.Warn("failed to refresh user after login", "user_id", user.ID, "error", err)
	}

	return &domain.AuthResult{
		Token:           token,
		User:            user,
		StreakContinued: &result.Continued,
	}, nil
}

// Logout deletes the session record. The credential stays cryptographically
// valid until its own expiry, but protected routes check liveness.
func (s *Auth) Logout(ctx context.Context, userID string) error {
	return s.sessions.DeleteSession(ctx, userID)
}

// Refresh mints a fresh credential and replaces the session
func (s *Auth) Refresh(ctx context.Context, userID string) (*domain.AuthResult, error) {
	token, err := s.openSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{Token: token}, nil
}

// GetUser returns the account for a verified user ID
func (s *Auth) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// Authenticate gates every protected operation: the credential must verify
// AND the session must still be live. Token validity is self-contained;
// the session store is the separate revocation layer.
func (s *Auth) Authenticate(ctx context.Context, credential string) (string, error) {
	userID, err := s.issuer.Verify(credential)
	if err != nil {
		return "", err
	}

	session, err := s.sessions.GetSession(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("checking session: %w", err)
	}
	if session == nil {
		return "", domain.ErrSessionExpired
	}

	return userID, nil
}

func (s *Auth) openSession(ctx context.Context, userID string) (string, error) {
	token, err := s.issuer.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("issuing credential: %w", err)
	}
	record := domain.SessionRecord{
		Token:    token,
		IssuedAt: time.Now().UTC(),
	}
	if err := s.sessions.SetSession(ctx, userID, record, s.sessionTTL); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return token, nil
}
