package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fivelearn-engagement/internal/auth"
	"github.com/fivelearn-engagement/internal/config"
	"github.com/fivelearn-engagement/internal/domain"
)

// fakeSessions is an in-memory session store
type fakeSessions struct {
	records map[string]domain.SessionRecord
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{records: make(map[string]domain.SessionRecord)}
}

func (f *fakeSessions) SetSession(_ context.Context, userID string, record domain.SessionRecord, _ time.Duration) error {
	f.records[userID] = record
	return nil
}

func (f *fakeSessions) GetSession(_ context.Context, userID string) (*domain.SessionRecord, error) {
	record, ok := f.records[userID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, userID string) error {
	delete(f.records, userID)
	return nil
}

type authFixture struct {
	svc      *Auth
	issuer   *auth.Issuer
	sessions *fakeSessions
	users    *fakeUsers
	board    *fakeBoard
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	cfg := &config.AuthConfig{
		Secret:        "test-secret",
		TokenLifetime: time.Hour,
		SessionTTL:    24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
	issuer, err := auth.NewIssuer(cfg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	sessions := newFakeSessions()
	users := newFakeUsers()
	board := newFakeBoard()
	engagement := newTestEngagement(board, users)
	svc := NewAuth(issuer, sessions, users, engagement, cfg, testLogger())

	return &authFixture{svc: svc, issuer: issuer, sessions: sessions, users: users, board: board}
}

func registerLearner(t *testing.T, fx *authFixture, email string) *domain.AuthResult {
	t.Helper()
	result, err := fx.svc.Register(context.Background(), domain.RegisterRequest{
		Name:     "Ada",
		Email:    email,
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return result
}

func TestRegisterCreatesAccountSessionAndStreak(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	result := registerLearner(t, fx, "ada@example.com")
	if result.Token == "" {
		t.Fatal("expected a credential")
	}
	if result.User.Role != domain.RoleLearner {
		t.Errorf("role = %q, want %q", result.User.Role, domain.RoleLearner)
	}

	// The session holds the issued credential.
	session, err := fx.sessions.GetSession(ctx, result.User.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session == nil || session.Token != result.Token {
		t.Error("session does not hold the issued credential")
	}

	// Registration is the first tracked activity and pays no bonus.
	last, err := fx.svc.engagement.GetStreak(ctx, result.User.ID)
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if last == "" {
		t.Error("expected a streak record after registration")
	}
	if fx.board.scores[result.User.ID] != 0 {
		t.Errorf("score after registration = %d, want 0", fx.board.scores[result.User.ID])
	}
}

func TestRegisterValidation(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	cases := []domain.RegisterRequest{
		{Name: "", Email: "a@example.com", Password: "long-enough"},
		{Name: "Ada", Email: "not-an-email", Password: "long-enough"},
		{Name: "Ada", Email: "a@example.com", Password: "short"},
	}
	for _, req := range cases {
		if _, err := fx.svc.Register(ctx, req); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Register(%+v) = %v, want ErrInvalidRequest", req, err)
		}
	}

	registerLearner(t, fx, "ada@example.com")
	_, err := fx.svc.Register(ctx, domain.RegisterRequest{
		Name:     "Other Ada",
		Email:    "ada@example.com",
		Password: "long-enough",
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("duplicate email = %v, want ErrEmailTaken", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	registerLearner(t, fx, "ada@example.com")

	_, err := fx.svc.Login(ctx, domain.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	if !errors.Is(err, domain.ErrInvalidLogin) {
		t.Errorf("wrong password = %v, want ErrInvalidLogin", err)
	}

	// An unknown account yields the same error as a wrong password.
	_, err = fx.svc.Login(ctx, domain.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	if !errors.Is(err, domain.ErrInvalidLogin) {
		t.Errorf("unknown email = %v, want ErrInvalidLogin", err)
	}
}

func TestLoginOpensSessionAndReportsStreak(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	registered := registerLearner(t, fx, "ada@example.com")

	result, err := fx.svc.Login(ctx, domain.LoginRequest{
		Email:    "Ada@Example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Error("login resolved a different account")
	}
	if result.StreakContinued == nil || !*result.StreakContinued {
		t.Error("same-day login should report a continued streak")
	}

	session, _ := fx.sessions.GetSession(ctx, result.User.ID)
	if session == nil || session.Token != result.Token {
		t.Error("session does not hold the login credential")
	}
}

func TestLogoutRevokesSessionNotCredential(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	result := registerLearner(t, fx, "ada@example.com")

	userID, err := fx.svc.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate before logout: %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("authenticated as %q, want %q", userID, result.User.ID)
	}

	if err := fx.svc.Logout(ctx, result.User.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// The credential itself still verifies; only the session is gone.
	if _, err := fx.issuer.Verify(result.Token); err != nil {
		t.Errorf("credential should still verify after logout: %v", err)
	}
	if _, err := fx.svc.Authenticate(ctx, result.Token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("Authenticate after logout = %v, want ErrSessionExpired", err)
	}
}

func TestRefreshReplacesSession(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	result := registerLearner(t, fx, "ada@example.com")

	refreshed, err := fx.svc.Refresh(ctx, result.User.ID)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.Token == "" {
		t.Fatal("expected a credential")
	}

	session, _ := fx.sessions.GetSession(ctx, result.User.ID)
	if session == nil || session.Token != refreshed.Token {
		t.Error("session does not hold the refreshed credential")
	}
	if _, err := fx.svc.Authenticate(ctx, refreshed.Token); err != nil {
		t.Errorf("Authenticate with refreshed credential: %v", err)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.svc.Authenticate(context.Background(), "not-a-token")
	if !errors.Is(err, domain.ErrInvalidCredential) {
		t.Errorf("Authenticate = %v, want ErrInvalidCredential", err)
	}
}
