package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/fivelearn-engagement/internal/config"
	"github.com/fivelearn-engagement/internal/domain"
	"github.com/fivelearn-engagement/internal/streak"
)

// fakeBoard is an in-memory leaderboard ordered like the Redis sorted set
type fakeBoard struct {
	scores map[string]int64
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{scores: make(map[string]int64)}
}

func (f *fakeBoard) IncrementScore(_ context.Context, userID string, delta int64) (int64, error) {
	f.scores[userID] += delta
	return f.scores[userID], nil
}

func (f *fakeBoard) ordered() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(f.scores))
	for userID, score := range f.scores {
		entries = append(entries, domain.LeaderboardEntry{UserID: userID, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = int64(i + 1)
	}
	return entries
}

func (f *fakeBoard) GetTopN(_ context.Context, n int) ([]domain.LeaderboardEntry, error) {
	entries := f.ordered()
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

func (f *fakeBoard) GetRank(_ context.Context, userID string) (domain.LeaderboardRank, error) {
	if _, ok := f.scores[userID]; !ok {
		return domain.LeaderboardRank{Rank: nil, Score: 0}, nil
	}
	for _, entry := range f.ordered() {
		if entry.UserID == userID {
			rank := entry.Rank
			return domain.LeaderboardRank{Rank: &rank, Score: entry.Score}, nil
		}
	}
	return domain.LeaderboardRank{Rank: nil, Score: 0}, nil
}

func (f *fakeBoard) GetCount(_ context.Context) (int64, error) {
	return int64(len(f.scores)), nil
}

// fakeUsers is an in-memory account store
type fakeUsers struct {
	byID   map[string]*domain.User
	events []domain.PointsEvent
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*domain.User)}
}

func (f *fakeUsers) CreateUser(_ context.Context, user *domain.User) error {
	for _, existing := range f.byID {
		if existing.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	copied := *user
	f.byID[user.ID] = &copied
	return nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.byID {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUsers) GetUserNames(_ context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if user, ok := f.byID[id]; ok {
			names[id] = user.Name
		}
	}
	return names, nil
}

func (f *fakeUsers) IncrementPoints(_ context.Context, userID string, delta int64) error {
	user, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Points += delta
	return nil
}

func (f *fakeUsers) RecordPointsEvent(_ context.Context, event domain.PointsEvent) error {
	f.events = append(f.events, event)
	return nil
}

// fakeStreakStore is an in-memory stand-in for the streak date store
type fakeStreakStore struct {
	records map[string]string
}

func newFakeStreakStore() *fakeStreakStore {
	return &fakeStreakStore{records: make(map[string]string)}
}

func (f *fakeStreakStore) GetLastActivity(_ context.Context, userID string) (string, error) {
	return f.records[userID], nil
}

func (f *fakeStreakStore) SetLastActivity(_ context.Context, userID, date string, _ time.Duration) error {
	f.records[userID] = date
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngagement(board Leaderboard, users UserRepository) *Engagement {
	logger := testLogger()
	streakCfg := &config.StreakConfig{RecordTTL: 30 * 24 * time.Hour, BonusPoints: 10}
	tracker := streak.NewTracker(newFakeStreakStore(), streakCfg, logger)
	return NewEngagement(
		tracker,
		board,
		users,
		streakCfg,
		&config.LeaderboardConfig{DefaultLimit: 10, MaxLimit: 100},
		logger,
	)
}

func seedUser(t *testing.T, users *fakeUsers, id, name string) {
	t.Helper()
	err := users.CreateUser(context.Background(), &domain.User{
		ID:    id,
		Name:  name,
		Email: id + "@example.com",
		Role:  domain.RoleLearner,
	})
	if err != nil {
		t.Fatalf("seeding user %s: %v", id, err)
	}
}

func at(dayOfMonth, hour int) time.Time {
	return time.Date(2025, time.June, dayOfMonth, hour, 0, 0, 0, time.UTC)
}

func TestAwardPointsArithmetic(t *testing.T) {
	board := newFakeBoard()
	users := newFakeUsers()
	seedUser(t, users, "u1", "Ada")
	svc := newTestEngagement(board, users)

	ctx := context.Background()
	if _, err := svc.AwardPoints(ctx, "u1", 10, domain.ReasonQuizScore); err != nil {
		t.Fatalf("AwardPoints: %v", err)
	}
	if _, err := svc.AwardPoints(ctx, "u1", -3, domain.ReasonQuizScore); err != nil {
		t.Fatalf("AwardPoints: %v", err)
	}

	rank, err := svc.GetUserRank(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserRank: %v", err)
	}
	if rank.Score != 7 {
		t.Errorf("score = %d, want 7", rank.Score)
	}
	if rank.Rank == nil || *rank.Rank != 1 {
		t.Errorf("rank = %v, want 1", rank.Rank)
	}

	// The cumulative counter mirrors the board, and both awards are audited.
	user, _ := users.GetUserByID(ctx, "u1")
	if user.Points != 7 {
		t.Errorf("cumulative points = %d, want 7", user.Points)
	}
	if len(users.events) != 2 {
		t.Errorf("audit events = %d, want 2", len(users.events))
	}
}

func TestUnrankedUserIsNotAnError(t *testing.T) {
	svc := newTestEngagement(newFakeBoard(), newFakeUsers())

	rank, err := svc.GetUserRank(context.Background(), "never-scored")
	if err != nil {
		t.Fatalf("GetUserRank: %v", err)
	}
	if rank.Rank != nil {
		t.Errorf("rank = %v, want nil", rank.Rank)
	}
	if rank.Score != 0 {
		t.Errorf("score = %d, want 0", rank.Score)
	}
}

func TestGetTopOrderingAndHydration(t *testing.T) {
	board := newFakeBoard()
	users := newFakeUsers()
	svc := newTestEngagement(board, users)

	ctx := context.Background()
	scores := map[string]int64{"u1": 30, "u2": 50, "u3": 10}
	for id, score := range scores {
		seedUser(t, users, id, "name-"+id)
		if _, err := svc.AwardPoints(ctx, id, score, domain.ReasonQuizScore); err != nil {
			t.Fatalf("AwardPoints: %v", err)
		}
	}

	// Limit larger than the population returns everyone.
	entries, err := svc.GetTop(ctx, 50)
	if err != nil {
		t.Fatalf("GetTop: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	wantOrder := []string{"u2", "u1", "u3"}
	for i, entry := range entries {
		if entry.UserID != wantOrder[i] {
			t.Errorf("entry %d = %s, want %s", i, entry.UserID, wantOrder[i])
		}
		if entry.Rank != int64(i+1) {
			t.Errorf("entry %d rank = %d, want %d", i, entry.Rank, i+1)
		}
		if i > 0 && entries[i-1].Score <= entry.Score {
			t.Errorf("scores not strictly descending at %d", i)
		}
		if entry.Name != "name-"+entry.UserID {
			t.Errorf("entry %d name = %q, not hydrated", i, entry.Name)
		}
	}
}

func TestStreakBonusOnlyOnExtension(t *testing.T) {
	board := newFakeBoard()
	users := newFakeUsers()
	seedUser(t, users, "u1", "Ada")
	svc := newTestEngagement(board, users)

	ctx := context.Background()

	// First activity counts but pays nothing.
	result, err := svc.RecordActivity(ctx, "u1", at(1, 9))
	if err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}
	if !result.Continued {
		t.Error("first activity should continue the streak")
	}
	if board.scores["u1"] != 0 {
		t.Errorf("score after first activity = %d, want 0", board.scores["u1"])
	}

	// Same calendar day: streak unaffected, still no bonus.
	result, err = svc.RecordActivity(ctx, "u1", at(1, 22))
	if err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}
	if !result.Continued {
		t.Error("same-day activity should continue the streak")
	}
	if board.scores["u1"] != 0 {
		t.Errorf("score after same-day repeat = %d, want 0", board.scores["u1"])
	}

	// Next calendar day: streak extends and the bonus is paid once.
	result, err = svc.RecordActivity(ctx, "u1", at(2, 8))
	if err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}
	if !result.Continued {
		t.Error("next-day activity should continue the streak")
	}
	if board.scores["u1"] != 10 {
		t.Errorf("score after extension = %d, want 10", board.scores["u1"])
	}

	// Repeat on the extended day: no second bonus.
	if _, err := svc.RecordActivity(ctx, "u1", at(2, 20)); err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}
	if board.scores["u1"] != 10 {
		t.Errorf("score after repeat = %d, want 10", board.scores["u1"])
	}
}

func TestBrokenStreakPaysNothing(t *testing.T) {
	board := newFakeBoard()
	users := newFakeUsers()
	seedUser(t, users, "u1", "Ada")
	seedUser(t, users, "u2", "Grace")
	svc := newTestEngagement(board, users)

	ctx := context.Background()

	// Registration day, then a next-day login worth the bonus.
	if _, err := svc.RecordActivity(ctx, "u1", at(1, 10)); err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}
	result, err := svc.RecordActivity(ctx, "u1", at(2, 10))
	if err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}
	if !result.Continued {
		t.Error("next-day login should continue the streak")
	}

	// Three silent days break the streak; the score stays where it was.
	result, err = svc.RecordActivity(ctx, "u1", at(5, 10))
	if err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}
	if result.Continued {
		t.Error("login after a 3-day gap should break the streak")
	}
	if board.scores["u1"] != 10 {
		t.Errorf("score after break = %d, want 10", board.scores["u1"])
	}

	// Rank reflects the standing among all users.
	if _, err := svc.AwardPoints(ctx, "u2", 25, domain.ReasonQuizScore); err != nil {
		t.Fatalf("AwardPoints: %v", err)
	}
	rank, err := svc.GetUserRank(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserRank: %v", err)
	}
	if rank.Rank == nil || *rank.Rank != 2 {
		t.Errorf("rank = %v, want 2", rank.Rank)
	}
	if rank.Score != 10 {
		t.Errorf("score = %d, want 10", rank.Score)
	}
}

func TestProcessActivityEventAwardsCarriedPoints(t *testing.T) {
	board := newFakeBoard()
	users := newFakeUsers()
	seedUser(t, users, "u1", "Ada")
	svc := newTestEngagement(board, users)

	ctx := context.Background()
	result, err := svc.ProcessActivityEvent(ctx, domain.ActivityEvent{
		UserID:     "u1",
		Kind:       domain.ActivityQuizCompleted,
		Points:     15,
		OccurredAt: at(1, 12),
	})
	if err != nil {
		t.Fatalf("ProcessActivityEvent: %v", err)
	}
	if !result.Continued {
		t.Error("first activity should continue the streak")
	}
	if board.scores["u1"] != 15 {
		t.Errorf("score = %d, want 15", board.scores["u1"])
	}

	if _, err := svc.ProcessActivityEvent(ctx, domain.ActivityEvent{Kind: domain.ActivityLogin}); err != domain.ErrInvalidRequest {
		t.Errorf("event without user_id = %v, want ErrInvalidRequest", err)
	}
}
