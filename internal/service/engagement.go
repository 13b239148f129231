package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fivelearn-engagement/internal/config"
	"github.com/fivelearn-engagement/internal/domain"
	"github.com/fivelearn-engagement/internal/streak"
)

// Leaderboard is the score-ordered collaborator holding the global board
type Leaderboard interface {
	IncrementScore(ctx context.Context, userID string, delta int64) (int64, error)
	GetTopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
	GetRank(ctx context.Context, userID string) (domain.LeaderboardRank, error)
	GetCount(ctx context.Context) (int64, error)
}

// StreakRecorder reports streak transitions for tracked activity
type StreakRecorder interface {
	Record(ctx context.Context, userID string, now time.Time) (streak.Result, error)
	LastActivity(ctx context.Context, userID string) (string, error)
}

// UserRepository is the durable account store
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserNames(ctx context.Context, ids []string) (map[string]string, error)
	IncrementPoints(ctx context.Context, userID string, delta int64) error
	RecordPointsEvent(ctx context.Context, event domain.PointsEvent) error
}

// Broadcaster pushes live leaderboard updates to connected clients
type Broadcaster interface {
	BroadcastLeaderboardUpdate(entries []domain.LeaderboardEntry, totalUsers int64)
	BroadcastRankUpdate(entry domain.LeaderboardEntry)
}

// Engagement provides business logic for streaks and the leaderboard
type Engagement struct {
	streaks     StreakRecorder
	board       Leaderboard
	users       UserRepository
	broadcaster Broadcaster
	streakCfg   *config.StreakConfig
	boardCfg    *config.LeaderboardConfig
	logger      *slog.Logger
}

// NewEngagement creates a new engagement service
func NewEngagement(
	streaks StreakRecorder,
	board Leaderboard,
	users UserRepository,
	streakCfg *config.StreakConfig,
	boardCfg *config.LeaderboardConfig,
	logger *slog.Logger,
) *Engagement {
	return &Engagement{
		streaks:   streaks,
		board:     board,
		users:     users,
		streakCfg: streakCfg,
		boardCfg:  boardCfg,
		logger:    logger,
	}
}

// SetBroadcaster attaches the live-update hub
func (s *Engagement) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// RecordActivity registers a tracked activity for a user and pays the
// streak bonus when the streak newly extends across a day boundary.
// Same-day repeats keep the streak without a second bonus.
func (s *Engagement) RecordActivity(ctx context.Context, userID string, now time.Time) (domain.ActivityResult, error) {
	result, err := s.streaks.Record(ctx, userID, now)
	if err != nil {
		return domain.ActivityResult{}, fmt.Errorf("recording activity: %w", err)
	}

	if result.Extended {
		if _, err := s.AwardPoints(ctx, userID, s.streakCfg.BonusPoints, domain.ReasonStreakBonus); err != nil {
			// The streak write already committed; the lost bonus is the
			// accepted inconsistency window, but it is not hidden.
			return domain.ActivityResult{Continued: result.Continued},
				fmt.Errorf("awarding streak bonus: %w", err)
		}
	}

	return domain.ActivityResult{Continued: result.Continued}, nil
}

// ProcessActivityEvent handles one activity event from the learning layer,
// recording the streak and awarding any points carried by the event.
func (s *Engagement) ProcessActivityEvent(ctx context.Context, event domain.ActivityEvent) (domain.ActivityResult, error) {
	if event.UserID == "" {
		return domain.ActivityResult{}, domain.ErrInvalidRequest
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	result, err := s.RecordActivity(ctx, event.UserID, occurredAt)
	if err != nil {
		return result, err
	}

	if event.Points != 0 {
		if _, err := s.AwardPoints(ctx, event.UserID, event.Points, reasonForKind(event.Kind)); err != nil {
			return result, err
		}
	}

	return result, nil
}

// ProcessActivityBatch handles multiple activity events. Failures are
// logged per event so one bad record does not stall the stream.
func (s *Engagement) ProcessActivityBatch(ctx context.Context, batch domain.ActivityBatch) error {
	for _, event := range batch.Events {
		if _, err := s.ProcessActivityEvent(ctx, event); err != nil {
			s.logger.Error("failed to process activity event",
				"user_id", event.UserID,
				"kind", event.Kind,
				"error", err,
			)
		}
	}
	return nil
}

// AwardPoints atomically adjusts a user's leaderboard score and mirrors the
// delta onto the cumulative counter and the audit log. The leaderboard is
// the source of truth for rank; counter and audit writes are secondary and
// logged on failure rather than failing the award.
func (s *Engagement) AwardPoints(ctx context.Context, userID string, delta int64, reason string) (int64, error) {
	newScore, err := s.board.IncrementScore(ctx, userID, delta)
	if err != nil {
		return 0, fmt.Errorf("incrementing leaderboard score: %w", err)
	}

	if err := s.users.IncrementPoints(ctx, userID, delta); err != nil {
		s.logger.Warn("failed to update cumulative points counter", "user_id", userID, "error", err)
	}
	if err := s.users.RecordPointsEvent(ctx, domain.PointsEvent{
		UserID:    userID,
		Delta:     delta,
		Reason:    reason,
		Timestamp: time.Now(),
	}); err != nil {
		s.logger.Warn("failed to record points event", "user_id", userID, "error", err)
	}

	s.broadcastUpdate(ctx, userID, newScore)

	return newScore, nil
}

// GetTop returns the n highest-scoring users, hydrated with display names
func (s *Engagement) GetTop(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		n = s.boardCfg.DefaultLimit
	}
	if n > s.boardCfg.MaxLimit {
		n = s.boardCfg.MaxLimit
	}

	entries, err := s.board.GetTopN(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	if len(entries) > 0 {
		ids := make([]string, len(entries))
		for i, entry := range entries {
			ids[i] = entry.UserID
		}
		names, err := s.users.GetUserNames(ctx, ids)
		if err != nil {
			s.logger.Warn("failed to hydrate leaderboard names", "error", err)
		} else {
			for i := range entries {
				entries[i].Name = names[entries[i].UserID]
			}
		}
	}

	return entries, nil
}

// GetUserRank returns a user's standing. An unranked user yields a nil
// rank and zero score.
func (s *Engagement) GetUserRank(ctx context.Context, userID string) (domain.LeaderboardRank, error) {
	rank, err := s.board.GetRank(ctx, userID)
	if err != nil {
		return domain.LeaderboardRank{}, fmt.Errorf("getting user rank: %w", err)
	}
	return rank, nil
}

// GetStreak returns the user's last tracked calendar date ("" when none)
func (s *Engagement) GetStreak(ctx context.Context, userID string) (string, error) {
	last, err := s.streaks.LastActivity(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("getting streak: %w", err)
	}
	return last, nil
}

// broadcastUpdate pushes the refreshed board and the scorer's new standing
// to live clients. Best effort only.
func (s *Engagement) broadcastUpdate(ctx context.Context, userID string, newScore int64) {
	if s.broadcaster == nil {
		return
	}

	rank, err := s.board.GetRank(ctx, userID)
	if err == nil && rank.Rank != nil {
		s.broadcaster.BroadcastRankUpdate(domain.LeaderboardEntry{
			Rank:   *rank.Rank,
			UserID: userID,
			Score:  newScore,
		})
	}

	entries, err := s.GetTop(ctx, s.boardCfg.DefaultLimit)
	if err != nil {
		s.logger.Warn("failed to fetch board for broadcast", "error", err)
		return
	}
	total, err := s.board.GetCount(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch board count for broadcast", "error", err)
		return
	}
	s.broadcaster.BroadcastLeaderboardUpdate(entries, total)
}

func reasonForKind(kind string) string {
	switch kind {
	case domain.ActivityQuizCompleted:
		return domain.ReasonQuizScore
	case domain.ActivityLessonCompleted:
		return domain.ReasonLesson
	default:
		return domain.ReasonActivity
	}
}
