package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fivelearn-engagement/internal/domain"
)

// IncrementScore atomically adds delta (positive or negative) to a user's
// cumulative score, creating the entry at delta if absent. Atomicity comes
// from ZINCRBY; no application-level locking is needed.
func (s *Store) IncrementScore(ctx context.Context, userID string, delta int64) (int64, error) {
	newScore, err := s.client.ZIncrBy(ctx, leaderboardKey, float64(delta), userID).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing score: %w", err)
	}
	return int64(newScore), nil
}

// GetTopN returns the n highest-scoring users in descending score order.
// An n larger than the population returns all entries.
func (s *Store) GetTopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	results, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(results))
	for i, result := range results {
		entries[i] = domain.LeaderboardEntry{
			Rank:   int64(i + 1),
			UserID: result.Member.(string),
			Score:  int64(result.Score),
		}
	}
	return entries, nil
}

// GetRank returns a user's 1-based descending rank and score. A user with
// no entry yields a nil rank and zero score, not an error.
func (s *Store) GetRank(ctx context.Context, userID string) (domain.LeaderboardRank, error) {
	pipe := s.client.Pipeline()
	rankCmd := pipe.ZRevRank(ctx, leaderboardKey, userID)
	scoreCmd := pipe.ZScore(ctx, leaderboardKey, userID)
	_, err := pipe.Exec(ctx)

	if err == redis.Nil {
		return domain.LeaderboardRank{Rank: nil, Score: 0}, nil
	}
	if err != nil {
		return domain.LeaderboardRank{}, fmt.Errorf("getting rank: %w", err)
	}

	rank, err := rankCmd.Result()
	if err == redis.Nil {
		return domain.LeaderboardRank{Rank: nil, Score: 0}, nil
	}
	if err != nil {
		return domain.LeaderboardRank{}, fmt.Errorf("getting rank result: %w", err)
	}

	score, err := scoreCmd.Result()
	if err != nil && err != redis.Nil {
		return domain.LeaderboardRank{}, fmt.Errorf("getting score result: %w", err)
	}

	oneBased := rank + 1
	return domain.LeaderboardRank{
		Rank:  &oneBased,
		Score: int64(score),
	}, nil
}

// GetCount returns the total number of ranked users
func (s *Store) GetCount(ctx context.Context) (int64, error) {
	count, err := s.client.ZCard(ctx, leaderboardKey).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}

// GetAllScores returns every ranked user and score, best first.
// Used by the snapshot worker.
func (s *Store) GetAllScores(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	results, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("getting all scores: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(results))
	for i, result := range results {
		entries[i] = domain.LeaderboardEntry{
			Rank:   int64(i + 1),
			UserID: result.Member.(string),
			Score:  int64(result.Score),
		}
	}
	return entries, nil
}

// BatchSetScores writes multiple scores using pipelining. Used to restore
// the board from the durable snapshot on startup.
func (s *Store) BatchSetScores(ctx context.Context, scores map[string]int64) error {
	pipe := s.client.Pipeline()
	for userID, score := range scores {
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{
			Score:  float64(score),
			Member: userID,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("batch setting scores: %w", err)
	}
	return nil
}
