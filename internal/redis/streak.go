package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// GetLastActivity returns the stored last-activity calendar date for a user
// in "2006-01-02" form. The empty string means no record exists or it has
// expired out of the retention window.
func (s *Store) GetLastActivity(ctx context.Context, userID string) (string, error) {
	date, err := s.client.Get(ctx, streakKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting last activity: %w", err)
	}
	return date, nil
}

// SetLastActivity stores a user's last-activity calendar date, refreshing
// the retention TTL so an active user's record never expires mid-streak.
func (s *Store) SetLastActivity(ctx context.Context, userID, date string, ttl time.Duration) error {
	if err := s.client.Set(ctx, streakKey(userID), date, ttl).Err(); err != nil {
		return fmt.Errorf("setting last activity: %w", err)
	}
	return nil
}
