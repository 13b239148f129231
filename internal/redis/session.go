package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fivelearn-engagement/internal/domain"
)

// SetSession upserts the session record for a user with the given TTL,
// replacing any prior record. One live session per user.
func (s *Store) SetSession(ctx context.Context, userID string, record domain.SessionRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("setting session: %w", err)
	}
	return nil
}

// GetSession returns the current session record, or nil when none exists
// or it has expired. Absence is not an error.
func (s *Store) GetSession(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var record domain.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &record, nil
}

// DeleteSession removes the session record immediately. The credential
// itself stays cryptographically valid until its own expiry; callers that
// need hard revocation must check session liveness.
func (s *Store) DeleteSession(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
