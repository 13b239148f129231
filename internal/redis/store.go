package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fivelearn-engagement/internal/config"
)

// Key layout. Sessions and streaks are plain keys with a TTL; the
// leaderboard is a single global sorted set scored by cumulative points.
const (
	sessionKeyPrefix = "session:"
	streakKeyPrefix  = "streak:"
	leaderboardKey   = "leaderboard"
)

// Store provides Redis-backed session, streak and leaderboard state
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStore creates a new Redis store
func NewStore(cfg *config.RedisConfig, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Store{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client
func (s *Store) Client() *redis.Client {
	return s.client
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

func streakKey(userID string) string {
	return streakKeyPrefix + userID
}
