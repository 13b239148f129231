package streak

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fivelearn-engagement/internal/config"
)

// dateLayout is the stored calendar-date form
const dateLayout = "2006-01-02"

// Store is the key-value collaborator holding each user's last-activity
// date. Implemented by the Redis store; tests use an in-memory fake.
type Store interface {
	GetLastActivity(ctx context.Context, userID string) (string, error)
	SetLastActivity(ctx context.Context, userID, date string, ttl time.Duration) error
}

// Result reports the streak outcome of one tracked activity.
// Continued is false only when a gap of two or more calendar days broke
// the streak. Extended is true only on a day-boundary transition, when
// the last activity was exactly yesterday; that is the one case that
// earns a bonus. A same-day repeat continues the streak without
// extending it.
type Result struct {
	Continued bool
	Extended  bool
}

// Tracker decides, per tracked activity, whether a user's consecutive-day
// streak continues, extends or breaks, and persists the new reference date.
//
// The read-then-write sequence is not atomic; two near-simultaneous events
// for the same user may race through the window and one day-boundary
// transition can be miscounted as a same-day repeat. A single user issuing
// concurrent requests is not a supported usage pattern, so no locking is
// added.
type Tracker struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewTracker creates a streak tracker
func NewTracker(store Store, cfg *config.StreakConfig, logger *slog.Logger) *Tracker {
	ttl := cfg.RecordTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Tracker{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// Record registers a tracked activity at the given time and returns the
// streak transition. Every write refreshes the record's TTL.
func (t *Tracker) Record(ctx context.Context, userID string, now time.Time) (Result, error) {
	today := civilDate(now)
	todayStr := today.Format(dateLayout)

	last, err := t.store.GetLastActivity(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("reading streak record: %w", err)
	}

	// First tracked activity always counts.
	if last == "" {
		if err := t.store.SetLastActivity(ctx, userID, todayStr, t.ttl); err != nil {
			return Result{}, fmt.Errorf("writing streak record: %w", err)
		}
		return Result{Continued: true}, nil
	}

	lastDate, err := time.Parse(dateLayout, last)
	if err != nil {
		// Unparseable record: treat as absent rather than failing the user.
		t.logger.Warn("malformed streak record, resetting", "user_id", userID, "value", last)
		if err := t.store.SetLastActivity(ctx, userID, todayStr, t.ttl); err != nil {
			return Result{}, fmt.Errorf("writing streak record: %w", err)
		}
		return Result{Continued: true}, nil
	}

	switch days := daysBetween(lastDate, today); {
	case days <= 0:
		// Same calendar day; the record is already current.
		return Result{Continued: true}, nil
	case days == 1:
		if err := t.store.SetLastActivity(ctx, userID, todayStr, t.ttl); err != nil {
			return Result{}, fmt.Errorf("writing streak record: %w", err)
		}
		return Result{Continued: true, Extended: true}, nil
	default:
		if err := t.store.SetLastActivity(ctx, userID, todayStr, t.ttl); err != nil {
			return Result{}, fmt.Errorf("writing streak record: %w", err)
		}
		return Result{Continued: false}, nil
	}
}

// LastActivity returns the user's last tracked calendar date, or the empty
// string when the record is absent or expired.
func (t *Tracker) LastActivity(ctx context.Context, userID string) (string, error) {
	return t.store.GetLastActivity(ctx, userID)
}

// civilDate truncates a timestamp to its UTC calendar date (midnight).
// Day differences must come from normalized dates, never from a raw
// elapsed-time division, which miscounts across DST shifts or when the
// two activities happen at different times of day.
func civilDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole-day difference between two UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
