package domain

import "time"

// SessionRecord is the payload stored per logged-in user. At most one live
// record exists per user; writing a new one replaces the prior session.
type SessionRecord struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// LeaderboardEntry represents a single ranked user on the global board
type LeaderboardEntry struct {
	Rank   int64  `json:"rank"`
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Score  int64  `json:"score"`
}

// LeaderboardRank is a single user's standing. Rank is nil when the user has
// never scored; an unranked user is a valid state, not an error.
type LeaderboardRank struct {
	Rank  *int64 `json:"rank"`
	Score int64  `json:"score"`
}

// Activity kinds accepted by the engagement service
const (
	ActivityLogin           = "login"
	ActivityLessonCompleted = "lesson_completed"
	ActivityQuizCompleted   = "quiz_completed"
	ActivityFlashcardReview = "flashcard_review"
)

// ActivityEvent represents one tracked learning action, either from an HTTP
// handler or streamed from the learning service over Kafka.
type ActivityEvent struct {
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	Points     int64     `json:"points,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ActivityBatch represents multiple activity events
type ActivityBatch struct {
	Events []ActivityEvent `json:"events"`
}

// ActivityResult reports the streak outcome of a recorded activity
type ActivityResult struct {
	Continued bool `json:"continued"`
}

// PointsEvent records a single point award for auditing
type PointsEvent struct {
	UserID    string    `json:"user_id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Award reasons recorded in the points audit log
const (
	ReasonStreakBonus = "streak_bonus"
	ReasonQuizScore   = "quiz_score"
	ReasonLesson      = "lesson"
	ReasonActivity    = "activity"
)
