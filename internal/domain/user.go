package domain

import "time"

// User represents a registered learner
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Points       int64     `json:"points"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Roles
const (
	RoleLearner = "learner"
	RoleAdmin   = "admin"
)

// RegisterRequest represents a request to create an account
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned from register, login and refresh
type AuthResult struct {
	Token           string `json:"token"`
	User            *User  `json:"user,omitempty"`
	StreakContinued *bool  `json:"streak_continued,omitempty"`
}
