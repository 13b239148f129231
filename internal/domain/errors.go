package domain

import "errors"

// Domain errors
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("credential expired")
	ErrSessionExpired    = errors.New("session expired")
	ErrInvalidLogin      = errors.New("invalid email or password")
	ErrEmailTaken        = errors.New("email already registered")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInternalError     = errors.New("internal server error")
)

// IsAuthError checks if an error should surface as an authentication failure
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrExpiredCredential) ||
		errors.Is(err, ErrSessionExpired)
}
