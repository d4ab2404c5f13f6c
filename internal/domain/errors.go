package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already in use")
	ErrUserNotFound       = errors.New("user not found")

	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrSessionStale     = errors.New("token predates the latest session rotation")
	ErrRefreshRejected  = errors.New("refresh token rejected")
	ErrSessionConflict  = errors.New("session was rotated concurrently")
	ErrTooManyAttempts  = errors.New("too many login attempts")

	// ErrConfiguration marks faults that must abort startup.
	ErrConfiguration = errors.New("configuration error")
	ErrStore         = errors.New("store error")
)
