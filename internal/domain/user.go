package domain

import (
	"time"

	"github.com/google/uuid"
)

const DefaultProfilePicture = "default.png"

type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	FirstName      string    `json:"firstName" db:"first_name"`
	LastName       string    `json:"lastName" db:"last_name"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	PhoneNumber    string    `json:"phoneNumber" db:"phone_number"`
	ProfilePicture string    `json:"profilePicture" db:"profile_picture"`
	Role           Role      `json:"role" db:"role"`

	// Session state. A single slot per user: overwritten on login and
	// refresh, cleared on logout.
	RefreshTokenHash *string    `json:"-" db:"refresh_token_hash"`
	TokenExpiresAt   *time.Time `json:"-" db:"token_expires_at"`
	RememberMe       bool       `json:"-" db:"remember_me"`
	LastTokenRefresh *time.Time `json:"-" db:"last_token_refresh"`
	LastLoginAt      *time.Time `json:"lastLoginAt" db:"last_login_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Session is written to a user's session slot at login.
type Session struct {
	RefreshTokenHash string
	TokenExpiresAt   time.Time
	RememberMe       bool
	LoginAt          time.Time
}

// Rotation replaces the session slot on refresh. RememberMe is deliberately
// absent: only a login may change it.
type Rotation struct {
	RefreshTokenHash string
	TokenExpiresAt   time.Time
	RefreshedAt      time.Time
}

// HasLiveSession reports whether the stored refresh token is still usable at now.
func (u *User) HasLiveSession(now time.Time) bool {
	return u.RefreshTokenHash != nil && u.TokenExpiresAt != nil && u.TokenExpiresAt.After(now)
}

// IssuedBeforeRotation reports whether a token issued at iat predates the
// user's latest login, refresh or logout. Both sides are compared in
// milliseconds, the precision access tokens carry.
func (u *User) IssuedBeforeRotation(iat time.Time) bool {
	if u.LastTokenRefresh == nil {
		return false
	}
	return iat.UnixMilli() < u.LastTokenRefresh.UnixMilli()
}

// UserDTO is the projection of a user that is safe to return to clients.
type UserDTO struct {
	ID             uuid.UUID  `json:"id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	PhoneNumber    string     `json:"phoneNumber"`
	ProfilePicture string     `json:"profilePicture"`
	Role           Role       `json:"role"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
}

func (u *User) DTO() *UserDTO {
	return &UserDTO{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		PhoneNumber:    u.PhoneNumber,
		ProfilePicture: u.ProfilePicture,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}
