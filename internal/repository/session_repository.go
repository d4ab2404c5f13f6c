package repository

import (
	"context"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/google/uuid"
)

// SessionRepository manages the single session slot stored on each user row.
type SessionRepository interface {
	// GetByRefreshToken loads the user only if tokenHash is the currently
	// stored refresh digest. Superseded tokens yield domain.ErrUserNotFound.
	GetByRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string) (*domain.User, error)

	// Save overwrites the slot unconditionally (login).
	Save(ctx context.Context, userID uuid.UUID, session domain.Session) error

	// Rotate replaces the slot only while it still holds expectedHash and has
	// not expired. A lost race returns domain.ErrSessionConflict and writes nothing.
	Rotate(ctx context.Context, userID uuid.UUID, expectedHash string, rotation domain.Rotation) error

	// Clear nulls the refresh token and its expiry (logout). lastTokenRefresh
	// is stamped with at so access tokens issued earlier turn stale.
	Clear(ctx context.Context, userID uuid.UUID, at time.Time) error
}
