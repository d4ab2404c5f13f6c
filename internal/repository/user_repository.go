package repository

import (
	"context"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/google/uuid"
)

// UserRepository returns domain.ErrUserNotFound for missing rows and
// domain.ErrEmailTaken on a unique email violation. Other failures wrap domain.ErrStore.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Ping(ctx context.Context) error
}
