package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type sessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a session store over the users table
func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// GetByRefreshToken retrieves a user whose stored refresh digest matches
func (r *sessionRepository) GetByRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND refresh_token_hash = $2`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, userID, tokenHash); err != nil {
		return nil, notFoundOr(err, "failed to get session")
	}

	return &user, nil
}

// Save stores a fresh session at login
func (r *sessionRepository) Save(ctx context.Context, userID uuid.UUID, session domain.Session) error {
	query := `
		UPDATE users SET
			refresh_token_hash = $1,
			token_expires_at = $2,
			remember_me = $3,
			last_token_refresh = $4,
			last_login_at = $4,
			updated_at = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		session.RefreshTokenHash, session.TokenExpiresAt, session.RememberMe, session.LoginAt, userID)
	if err != nil {
		return fmt.Errorf("%w: failed to save session: %v", domain.ErrStore, err)
	}

	return requireOneRow(result)
}

// Rotate swaps the session in a transaction, guarded by the expected digest.
// A cancelled context rolls the transaction back, so a partial rotation is never committed.
func (r *sessionRepository) Rotate(ctx context.Context, userID uuid.UUID, expectedHash string, rotation domain.Rotation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin rotation: %v", domain.ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE users SET
			refresh_token_hash = $1,
			token_expires_at = $2,
			last_token_refresh = $3,
			updated_at = $3
		WHERE id = $4 AND refresh_token_hash = $5 AND token_expires_at > $3`

	result, err := tx.ExecContext(ctx, query,
		rotation.RefreshTokenHash, rotation.TokenExpiresAt, rotation.RefreshedAt, userID, expectedHash)
	if err != nil {
		return fmt.Errorf("%w: failed to rotate session: %v", domain.ErrStore, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	if n == 0 {
		return domain.ErrSessionConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit rotation: %v", domain.ErrStore, err)
	}

	return nil
}

// Clear removes the session at logout
func (r *sessionRepository) Clear(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE users SET
			refresh_token_hash = NULL,
			token_expires_at = NULL,
			last_token_refresh = $1,
			updated_at = $1
		WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, at, userID); err != nil {
		return fmt.Errorf("%w: failed to clear session: %v", domain.ErrStore, err)
	}

	return nil
}
