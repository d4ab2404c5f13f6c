package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/hash"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
	now      func() time.Time
}

type UpdateProfileRequest struct {
	FirstName   string `json:"firstName" validate:"required,min=2,max=50"`
	LastName    string `json:"lastName" validate:"required,min=2,max=50"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,phone"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpassword"`
}

func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.DTO(), nil
}

// UpdateProfile changes name, email and phone. A blank phone keeps the current one.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*domain.UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	user.Email = NormalizeEmail(req.Email)
	if phone := strings.TrimSpace(req.PhoneNumber); phone != "" {
		user.PhoneNumber = phone
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", zap.String("user_id", id.String()))
	return user.DTO(), nil
}

// UpdatePassword replaces the password after checking the current one.
// A wrong current password returns domain.ErrInvalidCredentials.
func (s *UserService) UpdatePassword(ctx context.Context, id uuid.UUID, req UpdatePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	valid, err := hash.Verify(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("%w: user %s: %v", domain.ErrStore, id, err)
	}
	if !valid {
		return domain.ErrInvalidCredentials
	}

	newHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, id, newHash); err != nil {
		return err
	}

	s.logger.Info("password updated", zap.String("user_id", id.String()))
	return nil
}
