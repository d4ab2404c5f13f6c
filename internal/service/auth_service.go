package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/config"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/metrics"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/hash"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/jwt"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoginThrottle limits repeated failed logins. A nil throttle disables limiting.
type LoginThrottle interface {
	Allowed(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}

type AuthService struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	tokenService *jwt.TokenService
	throttle     LoginThrottle
	cfg          *config.Config
	logger       *zap.Logger
	now          func() time.Time
}

type RegisterRequest struct {
	FirstName   string `json:"firstName" validate:"required,min=2,max=50"`
	LastName    string `json:"lastName" validate:"required,min=2,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,strongpassword"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type LoginResult struct {
	User   *domain.UserDTO
	Tokens *domain.TokenPair
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokenService *jwt.TokenService,
	throttle LoginThrottle,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		tokenService: tokenService,
		throttle:     throttle,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock replaces the time source; tests use it to move past token expiry.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Register creates a customer account with an empty session slot.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.UserDTO, error) {
	email := NormalizeEmail(req.Email)

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:             uuid.New(),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          email,
		PasswordHash:   passwordHash,
		PhoneNumber:    strings.TrimSpace(req.PhoneNumber),
		ProfilePicture: domain.DefaultProfilePicture,
		Role:           domain.RoleCustomer,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			metrics.RegistrationsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		}
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))

	return user.DTO(), nil
}

// Login verifies credentials, mints a token pair with TTLs chosen by
// rememberMe and overwrites the user's session slot.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := NormalizeEmail(req.Email)

	if s.throttle != nil {
		allowed, err := s.throttle.Allowed(ctx, email)
		if err != nil {
			s.logger.Warn("login throttle unavailable", zap.Error(err))
		} else if !allowed {
			metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultRejected).Inc()
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.recordFailure(ctx, email)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	valid, err := hash.Verify(req.Password, user.PasswordHash)
	if err != nil {
		// Unreadable stored hash is a data-integrity fault, not a bad password.
		return nil, fmt.Errorf("%w: user %s: %v", domain.ErrStore, user.ID, err)
	}
	if !valid {
		s.recordFailure(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	accessTTL, refreshTTL := s.cfg.JWT.TTLs(req.RememberMe)

	tokens, err := mintPair(s.tokenService, user, accessTTL, refreshTTL, now)
	if err != nil {
		return nil, err
	}

	session := domain.Session{
		RefreshTokenHash: hashToken(tokens.RefreshToken),
		TokenExpiresAt:   tokens.RefreshExpiresAt,
		RememberMe:       req.RememberMe,
		LoginAt:          now,
	}
	if err := s.sessionRepo.Save(ctx, user.ID, session); err != nil {
		return nil, err
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			s.logger.Warn("failed to reset login throttle", zap.Error(err))
		}
	}

	user.LastLoginAt = &now
	user.RememberMe = req.RememberMe
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.Bool("remember_me", req.RememberMe),
	)

	return &LoginResult{User: user.DTO(), Tokens: tokens}, nil
}

// Logout clears the session owning refreshToken. The token's signature is
// checked but its expiry is not, so sessions behind expired tokens can still
// be cleared. An empty or undecodable token is a no-op.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	userID, err := s.tokenService.DecodeRefreshTokenIgnoringExpiry(refreshToken)
	if err != nil {
		s.logger.Debug("logout with undecodable refresh token", zap.Error(err))
		return nil
	}

	if err := s.sessionRepo.Clear(ctx, userID, s.now()); err != nil {
		return err
	}

	s.logger.Info("user logged out", zap.String("user_id", userID.String()))
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultFailure).Inc()
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, email); err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
	}
}

// mintPair issues an access and a refresh token for user.
func mintPair(ts *jwt.TokenService, user *domain.User, accessTTL, refreshTTL time.Duration, now time.Time) (*domain.TokenPair, error) {
	accessToken, err := ts.IssueAccessToken(user.ID, user.Role, accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := ts.IssueRefreshToken(user.ID, refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessTTL:        accessTTL,
		RefreshTTL:       refreshTTL,
		RefreshExpiresAt: now.Add(refreshTTL),
	}, nil
}

// NormalizeEmail lowercases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashToken creates a SHA-256 hash of the token
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
