package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/config"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/metrics"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/jwt"
	"go.uber.org/zap"
)

// SessionService validates access tokens and rotates refresh tokens.
type SessionService struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	tokenService *jwt.TokenService
	cfg          *config.Config
	logger       *zap.Logger
	now          func() time.Time
}

// AuthResult is the outcome of a successful Authenticate call. AccessToken is
// set only when the presented access token had expired and a new one was
// issued from the refresh token.
type AuthResult struct {
	User        *domain.User
	AccessToken string
	AccessTTL   time.Duration
}

func (r *AuthResult) Refreshed() bool {
	return r.AccessToken != ""
}

func NewSessionService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokenService *jwt.TokenService,
	cfg *config.Config,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		tokenService: tokenService,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

// Refresh consumes a refresh token and rotates both tokens. The stored
// rememberMe choice decides the new TTLs. Rejections wrap
// domain.ErrRefreshRejected; store failures are returned unwrapped.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := s.now()

	user, err := s.loadRefreshSession(ctx, refreshToken, now)
	if err != nil {
		s.countRefresh("rotate", err)
		return nil, err
	}

	accessTTL, refreshTTL := s.cfg.JWT.TTLs(user.RememberMe)
	tokens, err := mintPair(s.tokenService, user, accessTTL, refreshTTL, now)
	if err != nil {
		return nil, err
	}

	rotation := domain.Rotation{
		RefreshTokenHash: hashToken(tokens.RefreshToken),
		TokenExpiresAt:   tokens.RefreshExpiresAt,
		RefreshedAt:      now,
	}
	if err := s.sessionRepo.Rotate(ctx, user.ID, hashToken(refreshToken), rotation); err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			err = reject(err)
		}
		s.countRefresh("rotate", err)
		return nil, err
	}

	s.countRefresh("rotate", nil)
	s.logger.Debug("session rotated", zap.String("user_id", user.ID.String()))

	return tokens, nil
}

// Authenticate decides whether a request carrying accessToken is
// authenticated. An expired access token falls back to refreshToken: if the
// session behind it is live, a new access token is issued (the refresh token
// is kept). Failures wrap domain.ErrNotAuthenticated, domain.ErrTokenInvalid,
// domain.ErrSessionStale or domain.ErrRefreshRejected; anything else is a
// store fault.
func (s *SessionService) Authenticate(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	result, err := s.authenticate(ctx, accessToken, refreshToken)
	switch {
	case err == nil && result.Refreshed():
		metrics.SessionChecksTotal.WithLabelValues("refreshed").Inc()
	case err == nil:
		metrics.SessionChecksTotal.WithLabelValues("authenticated").Inc()
	case IsUnauthenticated(err):
		metrics.SessionChecksTotal.WithLabelValues("unauthenticated").Inc()
	default:
		metrics.SessionChecksTotal.WithLabelValues(metrics.ResultError).Inc()
	}
	return result, err
}

func (s *SessionService) authenticate(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	if accessToken == "" {
		return nil, domain.ErrNotAuthenticated
	}

	claims, err := s.tokenService.ParseAccessToken(accessToken)
	if errors.Is(err, domain.ErrTokenExpired) {
		return s.silentRefresh(ctx, claims, refreshToken)
	}
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrNotAuthenticated, err)
		}
		return nil, err
	}

	if user.IssuedBeforeRotation(claims.IssuedAtTime()) {
		return nil, domain.ErrSessionStale
	}

	return &AuthResult{User: user}, nil
}

func (s *SessionService) silentRefresh(ctx context.Context, expired *domain.AccessClaims, refreshToken string) (*AuthResult, error) {
	now := s.now()

	if refreshToken == "" {
		return nil, reject(domain.ErrTokenExpired)
	}

	user, err := s.loadRefreshSession(ctx, refreshToken, now)
	if err != nil {
		s.countRefresh("silent", err)
		return nil, err
	}
	if user.ID != expired.UserID {
		err := reject(domain.ErrTokenInvalid)
		s.countRefresh("silent", err)
		return nil, err
	}

	accessTTL, _ := s.cfg.JWT.TTLs(user.RememberMe)
	accessToken, err := s.tokenService.IssueAccessToken(user.ID, user.Role, accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	// Same refresh token and expiry; only lastTokenRefresh moves, through the
	// same guarded write a full rotation uses.
	currentHash := *user.RefreshTokenHash
	rotation := domain.Rotation{
		RefreshTokenHash: currentHash,
		TokenExpiresAt:   *user.TokenExpiresAt,
		RefreshedAt:      now,
	}
	if err := s.sessionRepo.Rotate(ctx, user.ID, currentHash, rotation); err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			err = reject(err)
		}
		s.countRefresh("silent", err)
		return nil, err
	}

	user.LastTokenRefresh = &now
	s.countRefresh("silent", nil)
	s.logger.Debug("access token silently refreshed", zap.String("user_id", user.ID.String()))

	return &AuthResult{User: user, AccessToken: accessToken, AccessTTL: accessTTL}, nil
}

// loadRefreshSession verifies refreshToken and returns its owner, provided
// the token is the one currently stored for that user and has not expired.
func (s *SessionService) loadRefreshSession(ctx context.Context, refreshToken string, now time.Time) (*domain.User, error) {
	if refreshToken == "" {
		return nil, reject(domain.ErrNotAuthenticated)
	}

	claims, err := s.tokenService.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, reject(err)
	}

	user, err := s.sessionRepo.GetByRefreshToken(ctx, claims.UserID, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, reject(domain.ErrTokenInvalid)
		}
		return nil, err
	}

	if !user.HasLiveSession(now) {
		return nil, reject(domain.ErrTokenExpired)
	}

	return user, nil
}

func (s *SessionService) countRefresh(kind string, err error) {
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRefreshRejected):
		result = metrics.ResultRejected
	default:
		result = metrics.ResultError
	}
	metrics.TokenRefreshTotal.WithLabelValues(kind, result).Inc()
}

func reject(cause error) error {
	return fmt.Errorf("%w: %w", domain.ErrRefreshRejected, cause)
}

// IsUnauthenticated reports whether err is an authentication failure
// rather than an infrastructure fault.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, domain.ErrNotAuthenticated) ||
		errors.Is(err, domain.ErrTokenInvalid) ||
		errors.Is(err, domain.ErrTokenExpired) ||
		errors.Is(err, domain.ErrSessionStale) ||
		errors.Is(err, domain.ErrRefreshRejected)
}
