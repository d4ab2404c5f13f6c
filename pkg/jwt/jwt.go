package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidSigningMethod = errors.New("unexpected signing method")
	ErrMissingSecret        = fmt.Errorf("%w: jwt signing secret is not set", domain.ErrConfiguration)
	ErrSharedSecret         = fmt.Errorf("%w: access and refresh secrets must differ", domain.ErrConfiguration)
)

// TokenService mints and verifies access and refresh tokens. Each kind is
// signed with its own key so a leaked refresh secret cannot forge access
// tokens and vice versa.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret, issuer string) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if accessSecret == refreshSecret {
		return nil, ErrSharedSecret
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		now:           time.Now,
	}, nil
}

// SetClock replaces the time source used for issuing and validating tokens.
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *TokenService) IssueAccessToken(userID uuid.UUID, role domain.Role, ttl time.Duration) (string, error) {
	now := s.now()
	claims := domain.AccessClaims{
		RegisteredClaims: s.registered(userID, now, ttl),
		UserID:           userID,
		Role:             role,
		TokenType:        domain.TokenTypeAccess,
		IssuedAtMilli:    now.UnixMilli(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
}

func (s *TokenService) IssueRefreshToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := s.now()
	claims := domain.RefreshClaims{
		RegisteredClaims: s.registered(userID, now, ttl),
		UserID:           userID,
		TokenType:        domain.TokenTypeRefresh,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
}

func (s *TokenService) registered(userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		// jti keeps two tokens minted in the same second distinct.
		ID: uuid.New().String(),
	}
}

// ParseAccessToken verifies signature, expiry and claim shape. An expired but
// otherwise valid token returns its claims together with domain.ErrTokenExpired
// so the caller can attempt a silent refresh.
func (s *TokenService) ParseAccessToken(tokenString string) (*domain.AccessClaims, error) {
	claims := &domain.AccessClaims{}
	err := s.parse(tokenString, claims, s.accessSecret)
	if err != nil && !errors.Is(err, domain.ErrTokenExpired) {
		return nil, err
	}

	if claims.TokenType != domain.TokenTypeAccess || !claims.Role.Valid() {
		return nil, domain.ErrTokenInvalid
	}
	if err := checkSubject(claims.Subject, claims.UserID); err != nil {
		return nil, err
	}
	// iat_ms must agree with the signed iat to the second.
	if claims.IssuedAt == nil || claims.IssuedAtMilli/1000 != claims.IssuedAt.Unix() {
		return nil, domain.ErrTokenInvalid
	}

	return claims, err
}

func (s *TokenService) ParseRefreshToken(tokenString string) (*domain.RefreshClaims, error) {
	claims := &domain.RefreshClaims{}
	if err := s.parse(tokenString, claims, s.refreshSecret); err != nil {
		return nil, err
	}

	if claims.TokenType != domain.TokenTypeRefresh {
		return nil, domain.ErrTokenInvalid
	}
	if err := checkSubject(claims.Subject, claims.UserID); err != nil {
		return nil, err
	}

	return claims, nil
}

// DecodeRefreshTokenIgnoringExpiry checks the signature of a refresh token
// but skips time-based claim validation. It exists only so that logout can
// clear the session behind an expired token; never use it to grant access.
func (s *TokenService) DecodeRefreshTokenIgnoringExpiry(tokenString string) (uuid.UUID, error) {
	claims := &domain.RefreshClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.refreshSecret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if claims.TokenType != domain.TokenTypeRefresh {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	if err := checkSubject(claims.Subject, claims.UserID); err != nil {
		return uuid.Nil, err
	}

	return claims.UserID, nil
}

func (s *TokenService) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// Expiry is only reported after the signature checked out.
			return domain.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return domain.ErrTokenInvalid
	}

	return nil
}

func checkSubject(subject string, userID uuid.UUID) error {
	if userID == uuid.Nil || subject != userID.String() {
		return domain.ErrTokenInvalid
	}
	return nil
}
