package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/config"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository/memory"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "Str0ng!Pass"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store    *memory.Store
	tokens   *jwt.TokenService
	auth     *AuthService
	sessions *SessionService
	users    *UserService
	clock    *fakeClock
	cfg      *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:       "access-secret-for-tests",
			RefreshSecret:      "refresh-secret-for-tests",
			AccessTTL:          15 * time.Minute,
			AccessTTLRemember:  24 * time.Hour,
			RefreshTTL:         7 * 24 * time.Hour,
			RefreshTTLRemember: 30 * 24 * time.Hour,
			Issuer:             "test",
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testConfig()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore()

	tokens, err := jwt.NewTokenService(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.Issuer)
	require.NoError(t, err)
	tokens.SetClock(clock.Now)

	auth := NewAuthService(store, store, tokens, nil, cfg, zap.NewNop())
	auth.SetClock(clock.Now)
	sessions := NewSessionService(store, store, tokens, cfg, zap.NewNop())
	sessions.SetClock(clock.Now)
	users := NewUserService(store, zap.NewNop())
	users.now = clock.Now

	return &testEnv{
		store:    store,
		tokens:   tokens,
		auth:     auth,
		sessions: sessions,
		users:    users,
		clock:    clock,
		cfg:      cfg,
	}
}

func (e *testEnv) register(t *testing.T, email string) *domain.UserDTO {
	t.Helper()
	user, err := e.auth.Register(context.Background(), RegisterRequest{
		FirstName:   "Ram",
		LastName:    "Bahadur",
		Email:       email,
		Password:    testPassword,
		PhoneNumber: "+9779800000000",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) login(t *testing.T, email string, rememberMe bool) *LoginResult {
	t.Helper()
	result, err := e.auth.Login(context.Background(), LoginRequest{
		Email:      email,
		Password:   testPassword,
		RememberMe: rememberMe,
	})
	require.NoError(t, err)
	return result
}

type stubThrottle struct {
	allowed  bool
	failures int
	resets   int
}

func (s *stubThrottle) Allowed(context.Context, string) (bool, error) { return s.allowed, nil }

func (s *stubThrottle) RecordFailure(context.Context, string) error {
	s.failures++
	return nil
}

func (s *stubThrottle) Reset(context.Context, string) error {
	s.resets++
	return nil
}
