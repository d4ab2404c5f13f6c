package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/config"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/handler/cookie"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/handler/middleware"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository/memory"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/service"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/jwt"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "Str0ng!Pass"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	app   *fiber.App
	clock *testClock
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	return newTestServerWithStores(t, store, store, store)
}

func newTestServerWithStores(
	t *testing.T,
	store *memory.Store,
	users repository.UserRepository,
	sessions repository.SessionRepository,
) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "development"},
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
	clock := &testClock{now: time.Now().UTC().Truncate(time.Second)}
	logger := zap.NewNop()

	tokens, err := jwt.NewTokenService(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.Issuer)
	require.NoError(t, err)
	tokens.SetClock(clock.Now)

	authService := service.NewAuthService(users, sessions, tokens, nil, cfg, logger)
	authService.SetClock(clock.Now)
	sessionService := service.NewSessionService(users, sessions, tokens, cfg, logger)
	sessionService.SetClock(clock.Now)
	userService := service.NewUserService(users, logger)

	validate := validator.NewValidator()
	jar := cookie.NewJar(false)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, false),
	})
	SetupRoutes(
		app,
		NewAuthHandler(authService, sessionService, validate, jar, logger),
		NewUserHandler(userService, validate),
		NewHealthHandler(users),
		middleware.Protect(sessionService, jar),
		middleware.SecurityHeaders(),
		func(c *fiber.Ctx) error { return c.SendString("# metrics") },
	)

	return &testServer{app: app, clock: clock, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		if ck != nil {
			req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
		}
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func (s *testServer) register(t *testing.T, email string) {
	t.Helper()
	resp, _ := s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"firstName":   "Ram",
		"lastName":    "Bahadur",
		"email":       email,
		"password":    testPassword,
		"phoneNumber": "9800000000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func (s *testServer) login(t *testing.T, email string, rememberMe bool) (access, refresh *http.Cookie) {
	t.Helper()
	resp, _ := s.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":      email,
		"password":   testPassword,
		"rememberMe": rememberMe,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access = findCookie(resp, cookie.AccessTokenName)
	refresh = findCookie(resp, cookie.RefreshTokenName)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	return access, refresh
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// failingStore wraps the memory store and fails selected calls with a store
// error once the matching switch is on.
type failingStore struct {
	*memory.Store
	failClear   atomic.Bool
	failGetByID atomic.Bool
	failPing    atomic.Bool
}

func newFailingStore() *failingStore {
	return &failingStore{Store: memory.NewStore()}
}

func (s *failingStore) Clear(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if s.failClear.Load() {
		return fmt.Errorf("%w: connection reset", domain.ErrStore)
	}
	return s.Store.Clear(ctx, userID, at)
}

func (s *failingStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if s.failGetByID.Load() {
		return nil, fmt.Errorf("%w: connection reset", domain.ErrStore)
	}
	return s.Store.GetByID(ctx, id)
}

func (s *failingStore) Ping(ctx context.Context) error {
	if s.failPing.Load() {
		return fmt.Errorf("%w: connection refused", domain.ErrStore)
	}
	return s.Store.Ping(ctx)
}
