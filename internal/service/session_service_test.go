package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresh_RotatesAndRejectsSuperseded(t *testing.T) {
	env := newTestEnv(t)
	dto := env.register(t, "ram@example.com")
	login := env.login(t, "ram@example.com", false)
	token0 := login.Tokens.RefreshToken

	env.clock.Advance(time.Minute)
	pair1, err := env.sessions.Refresh(context.Background(), token0)
	require.NoError(t, err)
	assert.NotEqual(t, token0, pair1.RefreshToken)

	user, err := env.store.GetByID(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, hashToken(pair1.RefreshToken), *user.RefreshTokenHash)
	assert.True(t, user.LastTokenRefresh.Equal(env.clock.Now()))

	_, err = env.sessions.Refresh(context.Background(), token0)
	assert.ErrorIs(t, err, domain.ErrRefreshRejected)

	env.clock.Advance(time.Minute)
	pair2, err := env.sessions.Refresh(context.Background(), pair1.RefreshToken)
	require.NoError(t, err)

	_, err = env.sessions.Refresh(context.Background(), pair1.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshRejected)

	_, err = env.sessions.Refresh(context.Background(), pair2.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_KeepsRememberMeTTLs(t *testing.T) {
	tests := []struct {
		name       string
		rememberMe bool
		access     time.Duration
		refresh    time.Duration
	}{
		{"session only", false, 15 * time.Minute, 7 * 24 * time.Hour},
		{"remember me", true, 24 * time.Hour, 30 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			dto := env.register(t, "sita@example.com")
			login := env.login(t, "sita@example.com", tt.rememberMe)

			env.clock.Advance(time.Hour)
			pair, err := env.sessions.Refresh(context.Background(), login.Tokens.RefreshToken)
			require.NoError(t, err)
			assert.Equal(t, tt.access, pair.AccessTTL)
			assert.Equal(t, tt.refresh, pair.RefreshTTL)

			user, err := env.store.GetByID(context.Background(), dto.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.rememberMe, user.RememberMe)
			assert.True(t, user.TokenExpiresAt.Equal(env.clock.Now().Add(tt.refresh)))
		})
	}
}

func TestRefresh_Rejections(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "hari@example.com")
	login := env.login(t, "hari@example.com", false)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"access token in refresh slot", login.Tokens.AccessToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.sessions.Refresh(context.Background(), tt.token)
			assert.ErrorIs(t, err, domain.ErrRefreshRejected)
			assert.True(t, IsUnauthenticated(err))
		})
	}
}

func TestRefresh_ExpiredSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "gita@example.com")
	login := env.login(t, "gita@example.com", false)

	env.clock.Advance(7*24*time.Hour + time.Second)
	_, err := env.sessions.Refresh(context.Background(), login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshRejected)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestRefresh_ConcurrentUseHasSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "race@example.com")
	login := env.login(t, "race@example.com", false)
	env.clock.Advance(time.Minute)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.sessions.Refresh(context.Background(), login.Tokens.RefreshToken)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrRefreshRejected)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestAuthenticate_ValidAccessToken(t *testing.T) {
	env := newTestEnv(t)
	dto := env.register(t, "kiran@example.com")
	login := env.login(t, "kiran@example.com", false)

	result, err := env.sessions.Authenticate(context.Background(), login.Tokens.AccessToken, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.False(t, result.Refreshed())
	assert.Equal(t, dto.ID, result.User.ID)
}

func TestAuthenticate_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "maya@example.com")
	login := env.login(t, "maya@example.com", false)

	_, err := env.sessions.Authenticate(context.Background(), "", login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = env.sessions.Authenticate(context.Background(), "garbage", "")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = env.sessions.Authenticate(context.Background(), login.Tokens.RefreshToken, "")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestAuthenticate_StaleAfterRotation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "bina@example.com")
	login := env.login(t, "bina@example.com", false)

	env.clock.Advance(time.Minute)
	pair, err := env.sessions.Refresh(context.Background(), login.Tokens.RefreshToken)
	require.NoError(t, err)

	_, err = env.sessions.Authenticate(context.Background(), login.Tokens.AccessToken, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSessionStale)
	assert.True(t, IsUnauthenticated(err))

	result, err := env.sessions.Authenticate(context.Background(), pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.False(t, result.Refreshed())
}

func TestAuthenticate_StaleAfterNewLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "anil@example.com")
	first := env.login(t, "anil@example.com", false)

	env.clock.Advance(time.Minute)
	env.login(t, "anil@example.com", false)

	_, err := env.sessions.Authenticate(context.Background(), first.Tokens.AccessToken, "")
	assert.ErrorIs(t, err, domain.ErrSessionStale)
}

func TestAuthenticate_SilentRefresh(t *testing.T) {
	env := newTestEnv(t)
	dto := env.register(t, "rita@example.com")
	login := env.login(t, "rita@example.com", false)

	env.clock.Advance(16 * time.Minute)
	result, err := env.sessions.Authenticate(context.Background(), login.Tokens.AccessToken, login.Tokens.RefreshToken)
	require.NoError(t, err)
	require.True(t, result.Refreshed())
	assert.Equal(t, 15*time.Minute, result.AccessTTL)
	assert.Equal(t, dto.ID, result.User.ID)

	user, err := env.store.GetByID(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, hashToken(login.Tokens.RefreshToken), *user.RefreshTokenHash)
	assert.True(t, user.LastTokenRefresh.Equal(env.clock.Now()))

	again, err := env.sessions.Authenticate(context.Background(), result.AccessToken, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.False(t, again.Refreshed())

	// The kept refresh token still rotates normally.
	env.clock.Advance(time.Second)
	_, err = env.sessions.Refresh(context.Background(), login.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthenticate_SilentRefreshRememberMe(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "long@example.com")
	login := env.login(t, "long@example.com", true)

	env.clock.Advance(25 * time.Hour)
	result, err := env.sessions.Authenticate(context.Background(), login.Tokens.AccessToken, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, result.AccessTTL)
}

func TestAuthenticate_ExpiredWithoutUsableRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "tara@example.com")
	env.register(t, "other@example.com")
	login := env.login(t, "tara@example.com", false)
	other := env.login(t, "other@example.com", false)

	env.clock.Advance(16 * time.Minute)

	_, err := env.sessions.Authenticate(context.Background(), login.Tokens.AccessToken, "")
	assert.ErrorIs(t, err, domain.ErrRefreshRejected)

	_, err = env.sessions.Authenticate(context.Background(), login.Tokens.AccessToken, other.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshRejected)

	require.NoError(t, env.auth.Logout(context.Background(), login.Tokens.RefreshToken))
	_, err = env.sessions.Authenticate(context.Background(), login.Tokens.AccessToken, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshRejected)
}

func TestAuthenticate_StaleWithinSameSecond(t *testing.T) {
	t.Run("after rotation", func(t *testing.T) {
		env := newTestEnv(t)
		env.register(t, "same@example.com")

		env.clock.Advance(100 * time.Millisecond)
		login := env.login(t, "same@example.com", false)

		env.clock.Advance(700 * time.Millisecond)
		pair, err := env.sessions.Refresh(context.Background(), login.Tokens.RefreshToken)
		require.NoError(t, err)

		_, err = env.sessions.Authenticate(context.Background(), login.Tokens.AccessToken, "")
		assert.ErrorIs(t, err, domain.ErrSessionStale)

		result, err := env.sessions.Authenticate(context.Background(), pair.AccessToken, "")
		require.NoError(t, err)
		assert.False(t, result.Refreshed())
	})

	t.Run("after logout", func(t *testing.T) {
		env := newTestEnv(t)
		env.register(t, "same@example.com")

		env.clock.Advance(100 * time.Millisecond)
		login := env.login(t, "same@example.com", false)

		env.clock.Advance(700 * time.Millisecond)
		require.NoError(t, env.auth.Logout(context.Background(), login.Tokens.RefreshToken))

		_, err := env.sessions.Authenticate(context.Background(), login.Tokens.AccessToken, "")
		assert.ErrorIs(t, err, domain.ErrSessionStale)
	})

	t.Run("after new login", func(t *testing.T) {
		env := newTestEnv(t)
		env.register(t, "same@example.com")

		env.clock.Advance(100 * time.Millisecond)
		first := env.login(t, "same@example.com", false)
		env.clock.Advance(700 * time.Millisecond)
		second := env.login(t, "same@example.com", true)

		_, err := env.sessions.Authenticate(context.Background(), first.Tokens.AccessToken, "")
		assert.ErrorIs(t, err, domain.ErrSessionStale)
		_, err = env.sessions.Authenticate(context.Background(), second.Tokens.AccessToken, "")
		assert.NoError(t, err)
	})
}

func TestAuthenticate_SilentRefreshWithinSameSecondOfLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "quick@example.com")
	login := env.login(t, "quick@example.com", false)

	env.clock.Advance(15*time.Minute + 300*time.Millisecond)
	result, err := env.sessions.Authenticate(context.Background(), login.Tokens.AccessToken, login.Tokens.RefreshToken)
	require.NoError(t, err)
	require.True(t, result.Refreshed())

	_, err = env.sessions.Authenticate(context.Background(), result.AccessToken, "")
	assert.NoError(t, err)
}
