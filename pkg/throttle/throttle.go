package throttle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per identifier in Redis. Once the
// counter reaches the limit the identifier is blocked until the window expires.
type LoginThrottle struct {
	redis       redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

// NewLoginThrottle creates a throttle allowing maxAttempts failures per window.
func NewLoginThrottle(redisClient redis.UniversalClient, maxAttempts int, window time.Duration) *LoginThrottle {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginThrottle{
		redis:       redisClient,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Allowed reports whether another login attempt may be made for identifier.
func (t *LoginThrottle) Allowed(ctx context.Context, identifier string) (bool, error) {
	if t.maxAttempts <= 0 {
		return true, nil
	}

	count, err := t.redis.Get(ctx, key(identifier)).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read login attempts: %w", err)
	}

	return count < t.maxAttempts, nil
}

// RecordFailure increments the failure counter, starting the window on the first failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, identifier string) error {
	k := key(identifier)

	count, err := t.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	if count == 1 {
		if err := t.redis.Expire(ctx, k, t.window).Err(); err != nil {
			return fmt.Errorf("failed to set login attempt window: %w", err)
		}
	}

	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, identifier string) error {
	if err := t.redis.Del(ctx, key(identifier)).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

func key(identifier string) string {
	return "login:attempts:" + strings.ToLower(strings.TrimSpace(identifier))
}
