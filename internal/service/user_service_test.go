package service

import (
	"context"
	"testing"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	dto := env.register(t, "ram@example.com")
	env.register(t, "taken@example.com")

	updated, err := env.users.UpdateProfile(context.Background(), dto.ID, UpdateProfileRequest{
		FirstName: "Ramesh",
		LastName:  "Bahadur",
		Email:     "Ramesh@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "ramesh@example.com", updated.Email)
	assert.Equal(t, dto.PhoneNumber, updated.PhoneNumber)

	_, err = env.users.UpdateProfile(context.Background(), dto.ID, UpdateProfileRequest{
		FirstName: "Ramesh",
		LastName:  "Bahadur",
		Email:     "taken@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestUserService_UpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	dto := env.register(t, "sita@example.com")

	err := env.users.UpdatePassword(context.Background(), dto.ID, UpdatePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "N3w!Password",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	err = env.users.UpdatePassword(context.Background(), dto.ID, UpdatePasswordRequest{
		CurrentPassword: testPassword,
		NewPassword:     "N3w!Password",
	})
	require.NoError(t, err)

	_, err = env.auth.Login(context.Background(), LoginRequest{Email: "sita@example.com", Password: testPassword})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = env.auth.Login(context.Background(), LoginRequest{Email: "sita@example.com", Password: "N3w!Password"})
	assert.NoError(t, err)
}
