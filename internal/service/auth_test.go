package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/yearlist-server/internal/auth"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

func registerRequest(email string) RegisterRequest {
	return RegisterRequest{
		Email:       email,
		Password:    "correct horse battery",
		DisplayName: "Ada",
		Client:      auth.ClientInfo{ClientName: "test", Platform: "linux"},
	}
}

func TestAuthService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, registerRequest("ada@example.com"))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.User.ID)
	assert.Equal(t, "Ada", resp.User.DisplayName)
	assert.NotEmpty(t, resp.User.AvatarColor)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)

	user, claims, err := env.auth.VerifyAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, registerRequest("dup@example.com"))
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, registerRequest("dup@example.com"))
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestAuthService_Register_Validation(t *testing.T) {
	env := newTestEnv(t)

	req := registerRequest("not-an-email")
	req.Password = "short"
	_, err := env.auth.Register(context.Background(), req)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, registerRequest("login@example.com"))
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := env.auth.Login(ctx, LoginRequest{Email: "login@example.com", Password: "correct horse battery"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.False(t, resp.User.LastLoginAt.IsZero())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.auth.Login(ctx, LoginRequest{Email: "login@example.com", Password: "wrong password"})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := env.auth.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	})
}

func TestAuthService_RefreshTokens_Rotates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, registerRequest("refresh@example.com"))
	require.NoError(t, err)

	refreshed, err := env.auth.RefreshTokens(ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, reg.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, reg.SessionID, refreshed.SessionID)
	assert.Equal(t, reg.User.ID, refreshed.User.ID)

	// The old token no longer works.
	_, err = env.auth.RefreshTokens(ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
}

func TestAuthService_Logout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, registerRequest("logout@example.com"))
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, reg.SessionID))

	_, err = env.auth.RefreshTokens(ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
}

func TestAuthService_VerifyAccessToken_Garbage(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.auth.VerifyAccessToken(context.Background(), "v4.local.garbage")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Before")

	updated, err := env.auth.UpdateProfile(ctx, user.ID, UpdateProfileRequest{
		DisplayName: "  After ",
		AvatarURL:   "https://example.com/a.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.DisplayName)
	assert.Equal(t, "https://example.com/a.png", updated.AvatarURL)

	_, err = env.auth.UpdateProfile(ctx, "", UpdateProfileRequest{DisplayName: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrNoScope)
}
