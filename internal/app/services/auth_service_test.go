package services

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/auth"
)

func newAuthFixture(t *testing.T) (*serviceFixture, AuthService) {
	t.Helper()
	f := newServiceFixture(t)
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "rightrudder.test",
	})
	return f, NewAuthService(f.repos, f.queue, jwtService, zerolog.Nop())
}

func TestRegisterAndLogin(t *testing.T) {
	f, authService := newAuthFixture(t)

	instructor, err := authService.Register(f.ctx, "Pat@Example.com", "supersecret", "Pat Instructor", "CFI-12345")
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", instructor.Email)
	assert.NotEqual(t, "supersecret", instructor.PasswordHash)

	pair, err := authService.Login(f.ctx, "pat@example.com", "supersecret")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Positive(t, pair.ExpiresIn)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	f, authService := newAuthFixture(t)

	_, err := authService.Register(f.ctx, "pat@example.com", "short", "Pat", "")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f, authService := newAuthFixture(t)

	_, err := authService.Register(f.ctx, "pat@example.com", "supersecret", "Pat", "")
	require.NoError(t, err)

	_, err = authService.Register(f.ctx, "PAT@example.com", "supersecret", "Pat Again", "")
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f, authService := newAuthFixture(t)

	_, err := authService.Register(f.ctx, "pat@example.com", "supersecret", "Pat", "")
	require.NoError(t, err)

	_, err = authService.Login(f.ctx, "pat@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	// Unknown account reports the same error as a wrong password.
	_, err = authService.Login(f.ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
