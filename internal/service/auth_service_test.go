package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpulse/workpulse/internal/auth"
	"github.com/workpulse/workpulse/internal/faults"
	"github.com/workpulse/workpulse/internal/models"
	"github.com/workpulse/workpulse/internal/repository"
)

func newAuthFixture(t *testing.T) (*AuthService, *auth.TokenManager, *models.User) {
	t.Helper()

	users := repository.NewMemoryUserStore()
	hash, err := auth.HashPassword("s3cret", 4)
	require.NoError(t, err)
	user := &models.User{Login: "worker", PasswordHash: hash, Role: models.RoleEmployee}
	require.NoError(t, users.Create(user))

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(users, tokens, nil, nil), tokens, user
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	svc, tokens, user := newAuthFixture(t)

	token, logged, err := svc.Login("worker", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	claims, err := tokens.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, string(models.RoleEmployee), claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, _, wrongPassword := svc.Login("worker", "wrong")
	_, _, unknownUser := svc.Login("nobody", "s3cret")

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.True(t, faults.Is(wrongPassword, faults.Unauthenticated))
	assert.True(t, faults.Is(unknownUser, faults.Unauthenticated))
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	users := repository.NewMemoryUserStore()
	hash, err := auth.HashPassword("s3cret", 4)
	require.NoError(t, err)
	user := &models.User{Login: "gone", PasswordHash: hash, ValidID: 2}
	require.NoError(t, users.Create(user))
	svc := NewAuthService(users, auth.NewTokenManager("k", time.Hour), nil, nil)

	_, _, err = svc.Login("gone", "s3cret")
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Unauthenticated))
}

func TestLogoutWithoutDenylistIsNoOp(t *testing.T) {
	svc, tokens, _ := newAuthFixture(t)

	token, _, err := svc.Login("worker", "s3cret")
	require.NoError(t, err)
	claims, err := tokens.Resolve(token)
	require.NoError(t, err)

	assert.NoError(t, svc.Logout(context.Background(), claims))
	assert.NoError(t, svc.Logout(context.Background(), nil))
}
