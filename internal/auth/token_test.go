package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Issue(42, "manager")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, Identity{UserID: 42, Role: "manager"}, claims.Identity())
}

func TestResolveEmptyToken(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	_, err := m.Resolve("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveGarbageToken(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	_, err := m.Resolve("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Issue(1, "employee")
	require.NoError(t, err)

	_, err = verifier.Resolve(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveExpiredToken(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	m.ttl = -time.Minute // force an already-expired stamp

	token, err := m.Issue(1, "employee")
	require.NoError(t, err)

	_, err = m.Resolve(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestDefaultTTLIsSevenDays(t *testing.T) {
	m := NewTokenManager("test-secret", 0)
	assert.Equal(t, 7*24*time.Hour, m.ttl)
}

func TestTokensCarryUniqueIDs(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	a, err := m.Issue(1, "employee")
	require.NoError(t, err)
	b, err := m.Issue(1, "employee")
	require.NoError(t, err)

	ca, err := m.Resolve(a)
	require.NoError(t, err)
	cb, err := m.Resolve(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}
