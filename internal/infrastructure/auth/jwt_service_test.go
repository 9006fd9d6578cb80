package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/marketauth/domain"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", "marketauth", 15*time.Minute)

	token, err := svc.GenerateAccessToken(42, domain.RoleSeller, "sess-abc")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, domain.RoleSeller, claims.Role)
	assert.Equal(t, "sess-abc", claims.SessionID)
	assert.Greater(t, claims.ExpiresAt, claims.IssuedAt)
}

func TestJWTService_Expired(t *testing.T) {
	svc := NewJWTService("test-secret", "marketauth", -time.Minute)

	token, err := svc.GenerateAccessToken(1, domain.RoleUser, "sess")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, domain.ErrJWTExpired)
}

func TestJWTService_WrongSecret(t *testing.T) {
	svc := NewJWTService("secret-a", "marketauth", 15*time.Minute)
	other := NewJWTService("secret-b", "marketauth", 15*time.Minute)

	token, err := svc.GenerateAccessToken(1, domain.RoleUser, "sess")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, domain.ErrJWTInvalid)
}

func TestJWTService_Garbage(t *testing.T) {
	svc := NewJWTService("test-secret", "marketauth", 15*time.Minute)

	_, err := svc.ValidateAccessToken("not.a.jwt")
	assert.Error(t, err)
}
