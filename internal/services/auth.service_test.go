package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	InitAuthService("test-secret-key-that-is-long-enough!", time.Hour, nil)

	token, err := GenerateToken("agent-01")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-01", claims.ServerName)
	assert.Equal(t, "nabz-server", claims.Issuer)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	InitAuthService("test-secret-key-that-is-long-enough!", time.Hour, nil)

	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	InitAuthService("first-secret-key-that-is-long-enough", time.Hour, nil)
	token, err := GenerateToken("agent-01")
	require.NoError(t, err)

	InitAuthService("other-secret-key-that-is-long-enough", time.Hour, nil)
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestInitAuthServicePadsShortKeys(t *testing.T) {
	svc := InitAuthService("short", time.Hour, nil)
	assert.GreaterOrEqual(t, len(svc.secretKey), 32)
	assert.True(t, strings.HasPrefix(svc.secretKey, "short"))
}

func TestGetTokenExpiry(t *testing.T) {
	InitAuthService("test-secret-key-that-is-long-enough!", 2*time.Hour, nil)

	expiry := GetTokenExpiry()
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), expiry, time.Minute)
}
