package jwtutil

import (
	"testing"

	"saas-platform/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "round-trip-key", ExpirationHours: 2})

	tenantID := uint(3)
	token, err := GenerateToken("owner@acme.test", 42, 1, "admin", &tenantID, "acme")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.test", claims.Email)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, uint(1), claims.RoleID)
	assert.Equal(t, "admin", claims.Role)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, uint(3), *claims.TenantID)
	assert.Equal(t, "acme", claims.TenantName)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestValidateTokenWrongKey(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "key-one", ExpirationHours: 1})
	token, err := GenerateToken("user@example.test", 1, 1, "user", nil, "")
	require.NoError(t, err)

	Initialize(&config.JWTConfig{SigningKey: "key-two", ExpirationHours: 1})
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "any-key", ExpirationHours: 1})
	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestGenerateTokenWithoutConfig(t *testing.T) {
	Initialize(nil)
	defer Initialize(&config.JWTConfig{SigningKey: "restore", ExpirationHours: 1})

	_, err := GenerateToken("user@example.test", 1, 1, "user", nil, "")
	assert.Error(t, err)
}
