// File: internal/auth/jwt_test.go
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-secret-key")

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(42, testKey, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ValidateToken(token, testKey)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestGenerateTokenZeroUserID(t *testing.T) {
	_, err := GenerateToken(0, testKey, time.Minute)
	assert.Error(t, err)
}

func TestValidateTokenWrongKey(t *testing.T) {
	token, err := GenerateToken(42, testKey, time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, []byte("some-other-key"))
	assert.Error(t, err)
	assert.False(t, IsExpired(err))
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken(42, testKey, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, testKey)
	require.Error(t, err)
	assert.True(t, IsExpired(err))
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("not.a.token", testKey)
	assert.Error(t, err)
}
