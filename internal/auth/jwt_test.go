package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	signed, expiresAt, err := GenerateToken("admin", "secret", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (any, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "admin", claims["sub"])
}

func TestGenerateTokenValidatesInput(t *testing.T) {
	_, _, err := GenerateToken("", "secret", time.Hour)
	require.Error(t, err)

	_, _, err = GenerateToken("admin", "", time.Hour)
	require.Error(t, err)

	_, _, err = GenerateToken("admin", "secret", 0)
	require.Error(t, err)
}

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, CheckPassword(string(hash), "hunter2"))
	assert.False(t, CheckPassword(string(hash), "wrong"))
	assert.False(t, CheckPassword("", "hunter2"))
}
