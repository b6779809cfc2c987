// internal/auth/jwt_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndAuthenticateJWT(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "1h")
	InitWithSecret("test-secret")

	token, err := CreateJWT(Claims{UserID: "user-1", TwitchID: "tw-1", Username: "streamer"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tw-1", claims.TwitchID)
	assert.Equal(t, "streamer", claims.Username)
}

func TestAuthenticateJWTRejectsWrongSecret(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "")
	InitWithSecret("secret-a")
	token, err := CreateJWT(Claims{UserID: "user-1"})
	require.NoError(t, err)

	InitWithSecret("secret-b")
	_, err = AuthenticateJWT(token)
	assert.Error(t, err)
}

func TestAuthenticateJWTRejectsGarbage(t *testing.T) {
	InitWithSecret("test-secret")
	_, err := AuthenticateJWT("not.a.token")
	assert.Error(t, err)
}

func TestNeverExpiringToken(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "never")
	InitWithSecret("test-secret")

	token, err := CreateJWT(Claims{UserID: "user-1"})
	require.NoError(t, err)

	claims, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}
