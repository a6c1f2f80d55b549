package cmd

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
)

func TestAuthCommandStructure(t *testing.T) {
	cmd := NewAuthCommand()
	assert.Equal(t, "auth", cmd.Use)
	assert.Contains(t, cmd.Short, "Authenticate")

	subs := map[string]bool{}
	for _, sub := range cmd.Commands() {
		subs[sub.Use] = true
	}
	assert.True(t, subs["login"])
	assert.True(t, subs["status"])
	assert.True(t, subs["logout"])
	assert.True(t, subs["token"])
}

func TestAuthSubcommands(t *testing.T) {
	assert.Contains(t, newAuthLoginCommand().Short, "Login")
	assert.Contains(t, newAuthStatusCommand().Short, "status")
	assert.Contains(t, newAuthLogoutCommand().Short, "Remove cached tokens")
	assert.Contains(t, newAuthTokenCommand().Short, "access token")
}

func unsignedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestAuthLogin(t *testing.T) {
	h := newHarness()
	h.auth.loginWith = unsignedToken(t, "user-1", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, h.run("auth", "login"))
	assert.Contains(t, h.out.String(), "Authenticated.")
	assert.Contains(t, h.out.String(), "Subject: user-1.")
	assert.Contains(t, h.out.String(), "2030-01-01T00:00:00Z")
}

func TestAuthLogin_Error(t *testing.T) {
	h := newHarness()
	h.auth.loginErr = errdefs.ErrAuthentication
	err := h.run("auth", "login")
	require.ErrorIs(t, err, errdefs.ErrAuthentication)
}

func TestAuthStatus(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run("auth", "status"))
	assert.Contains(t, h.out.String(), "Not authenticated")

	h = newHarness()
	h.auth.cached = "opaque-token"
	require.NoError(t, h.run("auth", "status"))
	assert.Equal(t, "Authenticated.\n", h.out.String())
}

func TestAuthLogout(t *testing.T) {
	h := newHarness()
	h.auth.cached = "token"
	require.NoError(t, h.run("auth", "logout"))
	assert.True(t, h.auth.cleared)
	assert.Contains(t, h.out.String(), "Logged out")
}

func TestAuthToken(t *testing.T) {
	h := newHarness()
	err := h.run("auth", "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	h = newHarness()
	h.auth.cached = "abc"
	require.NoError(t, h.run("auth", "token"))
	assert.Equal(t, "abc\n", h.out.String())
}
