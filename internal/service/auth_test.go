package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kyushi/pemoi/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIdentity(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup(t, "alice")

	t.Run("returning user", func(t *testing.T) {
		user, found, err := env.auth.ResolveIdentity(env.ctx, Identity{Email: "  Alice@Example.com ", Provider: "github"})
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, alice.ID, user.ID)
	})

	t.Run("unknown email needs signup", func(t *testing.T) {
		user, found, err := env.auth.ResolveIdentity(env.ctx, Identity{Email: "new@example.com"})
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, user)
	})

	t.Run("invalid email", func(t *testing.T) {
		_, _, err := env.auth.ResolveIdentity(env.ctx, Identity{Email: "nope"})
		assertKind(t, err, apperror.ErrValidation)
	})

	t.Run("deleted accounts never resolve", func(t *testing.T) {
		bob, bobViewer := env.signup(t, "bobby")
		require.NoError(t, env.userService.DeleteAccount(env.ctx, bobViewer, bob.ID))

		_, found, err := env.auth.ResolveIdentity(env.ctx, Identity{Email: "bobby@example.com"})
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestSessionToken(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceViewer := env.signup(t, "alice")

	token, err := env.auth.GenerateJWT(alice)
	require.NoError(t, err)

	userID, err := env.auth.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, userID)

	user, err := env.auth.Authenticate(env.ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = env.auth.VerifyJWT(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService(env.users, "other-secret", false, time.Hour, time.Minute)
	_, err = other.VerifyJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	t.Run("deleting the account ends the session", func(t *testing.T) {
		require.NoError(t, env.userService.DeleteAccount(env.ctx, aliceViewer, alice.ID))
		_, err := env.auth.Authenticate(env.ctx, token)
		assert.Error(t, err)
	})
}

func TestSignupToken(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.auth.GenerateSignupToken(Identity{Email: "New@Example.com", Name: "New", Provider: "google"})
	require.NoError(t, err)

	identity, err := env.auth.VerifySignupToken(token)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", identity.Email)
	assert.Equal(t, "google", identity.Provider)

	_, err = env.auth.VerifyJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "a signup token is not a session")

	alice, _ := env.signup(t, "alice")
	session, err := env.auth.GenerateJWT(alice)
	require.NoError(t, err)
	_, err = env.auth.VerifySignupToken(session)
	assert.ErrorIs(t, err, ErrInvalidToken, "a session is not a signup token")
}

func TestExpiredSignupToken(t *testing.T) {
	env := newTestEnv(t)
	auth := NewAuthService(env.users, "test-secret", false, time.Hour, -time.Minute)

	token, err := auth.GenerateSignupToken(Identity{Email: "new@example.com"})
	require.NoError(t, err)

	_, err = auth.VerifySignupToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCookies(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.auth.SetJWTCookie(rec, "token")
	env.auth.ClearSignupCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, "token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, SignupCookieName, cookies[1].Name)
	assert.Empty(t, cookies[1].Value)
}
