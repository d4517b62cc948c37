package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Kyushi/pemoi/internal/db"
	"github.com/Kyushi/pemoi/internal/repository"
	"github.com/Kyushi/pemoi/internal/service"
	"github.com/Kyushi/pemoi/internal/storage"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeProvider serves a token endpoint and a userinfo endpoint.
func fakeProvider(t *testing.T, userinfo string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "tok", "token_type": "bearer", "expires_in": 3600}`))
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(userinfo))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAuthHandler(t *testing.T, providerURL string) *authHandler {
	t.Helper()

	dir := t.TempDir()
	database, err := db.Init("sqlite", filepath.Join(dir, "test.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })
	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))

	local, err := storage.NewLocalStorage(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	users := repository.NewUserRepository(database)
	categories := repository.NewCategoryRepository(database)
	items := repository.NewItemRepository(database)
	require.NoError(t, service.Bootstrap(t.Context(), users, categories, "admin@pemoi.com"))

	emails := service.NewEmailService("", "test@pemoi.com", "http://localhost", "Pemoi", true)
	return &authHandler{
		authService: service.NewAuthService(users, "test-secret", false, time.Hour, time.Minute),
		userService: service.NewUserService(database, users, categories, items, local, emails, "/static/users"),
		providers: map[string]*oauthProvider{
			"google": {
				config: &oauth2.Config{
					ClientID:     "client",
					ClientSecret: "secret",
					RedirectURL:  "http://localhost/auth/google/callback",
					Endpoint:     oauth2.Endpoint{AuthURL: providerURL + "/auth", TokenURL: providerURL + "/token"},
				},
				userInfoURL: providerURL + "/userinfo",
				identity:    googleIdentity,
			},
		},
		http: resty.New(),
	}
}

func (h *authHandler) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/{provider}", h.Login)
	mux.HandleFunc("GET /auth/{provider}/callback", h.Callback)
	mux.HandleFunc("POST /auth/signup", h.Signup)
	return mux
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestOAuthSignupFlow(t *testing.T) {
	srv := fakeProvider(t, `{"email": "New@Example.com", "name": "Newbie", "picture": "https://example.com/p.png"}`)
	h := newTestAuthHandler(t, srv.URL)
	mux := h.mux()

	// Login redirects with a state bound to a cookie
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	stateCookie := cookieNamed(rec, oauthStateCookie)
	require.NotNil(t, stateCookie)
	assert.Equal(t, state, stateCookie.Value)

	callback := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state="+state, nil)
		req.AddCookie(stateCookie)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	// Unknown identity: signup pending
	rec = callback()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pending signupPending
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pending))
	assert.Equal(t, "signup_required", pending.Status)
	assert.Equal(t, "new@example.com", strings.ToLower(pending.Identity.Email))
	assert.Equal(t, "google", pending.Identity.Provider)

	signupCookie := cookieNamed(rec, service.SignupCookieName)
	require.NotNil(t, signupCookie)
	assert.Nil(t, cookieNamed(rec, service.SessionCookieName))

	// Completing the signup starts a session
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"username": "newbie", "about": "hi"}`))
	req.AddCookie(signupCookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	session := cookieNamed(rec, service.SessionCookieName)
	require.NotNil(t, session)
	assert.NotEmpty(t, session.Value)
	user, err := h.authService.Authenticate(t.Context(), session.Value)
	require.NoError(t, err)
	assert.Equal(t, "newbie", user.Username)
	assert.Equal(t, "Newbie", user.Name)
	assert.Equal(t, "https://example.com/p.png", user.Picture)

	// Known identity: logged in directly
	rec = callback()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"logged_in"`)
	assert.NotNil(t, cookieNamed(rec, service.SessionCookieName))
}

func TestOAuthCallbackRejects(t *testing.T) {
	srv := fakeProvider(t, `{"email": "x@example.com"}`)
	h := newTestAuthHandler(t, srv.URL)
	mux := h.mux()

	tests := []struct {
		name   string
		target string
		cookie string
		want   int
	}{
		{"unknown provider", "/auth/myspace/callback?state=s&code=c", "s", http.StatusNotFound},
		{"missing state cookie", "/auth/google/callback?state=s&code=c", "", http.StatusForbidden},
		{"state mismatch", "/auth/google/callback?state=s&code=c", "other", http.StatusForbidden},
		{"missing code", "/auth/google/callback?state=s", "s", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSignupRequiresPendingIdentity(t *testing.T) {
	h := newTestAuthHandler(t, "http://127.0.0.1:0")
	mux := h.mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"username": "sneaky"}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"username": "sneaky"}`))
	req.AddCookie(&http.Cookie{Name: service.SignupCookieName, Value: "forged"})
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// A valid pending signup still needs a valid username
	token, err := h.authService.GenerateSignupToken(service.Identity{Email: "ok@example.com"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"username": "bad name"}`))
	req.AddCookie(&http.Cookie{Name: service.SignupCookieName, Value: token})
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Illegal characters")
}

func TestGithubIdentityFallsBackToEmails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login": "octo", "avatar_url": "https://example.com/o.png"}`))
	})
	mux.HandleFunc("GET /user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "octo@example.com", "primary": true, "verified": true}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := resty.New()
	identity, err := githubIdentity(func() *resty.Request { return client.R() }, srv.URL+"/user")
	require.NoError(t, err)
	assert.Equal(t, "octo@example.com", identity.Email)
	assert.Equal(t, "octo", identity.Name)
	assert.Equal(t, "https://example.com/o.png", identity.Picture)
}
