package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kyushi/pemoi/internal/apperror"
	"github.com/Kyushi/pemoi/internal/config"
	"github.com/Kyushi/pemoi/internal/ctxkeys"
	"github.com/Kyushi/pemoi/internal/service"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const oauthStateCookie = "oauth_state"

var errOAuthFailed = apperror.Forbidden("OAuth authentication failed. Please try again.")

// authorized builds a request carrying the provider's access token.
type authorized func() *resty.Request

// oauthProvider is a sign-in provider. identity reads the signed-in
// account from the provider's API.
type oauthProvider struct {
	config      *oauth2.Config
	userInfoURL string
	identity    func(req authorized, userInfoURL string) (service.Identity, error)
}

type authHandler struct {
	authService *service.AuthService
	userService *service.UserService
	providers   map[string]*oauthProvider
	http        *resty.Client
	secure      bool
}

func NewAuthHandler(authService *service.AuthService, userService *service.UserService, cfg *config.Config) *authHandler {
	h := &authHandler{
		authService: authService,
		userService: userService,
		providers:   map[string]*oauthProvider{},
		http:        resty.New().SetTimeout(10 * time.Second),
		secure:      cfg.IsProduction(),
	}

	if cfg.OAuthEnabled("google") {
		h.providers["google"] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  cfg.AppURL + "/auth/google/callback",
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
			userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			identity:    googleIdentity,
		}
	}
	if cfg.OAuthEnabled("github") {
		h.providers["github"] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  cfg.AppURL + "/auth/github/callback",
				Scopes:       []string{"user:email"},
				Endpoint:     github.Endpoint,
			},
			userInfoURL: "https://api.github.com/user",
			identity:    githubIdentity,
		}
	}
	if cfg.OAuthEnabled("facebook") {
		h.providers["facebook"] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				RedirectURL:  cfg.AppURL + "/auth/facebook/callback",
				Scopes:       []string{"public_profile", "email"},
				Endpoint:     facebook.Endpoint,
			},
			userInfoURL: "https://graph.facebook.com/me?fields=id,name,email,picture",
			identity:    facebookIdentity,
		}
	}

	return h
}

func (h *authHandler) provider(w http.ResponseWriter, r *http.Request) (string, *oauthProvider, bool) {
	name := r.PathValue("provider")
	provider, ok := h.providers[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: "Unknown sign-in provider"})
		return "", nil, false
	}
	return name, provider, true
}

// Login redirects to the provider's consent screen
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	_, provider, ok := h.provider(w, r)
	if !ok {
		return
	}

	state := generateOAuthState()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})

	http.Redirect(w, r, provider.config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

type signupPending struct {
	Status   string           `json:"status"`
	Identity service.Identity `json:"identity"`
}

type loggedIn struct {
	Status string `json:"status"`
	User   any    `json:"user"`
}

// Callback finishes the provider flow. Known accounts get a session, new
// ones a short-lived signup token to complete with a username.
func (h *authHandler) Callback(w http.ResponseWriter, r *http.Request) {
	name, provider, ok := h.provider(w, r)
	if !ok {
		return
	}

	// Validate state parameter for CSRF protection
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		slog.Warn("oauth state validation failed", "provider", name, "error", err)
		writeError(w, r, errOAuthFailed)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback missing code", "provider", name)
		writeError(w, r, errOAuthFailed)
		return
	}

	identity, err := h.exchange(r.Context(), provider, code)
	if err != nil {
		slog.Error("oauth exchange failed", "provider", name, "error", err)
		writeError(w, r, errOAuthFailed)
		return
	}
	identity.Provider = name

	user, found, err := h.authService.ResolveIdentity(r.Context(), identity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !found {
		token, err := h.authService.GenerateSignupToken(identity)
		if err != nil {
			writeError(w, r, fmt.Errorf("failed to generate signup token: %w", err))
			return
		}
		h.authService.SetSignupCookie(w, token)
		slog.Info("signup pending", "provider", name, "email", identity.Email)
		writeJSON(w, http.StatusOK, signupPending{Status: "signup_required", Identity: identity})
		return
	}

	token, err := h.authService.GenerateJWT(user)
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to generate JWT: %w", err))
		return
	}
	h.authService.SetJWTCookie(w, token)

	slog.Info("user logged in", "provider", name, "user_id", user.ID)
	writeJSON(w, http.StatusOK, loggedIn{Status: "logged_in", User: user})
}

func (h *authHandler) exchange(ctx context.Context, provider *oauthProvider, code string) (service.Identity, error) {
	token, err := provider.config.Exchange(ctx, code)
	if err != nil {
		return service.Identity{}, fmt.Errorf("token exchange: %w", err)
	}

	req := func() *resty.Request {
		return h.http.R().SetContext(ctx).SetAuthToken(token.AccessToken)
	}
	return provider.identity(req, provider.userInfoURL)
}

// Signup completes a pending signup with the chosen username.
func (h *authHandler) Signup(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(service.SignupCookieName)
	if err != nil {
		writeError(w, r, apperror.Forbidden("Please sign in with a provider first"))
		return
	}

	identity, err := h.authService.VerifySignupToken(cookie.Value)
	if err != nil {
		h.authService.ClearSignupCookie(w)
		writeError(w, r, apperror.Forbidden("Your sign-in has expired. Please sign in again."))
		return
	}

	var body struct {
		Username string `json:"username"`
		About    string `json:"about"`
	}
	err = decodeJSON(r, &body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userService.Create(r.Context(), service.NewUser{
		Name:     identity.Name,
		Username: body.Username,
		Email:    identity.Email,
		Picture:  identity.Picture,
		About:    body.About,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.authService.GenerateJWT(user)
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to generate JWT: %w", err))
		return
	}
	h.authService.ClearSignupCookie(w)
	h.authService.SetJWTCookie(w, token)

	slog.Info("user signed up", "user_id", user.ID, "provider", identity.Provider)
	writeJSON(w, http.StatusCreated, user)
}

func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "Please log in"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func googleIdentity(req authorized, userInfoURL string) (service.Identity, error) {
	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	err := getJSON(req, userInfoURL, &info)
	if err != nil {
		return service.Identity{}, err
	}
	return service.Identity{Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

func githubIdentity(req authorized, userInfoURL string) (service.Identity, error) {
	var info struct {
		Email     string `json:"email"`
		Name      string `json:"name"`
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	}
	err := getJSON(req, userInfoURL, &info)
	if err != nil {
		return service.Identity{}, err
	}

	// Private emails are only listed on /user/emails
	if info.Email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		err = getJSON(req, userInfoURL+"/emails", &emails)
		if err != nil {
			return service.Identity{}, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				info.Email = e.Email
				break
			}
		}
	}
	if info.Email == "" {
		return service.Identity{}, errors.New("github account has no verified primary email")
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}
	return service.Identity{Email: info.Email, Name: name, Picture: info.AvatarURL}, nil
}

func facebookIdentity(req authorized, userInfoURL string) (service.Identity, error) {
	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	err := getJSON(req, userInfoURL, &info)
	if err != nil {
		return service.Identity{}, err
	}
	return service.Identity{Email: info.Email, Name: info.Name, Picture: info.Picture.Data.URL}, nil
}

func getJSON(req authorized, url string, v any) error {
	resp, err := req().SetResult(v).Get(url)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("get %s: status %d", url, resp.StatusCode())
	}
	return nil
}

// generateOAuthState creates cryptographically secure random state token for OAuth CSRF protection
func generateOAuthState() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
