package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kyushi/pemoi/internal/apperror"
	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Kyushi/pemoi/internal/repository"
	"github.com/Kyushi/pemoi/internal/validation"
	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookieName = "auth_token"
	SignupCookieName  = "signup_token"

	tokenKindSession = "session"
	tokenKindSignup  = "signup"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is what an external identity provider asserts after its own
// challenge. Only the email is used for lookup.
type Identity struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
	Provider string `json:"provider"`
}

type sessionClaims struct {
	Kind   string `json:"kind"`
	UserID int64  `json:"user_id"`
	jwt.RegisteredClaims
}

type signupClaims struct {
	Kind string `json:"kind"`
	Identity
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepository    repository.UserRepository
	jwtSecret         string
	isProduction      bool
	jwtExpiry         time.Duration
	signupTokenExpiry time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	jwtSecret string,
	isProduction bool,
	jwtExpiry time.Duration,
	signupTokenExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:    userRepository,
		jwtSecret:         jwtSecret,
		isProduction:      isProduction,
		jwtExpiry:         jwtExpiry,
		signupTokenExpiry: signupTokenExpiry,
	}
}

// ResolveIdentity maps a verified identity to a user. A missing user is a
// normal outcome: found is false and the caller continues with signup.
func (s *AuthService) ResolveIdentity(ctx context.Context, identity Identity) (*model.User, bool, error) {
	email := validation.NormalizeEmail(identity.Email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, false, apperror.ValidationFailed("email", err.Error())
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to lookup user: %w", err)
	}
	if user.IsDeleted() {
		return nil, false, nil
	}

	slog.Info("user authenticated", "user_id", user.ID, "provider", identity.Provider)
	return user, true, nil
}

// Authenticate resolves a session token to its user. Anonymized accounts no
// longer authenticate.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.VerifyJWT(token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func (s *AuthService) registered(expiry time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}
}

func (s *AuthService) GenerateJWT(user *model.User) (string, error) {
	return s.sign(sessionClaims{
		Kind:             tokenKindSession,
		UserID:           user.ID,
		RegisteredClaims: s.registered(s.jwtExpiry),
	})
}

// VerifyJWT returns the user id of a valid session token.
func (s *AuthService) VerifyJWT(tokenString string) (int64, error) {
	claims := &sessionClaims{}
	err := s.parse(tokenString, claims)
	if err != nil {
		return 0, err
	}
	if claims.Kind != tokenKindSession {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}

// GenerateSignupToken carries a verified identity to the signup form.
func (s *AuthService) GenerateSignupToken(identity Identity) (string, error) {
	identity.Email = validation.NormalizeEmail(identity.Email)
	return s.sign(signupClaims{
		Kind:             tokenKindSignup,
		Identity:         identity,
		RegisteredClaims: s.registered(s.signupTokenExpiry),
	})
}

func (s *AuthService) VerifySignupToken(tokenString string) (Identity, error) {
	claims := &signupClaims{}
	err := s.parse(tokenString, claims)
	if err != nil {
		return Identity{}, err
	}
	if claims.Kind != tokenKindSignup || claims.Email == "" {
		return Identity{}, ErrInvalidToken
	}
	return claims.Identity, nil
}

func (s *AuthService) setCookie(w http.ResponseWriter, name, value string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string) {
	s.setCookie(w, SessionCookieName, token, time.Now().Add(s.jwtExpiry))
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	s.setCookie(w, SessionCookieName, "", time.Unix(0, 0))
}

func (s *AuthService) SetSignupCookie(w http.ResponseWriter, token string) {
	s.setCookie(w, SignupCookieName, token, time.Now().Add(s.signupTokenExpiry))
}

func (s *AuthService) ClearSignupCookie(w http.ResponseWriter) {
	s.setCookie(w, SignupCookieName, "", time.Unix(0, 0))
}
