// Package auth issues and verifies admin bearer tokens.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const RoleAdmin = "admin"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret            string
	TTL               time.Duration
	AdminEmail        string
	AdminPasswordHash string
}

type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Authenticator checks the single admin account and issues HS256 tokens.
type Authenticator struct {
	secret       []byte
	ttl          time.Duration
	adminEmail   string
	passwordHash []byte
	now          func() time.Time
}

func NewAuthenticator(cfg Config) (*Authenticator, error) {
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if strings.TrimSpace(cfg.AdminEmail) == "" {
		return nil, fmt.Errorf("admin email is required")
	}
	if _, err := bcrypt.Cost([]byte(cfg.AdminPasswordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash is not a bcrypt hash: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		secret:       []byte(cfg.Secret),
		ttl:          ttl,
		adminEmail:   strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		passwordHash: []byte(cfg.AdminPasswordHash),
		now:          time.Now,
	}, nil
}

// Login verifies the admin credentials and returns a signed token. Any
// mismatch is ErrUnauthorized.
func (a *Authenticator) Login(_ context.Context, email, password string) (*Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	emailMatches := subtle.ConstantTimeCompare([]byte(email), []byte(a.adminEmail)) == 1

	// bcrypt runs even when the email does not match.
	passwordErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !emailMatches || passwordErr != nil {
		return nil, ErrUnauthorized
	}

	return a.Issue(a.adminEmail, RoleAdmin)
}

func (a *Authenticator) Issue(subject, role string) (*Token, error) {
	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := Claims{
		Email: subject,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Token{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify parses a token and returns its claims. Expired, malformed or
// wrongly signed tokens are ErrUnauthorized.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}

// RequireRole verifies the token and checks the role claim.
func (a *Authenticator) RequireRole(token, role string) (*Claims, error) {
	claims, err := a.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Role != role {
		return nil, ErrForbidden
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type contextKey string

const claimsKey contextKey = "auth_claims"

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}
