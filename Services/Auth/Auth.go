package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// JWTClaims represents the JWT token claims.
type JWTClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// Config holds the secret material and token lifetimes. Both secrets are
// required; lifetimes fall back to sane defaults when zero.
type Config struct {
	AccessSecret    string
	RefreshSecret   string
	AccessValidity  time.Duration
	RefreshValidity time.Duration
}

// Service issues and verifies the access/refresh token pair. The refresh
// token is persisted per user by the Users handlers; this service only
// covers signing and verification.
type Service struct {
	accessSecret    []byte
	refreshSecret   []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
}

func NewService(cfg Config) (*Service, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if cfg.AccessValidity == 0 {
		cfg.AccessValidity = 15 * time.Minute
	}
	if cfg.RefreshValidity == 0 {
		cfg.RefreshValidity = 10 * 24 * time.Hour
	}
	return &Service{
		accessSecret:    []byte(cfg.AccessSecret),
		refreshSecret:   []byte(cfg.RefreshSecret),
		accessValidity:  cfg.AccessValidity,
		refreshValidity: cfg.RefreshValidity,
	}, nil
}

// GenerateAccessToken creates a short-lived access token for a user.
func (s *Service) GenerateAccessToken(uid string) (string, error) {
	return s.sign(uid, s.accessSecret, s.accessValidity)
}

// GenerateRefreshToken creates the long-lived refresh token.
func (s *Service) GenerateRefreshToken(uid string) (string, error) {
	return s.sign(uid, s.refreshSecret, s.refreshValidity)
}

func (s *Service) sign(uid string, secret []byte, validity time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "videotube-backend",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyAccessToken verifies and parses an access token.
func (s *Service) VerifyAccessToken(tokenString string) (*JWTClaims, error) {
	return verify(tokenString, s.accessSecret)
}

// VerifyRefreshToken verifies and parses a refresh token.
func (s *Service) VerifyRefreshToken(tokenString string) (*JWTClaims, error) {
	return verify(tokenString, s.refreshSecret)
}

func verify(tokenString string, secret []byte) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// TokenFromRequest pulls a token from the named cookie, falling back to the
// Authorization header with an optional "Bearer " prefix.
func TokenFromRequest(r *http.Request, cookie string) string {
	if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	header = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return header
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type contextKey string

const uidContextKey contextKey = "uid"

// WithUID stores the authenticated user id on the request context.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, uidContextKey, uid)
}

// UIDFromContext returns the authenticated user id set by the middleware.
func UIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(uidContextKey).(string)
	return uid, ok && uid != ""
}
