package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/habberrih/manara/pkg/config"
)

// TokenKind distinguishes access from refresh tokens so one can never be
// presented where the other is expected.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// UserClaims represents the JWT claims issued on login. Organization
// membership is deliberately absent: the member check runs per request
// against the database, so a revoked membership takes effect immediately.
type UserClaims struct {
	Email        string    `json:"email"`
	UserID       uint      `json:"user_id"`
	IsSuperAdmin bool      `json:"is_super_admin,omitempty"`
	Kind         TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config *config.JWTConfig
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(cfg *config.JWTConfig) *JWTUtil {
	return &JWTUtil{config: cfg}
}

// GenerateAccessToken creates a short-lived access token
func (j *JWTUtil) GenerateAccessToken(email string, userID uint, isSuperAdmin bool) (string, error) {
	expiry := time.Duration(j.config.AccessExpiryMinutes) * time.Minute
	return j.generate(email, userID, isSuperAdmin, KindAccess, expiry)
}

// GenerateRefreshToken creates a long-lived refresh token. The caller is
// expected to persist a hash of it next to the user for rotation checks.
func (j *JWTUtil) GenerateRefreshToken(email string, userID uint) (string, error) {
	expiry := time.Duration(j.config.RefreshExpiryHours) * time.Hour
	return j.generate(email, userID, false, KindRefresh, expiry)
}

func (j *JWTUtil) generate(email string, userID uint, isSuperAdmin bool, kind TokenKind, expiry time.Duration) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := UserClaims{
		Email:        email,
		UserID:       userID,
		IsSuperAdmin: isSuperAdmin,
		Kind:         kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses a token of the expected kind
func (j *JWTUtil) ValidateToken(tokenString string, kind TokenKind) (*UserClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("expected a %s token", kind)
	}
	return claims, nil
}
