// Package auth issues and verifies the bearer tokens handed out at login.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the caller's identity. Subject is the user's email.
type Claims struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Access         string `json:"access"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret  []byte
	issuer  string
	ttlDays int
	now     func() time.Time
}

func NewTokenManager(secret, issuer string, ttlDays int) *TokenManager {
	if issuer == "" {
		issuer = "deliveryhub"
	}
	if ttlDays <= 0 {
		ttlDays = 7
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttlDays: ttlDays, now: time.Now}
}

// ExpiryFor returns 23:59:59 UTC on the day ttlDays after t
func (tm *TokenManager) ExpiryFor(t time.Time) time.Time {
	d := t.UTC().AddDate(0, 0, tm.ttlDays)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
}

// GenerateToken signs an HS256 token for email
func (tm *TokenManager) GenerateToken(email, userID, organizationID, access string) (string, error) {
	if email == "" || userID == "" {
		return "", errors.New("email and user_id required")
	}
	now := tm.now()
	claims := Claims{
		UserID:         userID,
		OrganizationID: organizationID,
		Access:         access,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(tm.ExpiryFor(now)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithIssuer(tm.issuer),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ExtractToken reads the token from an "Authorization: Bearer <token>" header
func ExtractToken(authHeader string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(token), nil
}
