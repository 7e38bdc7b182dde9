// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/nextstream/internal/config"
)

// Roles carried in tokens and evaluated by the authorization policy.
const (
	RoleUser  = "user"
	RoleGuest = "guest"
)

// Claims represents JWT claims. Guests have UserID 0 and a "guest-" subject.
type Claims struct {
	UserID   int64  `json:"uid,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secret       []byte
	timeout      time.Duration
	guestTimeout time.Duration
	now          func() time.Time
}

// NewJWTManager creates a token manager signing with HS256.
//
// Example:
//
//	jwtManager, err := auth.NewJWTManager(&cfg.Security)
//	if err != nil {
//	    log.Fatal("Failed to initialize JWT manager:", err)
//	}
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}

	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	guestTimeout := cfg.GuestTimeout
	if guestTimeout <= 0 {
		guestTimeout = 2 * time.Hour
	}

	return &JWTManager{
		secret:       []byte(secret),
		timeout:      timeout,
		guestTimeout: guestTimeout,
		now:          time.Now,
	}, nil
}

// SetClock replaces time.Now, for tests.
func (m *JWTManager) SetClock(now func() time.Time) {
	m.now = now
}

// GenerateToken signs a user session token and returns it with its expiry.
func (m *JWTManager) GenerateToken(userID int64, username string) (string, time.Time, error) {
	return m.sign(&Claims{
		UserID:   userID,
		Username: username,
		Role:     RoleUser,
	}, strconv.FormatInt(userID, 10), m.timeout)
}

// GenerateGuestToken signs a guest token. Guests have no account.
func (m *JWTManager) GenerateGuestToken() (string, time.Time, error) {
	return m.sign(&Claims{
		Username: "guest",
		Role:     RoleGuest,
	}, "guest-"+uuid.NewString(), m.guestTimeout)
}

func (m *JWTManager) sign(claims *Claims, subject string, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, expires, nil
}

// ValidateToken checks the signature, algorithm and time claims and returns
// the claims. Tokens signed with anything but HS256 are rejected.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	switch claims.Role {
	case RoleUser:
		if claims.UserID <= 0 {
			return nil, fmt.Errorf("invalid token claims: missing user id")
		}
	case RoleGuest:
	default:
		return nil, fmt.Errorf("invalid token claims: unknown role %q", claims.Role)
	}
	return claims, nil
}
