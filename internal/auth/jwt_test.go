// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package auth

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

// testJWTConfig returns a standard test security config for JWT
func testJWTConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:      "test-secret-key-that-is-at-least-32-characters-long",
		SessionTimeout: 1 * time.Hour,
		GuestTimeout:   10 * time.Minute,
	}
}

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testJWTConfig())
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.SecurityConfig
		wantErr bool
	}{
		{"valid secret", testJWTConfig(), false},
		{"empty secret", &config.SecurityConfig{SessionTimeout: time.Hour}, true},
		{"zero timeouts use defaults", &config.SecurityConfig{JWTSecret: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewJWTManager(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("NewJWTManager() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewJWTManager() unexpected error = %v", err)
			}
			if manager.timeout <= 0 || manager.guestTimeout <= 0 {
				t.Errorf("timeouts = %v/%v, want positive", manager.timeout, manager.guestTimeout)
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	token, expires, err := m.GenerateToken(42, "alice")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !expires.Equal(now.Add(time.Hour)) {
		t.Errorf("expires = %v, want %v", expires, now.Add(time.Hour))
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.Role != RoleUser || claims.Subject != "42" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestGuestToken(t *testing.T) {
	m := newTestManager(t)

	token, _, err := m.GenerateGuestToken()
	if err != nil {
		t.Fatalf("GenerateGuestToken() error = %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Role != RoleGuest || claims.UserID != 0 || !strings.HasPrefix(claims.Subject, "guest-") {
		t.Errorf("claims = %+v", claims)
	}
	s := SubjectFromClaims(claims)
	if !s.Guest {
		t.Error("guest subject not marked as guest")
	}
}

func TestValidateTokenRejects(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()

	expired := func() string {
		old := newTestManager(t)
		old.SetClock(func() time.Time { return now.Add(-2 * time.Hour) })
		tok, _, err := old.GenerateToken(1, "alice")
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}

	otherSecret := func() string {
		cfg := testJWTConfig()
		cfg.JWTSecret = "another-secret-key-that-is-also-long-enough"
		other, err := NewJWTManager(cfg)
		if err != nil {
			t.Fatal(err)
		}
		tok, _, err := other.GenerateToken(1, "alice")
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}

	signed := func(method jwt.SigningMethod, key interface{}, claims *Claims) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}
	valid := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"expired", expired()},
		{"wrong secret", otherSecret()},
		{"alg none", signed(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType,
			&Claims{UserID: 1, Role: RoleUser, RegisteredClaims: valid})},
		{"HS512", signed(jwt.SigningMethodHS512, m.secret,
			&Claims{UserID: 1, Role: RoleUser, RegisteredClaims: valid})},
		{"unknown role", signed(jwt.SigningMethodHS256, m.secret,
			&Claims{UserID: 1, Role: "admin", RegisteredClaims: valid})},
		{"user without id", signed(jwt.SigningMethodHS256, m.secret,
			&Claims{Role: RoleUser, RegisteredClaims: valid})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken() expected error, got nil")
			}
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("password stored in clear text")
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("CheckPassword(correct) = %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err != ErrInvalidCredentials {
		t.Errorf("CheckPassword(wrong) = %v, want ErrInvalidCredentials", err)
	}
	if _, err := HashPassword(strings.Repeat("a", MaxPasswordBytes+1)); err == nil {
		t.Error("HashPassword() accepted an over-long password")
	}
}
