// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/models"
)

// ErrUserExists is returned when the username or email is taken.
var ErrUserExists = errors.New("username or email already registered")

// UserStore is the subset of the database the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}

// RegisterInput is a validated sign-up request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

// LoginInput accepts a username or an email as the login.
type LoginInput struct {
	Login    string `json:"login" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// Session is an issued token together with the account it belongs to. User
// is nil for guests.
type Session struct {
	User    *models.User `json:"user,omitempty"`
	Token   string       `json:"-"`
	Expires time.Time    `json:"expiresAt"`
	Role    string       `json:"role"`
}

// Service registers users and issues session tokens.
type Service struct {
	users UserStore
	jwt   *JWTManager
}

// NewService creates the auth service.
func NewService(users UserStore, jwtManager *JWTManager) *Service {
	return &Service{users: users, jwt: jwtManager}
}

// Register creates an account and signs the caller in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Timezone:     in.Timezone,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			metrics.AuthAttempts.WithLabelValues("register", "duplicate").Inc()
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	logging.Ctx(ctx).Info().Int64("user_id", u.ID).Msg("User registered")
	return s.issue(u)
}

// Login checks a username or email and password.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.users.GetUserByLogin(ctx, strings.TrimSpace(in.Login))
	if errors.Is(err, database.ErrNotFound) {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := CheckPassword(u.PasswordHash, in.Password); err != nil {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return s.issue(u)
}

// Guest issues a guest token. Guests can browse TMDB data only.
func (s *Service) Guest(context.Context) (*Session, error) {
	token, expires, err := s.jwt.GenerateGuestToken()
	if err != nil {
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("guest", "success").Inc()
	return &Session{Token: token, Expires: expires, Role: RoleGuest}, nil
}

// Me returns the account behind a subject, or nil for a guest.
func (s *Service) Me(ctx context.Context, subject *Subject) (*models.User, error) {
	if subject == nil || subject.Guest {
		return nil, nil
	}
	u, err := s.users.GetUser(ctx, subject.UserID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) issue(u *models.User) (*Session, error) {
	token, expires, err := s.jwt.GenerateToken(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token, Expires: expires, Role: RoleUser}, nil
}
