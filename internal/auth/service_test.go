// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/nextstream/internal/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(database.NewTestDB(t), newTestManager(t))
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	sess, err := s.Register(ctx, RegisterInput{
		Name: "Alice", Username: "alice", Email: "Alice@Example.com", Password: "password123",
		Timezone: "Europe/Paris",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if sess.User == nil || sess.User.ID == 0 || sess.Token == "" || sess.Role != RoleUser {
		t.Fatalf("session = %+v", sess)
	}
	if sess.User.PasswordHash == "password123" {
		t.Error("password stored in clear text")
	}

	for _, login := range []string{"alice", "alice@example.com", "ALICE@example.com"} {
		got, err := s.Login(ctx, LoginInput{Login: login, Password: "password123"})
		if err != nil {
			t.Errorf("Login(%q) error = %v", login, err)
			continue
		}
		if got.User.ID != sess.User.ID {
			t.Errorf("Login(%q) user = %d, want %d", login, got.User.ID, sess.User.ID)
		}
	}

	claims, err := s.jwt.ValidateToken(sess.Token)
	if err != nil || claims.UserID != sess.User.ID {
		t.Errorf("issued token claims = %+v, %v", claims, err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	in := RegisterInput{Name: "Alice", Username: "alice", Email: "alice@example.com", Password: "password123"}
	if _, err := s.Register(ctx, in); err != nil {
		t.Fatal(err)
	}

	in.Email = "other@example.com"
	if _, err := s.Register(ctx, in); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate username error = %v, want ErrUserExists", err)
	}
	in.Username, in.Email = "alice2", "ALICE@example.com"
	if _, err := s.Register(ctx, in); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate email error = %v, want ErrUserExists", err)
	}
}

func TestLoginFailures(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	if _, err := s.Register(ctx, RegisterInput{Name: "Bob", Username: "bob", Email: "bob@example.com",
		Password: "password123"}); err != nil {
		t.Fatal(err)
	}

	tests := []LoginInput{
		{Login: "bob", Password: "wrong-password"},
		{Login: "nobody", Password: "password123"},
	}
	for _, in := range tests {
		if _, err := s.Login(ctx, in); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q) error = %v, want ErrInvalidCredentials", in.Login, err)
		}
	}
}

func TestGuestAndMe(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	guest, err := s.Guest(ctx)
	if err != nil {
		t.Fatalf("Guest() error = %v", err)
	}
	if guest.User != nil || guest.Role != RoleGuest || guest.Token == "" {
		t.Errorf("guest session = %+v", guest)
	}
	claims, err := s.jwt.ValidateToken(guest.Token)
	if err != nil {
		t.Fatal(err)
	}
	me, err := s.Me(ctx, SubjectFromClaims(claims))
	if err != nil || me != nil {
		t.Errorf("Me(guest) = %v, %v; want nil, nil", me, err)
	}

	sess, err := s.Register(ctx, RegisterInput{Name: "Cy", Username: "cy", Email: "cy@example.com",
		Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	me, err = s.Me(ctx, &Subject{UserID: sess.User.ID, Role: RoleUser})
	if err != nil || me == nil || me.Username != "cy" {
		t.Errorf("Me(user) = %+v, %v", me, err)
	}
}
