// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// subjectEcho writes the resolved subject's username, or "none".
var subjectEcho = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	s, ok := SubjectFromContext(r.Context())
	if !ok {
		_, _ = w.Write([]byte("none"))
		return
	}
	_, _ = w.Write([]byte(s.Username))
})

func TestAuthenticate(t *testing.T) {
	m := newTestManager(t)
	mw := NewMiddleware(m, nil)

	userTok, _, err := m.GenerateToken(7, "alice")
	if err != nil {
		t.Fatal(err)
	}
	guestTok, _, err := m.GenerateGuestToken()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		cookies    map[string]string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no credentials", nil, "", http.StatusUnauthorized, ""},
		{"token cookie", map[string]string{TokenCookie: userTok}, "", http.StatusOK, "alice"},
		{"guest cookie", map[string]string{GuestCookie: guestTok}, "", http.StatusOK, "guest"},
		{"token wins over guest", map[string]string{TokenCookie: userTok, GuestCookie: guestTok}, "",
			http.StatusOK, "alice"},
		{"bearer header", nil, "Bearer " + userTok, http.StatusOK, "alice"},
		{"bearer lowercase scheme", nil, "bearer " + userTok, http.StatusOK, "alice"},
		{"invalid token cookie", map[string]string{TokenCookie: "garbage"}, "Bearer " + userTok,
			http.StatusUnauthorized, ""},
		{"basic scheme", nil, "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"empty bearer", nil, "Bearer ", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/anything", nil)
			for name, value := range tt.cookies {
				req.AddCookie(&http.Cookie{Name: name, Value: value})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.Authenticate(subjectEcho).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestAuthenticateCustomErrorWriter(t *testing.T) {
	var gotStatus int
	var gotCode string
	mw := NewMiddleware(newTestManager(t), func(w http.ResponseWriter, _ *http.Request, status int, code, _ string) {
		gotStatus, gotCode = status, code
		w.WriteHeader(status)
	})

	rec := httptest.NewRecorder()
	mw.Authenticate(subjectEcho).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if gotStatus != http.StatusUnauthorized || gotCode != "UNAUTHORIZED" {
		t.Errorf("error writer got %d %q", gotStatus, gotCode)
	}
}

func TestRequireSelf(t *testing.T) {
	m := newTestManager(t)
	mw := NewMiddleware(m, nil)

	userTok, _, _ := m.GenerateToken(7, "alice")
	guestTok, _, _ := m.GenerateGuestToken()

	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.With(mw.RequireSelf).Get("/api/users/{userId}", subjectEcho)
	r.With(mw.RequireUser).Get("/api/me", subjectEcho)

	tests := []struct {
		name       string
		path       string
		cookie     string
		value      string
		wantStatus int
	}{
		{"own id", "/api/users/7", TokenCookie, userTok, http.StatusOK},
		{"other id", "/api/users/8", TokenCookie, userTok, http.StatusForbidden},
		{"non-numeric id", "/api/users/abc", TokenCookie, userTok, http.StatusBadRequest},
		{"guest on user route", "/api/users/7", GuestCookie, guestTok, http.StatusForbidden},
		{"guest on account route", "/api/me", GuestCookie, guestTok, http.StatusForbidden},
		{"user on account route", "/api/me", TokenCookie, userTok, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.AddCookie(&http.Cookie{Name: tt.cookie, Value: tt.value})
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestCookies(t *testing.T) {
	c := Cookies{Secure: true, Domain: "example.com"}

	rec := httptest.NewRecorder()
	c.Set(rec, TokenCookie, "abc", time.Now().Add(time.Hour))
	res := rec.Result()
	defer res.Body.Close()
	cookies := res.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	got := cookies[0]
	if got.Name != TokenCookie || got.Value != "abc" || !got.HttpOnly || !got.Secure || got.Path != "/" {
		t.Errorf("cookie = %+v", got)
	}

	rec = httptest.NewRecorder()
	c.Clear(rec)
	res = rec.Result()
	defer res.Body.Close()
	cleared := res.Cookies()
	if len(cleared) != 2 {
		t.Fatalf("cleared cookies = %d, want 2", len(cleared))
	}
	for _, ck := range cleared {
		if ck.MaxAge >= 0 || ck.Value != "" {
			t.Errorf("cookie %s not expired: %+v", ck.Name, ck)
		}
	}
}
