// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package auth

import (
	"net/http"
	"time"

	"github.com/tomtom215/nextstream/internal/config"
)

// Cookie names read by the Authenticate middleware, in resolution order.
const (
	TokenCookie = "token"
	GuestCookie = "guestToken"
)

// Cookies writes the session cookies with the configured attributes.
type Cookies struct {
	Secure bool
	Domain string
}

// NewCookies returns a cookie writer for cfg.
func NewCookies(cfg *config.SecurityConfig) Cookies {
	return Cookies{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain}
}

// Set writes an httpOnly cookie that expires with the token.
func (c Cookies) Set(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires both session cookies.
func (c Cookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{TokenCookie, GuestCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.Domain,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
