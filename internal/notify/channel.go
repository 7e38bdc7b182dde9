// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package notify delivers email and mobile push notifications.
//
// Two channels are provided:
//   - Email: SMTP delivery with multipart HTML/plaintext bodies
//   - Push: JSON POST to an HTTP push gateway keyed by device token
//
// Channels never retry on their own. A failure is returned as a *Error whose
// Transient flag tells the caller whether redelivery can help; the bus
// forwarders in this package turn permanent failures into acknowledgements
// and let transient ones go back to the router for retry.
//
// Credentials are never logged.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/nextstream/internal/models"
)

// Error codes for delivery failures.
const (
	ErrorCodeInvalidConfig     = "INVALID_CONFIG"
	ErrorCodeInvalidRecipient  = "INVALID_RECIPIENT"
	ErrorCodeConnectionFailed  = "CONNECTION_FAILED"
	ErrorCodeAuthFailed        = "AUTH_FAILED"
	ErrorCodeRateLimited       = "RATE_LIMITED"
	ErrorCodeContentTooLarge   = "CONTENT_TOO_LARGE"
	ErrorCodeRecipientNotFound = "RECIPIENT_NOT_FOUND"
	ErrorCodeServerError       = "SERVER_ERROR"
	ErrorCodeTimeout           = "TIMEOUT"
	ErrorCodeUnknown           = "UNKNOWN"
)

// Error is a categorized delivery failure.
type Error struct {
	Channel   string
	Code      string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s delivery failed (%s): %v", e.Channel, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a delivery failure worth retrying.
// Errors that are not *Error are treated as transient.
func IsTransient(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Transient
	}
	return err != nil
}

func newError(channel, code string, err error) *Error {
	return &Error{Channel: channel, Code: code, Transient: isTransientCode(code), Err: err}
}

func isTransientCode(code string) bool {
	switch code {
	case ErrorCodeConnectionFailed, ErrorCodeTimeout, ErrorCodeRateLimited, ErrorCodeServerError:
		return true
	default:
		return false
	}
}

// Emailer sends one email.
type Emailer interface {
	SendEmail(ctx context.Context, msg models.EmailMessage) error
}

// Pusher sends one push notification to a device token.
type Pusher interface {
	SendPush(ctx context.Context, token string, n models.PushNotification) error
}

// ValidateEmail validates an email address format.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email address is required")
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid email address format: %s", email)
	}
	if !strings.Contains(parts[1], ".") {
		return fmt.Errorf("invalid email domain: %s", parts[1])
	}
	return nil
}

// HTMLToPlaintext strips tags from html for the text/plain alternative.
func HTMLToPlaintext(html string) string {
	var result strings.Builder
	inTag := false
	for _, r := range html {
		switch r {
		case '<':
			inTag = true
		case '>':
			inTag = false
			result.WriteRune(' ')
		default:
			if !inTag {
				result.WriteRune(r)
			}
		}
	}

	text := result.String()
	text = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", "\"").Replace(text)

	var clean []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			clean = append(clean, line)
		}
	}
	return strings.Join(clean, "\n")
}
