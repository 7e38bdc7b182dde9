// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/eventbus"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/models"
)

// UserLookup resolves recipients.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Forwarder consumes push and email envelopes from the bus and hands them
// to the delivery channels.
type Forwarder struct {
	users  UserLookup
	email  Emailer
	push   Pusher
	logger zerolog.Logger
}

// NewForwarder creates a forwarder.
func NewForwarder(users UserLookup, email Emailer, push Pusher) *Forwarder {
	return &Forwarder{users: users, email: email, push: push, logger: logging.WithComponent("notify")}
}

// Register subscribes the forwarder to the push and email topics.
func (f *Forwarder) Register(r *eventbus.Router) {
	r.Handle("notify-push", models.TopicPush, f.HandlePush)
	r.Handle("notify-email", models.TopicEmail, f.HandleEmail)
}

// HandlePush delivers a push envelope to the addressed user's device. Users
// without a push token are skipped.
func (f *Forwarder) HandlePush(ctx context.Context, env *models.Envelope) error {
	var n models.PushNotification
	if err := json.Unmarshal(env.Payload, &n); err != nil {
		f.logger.Warn().Err(err).Int64("envelope_id", env.ID).Msg("dropping malformed push payload")
		return nil
	}
	u, err := f.recipient(ctx, env.UserID)
	if err != nil || u == nil {
		return err
	}
	if u.PushToken == "" {
		return nil
	}
	return f.outcome(env, f.push.SendPush(ctx, u.PushToken, n))
}

// HandleEmail delivers an email envelope. A message without a To address
// goes to the addressed user's email.
func (f *Forwarder) HandleEmail(ctx context.Context, env *models.Envelope) error {
	var m models.EmailMessage
	if err := json.Unmarshal(env.Payload, &m); err != nil {
		f.logger.Warn().Err(err).Int64("envelope_id", env.ID).Msg("dropping malformed email payload")
		return nil
	}
	if m.To == "" {
		u, err := f.recipient(ctx, env.UserID)
		if err != nil || u == nil {
			return err
		}
		m.To = u.Email
	}
	return f.outcome(env, f.email.SendEmail(ctx, m))
}

func (f *Forwarder) recipient(ctx context.Context, userID int64) (*models.User, error) {
	u, err := f.users.GetUser(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		f.logger.Debug().Int64("user_id", userID).Msg("recipient no longer exists")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load recipient %d: %w", userID, err)
	}
	return u, nil
}

// outcome acknowledges permanent failures so only transient ones are retried.
func (f *Forwarder) outcome(env *models.Envelope, err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return err
	}
	f.logger.Warn().Err(err).Int64("envelope_id", env.ID).Int64("user_id", env.UserID).
		Str("topic", env.Topic).Msg("notification dropped")
	return nil
}
