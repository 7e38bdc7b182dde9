// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package calendar implements calendar events: CRUD, timezone conversion and
// reminder dispatch through the outbox.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/outbox"
)

var (
	ErrNotFound         = errors.New("event not found")
	ErrForbidden        = errors.New("not allowed to modify this event")
	ErrSharedEvent      = errors.New("shared events can only be deleted by their creator")
	ErrInvalidEventType = errors.New("invalid event type: must be movie, tv or unknown")
	ErrInvalidInput     = errors.New("invalid event")
	ErrInvalidTimezone  = errors.New("invalid timezone")
)

// EventInput carries the client fields of an add or update. Times are
// strings so the service owns timezone interpretation.
type EventInput struct {
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	EventType string `json:"eventType"`
	Timezone  string `json:"timezone"`
	MediaID   *int64 `json:"mediaId"`
	MediaType string `json:"mediaType"`
}

// Reminder is the payload of event_reminder events and pushes.
type Reminder struct {
	EventID      int64  `json:"eventId"`
	Title        string `json:"title"`
	Start        string `json:"start"`
	MinutesUntil int    `json:"minutesUntil"`
}

// Service manages calendar events.
type Service struct {
	db     *database.DB
	relay  outbox.Kicker
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates the calendar service.
func NewService(db *database.DB, relay outbox.Kicker) *Service {
	if relay == nil {
		relay = outbox.Nop{}
	}
	return &Service{
		db:     db,
		relay:  relay,
		now:    time.Now,
		logger: logging.WithComponent("calendar"),
	}
}

// SetClock replaces time.Now, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// location picks tz, or the user's zone when tz is empty.
func (s *Service) location(ctx context.Context, q *database.Queries, userID int64, tz string) (*time.Location, *models.User, error) {
	u, err := q.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if tz == "" {
		return u.Location(), u, nil
	}
	loc, err := LoadLocation(tz)
	if err != nil {
		return nil, nil, err
	}
	return loc, u, nil
}

// ListEvents returns the events userID owns, formatted in tz. An empty
// calendar is an empty slice.
func (s *Service) ListEvents(ctx context.Context, userID int64, tz string) ([]models.EventView, error) {
	loc, _, err := s.location(ctx, s.db.Queries, userID, tz)
	if err != nil {
		return nil, err
	}
	events, err := s.db.ListEventsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	shared, err := s.db.SharedEventIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared events: %w", err)
	}

	out := make([]models.EventView, 0, len(events))
	for _, e := range events {
		v := View(e, loc, true)
		v.IsShared = shared[e.ID]
		out = append(out, v)
	}
	return out, nil
}

// View formats e for a client in loc.
func View(e *models.Event, loc *time.Location, editable bool) models.EventView {
	return models.EventView{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Start:     FormatTime(e.Start, loc),
		End:       formatOptional(e.End, loc),
		EventType: e.EventType,
		MediaID:   e.MediaID,
		MediaType: e.MediaType,
		IsShared:  !editable,
		Editable:  editable,
	}
}

// GetEvent returns an event visible to userID: owned, or shared and accepted.
func (s *Service) GetEvent(ctx context.Context, userID, eventID int64, tz string) (*models.EventView, error) {
	loc, _, err := s.location(ctx, s.db.Queries, userID, tz)
	if err != nil {
		return nil, err
	}
	e, err := s.db.GetEvent(ctx, eventID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event %d: %w", eventID, err)
	}
	if e.UserID == userID {
		v := View(e, loc, true)
		return &v, nil
	}

	inv, err := s.db.GetInviteFor(ctx, eventID, userID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && inv.Pending()) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load invite: %w", err)
	}
	v := View(e, loc, false)
	return &v, nil
}

// AddEvent validates in, stores the event in UTC and queues the owner
// update plus a reminder when the event starts inside the user's
// notification lookahead.
func (s *Service) AddEvent(ctx context.Context, userID int64, in EventInput) (*models.EventView, error) {
	if !models.ValidEventType(in.EventType) {
		return nil, ErrInvalidEventType
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Start) == "" {
		return nil, fmt.Errorf("%w: start is required", ErrInvalidInput)
	}

	var view models.EventView
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		loc, user, err := s.location(ctx, q, userID, in.Timezone)
		if err != nil {
			return err
		}
		e := &models.Event{
			UserID:    userID,
			Title:     strings.TrimSpace(in.Title),
			EventType: in.EventType,
			MediaID:   in.MediaID,
			MediaType: in.MediaType,
		}
		if err := applyTimes(e, in, loc); err != nil {
			return err
		}
		if err := q.InsertEvent(ctx, e); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}

		view = View(e, loc, true)
		var b outbox.Batch
		b.Realtime(models.UserRoom(userID), models.EvtCalendarEventUpdated, view)
		s.queueLookaheadReminder(&b, user, e, loc)
		return b.Write(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	s.relay.Kick()
	return &view, nil
}

// UpdateEvent changes an event owned by userID. Empty fields keep their
// current value; End is cleared only by updating it to a new value.
func (s *Service) UpdateEvent(ctx context.Context, userID, eventID int64, in EventInput) (*models.EventView, error) {
	if in.EventType != "" && !models.ValidEventType(in.EventType) {
		return nil, ErrInvalidEventType
	}

	var view models.EventView
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		e, err := q.GetEvent(ctx, eventID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load event %d: %w", eventID, err)
		}
		if e.UserID != userID {
			return ErrForbidden
		}

		loc, user, err := s.location(ctx, q, userID, in.Timezone)
		if err != nil {
			return err
		}
		if t := strings.TrimSpace(in.Title); t != "" {
			e.Title = t
		}
		if in.EventType != "" {
			e.EventType = in.EventType
		}
		if err := applyTimes(e, in, loc); err != nil {
			return err
		}
		if err := q.UpdateEvent(ctx, e); err != nil {
			return fmt.Errorf("update event: %w", err)
		}

		invites, err := q.ListInvitesByEvent(ctx, eventID)
		if err != nil {
			return fmt.Errorf("list invites: %w", err)
		}

		view = View(e, loc, true)
		view.IsShared = len(invites) > 0
		var b outbox.Batch
		b.Realtime(models.UserRoom(userID), models.EvtCalendarEventUpdated, view)
		for _, inv := range invites {
			invitee, err := q.GetUser(ctx, inv.UserID)
			if err != nil {
				return fmt.Errorf("load invitee %d: %w", inv.UserID, err)
			}
			b.Realtime(models.UserRoom(inv.UserID), models.EvtCalendarEventUpdated, View(e, invitee.Location(), false))
		}
		s.queueLookaheadReminder(&b, user, e, loc)
		return b.Write(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	s.relay.Kick()
	return &view, nil
}

// DeleteEvent removes an event owned by userID and every invite to it.
func (s *Service) DeleteEvent(ctx context.Context, userID, eventID int64) error {
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		e, err := q.GetEvent(ctx, eventID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load event %d: %w", eventID, err)
		}
		if e.UserID != userID {
			if _, err := q.GetInviteFor(ctx, eventID, userID); err == nil {
				return ErrSharedEvent
			}
			return ErrForbidden
		}

		invites, err := q.ListInvitesByEvent(ctx, eventID)
		if err != nil {
			return fmt.Errorf("list invites: %w", err)
		}
		if err := q.DeleteEvent(ctx, eventID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}

		payload := map[string]int64{"id": eventID}
		var b outbox.Batch
		for _, inv := range invites {
			b.Realtime(models.UserRoom(inv.UserID), models.EvtCalendarEventRemoved, payload)
		}
		b.Realtime(models.UserRoom(userID), models.EvtCalendarEventRemoved, payload)
		return b.Write(ctx, q)
	})
	if err != nil {
		return err
	}
	s.relay.Kick()
	return nil
}

// EventsBetween returns events starting in (from, to] that have not been
// reminded yet.
func (s *Service) EventsBetween(ctx context.Context, from, to time.Time) ([]*models.Event, error) {
	return s.db.ListUnnotifiedEventsBetween(ctx, from, to)
}

// EventsForUserOn returns userID's own and accepted shared events on the
// calendar day containing day in tz.
func (s *Service) EventsForUserOn(ctx context.Context, userID int64, day time.Time, tz string) ([]models.EventView, error) {
	loc, _, err := s.location(ctx, s.db.Queries, userID, tz)
	if err != nil {
		return nil, err
	}
	from, to := DayBounds(day, loc)
	events, err := s.db.ListEventsForUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events for day: %w", err)
	}
	out := make([]models.EventView, 0, len(events))
	for _, e := range events {
		out = append(out, View(e, loc, e.UserID == userID))
	}
	return out, nil
}

// RemindEvent queues event_reminder to the owner and accepted invitees and a
// push to each of them with a push token, then marks the event notified. It
// returns false when another scan already reminded it.
func (s *Service) RemindEvent(ctx context.Context, e *models.Event) (bool, error) {
	now := s.now().UTC()
	sent := false
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.MarkEventNotified(ctx, e.ID, now); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("mark event notified: %w", err)
		}

		recipients := []int64{e.UserID}
		invites, err := q.ListInvitesByEvent(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("list invites: %w", err)
		}
		for _, inv := range invites {
			if inv.IsAccepted != nil && *inv.IsAccepted {
				recipients = append(recipients, inv.UserID)
			}
		}

		var b outbox.Batch
		for _, uid := range recipients {
			u, err := q.GetUser(ctx, uid)
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("load recipient %d: %w", uid, err)
			}
			r := reminder(e, u.Location(), now)
			b.Realtime(models.UserRoom(uid), models.EvtEventReminder, r)
			if u.PushToken != "" {
				b.Push(uid, pushFor(r))
			}
		}
		if err := b.Write(ctx, q); err != nil {
			return err
		}
		sent = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if sent {
		s.relay.Kick()
	}
	return sent, nil
}

// queueLookaheadReminder adds a reminder when e starts within the user's
// lookahead from now.
func (s *Service) queueLookaheadReminder(b *outbox.Batch, user *models.User, e *models.Event, loc *time.Location) {
	lookahead := user.Lookahead()
	if lookahead <= 0 {
		return
	}
	now := s.now().UTC()
	if !e.Start.After(now) || e.Start.After(now.Add(lookahead)) {
		return
	}
	r := reminder(e, loc, now)
	b.Realtime(models.UserRoom(user.ID), models.EvtEventReminder, r)
	if user.PushToken != "" {
		b.Push(user.ID, pushFor(r))
	}
}

func reminder(e *models.Event, loc *time.Location, now time.Time) Reminder {
	return Reminder{
		EventID:      e.ID,
		Title:        e.Title,
		Start:        FormatTime(e.Start, loc),
		MinutesUntil: int(e.Start.Sub(now).Round(time.Minute) / time.Minute),
	}
}

func pushFor(r Reminder) models.PushNotification {
	body := fmt.Sprintf("%s starts in %d minutes", r.Title, r.MinutesUntil)
	if r.MinutesUntil <= 0 {
		body = fmt.Sprintf("%s is starting now", r.Title)
	}
	return models.PushNotification{
		Title: "Upcoming event",
		Body:  body,
		Data:  map[string]string{"eventId": fmt.Sprint(r.EventID), "start": r.Start},
	}
}

// applyTimes parses the provided start and end in loc onto e.
func applyTimes(e *models.Event, in EventInput, loc *time.Location) error {
	if strings.TrimSpace(in.Start) != "" {
		start, err := ParseTime(in.Start, loc)
		if err != nil {
			return err
		}
		e.Start = start
	}
	if strings.TrimSpace(in.End) != "" {
		end, err := ParseTime(in.End, loc)
		if err != nil {
			return err
		}
		e.End = &end
	}
	return nil
}
