// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package sharing implements calendar invites: sharing an event with
// friends, answering invites and listing them.
//
// An invite moves from pending to accepted, or is deleted on decline or when
// the inviter removes it. The shared event itself is only ever deleted by its
// owner through the calendar service.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/nextstream/internal/calendar"
	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/outbox"
)

var (
	ErrNotFound        = errors.New("invite not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrForbidden       = errors.New("not allowed to manage this invite")
	ErrNoFriends       = errors.New("select at least one friend")
	ErrNotFriends      = errors.New("events can only be shared with friends")
	ErrAlreadyShared   = errors.New("already shared with some selected friends")
	ErrAlreadyAnswered = errors.New("invite already accepted")
)

// Share status values reported by EventShares.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Response is the result of answering an invite and the payload of
// calendar_invite_responded.
type Response struct {
	InviteID  int64  `json:"inviteId"`
	EventID   int64  `json:"eventId"`
	UserID    int64  `json:"userId"`
	UserName  string `json:"userName"`
	Accepted  bool   `json:"accepted"`
	Unchanged bool   `json:"-"`
}

// Share is one invitee of an event as seen by its owner.
type Share struct {
	InviteID int64  `json:"inviteId"`
	UserID   int64  `json:"userId"`
	Name     string `json:"name"`
	Status   string `json:"status"`
}

// Service manages calendar invites.
type Service struct {
	db     *database.DB
	relay  outbox.Kicker
	logger zerolog.Logger
}

// NewService creates the sharing service.
func NewService(db *database.DB, relay outbox.Kicker) *Service {
	if relay == nil {
		relay = outbox.Nop{}
	}
	return &Service{db: db, relay: relay, logger: logging.WithComponent("sharing")}
}

// ShareEvent invites friendIDs to eventID, owned by userID. The whole call
// fails if any friend is not an accepted friend or already holds an invite.
func (s *Service) ShareEvent(ctx context.Context, eventID, userID int64, friendIDs []int64) ([]models.InviteView, error) {
	friends := uniqueIDs(friendIDs)
	if len(friends) == 0 {
		return nil, ErrNoFriends
	}

	var views []models.InviteView
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		e, err := q.GetEvent(ctx, eventID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("load event %d: %w", eventID, err)
		}
		if e.UserID != userID {
			return ErrForbidden
		}
		owner, err := q.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("load owner: %w", err)
		}

		for _, fid := range friends {
			if fid == userID {
				return ErrNotFriends
			}
			f, err := q.GetFriendship(ctx, userID, fid)
			if errors.Is(err, database.ErrNotFound) || (err == nil && !f.IsAccepted) {
				return ErrNotFriends
			}
			if err != nil {
				return fmt.Errorf("check friendship with %d: %w", fid, err)
			}
		}

		existing, err := q.InvitedAmong(ctx, eventID, friends)
		if err != nil {
			return fmt.Errorf("check existing invites: %w", err)
		}
		if len(existing) > 0 {
			return ErrAlreadyShared
		}

		var b outbox.Batch
		views = make([]models.InviteView, 0, len(friends))
		for _, fid := range friends {
			invitee, err := q.GetUser(ctx, fid)
			if err != nil {
				return fmt.Errorf("load invitee %d: %w", fid, err)
			}
			inv := &models.CalendarInvite{EventID: eventID, UserID: fid, CreatedBy: userID}
			if err := q.InsertInvite(ctx, inv); err != nil {
				if errors.Is(err, database.ErrDuplicate) {
					return ErrAlreadyShared
				}
				return fmt.Errorf("insert invite: %w", err)
			}
			row := models.InviteRow{
				Invite:      *inv,
				EventTitle:  e.Title,
				Start:       e.Start,
				End:         e.End,
				EventType:   e.EventType,
				InviterName: owner.Name,
			}
			views = append(views, inviteView(row, owner.Location()))
			b.Realtime(models.UserRoom(fid), models.EvtReceiveCalendarInvite, inviteView(row, invitee.Location()))
		}
		return b.Write(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	s.relay.Kick()
	s.logger.Debug().Int64("event_id", eventID).Int("invitees", len(views)).Msg("event shared")
	return views, nil
}

// RespondToInvite accepts or declines an invite addressed to userID.
// Accepting twice changes nothing; declining an accepted invite fails with
// ErrAlreadyAnswered.
func (s *Service) RespondToInvite(ctx context.Context, userID, inviteID int64, accepted bool) (*Response, error) {
	var resp *Response
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		inv, err := q.GetInvite(ctx, inviteID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load invite %d: %w", inviteID, err)
		}
		if inv.UserID != userID {
			return ErrForbidden
		}
		invitee, err := q.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("load invitee: %w", err)
		}
		resp = &Response{
			InviteID: inv.ID,
			EventID:  inv.EventID,
			UserID:   userID,
			UserName: invitee.Name,
			Accepted: accepted,
		}

		alreadyAccepted := inv.IsAccepted != nil && *inv.IsAccepted
		var b outbox.Batch
		switch {
		case accepted && alreadyAccepted:
			resp.Unchanged = true
			return nil
		case accepted:
			if err := q.AcceptInvite(ctx, inv.ID); err != nil {
				return fmt.Errorf("accept invite: %w", err)
			}
			e, err := q.GetEvent(ctx, inv.EventID)
			if err != nil {
				return fmt.Errorf("load event %d: %w", inv.EventID, err)
			}
			b.Realtime(models.UserRoom(userID), models.EvtCalendarEventUpdated,
				calendar.View(e, invitee.Location(), false))
		case alreadyAccepted:
			return ErrAlreadyAnswered
		default:
			if err := q.DeleteInvite(ctx, inv.ID); err != nil {
				return fmt.Errorf("decline invite: %w", err)
			}
			b.Realtime(models.UserRoom(userID), models.EvtCalendarEventRemoved,
				map[string]int64{"id": inv.EventID})
		}
		b.Realtime(models.UserRoom(inv.CreatedBy), models.EvtCalendarInviteResponded, resp)
		return b.Write(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	if !resp.Unchanged {
		s.relay.Kick()
	}
	return resp, nil
}

// PendingInvites lists unanswered invites addressed to userID, formatted in
// tz or the user's timezone.
func (s *Service) PendingInvites(ctx context.Context, userID int64, tz string) ([]models.InviteView, error) {
	loc, err := s.location(ctx, userID, tz)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.PendingInvites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list pending invites: %w", err)
	}
	return inviteViews(rows, loc), nil
}

// SharedEvents lists accepted invites of userID. They are never editable by
// the invitee.
func (s *Service) SharedEvents(ctx context.Context, userID int64, tz string) ([]models.InviteView, error) {
	loc, err := s.location(ctx, userID, tz)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.AcceptedInvites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared events: %w", err)
	}
	return inviteViews(rows, loc), nil
}

// EventShares lists the invitees of an event owned by ownerID.
func (s *Service) EventShares(ctx context.Context, ownerID, eventID int64) ([]Share, error) {
	e, err := s.db.GetEvent(ctx, eventID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event %d: %w", eventID, err)
	}
	if e.UserID != ownerID {
		return nil, ErrForbidden
	}

	rows, err := s.db.InviteRowsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	out := make([]Share, 0, len(rows))
	for _, r := range rows {
		status := StatusPending
		if r.Invite.IsAccepted != nil && *r.Invite.IsAccepted {
			status = StatusAccepted
		}
		out = append(out, Share{InviteID: r.Invite.ID, UserID: r.Invite.UserID, Name: r.InviteeName, Status: status})
	}
	return out, nil
}

// RemoveShare deletes an invite. Only the inviter may remove it.
func (s *Service) RemoveShare(ctx context.Context, userID, inviteID int64) error {
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		inv, err := q.GetInvite(ctx, inviteID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load invite %d: %w", inviteID, err)
		}
		if inv.CreatedBy != userID {
			return ErrForbidden
		}
		if err := q.DeleteInvite(ctx, inv.ID); err != nil {
			return fmt.Errorf("delete invite: %w", err)
		}
		var b outbox.Batch
		b.Realtime(models.UserRoom(inv.UserID), models.EvtCalendarEventRemoved, map[string]int64{"id": inv.EventID})
		return b.Write(ctx, q)
	})
	if err != nil {
		return err
	}
	s.relay.Kick()
	return nil
}

func (s *Service) location(ctx context.Context, userID int64, tz string) (*time.Location, error) {
	if tz != "" {
		return calendar.LoadLocation(tz)
	}
	u, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return u.Location(), nil
}

func inviteViews(rows []models.InviteRow, loc *time.Location) []models.InviteView {
	out := make([]models.InviteView, 0, len(rows))
	for _, r := range rows {
		out = append(out, inviteView(r, loc))
	}
	return out
}

func inviteView(r models.InviteRow, loc *time.Location) models.InviteView {
	v := models.InviteView{
		ID:          r.Invite.ID,
		EventID:     r.Invite.EventID,
		EventTitle:  r.EventTitle,
		Start:       calendar.FormatTime(r.Start, loc),
		EventType:   r.EventType,
		CreatedBy:   r.Invite.CreatedBy,
		InviterName: r.InviterName,
		UserID:      r.Invite.UserID,
		IsAccepted:  r.Invite.IsAccepted,
	}
	if r.End != nil {
		v.End = calendar.FormatTime(*r.End, loc)
	}
	return v
}

// uniqueIDs drops duplicates and non-positive ids, keeping order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
