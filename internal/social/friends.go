// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/outbox"
)

// SendRequest records a pending request from one user to another and
// notifies the addressee.
func (s *Service) SendRequest(ctx context.Context, from, to int64) (*models.FriendView, error) {
	if from == to {
		return nil, ErrSelfRequest
	}

	var view models.FriendView
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		if _, err := q.GetUser(ctx, to); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load addressee: %w", err)
		}
		sender, err := q.GetUser(ctx, from)
		if err != nil {
			return fmt.Errorf("load sender: %w", err)
		}

		existing, err := q.GetFriendship(ctx, from, to)
		switch {
		case err == nil && existing.IsAccepted:
			return ErrAlreadyFriends
		case err == nil:
			return ErrAlreadyRequested
		case !errors.Is(err, database.ErrNotFound):
			return fmt.Errorf("check friendship: %w", err)
		}

		f, err := q.InsertFriendRequest(ctx, from, to)
		if errors.Is(err, database.ErrDuplicate) {
			return ErrAlreadyRequested
		}
		if err != nil {
			return fmt.Errorf("insert friend request: %w", err)
		}

		view = models.FriendView{
			UserSummary: summary(sender),
			RequestedBy: from,
			Since:       f.CreatedAt,
		}
		var b outbox.Batch
		b.Realtime(models.UserRoom(to), models.EvtReceiveFriendRequest, view)
		return b.Write(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	s.relay.Kick()
	return &view, nil
}

// AcceptRequest accepts the pending request requesterID sent to userID.
func (s *Service) AcceptRequest(ctx context.Context, userID, requesterID int64) (*models.FriendView, error) {
	var view models.FriendView
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		f, err := q.GetFriendship(ctx, userID, requesterID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrRequestNotFound
		}
		if err != nil {
			return fmt.Errorf("load friend request: %w", err)
		}
		if f.IsAccepted {
			return ErrAlreadyFriends
		}
		if f.RequestedBy != requesterID {
			return ErrNotAddressee
		}
		if err := q.AcceptFriendship(ctx, userID, requesterID); err != nil {
			return fmt.Errorf("accept friend request: %w", err)
		}

		accepter, err := q.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		view = models.FriendView{
			UserSummary: summary(accepter),
			RequestedBy: requesterID,
			IsAccepted:  true,
			Since:       f.CreatedAt,
		}
		var b outbox.Batch
		b.Realtime(models.UserRoom(requesterID), models.EvtFriendRequestAccepted, view)
		return b.Write(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	s.relay.Kick()
	return &view, nil
}

// RemoveFriend deletes the pair in any state: it declines an incoming
// request, cancels an outgoing one or ends a friendship.
func (s *Service) RemoveFriend(ctx context.Context, userID, otherID int64) error {
	err := s.db.DeleteFriendship(ctx, userID, otherID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}
	return nil
}

// ListFriends returns accepted friends.
func (s *Service) ListFriends(ctx context.Context, userID int64) ([]models.FriendView, error) {
	return s.db.ListFriendViews(ctx, userID, true, false)
}

// PendingRequests returns requests sent to userID.
func (s *Service) PendingRequests(ctx context.Context, userID int64) ([]models.FriendView, error) {
	return s.db.ListFriendViews(ctx, userID, false, true)
}

// SentRequests returns requests userID sent that are still pending.
func (s *Service) SentRequests(ctx context.Context, userID int64) ([]models.FriendView, error) {
	return s.db.ListFriendViews(ctx, userID, false, false)
}

// SearchUsers finds users by name or username, never including excludeID.
func (s *Service) SearchUsers(ctx context.Context, query string, excludeID int64) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.UserSummary{}, nil
	}
	return s.db.SearchUsers(ctx, query, excludeID, defaultSearchLimit)
}

// AreFriends reports whether a and b are accepted friends.
func (s *Service) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	return areFriends(ctx, s.db.Queries, a, b)
}

func areFriends(ctx context.Context, q *database.Queries, a, b int64) (bool, error) {
	f, err := q.GetFriendship(ctx, a, b)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.IsAccepted, nil
}

func summary(u *models.User) models.UserSummary {
	return models.UserSummary{ID: u.ID, Name: u.Name, Username: u.Username}
}
