// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package media manages a user's watch lists (to_watch, scheduled, watched)
// and the like/dislike interactions that feed recommendations.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/outbox"
	"github.com/tomtom215/nextstream/internal/tmdb"
)

var (
	ErrNotFound         = errors.New("media status not found")
	ErrInvalidStatus    = errors.New("invalid status: must be to_watch, scheduled or watched")
	ErrInvalidMediaType = errors.New("invalid media type: must be movie or tv")
	ErrInvalidInput     = errors.New("invalid media status")
)

// SaveInput is a full media status as posted by the client.
type SaveInput struct {
	MediaID    int64    `json:"mediaId" validate:"required,gt=0"`
	MediaType  string   `json:"mediaType" validate:"required,oneof=movie tv"`
	Title      string   `json:"title" validate:"required,max=255"`
	PosterPath string   `json:"posterPath" validate:"max=255"`
	Status     string   `json:"status"`
	Season     *int     `json:"season" validate:"omitempty,min=0"`
	Episode    *int     `json:"episode" validate:"omitempty,min=0"`
	Tags       []string `json:"tags" validate:"max=50,dive,max=64"`
	Review     string   `json:"review" validate:"max=5000"`
}

// UpdateInput changes the non-nil fields of a media status.
type UpdateInput struct {
	Status  *string   `json:"status"`
	Season  *int      `json:"season" validate:"omitempty,min=0"`
	Episode *int      `json:"episode" validate:"omitempty,min=0"`
	Tags    *[]string `json:"tags" validate:"omitempty,max=50,dive,max=64"`
	Review  *string   `json:"review" validate:"omitempty,max=5000"`
}

// Service manages media statuses and interactions.
type Service struct {
	db     *database.DB
	relay  outbox.Kicker
	logger zerolog.Logger
}

// NewService creates the media service.
func NewService(db *database.DB, relay outbox.Kicker) *Service {
	if relay == nil {
		relay = outbox.Nop{}
	}
	return &Service{db: db, relay: relay, logger: logging.WithComponent("media")}
}

// List returns userID's media statuses, most recently updated first. A
// non-empty status filters the list and must be valid.
func (s *Service) List(ctx context.Context, userID int64, status string) ([]*models.MediaStatus, error) {
	if status != "" && !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.db.ListMediaStatuses(ctx, userID, status)
}

// Save stores in for userID, replacing the existing row for the same media.
// An empty status means to_watch.
func (s *Service) Save(ctx context.Context, userID int64, in SaveInput) (*models.MediaStatus, error) {
	if in.Status == "" {
		in.Status = models.StatusToWatch
	}
	if !models.ValidStatus(in.Status) {
		return nil, ErrInvalidStatus
	}
	if !tmdb.ValidMediaType(in.MediaType) {
		return nil, ErrInvalidMediaType
	}
	if in.MediaID <= 0 || strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: media id and title are required", ErrInvalidInput)
	}

	var out *models.MediaStatus
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		m, err := q.FindMediaStatus(ctx, userID, in.MediaID, in.MediaType)
		switch {
		case errors.Is(err, database.ErrNotFound):
			m = &models.MediaStatus{UserID: userID, MediaID: in.MediaID, MediaType: in.MediaType}
		case err != nil:
			return fmt.Errorf("find media status: %w", err)
		}

		m.Title = strings.TrimSpace(in.Title)
		m.PosterPath = in.PosterPath
		m.Status = in.Status
		m.Season, m.Episode = in.Season, in.Episode
		m.Tags = cleanTags(in.Tags)
		m.Review = in.Review

		if m.ID == 0 {
			err = q.InsertMediaStatus(ctx, m)
		} else {
			err = q.UpdateMediaStatus(ctx, m)
		}
		if err != nil {
			return fmt.Errorf("save media status: %w", err)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus applies the non-nil fields of in to a row owned by userID.
func (s *Service) UpdateStatus(ctx context.Context, userID, id int64, in UpdateInput) (*models.MediaStatus, error) {
	if in.Status != nil && !models.ValidStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}

	var out *models.MediaStatus
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		m, err := q.GetMediaStatus(ctx, userID, id)
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load media status %d: %w", id, err)
		}
		if in.Status != nil {
			m.Status = *in.Status
		}
		if in.Season != nil {
			m.Season = in.Season
		}
		if in.Episode != nil {
			m.Episode = in.Episode
		}
		if in.Tags != nil {
			m.Tags = cleanTags(*in.Tags)
		}
		if in.Review != nil {
			m.Review = *in.Review
		}
		if err := q.UpdateMediaStatus(ctx, m); err != nil {
			return fmt.Errorf("update media status: %w", err)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a media status together with the user's events linked to
// the same media, their invites and the user's interactions with it. Owners
// and invitees of removed events get calendar_event_removed.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	removed := 0
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		m, err := q.GetMediaStatus(ctx, userID, id)
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load media status %d: %w", id, err)
		}

		events, err := q.ListEventsByMedia(ctx, userID, m.MediaID, m.MediaType)
		if err != nil {
			return fmt.Errorf("list linked events: %w", err)
		}
		var b outbox.Batch
		for _, e := range events {
			invites, err := q.ListInvitesByEvent(ctx, e.ID)
			if err != nil {
				return fmt.Errorf("list invites: %w", err)
			}
			payload := map[string]int64{"id": e.ID}
			for _, inv := range invites {
				b.Realtime(models.UserRoom(inv.UserID), models.EvtCalendarEventRemoved, payload)
			}
			b.Realtime(models.UserRoom(userID), models.EvtCalendarEventRemoved, payload)
		}

		if err := q.DeleteMediaStatus(ctx, m); err != nil {
			return fmt.Errorf("delete media status: %w", err)
		}
		removed = len(events)
		return b.Write(ctx, q)
	})
	if err != nil {
		return err
	}
	if removed > 0 {
		s.relay.Kick()
		s.logger.Debug().Int64("user_id", userID).Int("events", removed).Msg("removed events linked to deleted media")
	}
	return nil
}

// RecordInteraction appends a like or dislike. Repeats are stored; readers
// use the newest row per media.
func (s *Service) RecordInteraction(ctx context.Context, userID, mediaID int64, mediaType string, like bool) (*models.Interaction, error) {
	if !tmdb.ValidMediaType(mediaType) {
		return nil, ErrInvalidMediaType
	}
	if mediaID <= 0 {
		return nil, fmt.Errorf("%w: media id is required", ErrInvalidInput)
	}
	in := &models.Interaction{UserID: userID, MediaID: mediaID, MediaType: mediaType, Interaction: models.Dislike}
	if like {
		in.Interaction = models.Like
	}
	if err := s.db.InsertInteraction(ctx, in); err != nil {
		return nil, fmt.Errorf("record interaction: %w", err)
	}
	return in, nil
}

// Interactions returns every interaction row of userID, newest first.
func (s *Service) Interactions(ctx context.Context, userID int64) ([]*models.Interaction, error) {
	return s.db.ListInteractions(ctx, userID)
}

// LatestInteractions returns the newest interaction per media.
func (s *Service) LatestInteractions(ctx context.Context, userID int64) ([]*models.Interaction, error) {
	rows, err := s.db.ListInteractions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.LatestInteractions(rows), nil
}

// cleanTags trims tags and drops empty and repeated ones.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
