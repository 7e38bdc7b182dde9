// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package models

import "time"

// Media status workflow values. The column is a free string; the service
// enforces this set.
const (
	StatusToWatch   = "to_watch"
	StatusScheduled = "scheduled"
	StatusWatched   = "watched"
)

// ValidStatus reports whether s is one of the three workflow states.
func ValidStatus(s string) bool {
	switch s {
	case StatusToWatch, StatusScheduled, StatusWatched:
		return true
	}
	return false
}

// MediaStatus tracks one title in a user's lists.
type MediaStatus struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	MediaID    int64     `json:"mediaId"`
	MediaType  string    `json:"mediaType"`
	Title      string    `json:"title"`
	PosterPath string    `json:"posterPath,omitempty"`
	Status     string    `json:"status"`
	Season     *int      `json:"season,omitempty"`
	Episode    *int      `json:"episode,omitempty"`
	Tags       []string  `json:"tags"`
	Review     string    `json:"review,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Interaction values.
const (
	Dislike = 0
	Like    = 1
)

// Interaction is a like (1) or dislike (0). Rows are appended, never updated;
// readers use the most recent row per media.
type Interaction struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	MediaID     int64     `json:"mediaId"`
	MediaType   string    `json:"mediaType"`
	Interaction int       `json:"interaction"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MediaKey identifies a TMDB title across movie and tv id spaces.
type MediaKey struct {
	ID   int64
	Type string
}

// Key returns the media the interaction is about.
func (i *Interaction) Key() MediaKey {
	return MediaKey{ID: i.MediaID, Type: i.MediaType}
}

// Liked reports whether the interaction is a like.
func (i *Interaction) Liked() bool {
	return i.Interaction == Like
}

// LatestInteractions keeps the newest row per media from a newest-first
// list.
func LatestInteractions(rows []*Interaction) []*Interaction {
	seen := make(map[MediaKey]bool, len(rows))
	out := make([]*Interaction, 0, len(rows))
	for _, in := range rows {
		k := in.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, in)
	}
	return out
}
