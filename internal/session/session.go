// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package session remembers which recommendations a user has already been
// shown so later requests do not repeat them. Memory expires after a TTL.
//
// Two backends are provided: an in-process map (default) and BadgerDB, which
// keeps the memory across restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/models"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("session store closed")

// Memory is the displayed-recommendation memory of one user.
type Memory struct {
	UserID    int64     `json:"user_id"`
	Displayed []string  `json:"displayed"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the memory has outlived its TTL.
func (m *Memory) IsExpired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

// Store is the injected session memory.
type Store interface {
	// Displayed returns the media keys already shown to userID.
	Displayed(ctx context.Context, userID int64) (map[models.MediaKey]bool, error)

	// Record appends keys to the user's memory and refreshes its TTL.
	Record(ctx context.Context, userID int64, keys []models.MediaKey) error

	// Reset forgets everything shown to userID.
	Reset(ctx context.Context, userID int64) error

	// CleanupExpired removes expired memories and returns how many.
	CleanupExpired(ctx context.Context) (int, error)

	Close() error
}

// New builds the store selected by cfg.Backend.
func New(cfg config.SessionConfig) (Store, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryStore(ttl), nil
	case "badger":
		return OpenBadgerStore(cfg.Path, ttl)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// encodeKey renders a media key as "type:id".
func encodeKey(k models.MediaKey) string {
	return k.Type + ":" + strconv.FormatInt(k.ID, 10)
}

func decodeKey(s string) (models.MediaKey, bool) {
	typ, id, ok := strings.Cut(s, ":")
	if !ok {
		return models.MediaKey{}, false
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return models.MediaKey{}, false
	}
	return models.MediaKey{ID: n, Type: typ}, true
}

// merge appends keys that are not already present, keeping order.
func merge(displayed []string, keys []models.MediaKey) []string {
	seen := make(map[string]bool, len(displayed)+len(keys))
	for _, k := range displayed {
		seen[k] = true
	}
	for _, k := range keys {
		s := encodeKey(k)
		if !seen[s] {
			seen[s] = true
			displayed = append(displayed, s)
		}
	}
	return displayed
}

func toSet(displayed []string) map[models.MediaKey]bool {
	out := make(map[models.MediaKey]bool, len(displayed))
	for _, s := range displayed {
		if k, ok := decodeKey(s); ok {
			out[k] = true
		}
	}
	return out
}
