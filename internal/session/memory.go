// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package session

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/nextstream/internal/models"
)

// MemoryStore keeps session memory in a map guarded by a mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	memories map[int64]*Memory
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		memories: make(map[int64]*Memory),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Displayed implements Store.
func (s *MemoryStore) Displayed(ctx context.Context, userID int64) (map[models.MediaKey]bool, error) {
	s.mu.RLock()
	m, ok := s.memories[userID]
	s.mu.RUnlock()

	if !ok || m.IsExpired(s.now()) {
		return map[models.MediaKey]bool{}, nil
	}
	return toSet(m.Displayed), nil
}

// Record implements Store.
func (s *MemoryStore) Record(ctx context.Context, userID int64, keys []models.MediaKey) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[userID]
	if !ok || m.IsExpired(now) {
		m = &Memory{UserID: userID}
		s.memories[userID] = m
	}
	m.Displayed = merge(m.Displayed, keys)
	m.UpdatedAt = now
	m.ExpiresAt = now.Add(s.ttl)
	return nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(ctx context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.memories, userID)
	s.mu.Unlock()
	return nil
}

// CleanupExpired implements Store.
func (s *MemoryStore) CleanupExpired(ctx context.Context) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, m := range s.memories {
		if m.IsExpired(now) {
			delete(s.memories, id)
			count++
		}
	}
	return count, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
