// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package cache

import (
	"sync"
	"time"
)

type seenEntry struct {
	key       string
	prev      *seenEntry
	next      *seenEntry
	expiresAt time.Time
}

// SeenSet is a bounded, TTL-limited set of keys for at-least-once delivery
// deduplication. When full, the least recently seen key is evicted.
//
// A doubly-linked list keeps recency order; head.next is the newest entry and
// tail.prev the oldest.
type SeenSet struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[string]*seenEntry
	head     *seenEntry
	tail     *seenEntry

	duplicates int64
}

// NewSeenSet creates a set holding at most capacity keys for ttl each.
func NewSeenSet(capacity int, ttl time.Duration) *SeenSet {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	s := &SeenSet{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*seenEntry, capacity),
		head:     &seenEntry{},
		tail:     &seenEntry{},
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

// IsDuplicate reports whether key was seen within the TTL. A key that was
// not seen is recorded, so the first call returns false and later calls
// return true.
func (s *SeenSet) IsDuplicate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.items[key]; ok {
		if !now.After(e.expiresAt) {
			s.moveToFront(e)
			s.duplicates++
			return true
		}
		s.remove(e)
	}

	e := &seenEntry{key: key, expiresAt: now.Add(s.ttl)}
	s.pushFront(e)
	s.items[key] = e
	for len(s.items) > s.capacity {
		s.remove(s.tail.prev)
	}
	return false
}

// Forget drops key so it may be delivered again.
func (s *SeenSet) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[key]; ok {
		s.remove(e)
	}
}

// Len returns the number of tracked keys, expired or not.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Duplicates returns how many duplicates were rejected.
func (s *SeenSet) Duplicates() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duplicates
}

// CleanupExpired walks from the oldest entry and removes expired keys.
func (s *SeenSet) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for e := s.tail.prev; e != s.head; {
		prev := e.prev
		if now.After(e.expiresAt) {
			s.remove(e)
			removed++
		}
		e = prev
	}
	return removed
}

// Callers hold s.mu for the helpers below.

func (s *SeenSet) pushFront(e *seenEntry) {
	e.prev = s.head
	e.next = s.head.next
	s.head.next.prev = e
	s.head.next = e
}

func (s *SeenSet) moveToFront(e *seenEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	s.pushFront(e)
}

func (s *SeenSet) remove(e *seenEntry) {
	if e == s.head || e == s.tail {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(s.items, e.key)
}
