// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package session

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

// stores returns both backends wired to the same fake clock.
func stores(t *testing.T, ttl time.Duration) (map[string]Store, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}

	mem := NewMemoryStore(ttl)
	mem.now = c.now

	bs, err := OpenBadgerStore("", ttl)
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	bs.now = c.now
	t.Cleanup(func() { _ = bs.Close() })

	return map[string]Store{"memory": mem, "badger": bs}, c
}

func TestStoreRecordAndDisplayed(t *testing.T) {
	all, _ := stores(t, time.Hour)
	ctx := context.Background()

	for name, s := range all {
		t.Run(name, func(t *testing.T) {
			first := []models.MediaKey{{ID: 603, Type: "movie"}, {ID: 1399, Type: "tv"}}
			if err := s.Record(ctx, 1, first); err != nil {
				t.Fatalf("Record: %v", err)
			}
			// 603 as tv is a different title from 603 as movie.
			if err := s.Record(ctx, 1, []models.MediaKey{{ID: 603, Type: "movie"}, {ID: 603, Type: "tv"}}); err != nil {
				t.Fatalf("Record: %v", err)
			}

			got, err := s.Displayed(ctx, 1)
			if err != nil {
				t.Fatalf("Displayed: %v", err)
			}
			if len(got) != 3 {
				t.Errorf("Displayed = %v, want 3 keys", got)
			}
			if !got[models.MediaKey{ID: 1399, Type: "tv"}] {
				t.Error("missing tv:1399")
			}

			other, err := s.Displayed(ctx, 2)
			if err != nil {
				t.Fatalf("Displayed(2): %v", err)
			}
			if len(other) != 0 {
				t.Errorf("user 2 sees user 1 memory: %v", other)
			}

			if err := s.Reset(ctx, 1); err != nil {
				t.Fatalf("Reset: %v", err)
			}
			got, _ = s.Displayed(ctx, 1)
			if len(got) != 0 {
				t.Errorf("Displayed after Reset = %v", got)
			}
		})
	}
}

func TestStoreExpiry(t *testing.T) {
	all, c := stores(t, time.Hour)
	ctx := context.Background()

	for _, s := range all {
		if err := s.Record(ctx, 7, []models.MediaKey{{ID: 1, Type: "movie"}}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	c.t = c.t.Add(2 * time.Hour)

	for name, s := range all {
		got, err := s.Displayed(ctx, 7)
		if err != nil {
			t.Fatalf("%s Displayed: %v", name, err)
		}
		if len(got) != 0 {
			t.Errorf("%s: expired memory still visible: %v", name, got)
		}
	}

	mem := all["memory"]
	n, err := mem.CleanupExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("memory CleanupExpired = %d, %v; want 1", n, err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(config.SessionConfig{Backend: "memory", TTL: time.Minute})
	if err != nil {
		t.Fatalf("New(memory): %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("New(memory) = %T", s)
	}

	s, err = New(config.SessionConfig{Backend: "badger"})
	if err != nil {
		t.Fatalf("New(badger): %v", err)
	}
	defer s.Close()
	if _, ok := s.(*BadgerStore); !ok {
		t.Errorf("New(badger) = %T", s)
	}

	if _, err := New(config.SessionConfig{Backend: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	k := models.MediaKey{ID: 42, Type: "tv"}
	got, ok := decodeKey(encodeKey(k))
	if !ok || got != k {
		t.Errorf("decodeKey(encodeKey(%v)) = %v, %v", k, got, ok)
	}
	if _, ok := decodeKey("garbage"); ok {
		t.Error("decodeKey accepted garbage")
	}
}
