// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package media

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/outbox"
)

func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

func newService(t *testing.T) (*Service, *database.DB, int64) {
	t.Helper()
	db := database.NewTestDB(t)
	return NewService(db, outbox.Nop{}), db, database.MustCreateUser(t, db, "alice")
}

func TestSaveUpserts(t *testing.T) {
	s, _, uid := newService(t)
	ctx := context.Background()

	first, err := s.Save(ctx, uid, SaveInput{MediaID: 438631, MediaType: "movie", Title: "Dune",
		Tags: []string{" scifi ", "", "scifi", "epic"}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first.Status != models.StatusToWatch {
		t.Errorf("default status = %q", first.Status)
	}
	if !reflect.DeepEqual(first.Tags, []string{"scifi", "epic"}) {
		t.Errorf("tags = %v", first.Tags)
	}

	second, err := s.Save(ctx, uid, SaveInput{MediaID: 438631, MediaType: "movie", Title: "Dune",
		Status: models.StatusWatched, Review: "great"})
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a new row: %d != %d", second.ID, first.ID)
	}

	list, err := s.List(ctx, uid, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != models.StatusWatched || list[0].Review != "great" {
		t.Errorf("list = %+v", list)
	}
}

func TestSaveValidation(t *testing.T) {
	s, _, uid := newService(t)

	tests := []struct {
		name string
		in   SaveInput
		want error
	}{
		{"bad status", SaveInput{MediaID: 1, MediaType: "movie", Title: "x", Status: "abandoned"}, ErrInvalidStatus},
		{"bad media type", SaveInput{MediaID: 1, MediaType: "person", Title: "x"}, ErrInvalidMediaType},
		{"missing title", SaveInput{MediaID: 1, MediaType: "tv"}, ErrInvalidInput},
		{"missing id", SaveInput{MediaType: "tv", Title: "x"}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Save(context.Background(), uid, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestListFilter(t *testing.T) {
	s, _, uid := newService(t)
	ctx := context.Background()

	for i, st := range []string{models.StatusToWatch, models.StatusWatched, models.StatusToWatch} {
		if _, err := s.Save(ctx, uid, SaveInput{MediaID: int64(i + 1), MediaType: "tv", Title: "x", Status: st}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.List(ctx, uid, models.StatusToWatch)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("to_watch = %d, want 2", len(got))
	}
	if _, err := s.List(ctx, uid, "nope"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("bad filter err = %v", err)
	}
}

func TestUpdateStatusPartial(t *testing.T) {
	s, db, uid := newService(t)
	ctx := context.Background()
	other := database.MustCreateUser(t, db, "bob")

	saved, err := s.Save(ctx, uid, SaveInput{MediaID: 1399, MediaType: "tv", Title: "Game of Thrones", Review: "keep"})
	if err != nil {
		t.Fatal(err)
	}
	season, episode := 2, 5
	status := models.StatusScheduled
	got, err := s.UpdateStatus(ctx, uid, saved.ID, UpdateInput{Status: &status, Season: &season, Episode: &episode})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != status || *got.Season != 2 || *got.Episode != 5 || got.Review != "keep" {
		t.Errorf("updated = %+v", got)
	}

	bad := "finished"
	if _, err := s.UpdateStatus(ctx, uid, saved.ID, UpdateInput{Status: &bad}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("bad status err = %v", err)
	}
	if _, err := s.UpdateStatus(ctx, other, saved.ID, UpdateInput{Status: &status}); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign row err = %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	s, db, uid := newService(t)
	ctx := context.Background()
	friend := database.MustCreateUser(t, db, "bob")

	saved, err := s.Save(ctx, uid, SaveInput{MediaID: 438631, MediaType: "movie", Title: "Dune"})
	if err != nil {
		t.Fatal(err)
	}
	mediaID := int64(438631)
	linked := &models.Event{UserID: uid, Title: "Dune", Start: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		EventType: models.EventTypeMovie, MediaID: &mediaID, MediaType: "movie"}
	unrelated := &models.Event{UserID: uid, Title: "Other", Start: time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC),
		EventType: models.EventTypeMovie}
	for _, e := range []*models.Event{linked, unrelated} {
		if err := db.InsertEvent(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.InsertInvite(ctx, &models.CalendarInvite{EventID: linked.ID, UserID: friend, CreatedBy: uid}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordInteraction(ctx, uid, 438631, "movie", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordInteraction(ctx, uid, 550, "movie", true); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, uid, saved.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := db.GetEvent(ctx, linked.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("linked event survived: %v", err)
	}
	if _, err := db.GetEvent(ctx, unrelated.ID); err != nil {
		t.Errorf("unrelated event removed: %v", err)
	}
	if invs, _ := db.ListInvitesByEvent(ctx, linked.ID); len(invs) != 0 {
		t.Errorf("invites survived: %d", len(invs))
	}
	left, err := s.Interactions(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].MediaID != 550 {
		t.Errorf("interactions = %+v", left)
	}

	rows, err := db.PendingOutbox(ctx, 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	removed := 0
	for _, r := range rows {
		if r.Event == models.EvtCalendarEventRemoved {
			removed++
		}
	}
	if removed != 2 {
		t.Errorf("calendar_event_removed rows = %d, want 2 (owner and invitee)", removed)
	}

	if err := s.Delete(ctx, uid, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestInteractionsKeepDuplicates(t *testing.T) {
	s, _, uid := newService(t)
	ctx := context.Background()

	for _, like := range []bool{true, true, false} {
		if _, err := s.RecordInteraction(ctx, uid, 27205, "movie", like); err != nil {
			t.Fatal(err)
		}
	}
	all, err := s.Interactions(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("interactions = %d, want 3", len(all))
	}
	latest, err := s.LatestInteractions(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 1 || latest[0].Liked() {
		t.Errorf("latest = %+v, want one dislike", latest)
	}

	if _, err := s.RecordInteraction(ctx, uid, 1, "person", true); !errors.Is(err, ErrInvalidMediaType) {
		t.Errorf("bad type err = %v", err)
	}
}
