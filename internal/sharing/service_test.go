// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package sharing

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/outbox"
)

func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

type fixture struct {
	svc     *Service
	db      *database.DB
	owner   int64
	friend  int64
	friend2 int64
	other   int64
	eventID int64
}

func befriend(t *testing.T, db *database.DB, a, b int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.InsertFriendRequest(ctx, a, b); err != nil {
		t.Fatal(err)
	}
	if err := db.AcceptFriendship(ctx, a, b); err != nil {
		t.Fatal(err)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewTestDB(t)
	f := &fixture{
		svc:     NewService(db, outbox.Nop{}),
		db:      db,
		owner:   database.MustCreateUser(t, db, "owner"),
		friend:  database.MustCreateUser(t, db, "friend"),
		friend2: database.MustCreateUser(t, db, "friend2"),
		other:   database.MustCreateUser(t, db, "other"),
	}
	befriend(t, db, f.owner, f.friend)
	befriend(t, db, f.friend2, f.owner)

	e := &models.Event{
		UserID:    f.owner,
		Title:     "Dune",
		Start:     time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		EventType: models.EventTypeMovie,
	}
	if err := db.InsertEvent(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	f.eventID = e.ID
	return f
}

func (f *fixture) outbox(t *testing.T, topic, event string, userID int64) int {
	t.Helper()
	rows, err := f.db.PendingOutbox(context.Background(), 1000, 100)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, r := range rows {
		if r.Topic == topic && r.Event == event && r.Room == models.UserRoom(userID) {
			n++
		}
	}
	return n
}

func TestShareEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	views, err := f.svc.ShareEvent(ctx, f.eventID, f.owner, []int64{f.friend, f.friend2, f.friend})
	if err != nil {
		t.Fatalf("ShareEvent: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("views = %d, want 2", len(views))
	}
	for _, v := range views {
		if v.IsAccepted != nil || v.EventTitle != "Dune" || v.InviterName != "owner" {
			t.Errorf("view = %+v", v)
		}
		if v.Start != "2026-03-01T20:00:00Z" {
			t.Errorf("start = %s", v.Start)
		}
	}
	for _, uid := range []int64{f.friend, f.friend2} {
		if f.outbox(t, models.TopicRealtime, models.EvtReceiveCalendarInvite, uid) != 1 {
			t.Errorf("user %d missing receive_calendar_invite", uid)
		}
	}
}

func TestShareEventInviteUsesInviteeTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tz := "Asia/Tokyo"
	if err := f.db.UpdatePreferences(ctx, f.friend, models.Preferences{Timezone: &tz}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.ShareEvent(ctx, f.eventID, f.owner, []int64{f.friend}); err != nil {
		t.Fatalf("ShareEvent: %v", err)
	}

	rows, err := f.db.PendingOutbox(ctx, 1000, 100)
	if err != nil {
		t.Fatal(err)
	}
	var got *models.InviteView
	for _, r := range rows {
		if r.Event == models.EvtReceiveCalendarInvite && r.Room == models.UserRoom(f.friend) {
			got = &models.InviteView{}
			if err := json.Unmarshal(r.Payload, got); err != nil {
				t.Fatal(err)
			}
		}
	}
	if got == nil {
		t.Fatal("no receive_calendar_invite queued")
	}

	pending, err := f.svc.PendingInvites(ctx, f.friend, "")
	if err != nil || len(pending) != 1 {
		t.Fatalf("PendingInvites = %v, %v", pending, err)
	}
	if got.Start != "2026-03-02T05:00:00+09:00" || got.Start != pending[0].Start {
		t.Errorf("realtime start = %s, REST start = %s", got.Start, pending[0].Start)
	}
}

func TestShareEventRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		eventID int64
		caller  int64
		friends []int64
		want    error
	}{
		{"no friends", f.eventID, f.owner, nil, ErrNoFriends},
		{"not a friend", f.eventID, f.owner, []int64{f.other}, ErrNotFriends},
		{"mixed friend and stranger", f.eventID, f.owner, []int64{f.friend, f.other}, ErrNotFriends},
		{"self", f.eventID, f.owner, []int64{f.owner}, ErrNotFriends},
		{"not the owner", f.eventID, f.friend, []int64{f.owner}, ErrForbidden},
		{"missing event", 9999, f.owner, []int64{f.friend}, ErrEventNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.ShareEvent(ctx, tt.eventID, tt.caller, tt.friends); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	invites, err := f.db.ListInvitesByEvent(ctx, f.eventID)
	if err != nil {
		t.Fatal(err)
	}
	if len(invites) != 0 {
		t.Errorf("rejected shares left %d invites", len(invites))
	}
}

func TestShareEventPendingFriendRequestIsNotEnough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.db.InsertFriendRequest(ctx, f.owner, f.other); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.ShareEvent(ctx, f.eventID, f.owner, []int64{f.other}); !errors.Is(err, ErrNotFriends) {
		t.Errorf("err = %v, want ErrNotFriends", err)
	}
}

func TestShareEventAlreadyShared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.ShareEvent(ctx, f.eventID, f.owner, []int64{f.friend}); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.ShareEvent(ctx, f.eventID, f.owner, []int64{f.friend2, f.friend})
	if !errors.Is(err, ErrAlreadyShared) {
		t.Fatalf("err = %v, want ErrAlreadyShared", err)
	}
	if err.Error() != "already shared with some selected friends" {
		t.Errorf("message = %q", err.Error())
	}
	// The whole call is rejected, including friend2.
	if _, err := f.db.GetInviteFor(ctx, f.eventID, f.friend2); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("friend2 invite exists after rejected share: %v", err)
	}
}

func share(t *testing.T, f *fixture, friend int64) int64 {
	t.Helper()
	views, err := f.svc.ShareEvent(context.Background(), f.eventID, f.owner, []int64{friend})
	if err != nil {
		t.Fatal(err)
	}
	return views[0].ID
}

func TestAcceptInviteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inviteID := share(t, f, f.friend)

	resp, err := f.svc.RespondToInvite(ctx, f.friend, inviteID, true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !resp.Accepted || resp.Unchanged {
		t.Errorf("resp = %+v", resp)
	}
	resp, err = f.svc.RespondToInvite(ctx, f.friend, inviteID, true)
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if !resp.Unchanged {
		t.Error("second accept should be a no-op")
	}

	shared, err := f.svc.SharedEvents(ctx, f.friend, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(shared) != 1 || shared[0].Editable {
		t.Fatalf("SharedEvents = %+v, want one non-editable entry", shared)
	}
	if f.outbox(t, models.TopicRealtime, models.EvtCalendarInviteResponded, f.owner) != 1 {
		t.Error("inviter should get exactly one calendar_invite_responded")
	}
	if f.outbox(t, models.TopicRealtime, models.EvtCalendarEventUpdated, f.friend) != 1 {
		t.Error("invitee should get calendar_event_updated")
	}
}

func TestDeclineDeletesOnlyTheInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	declined := share(t, f, f.friend)
	kept := share(t, f, f.friend2)

	if _, err := f.svc.RespondToInvite(ctx, f.friend, declined, false); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, err := f.db.GetInvite(ctx, declined); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("declined invite still present: %v", err)
	}
	if _, err := f.db.GetInvite(ctx, kept); err != nil {
		t.Errorf("other invite removed: %v", err)
	}
	if _, err := f.db.GetEvent(ctx, f.eventID); err != nil {
		t.Errorf("event removed by decline: %v", err)
	}
	if f.outbox(t, models.TopicRealtime, models.EvtCalendarEventRemoved, f.friend) != 1 {
		t.Error("invitee should get calendar_event_removed")
	}
}

func TestDeclineAfterAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inviteID := share(t, f, f.friend)

	if _, err := f.svc.RespondToInvite(ctx, f.friend, inviteID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RespondToInvite(ctx, f.friend, inviteID, false); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("err = %v, want ErrAlreadyAnswered", err)
	}
	if _, err := f.db.GetInvite(ctx, inviteID); err != nil {
		t.Errorf("accepted invite removed: %v", err)
	}
}

func TestRespondToInviteOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inviteID := share(t, f, f.friend)

	if _, err := f.svc.RespondToInvite(ctx, f.friend2, inviteID, true); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.RespondToInvite(ctx, f.friend, 9999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPendingInvitesInTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	share(t, f, f.friend)

	pending, err := f.svc.PendingInvites(ctx, f.friend, "Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Start != "2026-03-02T05:00:00+09:00" || pending[0].InviterName != "owner" {
		t.Errorf("pending = %+v", pending[0])
	}

	if _, err := f.svc.RespondToInvite(ctx, f.friend, pending[0].ID, true); err != nil {
		t.Fatal(err)
	}
	pending, _ = f.svc.PendingInvites(ctx, f.friend, "")
	if len(pending) != 0 {
		t.Errorf("accepted invite still pending")
	}
}

func TestEventSharesAndRemoveShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := share(t, f, f.friend)
	share(t, f, f.friend2)
	if _, err := f.svc.RespondToInvite(ctx, f.friend, a, true); err != nil {
		t.Fatal(err)
	}

	shares, err := f.svc.EventShares(ctx, f.owner, f.eventID)
	if err != nil {
		t.Fatal(err)
	}
	status := map[int64]string{}
	for _, s := range shares {
		status[s.UserID] = s.Status
	}
	if status[f.friend] != StatusAccepted || status[f.friend2] != StatusPending {
		t.Errorf("statuses = %v", status)
	}
	if _, err := f.svc.EventShares(ctx, f.friend, f.eventID); !errors.Is(err, ErrForbidden) {
		t.Errorf("invitee listing shares err = %v, want ErrForbidden", err)
	}

	if err := f.svc.RemoveShare(ctx, f.friend, a); !errors.Is(err, ErrForbidden) {
		t.Errorf("invitee RemoveShare err = %v, want ErrForbidden", err)
	}
	if err := f.svc.RemoveShare(ctx, f.owner, a); err != nil {
		t.Fatalf("RemoveShare: %v", err)
	}
	if _, err := f.db.GetInvite(ctx, a); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("share still present: %v", err)
	}
	if f.outbox(t, models.TopicRealtime, models.EvtCalendarEventRemoved, f.friend) != 1 {
		t.Error("removed invitee should get calendar_event_removed")
	}
}
