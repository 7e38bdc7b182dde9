// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

func TestPushChannelSend(t *testing.T) {
	var got pushPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPushChannel(config.PushConfig{Enabled: true, Endpoint: srv.URL, ServerKey: "secret"})
	err := p.SendPush(context.Background(), "device-1", models.PushNotification{
		Title: "Upcoming event", Body: "Dune starts in 15 minutes", Data: map[string]string{"eventId": "7"},
	})
	if err != nil {
		t.Fatalf("SendPush: %v", err)
	}
	if auth != "key=secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.To != "device-1" || got.Notification.Title != "Upcoming event" || got.Data["eventId"] != "7" {
		t.Errorf("payload = %+v", got)
	}
}

func TestPushChannelErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		code      string
		transient bool
	}{
		{http.StatusInternalServerError, ErrorCodeServerError, true},
		{http.StatusTooManyRequests, ErrorCodeRateLimited, true},
		{http.StatusNotFound, ErrorCodeRecipientNotFound, false},
		{http.StatusUnauthorized, ErrorCodeAuthFailed, false},
		{http.StatusBadRequest, ErrorCodeUnknown, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewPushChannel(config.PushConfig{Enabled: true, Endpoint: srv.URL})
			err := p.SendPush(context.Background(), "tok", models.PushNotification{Title: "x"})
			var de *Error
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if de.Code != tt.code || IsTransient(err) != tt.transient {
				t.Errorf("code = %s transient = %v, want %s %v", de.Code, IsTransient(err), tt.code, tt.transient)
			}
		})
	}
}

func TestPushChannelDisabledAndInvalid(t *testing.T) {
	p := NewPushChannel(config.PushConfig{Enabled: false})
	if err := p.SendPush(context.Background(), "tok", models.PushNotification{}); err != nil {
		t.Errorf("disabled channel err = %v", err)
	}

	p = NewPushChannel(config.PushConfig{Enabled: true, Endpoint: "ftp://push.example.com"})
	err := p.SendPush(context.Background(), "tok", models.PushNotification{})
	var de *Error
	if !errors.As(err, &de) || de.Code != ErrorCodeInvalidConfig {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
	p = NewPushChannel(config.PushConfig{Enabled: true, Endpoint: "https://push.example.com"})
	if err := p.SendPush(context.Background(), "", models.PushNotification{}); !errors.As(err, &de) ||
		de.Code != ErrorCodeInvalidRecipient {
		t.Errorf("empty token err = %v", err)
	}
}

func TestEmailBuildMessage(t *testing.T) {
	c := NewEmailChannel(config.SMTPConfig{From: "noreply@nextstream.app", FromName: "NextStream"})

	msg := c.buildMessage(models.EmailMessage{To: "a@example.com", Subject: "Today", HTML: "<p>Dune &amp; more</p>"})
	for _, want := range []string{
		"From: NextStream <noreply@nextstream.app>\r\n",
		"To: a@example.com\r\n",
		"Subject: Today\r\n",
		"multipart/alternative",
		"Content-Type: text/plain; charset=UTF-8",
		"Dune & more",
		"<p>Dune &amp; more</p>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}

	plain := c.buildMessage(models.EmailMessage{To: "a@example.com", Subject: "s", Text: "hello"})
	if strings.Contains(plain, "multipart") || !strings.HasSuffix(plain, "hello") {
		t.Errorf("plain message = %q", plain)
	}
}

func TestEmailValidation(t *testing.T) {
	c := NewEmailChannel(config.SMTPConfig{Enabled: true, Host: "smtp.example.com", Port: 587, From: "bad"})
	err := c.SendEmail(context.Background(), models.EmailMessage{To: "a@example.com"})
	var de *Error
	if !errors.As(err, &de) || de.Code != ErrorCodeInvalidConfig || de.Transient {
		t.Errorf("err = %v, want permanent INVALID_CONFIG", err)
	}
	err = c.SendEmail(context.Background(), models.EmailMessage{To: "nobody"})
	if !errors.As(err, &de) || de.Code != ErrorCodeInvalidRecipient {
		t.Errorf("err = %v, want INVALID_RECIPIENT", err)
	}
}

func TestClassifyEmailError(t *testing.T) {
	tests := map[string]string{
		"SMTP authentication failed: 535":        ErrorCodeAuthFailed,
		"failed to connect to SMTP server: nope": ErrorCodeConnectionFailed,
		"failed to set recipient: 550 mailbox":   ErrorCodeRecipientNotFound,
		"552 message size exceeds":               ErrorCodeContentTooLarge,
		"something odd":                          ErrorCodeUnknown,
	}
	for msg, want := range tests {
		if got := classifyEmailError(errors.New(msg)); got != want {
			t.Errorf("classify(%q) = %s, want %s", msg, got, want)
		}
	}
}

func TestHTMLToPlaintext(t *testing.T) {
	got := HTMLToPlaintext("<h1>Today</h1>\n<ul><li>Dune</li>\n<li>Heat &amp; Ronin</li></ul>")
	want := "Today\nDune\nHeat & Ronin"
	if got != want {
		t.Errorf("HTMLToPlaintext = %q, want %q", got, want)
	}
}

type fakeUsers map[int64]*models.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

type fakePusher struct {
	tokens []string
	err    error
}

func (f *fakePusher) SendPush(_ context.Context, token string, _ models.PushNotification) error {
	f.tokens = append(f.tokens, token)
	return f.err
}

type fakeEmailer struct {
	sent []models.EmailMessage
	err  error
}

func (f *fakeEmailer) SendEmail(_ context.Context, m models.EmailMessage) error {
	f.sent = append(f.sent, m)
	return f.err
}

func envelope(t *testing.T, topic string, userID int64, payload interface{}) *models.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return &models.Envelope{ID: 1, Topic: topic, UserID: userID, Payload: raw}
}

func TestForwarderPush(t *testing.T) {
	users := fakeUsers{
		1: {ID: 1, PushToken: "tok-1"},
		2: {ID: 2},
	}
	push := &fakePusher{}
	f := NewForwarder(users, &fakeEmailer{}, push)
	ctx := context.Background()

	for _, uid := range []int64{1, 2, 3} {
		if err := f.HandlePush(ctx, envelope(t, models.TopicPush, uid, models.PushNotification{Title: "x"})); err != nil {
			t.Errorf("HandlePush(%d): %v", uid, err)
		}
	}
	if len(push.tokens) != 1 || push.tokens[0] != "tok-1" {
		t.Errorf("pushed to %v, want only tok-1", push.tokens)
	}

	malformed := &models.Envelope{ID: 2, Topic: models.TopicPush, UserID: 1, Payload: []byte("{")}
	if err := f.HandlePush(ctx, malformed); err != nil {
		t.Errorf("malformed payload should be acked, got %v", err)
	}
}

func TestForwarderRetriesOnlyTransientFailures(t *testing.T) {
	users := fakeUsers{1: {ID: 1, PushToken: "tok"}}
	push := &fakePusher{}
	f := NewForwarder(users, &fakeEmailer{}, push)
	env := envelope(t, models.TopicPush, 1, models.PushNotification{Title: "x"})

	push.err = newError(channelPush, ErrorCodeServerError, errors.New("503"))
	if err := f.HandlePush(context.Background(), env); err == nil {
		t.Error("transient failure should be returned for retry")
	}
	push.err = newError(channelPush, ErrorCodeRecipientNotFound, errors.New("404"))
	if err := f.HandlePush(context.Background(), env); err != nil {
		t.Errorf("permanent failure should be acked, got %v", err)
	}
}

func TestForwarderEmailResolvesRecipient(t *testing.T) {
	users := fakeUsers{1: {ID: 1, Email: "alice@example.com"}}
	mail := &fakeEmailer{}
	f := NewForwarder(users, mail, &fakePusher{})
	ctx := context.Background()

	if err := f.HandleEmail(ctx, envelope(t, models.TopicEmail, 1, models.EmailMessage{Subject: "Picks"})); err != nil {
		t.Fatal(err)
	}
	if err := f.HandleEmail(ctx, envelope(t, models.TopicEmail, 1,
		models.EmailMessage{To: "other@example.com", Subject: "Direct"})); err != nil {
		t.Fatal(err)
	}
	if len(mail.sent) != 2 || mail.sent[0].To != "alice@example.com" || mail.sent[1].To != "other@example.com" {
		t.Errorf("sent = %+v", mail.sent)
	}
}
