// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package outbox

import (
	"context"
	"fmt"

	"github.com/tomtom215/nextstream/internal/models"
)

// Enqueuer is satisfied by *database.Queries inside WithTx.
type Enqueuer interface {
	Enqueue(ctx context.Context, entries ...models.OutboxEntry) error
}

// Batch collects the side effects of one transaction. The first payload
// encoding error is kept and returned by Write.
type Batch struct {
	entries []models.OutboxEntry
	err     error
}

// Realtime queues a websocket event for room.
func (b *Batch) Realtime(room, event string, payload interface{}) *Batch {
	b.add(models.NewRealtime(room, event, payload))
	return b
}

// Push queues a mobile push for userID.
func (b *Batch) Push(userID int64, n models.PushNotification) *Batch {
	b.add(models.NewPush(userID, n))
	return b
}

// Email queues an email for userID.
func (b *Batch) Email(userID int64, m models.EmailMessage) *Batch {
	b.add(models.NewEmail(userID, m))
	return b
}

func (b *Batch) add(e models.OutboxEntry, err error) {
	if err != nil {
		if b.err == nil {
			b.err = fmt.Errorf("encode outbox payload: %w", err)
		}
		return
	}
	b.entries = append(b.entries, e)
}

// Len returns the number of queued entries.
func (b *Batch) Len() int { return len(b.entries) }

// Entries returns the queued entries.
func (b *Batch) Entries() []models.OutboxEntry { return b.entries }

// Write inserts the queued entries through q.
func (b *Batch) Write(ctx context.Context, q Enqueuer) error {
	if b.err != nil {
		return b.err
	}
	if len(b.entries) == 0 {
		return nil
	}
	return q.Enqueue(ctx, b.entries...)
}
