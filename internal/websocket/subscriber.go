// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package websocket

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/nextstream/internal/eventbus"
	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/models"
)

// Deliver emits a realtime envelope to its room. An envelope id already seen
// is dropped.
func (h *Hub) Deliver(ctx context.Context, env *models.Envelope) error {
	if env.Room == "" {
		h.logger.Warn().Int64("envelope_id", env.ID).Str("event", env.Event).Msg("realtime envelope without room")
		return nil
	}
	if env.ID > 0 && h.seen.IsDuplicate(strconv.FormatInt(env.ID, 10)) {
		metrics.WSDuplicatesDropped.Inc()
		return nil
	}
	return h.EmitToRoom(ctx, env.Room, env.Event, env.Payload)
}

// RegisterHandlers subscribes the hub to the realtime topic.
func (h *Hub) RegisterHandlers(r *eventbus.Router) {
	r.Handle("websocket-realtime", models.TopicRealtime, h.Deliver)
}

// ServeWS upgrades an authenticated request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h, conn, userID)
	h.Register <- client
	client.Start()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
