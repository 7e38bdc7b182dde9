// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package websocket

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/nextstream/internal/cache"
	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/sharing"
	"github.com/tomtom215/nextstream/internal/social"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Inbound and hub-generated event names. Service-driven events use the
// models.Evt* names.
const (
	MessageTypeJoinRoom         = "join_room"
	MessageTypeLeaveRoom        = "leave_room"
	MessageTypeTyping           = "typing"
	MessageTypeStopTyping       = "stop_typing"
	MessageTypeSendMessage      = "send_message"
	MessageTypeRespondInvite    = "respond_calendar_invite"
	MessageTypeNewInvite        = "new_calendar_invite"
	MessageTypeNewFriendRequest = "new_friend_request"
	MessageTypeSync             = "sync"
	MessageTypeSyncComplete     = "sync_complete"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
)

const (
	deliveryBuffer = 1024
	handlerTimeout = 10 * time.Second
	replayTimeout  = 2 * time.Minute
	replayPoll     = 5 * time.Millisecond
	dedupCapacity  = 50000
)

// Message is one frame sent to a client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MessageService stores chat messages and replays them on sync.
type MessageService interface {
	Send(ctx context.Context, senderID, receiverID int64, text, clientID string) (*social.SendResult, error)
	Since(ctx context.Context, userID, seq int64) ([]*models.Message, error)
}

// InviteResponder answers calendar invites.
type InviteResponder interface {
	RespondToInvite(ctx context.Context, userID, inviteID int64, accepted bool) (*sharing.Response, error)
}

// delivery is one unit of work for the run loop. Exactly one of room or
// client is set.
type delivery struct {
	room   string
	client *Client
	except *Client
	msg    Message
}

type typingKey struct {
	room   string
	userID int64
}

// Hub owns every connection and room.
//
// Sends to client channels, closing them, and removal of clients happen only
// on the run loop goroutine. Room membership is guarded by mu so inbound
// handlers can join and leave rooms directly.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	deliveries chan delivery

	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	typingMu sync.Mutex
	typing   map[typingKey]*time.Timer

	messages      MessageService
	invites       InviteResponder
	seen          *cache.SeenSet
	typingTimeout time.Duration
	sendBuffer    int
	origins       []string
	logger        zerolog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithAllowedOrigins restricts the Origin header accepted on upgrade. An
// empty list accepts same-origin requests only.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) { h.origins = origins }
}

// NewHub creates a hub backed by the given services.
func NewHub(cfg config.WebSocketConfig, messages MessageService, invites InviteResponder, opts ...Option) *Hub {
	if cfg.TypingTimeout <= 0 {
		cfg.TypingTimeout = 3 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	h := &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		deliveries:    make(chan delivery, deliveryBuffer),
		clients:       make(map[*Client]bool),
		rooms:         make(map[string]map[*Client]bool),
		typing:        make(map[typingKey]*time.Timer),
		messages:      messages,
		invites:       invites,
		seen:          cache.NewSeenSet(dedupCapacity, cfg.DedupTTL),
		typingTimeout: cfg.TypingTimeout,
		sendBuffer:    cfg.SendBuffer,
		logger:        logging.WithComponent("websocket-hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RunWithContext processes registrations and deliveries until ctx is
// canceled, then closes every client.
//
// Shutdown is checked first, then client lifecycle events, then deliveries,
// so client state is consistent before any message is fanned out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case d := <-h.deliveries:
			h.fanOut(d)
		}
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

func (h *Hub) String() string { return "websocket-hub" }

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()
	h.stopAllTyping()

	h.logger.Info().
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.joinLocked(models.UserRoom(c.userID), c)
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	h.logger.Info().Int64("user_id", c.userID).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		h.dropLocked(c)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.stopTypingFor(c.userID)
		h.logger.Info().Int64("user_id", c.userID).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// dropLocked removes c from the hub and every room and closes its send
// channel. Callers hold mu and have checked that c is registered.
func (h *Hub) dropLocked(c *Client) {
	delete(h.clients, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
	metrics.WSConnections.Dec()
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range sortedClients(h.clients) {
		h.dropLocked(c)
	}
}

// connected reports whether c is still registered.
func (h *Hub) connected(c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[c]
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients that joined room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) joinLocked(room string, c *Client) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
}

// Join adds c to room if the join rule allows it.
func (h *Hub) Join(c *Client, room string) bool {
	if !CanJoin(c.userID, room) {
		return false
	}
	h.mu.Lock()
	h.joinLocked(room, c)
	h.mu.Unlock()
	return true
}

// Leave removes c from room. A client cannot leave its own user room.
func (h *Hub) Leave(c *Client, room string) {
	if room == models.UserRoom(c.userID) {
		return
	}
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
}

// CanJoin reports whether userID may join room: its own user room, or a
// chat room naming userID and one other user.
func CanJoin(userID int64, room string) bool {
	if room == models.UserRoom(userID) {
		return true
	}
	a, b, ok := ParseChatRoom(room)
	if !ok {
		return false
	}
	return a == userID || b == userID
}

// ParseChatRoom splits "low_high" into its two user ids.
func ParseChatRoom(room string) (low, high int64, ok bool) {
	left, right, found := strings.Cut(room, "_")
	if !found {
		return 0, 0, false
	}
	a, err := strconv.ParseInt(left, 10, 64)
	if err != nil || a <= 0 {
		return 0, 0, false
	}
	b, err := strconv.ParseInt(right, 10, 64)
	if err != nil || b <= 0 || a == b {
		return 0, 0, false
	}
	if a > b {
		a, b = b, a
	}
	return a, b, true
}

// targetsLocked returns the clients that should receive a message for room,
// each once, in id order. A chat room also reaches both users' rooms.
func (h *Hub) targetsLocked(room string) []*Client {
	set := make(map[*Client]bool)
	rooms := []string{room}
	if a, b, ok := ParseChatRoom(room); ok {
		rooms = append(rooms, models.UserRoom(a), models.UserRoom(b))
	}
	for _, r := range rooms {
		for c := range h.rooms[r] {
			set[c] = h.clients[c]
		}
	}
	return sortedClients(set)
}

func sortedClients(set map[*Client]bool) []*Client {
	out := make([]*Client, 0, len(set))
	for c, ok := range set {
		if ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// fanOut runs on the loop goroutine. Clients with a full buffer are dropped.
func (h *Hub) fanOut(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var targets []*Client
	if d.client != nil {
		if h.clients[d.client] {
			targets = []*Client{d.client}
		}
	} else {
		targets = h.targetsLocked(d.room)
	}

	for _, c := range targets {
		if c == d.except {
			continue
		}
		select {
		case c.send <- d.msg:
		default:
			metrics.WSErrors.WithLabelValues("slow_client").Inc()
			h.logger.Warn().Int64("user_id", c.userID).Str("event", d.msg.Type).Msg("send buffer full, dropping client")
			h.dropLocked(c)
		}
	}
}

// enqueue hands d to the run loop, waiting until ctx is done.
func (h *Hub) enqueue(ctx context.Context, d delivery) error {
	select {
	case h.deliveries <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tryEnqueue hands d to the run loop without blocking.
func (h *Hub) tryEnqueue(d delivery) {
	select {
	case h.deliveries <- d:
	default:
		metrics.WSErrors.WithLabelValues("backlog_full").Inc()
		h.logger.Warn().Str("event", d.msg.Type).Msg("delivery queue full, dropping message")
	}
}

// EmitToRoom queues event for every client in room.
func (h *Hub) EmitToRoom(ctx context.Context, room, event string, data interface{}) error {
	return h.enqueue(ctx, delivery{room: room, msg: Message{Type: event, Data: data}})
}

// reply queues a message for one client.
func (h *Hub) reply(c *Client, msg Message) {
	h.tryEnqueue(delivery{client: c, msg: msg})
}

// emitExcept queues a room message that skips one client.
func (h *Hub) emitExcept(room string, except *Client, msg Message) {
	h.tryEnqueue(delivery{room: room, except: except, msg: msg})
}
