// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package eventbus carries outbox envelopes to their consumers.

The default transport is watermill's in-process gochannel pub/sub. With
nats.enabled the bus uses NATS JetStream through watermill-nats instead, and
with nats.embedded a NATS server is started inside the process so single-node
deployments get durable delivery without external infrastructure.

Message UUIDs are outbox row ids, so a redelivered row keeps its identity and
consumers can drop duplicates.
*/
package eventbus

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/models"
)

// Bus bundles a publisher and subscriber over one transport.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	server     *EmbeddedServer
	logger     watermill.LoggerAdapter
	transport  string

	mu     sync.Mutex
	closed bool
}

// New creates the bus described by cfg.
func New(cfg *config.NATSConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if !cfg.Enabled {
		return NewInProcess(logger), nil
	}

	b := &Bus{logger: logger, transport: "nats"}
	url := cfg.URL
	if cfg.Embedded {
		srv, err := NewEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		b.server = srv
		url = srv.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("nextstream"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		b.shutdownServer()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			DurablePrefix: cfg.QueueGroup,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverAll(),
				natsgo.AckExplicit(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		b.shutdownServer()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	b.publisher, b.subscriber = pub, sub
	return b, nil
}

// NewInProcess creates a gochannel bus. Messages are lost on restart; the
// outbox table is the durable record.
func NewInProcess(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)
	return &Bus{publisher: ch, subscriber: ch, logger: logger, transport: "gochannel"}
}

// Transport names the active transport, gochannel or nats.
func (b *Bus) Transport() string { return b.transport }

// Subscriber exposes the subscriber for router handlers. Closing it is a
// no-op: a watermill router closes its subscribers when it stops, and the
// supervisor rebuilds routers over the same bus after a restart. Bus.Close
// releases the transport.
func (b *Bus) Subscriber() message.Subscriber { return sharedSubscriber{b.subscriber} }

type sharedSubscriber struct {
	message.Subscriber
}

func (sharedSubscriber) Close() error { return nil }

// Publisher exposes the raw publisher.
func (b *Bus) Publisher() message.Publisher { return b.publisher }

// PublishEnvelope publishes env on its topic with the outbox id as the
// message UUID.
func (b *Bus) PublishEnvelope(env *models.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope %d: %w", env.ID, err)
	}
	id := strconv.FormatInt(env.ID, 10)
	msg := message.NewMessage(id, data)
	msg.Metadata.Set(natsgo.MsgIdHdr, id)
	msg.Metadata.Set("event", env.Event)

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return fmt.Errorf("event bus is closed")
	}
	return b.publisher.Publish(env.Topic, msg)
}

// DecodeEnvelope parses a bus message produced by PublishEnvelope.
func DecodeEnvelope(msg *message.Message) (*models.Envelope, error) {
	var env models.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, fmt.Errorf("decode envelope %s: %w", msg.UUID, err)
	}
	return &env, nil
}

// Close closes the transport and the embedded server, if any.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var firstErr error
	if err := b.publisher.Close(); err != nil {
		firstErr = err
	}
	if b.transport == "nats" {
		if err := b.subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.shutdownServer()
	return firstErr
}

func (b *Bus) shutdownServer() {
	if b.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.server.Shutdown(ctx); err != nil {
		b.logger.Error("Embedded NATS shutdown failed", err, nil)
	}
}
