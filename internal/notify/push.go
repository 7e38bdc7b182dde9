// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/models"
)

const channelPush = "push"

// PushChannel posts notifications to an HTTP push gateway.
type PushChannel struct {
	cfg    config.PushConfig
	client *http.Client
}

// PushOption configures a PushChannel.
type PushOption func(*PushChannel)

// WithPushHTTPClient replaces the HTTP client, for tests.
func WithPushHTTPClient(c *http.Client) PushOption {
	return func(p *PushChannel) { p.client = c }
}

// NewPushChannel creates a push channel.
func NewPushChannel(cfg config.PushConfig, opts ...PushOption) *PushChannel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &PushChannel{cfg: cfg, client: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// pushPayload is the gateway request body.
type pushPayload struct {
	To           string            `json:"to"`
	Notification pushContent       `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type pushContent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Validate checks the gateway configuration.
func (p *PushChannel) Validate() error {
	if p.cfg.Endpoint == "" {
		return fmt.Errorf("push endpoint is required")
	}
	u, err := url.Parse(p.cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid push endpoint: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("push endpoint must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("push endpoint must have a host")
	}
	return nil
}

// SendPush delivers n to token. A disabled channel logs and drops it.
func (p *PushChannel) SendPush(ctx context.Context, token string, n models.PushNotification) error {
	if !p.cfg.Enabled {
		logging.Debug().Str("title", n.Title).Msg("push disabled, notification dropped")
		return nil
	}
	err := p.send(ctx, token, n)
	metrics.RecordNotification(channelPush, err)
	return err
}

func (p *PushChannel) send(ctx context.Context, token string, n models.PushNotification) error {
	if token == "" {
		return newError(channelPush, ErrorCodeInvalidRecipient, fmt.Errorf("push token is required"))
	}
	if err := p.Validate(); err != nil {
		return newError(channelPush, ErrorCodeInvalidConfig, err)
	}

	body, err := json.Marshal(pushPayload{
		To:           token,
		Notification: pushContent{Title: n.Title, Body: n.Body},
		Data:         n.Data,
	})
	if err != nil {
		return newError(channelPush, ErrorCodeUnknown, fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return newError(channelPush, ErrorCodeUnknown, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "NextStream-Push/1.0")
	if p.cfg.ServerKey != "" {
		req.Header.Set("Authorization", "key="+p.cfg.ServerKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return newError(channelPush, classifyHTTPError(err), fmt.Errorf("failed to send push: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for keep-alive
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best effort detail
	return newError(channelPush, classifyHTTPStatusCode(resp.StatusCode),
		fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(snippet)))
}

func classifyHTTPError(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ErrorCodeTimeout
	}
	return ErrorCodeConnectionFailed
}

func classifyHTTPStatusCode(code int) string {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrorCodeAuthFailed
	case code == http.StatusNotFound || code == http.StatusGone:
		return ErrorCodeRecipientNotFound
	case code == http.StatusRequestEntityTooLarge:
		return ErrorCodeContentTooLarge
	case code == http.StatusTooManyRequests:
		return ErrorCodeRateLimited
	case code >= 500:
		return ErrorCodeServerError
	}
	return ErrorCodeUnknown
}
