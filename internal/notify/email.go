// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/models"
)

const channelEmail = "email"

// EmailChannel delivers email over SMTP.
type EmailChannel struct {
	cfg     config.SMTPConfig
	timeout time.Duration
}

// NewEmailChannel creates an SMTP channel.
func NewEmailChannel(cfg config.SMTPConfig) *EmailChannel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EmailChannel{cfg: cfg, timeout: timeout}
}

// Validate checks the SMTP configuration.
func (c *EmailChannel) Validate() error {
	if c.cfg.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.cfg.Port <= 0 || c.cfg.Port > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", c.cfg.Port)
	}
	if err := ValidateEmail(c.cfg.From); err != nil {
		return fmt.Errorf("invalid SMTP from address: %w", err)
	}
	return nil
}

// SendEmail delivers msg. A disabled channel logs and drops the message.
func (c *EmailChannel) SendEmail(ctx context.Context, msg models.EmailMessage) error {
	if !c.cfg.Enabled {
		logging.Debug().Str("subject", msg.Subject).Msg("SMTP disabled, email dropped")
		return nil
	}
	err := c.send(ctx, msg)
	metrics.RecordNotification(channelEmail, err)
	return err
}

func (c *EmailChannel) send(ctx context.Context, msg models.EmailMessage) error {
	if err := ValidateEmail(msg.To); err != nil {
		return newError(channelEmail, ErrorCodeInvalidRecipient, err)
	}
	if err := c.Validate(); err != nil {
		return newError(channelEmail, ErrorCodeInvalidConfig, err)
	}
	if err := c.sendSMTP(ctx, msg.To, c.buildMessage(msg)); err != nil {
		return newError(channelEmail, classifyEmailError(err), err)
	}
	return nil
}

// buildMessage renders headers and a multipart/alternative body.
func (c *EmailChannel) buildMessage(m models.EmailMessage) string {
	fromName := c.cfg.FromName
	if fromName == "" {
		fromName = "NextStream"
	}
	text := m.Text
	if text == "" && m.HTML != "" {
		text = HTMLToPlaintext(m.HTML)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", fromName, c.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", m.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")

	if m.HTML == "" {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(text)
		return msg.String()
	}

	boundary := "nextstream_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(text)
	msg.WriteString("\r\n")
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.WriteString(m.HTML)
	msg.WriteString("\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.String()
}

func (c *EmailChannel) sendSMTP(ctx context.Context, to, msg string) error {
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // best effort cleanup
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // best effort
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.timeout)) //nolint:errcheck // best effort
	}

	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }() //nolint:errcheck // best effort cleanup

	if c.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: c.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if c.cfg.Username != "" && c.cfg.Password != "" {
		auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err := client.Mail(c.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}
	// The message is accepted once DATA closes; a failed QUIT changes nothing.
	_ = client.Quit() //nolint:errcheck // see above
	return nil
}

// classifyEmailError maps an SMTP error to an error code.
func classifyEmailError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorCodeTimeout
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "authentication"):
		return ErrorCodeAuthFailed
	case strings.Contains(errStr, "connect"):
		return ErrorCodeConnectionFailed
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return ErrorCodeTimeout
	case strings.Contains(errStr, "recipient") || strings.Contains(errStr, "mailbox"):
		return ErrorCodeRecipientNotFound
	case strings.Contains(errStr, "rate") || strings.Contains(errStr, "limit"):
		return ErrorCodeRateLimited
	case strings.Contains(errStr, "too large") || strings.Contains(errStr, "size"):
		return ErrorCodeContentTooLarge
	}
	return ErrorCodeUnknown
}
