// Package natssink publishes gatekeeper audit events to NATS as JSON.
package natssink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MrEthical07/gatekeeper"
)

// Publisher is the subset of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Config holds NATS connection settings.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string
	// Name identifies the connection on the server.
	Name string
	// Subject prefix. Each event goes to <Subject>.<event type>.
	Subject string

	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration

	Username string
	Password string
	Token    string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "gatekeeper-audit",
		Subject:       "gatekeeper.audit",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Sink implements gatekeeper.AuditSink.
type Sink struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	failed  atomic.Uint64
}

// Connect dials NATS and returns a sink that owns the connection.
func Connect(cfg Config, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("natssink: disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("natssink: reconnected", "url", c.ConnectedUrl())
		}),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	s := New(conn, cfg.Subject, logger)
	s.conn = conn
	return s, nil
}

// New wraps an existing publisher. The caller keeps ownership of pub.
func New(pub Publisher, subject string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	if subject == "" {
		subject = "gatekeeper.audit"
	}
	return &Sink{
		pub:     pub,
		subject: strings.TrimSuffix(subject, "."),
		logger:  logger,
	}
}

// Subject returns the subject event is published on.
func (s *Sink) Subject(event gatekeeper.AuditEvent) string {
	if event.EventType == "" {
		return s.subject + ".unknown"
	}
	return s.subject + "." + event.EventType
}

// Emit publishes event. Failures are counted and logged; audit delivery never blocks
// the request that produced the event.
func (s *Sink) Emit(ctx context.Context, event gatekeeper.AuditEvent) {
	if ctx.Err() != nil {
		s.failed.Add(1)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		s.logger.Warn("natssink: marshal event failed", "event_type", event.EventType, "error", err)
		return
	}
	if err := s.pub.Publish(s.Subject(event), data); err != nil {
		s.failed.Add(1)
		s.logger.Warn("natssink: publish failed", "event_type", event.EventType, "error", err)
	}
}

// Failed is the number of events that could not be published.
func (s *Sink) Failed() uint64 {
	return s.failed.Load()
}

// Close drains the connection if the sink opened it.
func (s *Sink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
