package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/bitechdev/ResourceSpec/pkg/logger"
)

// Sink receives audit events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Write(ctx context.Context, event *Event) error
	Close() error
}

// LogSink writes audit events to the structured log.
type LogSink struct{}

// NewLogSink creates a log-backed audit sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Write(ctx context.Context, event *Event) error {
	logger.Info("Audit %s.%s user=%s record=%v changed=%v",
		event.Resource, event.Operation, event.UserID, event.RecordID, event.Changed)
	return nil
}

func (s *LogSink) Close() error {
	return nil
}

// MemorySink collects audit events in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []*Event
}

// NewMemorySink creates an in-memory audit sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of the collected events.
func (s *MemorySink) Events() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *MemorySink) Close() error {
	return nil
}

// NATSSink publishes audit events as JSON to NATS subjects named
// <prefix>.<resource>.<operation>.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSSink connects to the NATS server and returns a sink. The
// default subject prefix is "audit".
func NewNATSSink(url, prefix string) (*NATSSink, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if prefix == "" {
		prefix = "audit"
	}

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("Audit NATS connection lost: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Audit NATS connection restored to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSSink{conn: conn, prefix: prefix}, nil
}

func (s *NATSSink) Write(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s.%s", s.prefix, event.Resource, event.Operation)
	return s.conn.Publish(subject, payload)
}

func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return err
	}
	return nil
}

var _ Sink = (*LogSink)(nil)
var _ Sink = (*MemorySink)(nil)
var _ Sink = (*NATSSink)(nil)
