package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishAppointmentEvent publishes on appointments.<type>.<user>.
func (p *Publisher) PublishAppointmentEvent(ctx context.Context, event *domain.AppointmentEvent) error {
	return p.publish(ctx, appointmentSubject(event.Type, event.UserID),
		msgID("appointment", event.Type, event.ID, event.Time), event)
}

// PublishAreaEvent publishes on areas.<type>.<provider>.
func (p *Publisher) PublishAreaEvent(ctx context.Context, event *domain.AreaEvent) error {
	return p.publish(ctx, areaSubject(event.Type, event.ProviderID),
		msgID("area", event.Type, event.ProviderID, event.Time), event)
}

// PublishBookingsInvalidated publishes on bookings.invalidated.<provider>.
func (p *Publisher) PublishBookingsInvalidated(ctx context.Context, event *domain.BookingsInvalidated) error {
	return p.publish(ctx, invalidatedSubject(event.ProviderID),
		msgID("invalidated", "", event.ProviderID, event.Time), event)
}

func (p *Publisher) publish(ctx context.Context, subject, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx), nats.MsgId(id)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Conn exposes the underlying connection for core NATS publishers.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn opens a core NATS connection that reconnects forever.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("mobilebook"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
