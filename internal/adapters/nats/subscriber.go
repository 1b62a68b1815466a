package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/pkg/logging"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS and enables JetStream.
func NewSubscriber(url string) (*Subscriber, error) {
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
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeAreaEvents binds the area-revalidator consumer.
func (s *Subscriber) SubscribeAreaEvents(ctx context.Context, handler func(ctx context.Context, event *domain.AreaEvent) error) error {
	return subscribe(ctx, s, SubjectAreas+".>", "area-revalidator", handler)
}

// SubscribeAppointmentEvents binds the appointment-processor consumer.
func (s *Subscriber) SubscribeAppointmentEvents(ctx context.Context, handler func(ctx context.Context, event *domain.AppointmentEvent) error) error {
	return subscribe(ctx, s, SubjectAppointments+".>", "appointment-processor", handler)
}

// subscribe binds a durable push consumer that decodes JSON payloads into T.
// Undecodable messages are terminated; handler failures are redelivered up
// to MaxDeliver times.
func subscribe[T any](ctx context.Context, s *Subscriber, subject, durable string, handler func(context.Context, *T) error) error {
	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		var event T
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logging.FromContext(ctx).Warn("dropping undecodable event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &event); err != nil {
			logging.FromContext(ctx).Error("event handler failed", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
