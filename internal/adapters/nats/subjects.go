package natsadapter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Subject roots.
const (
	SubjectAppointments        = "appointments"
	SubjectAreas               = "areas"
	SubjectBookingsInvalidated = "bookings.invalidated"
	SubjectPush                = "notifications.push"
)

// streams are ensured by both the publisher and the subscriber.
var streams = []nats.StreamConfig{
	{
		Name:      "APPOINTMENTS",
		Subjects:  []string{SubjectAppointments + ".>"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	},
	{
		Name:      "AREAS",
		Subjects:  []string{SubjectAreas + ".>"},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	},
	{
		Name:      "BOOKINGS",
		Subjects:  []string{SubjectBookingsInvalidated + ".>"},
		Retention: nats.InterestPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	},
}

// ensureStreams creates the streams, or updates them in place when their
// configuration changed.
func ensureStreams(js nats.JetStreamContext) error {
	for i := range streams {
		cfg := streams[i]
		_, err := js.StreamInfo(cfg.Name)
		switch {
		case errors.Is(err, nats.ErrStreamNotFound):
			_, err = js.AddStream(&cfg)
		case err == nil:
			_, err = js.UpdateStream(&cfg)
		}
		if err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// msgID lets JetStream drop duplicates published within its window.
func msgID(kind, eventType, id string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", kind, eventType, id, at.UnixNano())
}

var tokenReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_", "\t", "_", "\n", "_")

// Token makes an id safe to use as a single subject token.
func Token(id string) string {
	if id == "" {
		return "_"
	}
	return tokenReplacer.Replace(id)
}

func appointmentSubject(eventType, userID string) string {
	return SubjectAppointments + "." + Token(eventType) + "." + Token(userID)
}

func areaSubject(eventType, providerID string) string {
	return SubjectAreas + "." + Token(eventType) + "." + Token(providerID)
}

func invalidatedSubject(providerID string) string {
	return SubjectBookingsInvalidated + "." + Token(providerID)
}

func pushSubject(userID string) string {
	return SubjectPush + "." + Token(userID)
}
