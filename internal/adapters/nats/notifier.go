package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// PushMessage is the payload published for a push notification. A push
// gateway subscribed to notifications.push.> does the device delivery.
type PushMessage struct {
	UserID string    `json:"user_id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Time   time.Time `json:"time"`
}

// Notifier implements ports.NotificationService over core NATS.
type Notifier struct {
	conn *nats.Conn
	now  func() time.Time
}

// NewNotifier publishes on an existing connection.
func NewNotifier(conn *nats.Conn) *Notifier {
	return &Notifier{conn: conn, now: time.Now}
}

func (n *Notifier) SendPush(ctx context.Context, userID, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(PushMessage{UserID: userID, Title: title, Body: body, Time: n.now().UTC()})
	if err != nil {
		return err
	}
	if err := n.conn.Publish(pushSubject(userID), data); err != nil {
		return fmt.Errorf("push %s: %w", userID, err)
	}
	return nil
}
