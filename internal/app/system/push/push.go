// Package push hands notifications to the push-delivery service over NATS.
//
// Subject convention: <prefix>.<notification type, lowercased>, e.g.
// notifications.expense_submitted.
//
// Publishing is non-fatal. Errors are logged and never returned, so a push
// outage never interrupts an approval or a delegation change.
package push

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher delivers already-persisted notifications to devices.
type Publisher interface {
	Publish(ctx context.Context, ns []models.Notification)
}

// Conn is the subset of *nats.Conn used here.
type Conn interface {
	PublishMsg(m *nats.Msg) error
}

// Event is the JSON document published per notification.
type Event struct {
	EventID          string    `json:"event_id"`
	NotificationID   string    `json:"notification_id"`
	Type             string    `json:"type"`
	RecipientID      string    `json:"recipient_id"`
	ProjectID        string    `json:"project_id,omitempty"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	RelatedID        string    `json:"related_id,omitempty"`
	NavigationTarget string    `json:"navigation_target"`
	CreatedAt        time.Time `json:"created_at"`
}

// NATSPublisher publishes one message per notification.
type NATSPublisher struct {
	conn   Conn
	prefix string
	log    *zap.Logger
}

// NewNATSPublisher returns a publisher on conn. An empty prefix defaults to
// "notifications".
func NewNATSPublisher(conn Conn, prefix string, log *zap.Logger) *NATSPublisher {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "notifications"
	}
	return &NATSPublisher{conn: conn, prefix: prefix, log: log}
}

// Subject returns the subject a notification of type t is published on.
func (p *NATSPublisher) Subject(t models.NotificationType) string {
	return p.prefix + "." + strings.ToLower(string(t))
}

// Publish sends each notification. It never fails.
func (p *NATSPublisher) Publish(ctx context.Context, ns []models.Notification) {
	if p == nil || p.conn == nil {
		return
	}
	for _, n := range ns {
		if ctx.Err() != nil {
			p.log.Warn("push: context ended before all notifications were published",
				zap.Int("remaining", len(ns)))
			return
		}
		ev := Event{
			EventID:          uuid.NewString(),
			NotificationID:   n.ID.Hex(),
			Type:             string(n.Type),
			RecipientID:      n.RecipientID.Hex(),
			Title:            n.Title,
			Message:          n.Message,
			RelatedID:        n.RelatedID,
			NavigationTarget: n.NavigationTarget,
			CreatedAt:        n.CreatedAt,
		}
		if n.ProjectID != nil {
			ev.ProjectID = n.ProjectID.Hex()
		}
		data, err := json.Marshal(ev)
		if err != nil {
			p.log.Warn("push: marshal event", zap.Error(err), zap.String("type", ev.Type))
			continue
		}
		msg := nats.NewMsg(p.Subject(n.Type))
		msg.Data = data
		msg.Header.Set("Nats-Msg-Id", ev.EventID)
		if err := p.conn.PublishMsg(msg); err != nil {
			p.log.Warn("push: publish failed (non-fatal)",
				zap.Error(err),
				zap.String("subject", msg.Subject),
				zap.String("recipient_id", ev.RecipientID))
			continue
		}
		p.log.Debug("push: event published",
			zap.String("subject", msg.Subject),
			zap.String("recipient_id", ev.RecipientID))
	}
}

// Nop drops every notification.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, []models.Notification) {}
