// Package dispatch turns domain events into persisted notifications.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/app/system/navtarget"
	"github.com/dalemusser/expensehub/internal/app/system/push"
	"github.com/dalemusser/expensehub/internal/app/system/recipients"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// WriteError reports that notifications could not be persisted.
type WriteError struct {
	Kind  models.NotificationType
	Count int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("dispatch %s: write %d notifications: %v", e.Kind, e.Count, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// UserLookup loads recipients so their preferences can be honored.
type UserLookup interface {
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

// NotificationWriter persists notifications and assigns their ids.
type NotificationWriter interface {
	InsertMany(ctx context.Context, ns []models.Notification) ([]models.Notification, error)
}

// Dispatcher resolves, persists and pushes notifications for events.
type Dispatcher struct {
	users  UserLookup
	writer NotificationWriter
	push   push.Publisher
	log    *zap.Logger
	now    func() time.Time
}

// New builds a Dispatcher. A nil publisher disables push.
func New(users UserLookup, writer NotificationWriter, pub push.Publisher, log *zap.Logger) *Dispatcher {
	if pub == nil {
		pub = push.Nop{}
	}
	return &Dispatcher{users: users, writer: writer, push: pub, log: log, now: time.Now}
}

// Dispatch notifies everyone the event concerns and returns the stored
// notifications. Recipients that are inactive or have muted the type are
// skipped. Push failures are logged only.
func (d *Dispatcher) Dispatch(ctx context.Context, ev events.Event) ([]models.Notification, error) {
	rs := recipients.Resolve(ev)
	if len(rs) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, len(rs))
	for i, r := range rs {
		ids[i] = r.UserID
	}
	users, err := d.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: load recipients: %w", ev.Kind, err)
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	kept := rs[:0]
	pushTo := make(map[primitive.ObjectID]bool, len(rs))
	for _, r := range rs {
		u, ok := byID[r.UserID]
		if !ok || !u.IsActive || !u.Preferences.Wants(ev.Kind) {
			continue
		}
		kept = append(kept, r)
		pushTo[r.UserID] = u.Preferences.PushEnabled
	}
	if len(kept) == 0 {
		return nil, nil
	}

	ns := Build(ev, kept, d.now())
	stored, err := d.writer.InsertMany(ctx, ns)
	if err != nil {
		return nil, &WriteError{Kind: ev.Kind, Count: len(ns), Err: err}
	}

	var pushed []models.Notification
	for _, n := range stored {
		if pushTo[n.RecipientID] {
			pushed = append(pushed, n)
		}
	}
	if len(pushed) > 0 {
		d.push.Publish(ctx, pushed)
	}

	d.log.Debug("notifications dispatched",
		zap.String("type", string(ev.Kind)),
		zap.Int("stored", len(stored)),
		zap.Int("pushed", len(pushed)))
	return stored, nil
}

// Build constructs one unread notification per recipient. It performs no I/O.
func Build(ev events.Event, rs []recipients.Recipient, now time.Time) []models.Notification {
	if len(rs) == 0 {
		return nil
	}
	title, message := Describe(ev)
	target := Target(ev)
	related := relatedID(ev)
	pid := ev.ProjectID()
	var actor *primitive.ObjectID
	if ev.Actor != nil {
		id := ev.Actor.ID
		actor = &id
	}

	out := make([]models.Notification, 0, len(rs))
	for _, r := range rs {
		out = append(out, models.Notification{
			RecipientID:      r.UserID,
			RecipientRole:    r.Role,
			ProjectID:        pid,
			Type:             ev.Kind,
			Title:            title,
			Message:          message,
			RelatedID:        related,
			NavigationTarget: target,
			ActorID:          actor,
			CreatedAt:        now.UTC(),
		})
	}
	return out
}

// Target returns the navigation target recipients open for ev. When the
// entity a kind normally points at is missing, the target falls back to the
// most specific entity the event does carry. An event carrying none gets an
// empty target rather than a route with an empty id.
func Target(ev events.Event) string {
	switch ev.Kind {
	case models.NotifyExpenseSubmitted:
		if pid := ev.ProjectID(); pid != nil {
			return navtarget.Build(navtarget.PendingApprovals, pid.Hex())
		}
	case models.NotifyExpenseApproved, models.NotifyExpenseRejected:
		if pid := ev.ProjectID(); pid != nil {
			return navtarget.Build(navtarget.ExpenseList, pid.Hex())
		}
	case models.NotifyExpenseComment:
		if ev.Expense != nil {
			return navtarget.Build(navtarget.ExpenseDetail, ev.Expense.ID.Hex())
		}
	case models.NotifyProjectAssigned, models.NotifyProjectRemoved,
		models.NotifyProjectArchived, models.NotifyBudgetThreshold:
		if pid := ev.ProjectID(); pid != nil {
			return navtarget.Build(navtarget.ProjectDetail, pid.Hex())
		}
	case models.NotifyDelegationAssigned, models.NotifyDelegationAccepted,
		models.NotifyDelegationRejected, models.NotifyDelegationExpired, models.NotifyDelegationRemoved:
		if ev.Delegation != nil {
			return navtarget.Build(navtarget.DelegationDetail, ev.Delegation.ID.Hex())
		}
	case models.NotifyChatMessage:
		if ev.Chat != nil {
			return navtarget.Build(navtarget.Chat, ev.Chat.ID.Hex())
		}
	case models.NotifyRoleChanged:
		if ev.Subject != nil {
			return navtarget.Build(navtarget.Profile, ev.Subject.ID.Hex())
		}
	}
	return fallbackTarget(ev)
}

func fallbackTarget(ev events.Event) string {
	switch {
	case ev.Expense != nil:
		return navtarget.Build(navtarget.ExpenseDetail, ev.Expense.ID.Hex())
	case ev.Delegation != nil:
		return navtarget.Build(navtarget.DelegationDetail, ev.Delegation.ID.Hex())
	case ev.Chat != nil:
		return navtarget.Build(navtarget.Chat, ev.Chat.ID.Hex())
	case ev.ProjectID() != nil:
		return navtarget.Build(navtarget.ProjectDetail, ev.ProjectID().Hex())
	case ev.Subject != nil:
		return navtarget.Build(navtarget.Profile, ev.Subject.ID.Hex())
	}
	return ""
}

func relatedID(ev events.Event) string {
	switch {
	case ev.Expense != nil:
		return ev.Expense.ID.Hex()
	case ev.Delegation != nil:
		return ev.Delegation.ID.Hex()
	case ev.Chat != nil:
		return ev.Chat.ID.Hex()
	case ev.Project != nil:
		return ev.Project.ID.Hex()
	}
	return ""
}
