// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/expensehub/internal/app/store/audit"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
// Each value is one of "all" (MongoDB + zap), "db" (MongoDB only),
// "log" (zap only) or "off".
type Config struct {
	// Approval covers expense submissions and review decisions.
	Approval string
	// Delegation covers temporary approver assignment, responses and expiry.
	Delegation string
	// Admin covers role changes, deactivation and project administration.
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.ProjectID != nil {
		fields = append(fields, zap.String("project_id", event.ProjectID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", event.SubjectID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so services can run without auditing in tests.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryApproval:
		setting = l.config.Approval
	case audit.CategoryDelegation:
		setting = l.config.Delegation
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}

	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func idPtr(id primitive.ObjectID) *primitive.ObjectID {
	if id.IsZero() {
		return nil
	}
	return &id
}

// --- Approval Events ---

// ExpenseSubmitted logs a DRAFT -> PENDING transition.
func (l *Logger) ExpenseSubmitted(ctx context.Context, actor primitive.ObjectID, e *models.Expense) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryApproval,
		EventType: audit.EventExpenseSubmitted,
		ProjectID: idPtr(e.ProjectID),
		ActorID:   idPtr(actor),
		UserID:    idPtr(e.SubmitterID),
		SubjectID: e.ID.Hex(),
		Success:   true,
		Details: map[string]string{
			"amount":     models.FormatAmount(e.Amount),
			"department": e.Department,
		},
	})
}

// ExpenseDecided logs an approval or rejection.
func (l *Logger) ExpenseDecided(ctx context.Context, actor primitive.ObjectID, e *models.Expense, viaDelegation bool) {
	eventType := audit.EventExpenseApproved
	if e.Status == models.ExpenseRejected {
		eventType = audit.EventExpenseRejected
	}
	details := map[string]string{
		"amount": models.FormatAmount(e.Amount),
	}
	if viaDelegation {
		details["via"] = "delegation"
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryApproval,
		EventType: eventType,
		ProjectID: idPtr(e.ProjectID),
		ActorID:   idPtr(actor),
		UserID:    idPtr(e.SubmitterID),
		SubjectID: e.ID.Hex(),
		Success:   true,
		Details:   details,
	})
}

// ReviewDenied logs a review attempt by someone without authority.
func (l *Logger) ReviewDenied(ctx context.Context, actor primitive.ObjectID, e *models.Expense, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryApproval,
		EventType:     audit.EventReviewDenied,
		ProjectID:     idPtr(e.ProjectID),
		ActorID:       idPtr(actor),
		SubjectID:     e.ID.Hex(),
		Success:       false,
		FailureReason: reason,
	})
}

// --- Delegation Events ---

// Delegation logs a change to a temporary approver record. eventType is one
// of the audit.EventDelegation* constants; actor is nil for expiry.
func (l *Logger) Delegation(ctx context.Context, eventType string, actor primitive.ObjectID, d *models.TemporaryApprover) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryDelegation,
		EventType: eventType,
		ProjectID: idPtr(d.ProjectID),
		ActorID:   idPtr(actor),
		UserID:    idPtr(d.ApproverID),
		SubjectID: d.ID.Hex(),
		Success:   true,
		Details: map[string]string{
			"status":        string(d.Status),
			"expiring_date": d.ExpiringDate.UTC().Format("2006-01-02T15:04:05Z"),
		},
	})
}

// --- Admin Events ---

// RoleChanged logs a role assignment.
func (l *Logger) RoleChanged(ctx context.Context, actor, user primitive.ObjectID, from, to models.Role) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventRoleChanged,
		ActorID:   idPtr(actor),
		UserID:    idPtr(user),
		Success:   true,
		Details: map[string]string{
			"from": string(from),
			"to":   string(to),
		},
	})
}

// UserDeactivated logs a soft delete.
func (l *Logger) UserDeactivated(ctx context.Context, actor, user primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserDeactivated,
		ActorID:   idPtr(actor),
		UserID:    idPtr(user),
		Success:   true,
	})
}

// Project logs a project administration change.
func (l *Logger) Project(ctx context.Context, eventType string, actor primitive.ObjectID, p *models.Project, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ProjectID: idPtr(p.ID),
		ActorID:   idPtr(actor),
		SubjectID: p.ID.Hex(),
		Success:   true,
		Details:   details,
	})
}
