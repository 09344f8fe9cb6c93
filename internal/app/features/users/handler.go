// internal/app/features/users/handler.go
package users

import (
	"context"

	userstore "github.com/dalemusser/expensehub/internal/app/store/users"
	"github.com/dalemusser/expensehub/internal/app/system/auditlog"
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.uber.org/zap"
)

// Notifier fans an event out to its recipients.
type Notifier interface {
	Dispatch(ctx context.Context, ev events.Event) ([]models.Notification, error)
}

// Handler serves the current user's profile and admin user management.
type Handler struct {
	Users  *userstore.Store
	Notify Notifier
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

func NewHandler(users *userstore.Store, notify Notifier, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:  users,
		Notify: notify,
		Audit:  audit,
		Log:    logger,
	}
}
