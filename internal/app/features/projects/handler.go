// internal/app/features/projects/handler.go
package projects

import (
	"context"

	projectstore "github.com/dalemusser/expensehub/internal/app/store/projects"
	userstore "github.com/dalemusser/expensehub/internal/app/store/users"
	"github.com/dalemusser/expensehub/internal/app/system/auditlog"
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Notifier fans an event out to its recipients.
type Notifier interface {
	Dispatch(ctx context.Context, ev events.Event) ([]models.Notification, error)
}

// Handler serves project administration and browsing.
type Handler struct {
	DB       *mongo.Database
	Projects *projectstore.Store
	Users    *userstore.Store
	Notify   Notifier
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, projects *projectstore.Store, users *userstore.Store, notify Notifier, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Projects: projects,
		Users:    users,
		Notify:   notify,
		Audit:    audit,
		Log:      logger,
	}
}

// dispatch sends ev and logs failures; the change it reports is already saved.
func (h *Handler) dispatch(ctx context.Context, ev events.Event) {
	if _, err := h.Notify.Dispatch(ctx, ev); err != nil {
		h.Log.Warn("project notification failed",
			zap.Error(err),
			zap.String("kind", string(ev.Kind)))
	}
}
