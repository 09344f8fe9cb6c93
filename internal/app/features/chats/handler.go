// internal/app/features/chats/handler.go
package chats

import (
	"context"

	chatstore "github.com/dalemusser/expensehub/internal/app/store/chats"
	projectstore "github.com/dalemusser/expensehub/internal/app/store/projects"
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/app/system/ratelimit"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.uber.org/zap"
)

// Notifier fans an event out to its recipients.
type Notifier interface {
	Dispatch(ctx context.Context, ev events.Event) ([]models.Notification, error)
}

// Handler serves 1:1 project chats.
type Handler struct {
	Chats    *chatstore.Store
	Projects *projectstore.Store
	Notify   Notifier
	Log      *zap.Logger

	// SendLimit throttles message sends per user; nil disables it.
	SendLimit *ratelimit.Limiter
}

func NewHandler(chats *chatstore.Store, projects *projectstore.Store, notify Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		Chats:    chats,
		Projects: projects,
		Notify:   notify,
		Log:      logger,
	}
}
