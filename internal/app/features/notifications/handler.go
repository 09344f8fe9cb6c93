// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"time"

	notificationstore "github.com/dalemusser/expensehub/internal/app/store/notifications"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Streamer produces live notification snapshots for one user.
type Streamer interface {
	Stream(ctx context.Context, userID primitive.ObjectID) <-chan []models.Notification
}

// Handler serves the notification inbox and its live feed.
type Handler struct {
	Notifications *notificationstore.Store
	Feed          Streamer
	Log           *zap.Logger

	// KeepAlive is the interval between SSE comment lines on an idle stream.
	KeepAlive time.Duration
}

func NewHandler(store *notificationstore.Store, feed Streamer, logger *zap.Logger) *Handler {
	return &Handler{
		Notifications: store,
		Feed:          feed,
		Log:           logger,
		KeepAlive:     25 * time.Second,
	}
}
