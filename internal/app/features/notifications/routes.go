// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /notifications.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Get("/unread-count", h.ServeUnreadCount)
	r.Get("/stream", h.ServeStream)
	r.Post("/read-all", h.ServeMarkAllRead)
	r.Post("/{notificationID}/read", h.ServeMarkRead)
	return r
}
