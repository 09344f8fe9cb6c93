// internal/app/features/chats/routes.go
package chats

import (
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// ProjectRoutes is mounted under /projects/{projectID}/chats.
func ProjectRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Post("/", h.ServeOpen)
	return r
}

// Routes is mounted under /chats.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/{chatID}/messages", h.ServeMessages)
	r.With(ratelimit.Middleware(h.SendLimit)).Post("/{chatID}/messages", h.ServeSend)
	r.Post("/{chatID}/read", h.ServeMarkRead)
	return r
}
