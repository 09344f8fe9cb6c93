// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MeRoutes serves the signed-in user's own profile, mounted under /me.
func MeRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeMe)
	r.Patch("/preferences", h.ServePreferences)
	return r
}

// AdminRoutes serves user administration, mounted under /users.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)
	r.Post("/{userID}/role", h.ServeSetRole)
	r.Post("/{userID}/deactivate", h.ServeDeactivate)
	return r
}
