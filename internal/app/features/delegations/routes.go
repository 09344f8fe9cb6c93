// internal/app/features/delegations/routes.go
package delegations

import (
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// ProjectRoutes is mounted under /projects/{projectID}/delegations.
func ProjectRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Post("/", h.ServeAssign)
	r.Get("/active", h.ServeListActive)
	return r
}

// Routes is mounted under /delegations.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/mine", h.ServeListMine)
	r.Get("/{delegationID}", h.ServeGet)
	r.Post("/{delegationID}/accept", h.ServeAccept)
	r.Post("/{delegationID}/reject", h.ServeReject)
	r.Delete("/{delegationID}", h.ServeRemove)
	return r
}
