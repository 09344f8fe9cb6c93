// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the project router, mounted under /projects.
// Per-project management rights are checked inside the handlers.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.With(auth.RequireRole(models.RoleAdmin)).Post("/", h.ServeCreate)

	r.Get("/{projectID}", h.ServeGet)
	r.Post("/{projectID}/budget", h.ServeSetBudget)
	r.Post("/{projectID}/members", h.ServeSetMembers)
	r.Post("/{projectID}/archive", h.ServeArchive)
	r.Put("/{projectID}/temporary-approver-phone", h.ServeSetTemporaryApproverPhone)

	return r
}
