// internal/app/features/expenses/routes.go
package expenses

import (
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// ProjectRoutes is mounted under /projects/{projectID}/expenses.
func ProjectRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)
	r.Get("/summary", h.ServeSummary)
	return r
}

// Routes is mounted under /expenses.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/{expenseID}", h.ServeGet)
	r.Post("/{expenseID}/submit", h.ServeSubmit)
	r.Post("/{expenseID}/approve", h.ServeApprove)
	r.Post("/{expenseID}/reject", h.ServeReject)
	r.Post("/{expenseID}/comment", h.ServeComment)
	return r
}
