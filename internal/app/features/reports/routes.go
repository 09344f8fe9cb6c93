// internal/app/features/reports/routes.go
package reports

import (
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /projects/{projectID}/reports.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(rr chi.Router) {
		rr.Use(auth.RequireSignedIn)
		// Project membership and review authority are checked in the handlers.
		rr.Get("/expenses.csv", h.ServeExpensesCSV)
		rr.Get("/budget", h.ServeBudget)
	})

	return r
}
