// internal/app/features/reports/budget.go
package reports

import (
	"context"
	"net/http"
	"sort"

	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/domain/models"
)

// ServeBudget handles GET /projects/{projectID}/reports/budget: approved
// spend against the project budget and each department allocation.
func (h *Handler) ServeBudget(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	projectID, err := respond.PathID(r, "projectID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	// Summary enforces visibility.
	s, err := h.Tracker.Summary(ctx, u, projectID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	p, err := h.Projects.GetByID(ctx, projectID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	respond.OK(w, BuildBudget(p, s, h.Palette))
}

// BuildBudget combines a project's allocations with its expense summary.
// Departments are listed by name; each gets the palette color at its
// position, wrapping around.
func BuildBudget(p *models.Project, s models.ExpenseSummary, palette []string) budgetReport {
	names := make(map[string]struct{}, len(p.DepartmentBudgets)+len(s.ByDepartment))
	for d := range p.DepartmentBudgets {
		names[d] = struct{}{}
	}
	for d := range s.ByDepartment {
		names[d] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for d := range names {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	rows := make([]departmentRow, 0, len(sorted))
	for i, d := range sorted {
		budget := p.DepartmentBudgets[d]
		approved := s.ByDepartment[d].Amount
		row := departmentRow{
			Department: d,
			Budget:     budget,
			Approved:   approved,
			Remaining:  budget - approved,
			Percent:    percent(approved, budget),
		}
		if len(palette) > 0 {
			row.Color = palette[i%len(palette)]
		}
		rows = append(rows, row)
	}

	approved := s.ByStatus[models.ExpenseApproved].Amount
	return budgetReport{
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Currency:    p.Currency,
		Budget:      p.Budget,
		Approved:    approved,
		Pending:     s.ByStatus[models.ExpensePending].Amount,
		Remaining:   p.Budget - approved,
		Departments: rows,
	}
}

func percent(part, whole int64) int {
	if whole <= 0 {
		return 0
	}
	return int(part * 100 / whole)
}
