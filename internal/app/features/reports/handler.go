// internal/app/features/reports/handler.go
package reports

import (
	expensestore "github.com/dalemusser/expensehub/internal/app/store/expenses"
	projectstore "github.com/dalemusser/expensehub/internal/app/store/projects"
	"github.com/dalemusser/expensehub/internal/app/system/approval"
	"go.uber.org/zap"
)

// Handler owns the project reports: the expense CSV export and the budget
// breakdown. Palette colors are handed out to departments in name order.
type Handler struct {
	Expenses *expensestore.Store
	Projects *projectstore.Store
	Tracker  *approval.Tracker
	Palette  []string
	Log      *zap.Logger
}

func NewHandler(expenses *expensestore.Store, projects *projectstore.Store, tracker *approval.Tracker, palette []string, logger *zap.Logger) *Handler {
	return &Handler{
		Expenses: expenses,
		Projects: projects,
		Tracker:  tracker,
		Palette:  palette,
		Log:      logger,
	}
}
