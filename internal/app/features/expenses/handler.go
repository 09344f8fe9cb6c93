// internal/app/features/expenses/handler.go
package expenses

import (
	expensestore "github.com/dalemusser/expensehub/internal/app/store/expenses"
	projectstore "github.com/dalemusser/expensehub/internal/app/store/projects"
	"github.com/dalemusser/expensehub/internal/app/system/approval"
	"go.uber.org/zap"
)

// Handler serves expense entry and review. Every state change goes
// through the Tracker.
type Handler struct {
	Tracker  *approval.Tracker
	Expenses *expensestore.Store
	Projects *projectstore.Store
	Log      *zap.Logger
}

func NewHandler(tracker *approval.Tracker, expenses *expensestore.Store, projects *projectstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Tracker:  tracker,
		Expenses: expenses,
		Projects: projects,
		Log:      logger,
	}
}
