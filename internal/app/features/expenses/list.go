// internal/app/features/expenses/list.go
package expenses

import (
	"context"
	"net/http"
	"time"

	expensestore "github.com/dalemusser/expensehub/internal/app/store/expenses"
	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/normalize"
	"github.com/dalemusser/expensehub/internal/app/system/paging"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const dateLayout = "2006-01-02"

// ParseFilter reads the status, department, submitter and from/to query
// parameters shared by the expense list and the CSV export. Dates are
// YYYY-MM-DD; to includes the whole day.
func ParseFilter(r *http.Request, projectID primitive.ObjectID) (expensestore.ListFilter, error) {
	f := expensestore.ListFilter{ProjectID: projectID}

	if s := query.Get(r, "status"); s != "" {
		st := models.ExpenseStatus(s)
		if !st.Valid() {
			return f, apperr.Invalid("unknown status " + s)
		}
		f.Status = st
	}
	f.Department = normalize.Department(query.Get(r, "department"))

	if s := query.Get(r, "submitter"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return f, apperr.Invalid("invalid submitter")
		}
		f.SubmitterID = &id
	}

	if s := query.Get(r, "from"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, apperr.Invalid("from must be YYYY-MM-DD")
		}
		f.From = &t
	}
	if s := query.Get(r, "to"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, apperr.Invalid("to must be YYYY-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, apperr.Invalid("to must not be before from")
	}
	return f, nil
}

// ServeList handles GET /projects/{projectID}/expenses. Reviewers see every
// expense on the project; other members see only their own.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	projectID, err := respond.PathID(r, "projectID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	f, err := ParseFilter(r, projectID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Projects.GetByID(ctx, projectID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	authority, err := h.Tracker.ReviewAuthority(ctx, u, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	switch {
	case authority.Allowed:
	case p.HasMember(u.ID):
		f.SubmitterID = &u.ID
	default:
		respond.Error(w, r, h.Log, apperr.ErrForbidden)
		return
	}

	rows, next, err := h.Expenses.List(ctx, f, paging.ParseAfter(r), paging.ParseLimit(r))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, paging.Page[models.Expense]{Items: rows, NextCursor: next})
}

// ServeSummary handles GET /projects/{projectID}/expenses/summary.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	projectID, err := respond.PathID(r, "projectID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	s, err := h.Tracker.Summary(ctx, u, projectID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, s)
}
