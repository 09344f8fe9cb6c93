// internal/app/features/expenses/expense.go
package expenses

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/approval"
	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Category    string `json:"category"`
	Department  string `json:"department"`
	Description string `json:"description"`
	ReceiptURL  string `json:"receipt_url"`
	ExpenseDate string `json:"expense_date"` // YYYY-MM-DD, defaults to today
	Submit      bool   `json:"submit"`
}

// ServeCreate handles POST /projects/{projectID}/expenses.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	projectID, err := respond.PathID(r, "projectID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var req createRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var expenseDate time.Time
	if req.ExpenseDate != "" {
		expenseDate, err = time.Parse(dateLayout, req.ExpenseDate)
		if err != nil {
			respond.Error(w, r, h.Log, apperr.Invalid("expense_date must be YYYY-MM-DD"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := h.Tracker.Create(ctx, u, approval.Draft{
		ProjectID:   projectID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Department:  req.Department,
		Description: req.Description,
		ReceiptURL:  req.ReceiptURL,
		ExpenseDate: expenseDate,
		Submit:      req.Submit,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, e)
}

// ServeGet handles GET /expenses/{expenseID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, u *models.User, id primitive.ObjectID) (*models.Expense, error) {
		return h.Tracker.Get(ctx, u, id)
	})
}

// ServeSubmit handles POST /expenses/{expenseID}/submit.
func (h *Handler) ServeSubmit(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, u *models.User, id primitive.ObjectID) (*models.Expense, error) {
		return h.Tracker.Submit(ctx, u, id)
	})
}

type decisionRequest struct {
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
}

// ServeApprove handles POST /expenses/{expenseID}/approve with an optional comment.
func (h *Handler) ServeApprove(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeOptional(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.act(w, r, func(ctx context.Context, u *models.User, id primitive.ObjectID) (*models.Expense, error) {
		return h.Tracker.Approve(ctx, u, id, req.Comment)
	})
}

// ServeReject handles POST /expenses/{expenseID}/reject. A reason is required.
func (h *Handler) ServeReject(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = req.Comment
	}
	h.act(w, r, func(ctx context.Context, u *models.User, id primitive.ObjectID) (*models.Expense, error) {
		return h.Tracker.Reject(ctx, u, id, reason)
	})
}

type commentRequest struct {
	Text string `json:"text"`
}

// ServeComment handles POST /expenses/{expenseID}/comment.
func (h *Handler) ServeComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.act(w, r, func(ctx context.Context, u *models.User, id primitive.ObjectID) (*models.Expense, error) {
		return h.Tracker.Comment(ctx, u, id, req.Text)
	})
}

// act resolves the expense id and current user, runs fn and writes its result.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, fn func(context.Context, *models.User, primitive.ObjectID) (*models.Expense, error)) {
	u, _ := auth.CurrentUser(r)
	id, err := respond.PathID(r, "expenseID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := fn(ctx, u, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, e)
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return respond.Decode(r, v)
}
