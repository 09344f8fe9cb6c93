package approval

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/expensehub/internal/app/system/normalize"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Budget warning thresholds, in percent of budget.
var thresholds = []int{100, 80}

const maxCommentLen = 1000

// Draft is a new expense as entered by its submitter.
type Draft struct {
	ProjectID   primitive.ObjectID
	Amount      int64
	Currency    string
	Category    string
	Department  string
	Description string
	ReceiptURL  string
	ExpenseDate time.Time
	// Submit sends the expense for review immediately instead of saving a draft.
	Submit bool
}

// Create stores a new expense for u. It is saved as DRAFT and, when
// d.Submit is set, submitted in the same call.
func (t *Tracker) Create(ctx context.Context, u *models.User, d Draft) (*models.Expense, error) {
	p, err := t.projects.GetByID(ctx, d.ProjectID)
	if err != nil {
		return nil, err
	}
	if p.IsArchived() {
		return nil, ErrProjectArchived
	}
	if u.Role != models.RoleAdmin && !p.HasMember(u.ID) {
		return nil, ErrNotMember
	}
	if d.Amount <= 0 {
		return nil, apperr.Invalid("amount must be greater than zero")
	}
	category := normalize.Category(d.Category)
	if category == "" {
		return nil, apperr.Invalid("category is required")
	}
	currency := normalize.Currency(d.Currency)
	if currency == "" {
		currency = p.Currency
	}
	expenseDate := d.ExpenseDate
	if expenseDate.IsZero() {
		expenseDate = t.now()
	}

	created, err := t.expenses.Create(ctx, models.Expense{
		ProjectID:     p.ID,
		SubmitterID:   u.ID,
		SubmitterName: u.FullName,
		Amount:        d.Amount,
		Currency:      currency,
		Category:      category,
		Department:    normalize.Department(d.Department),
		Description:   htmlsanitize.PlainText(d.Description),
		ReceiptURL:    strings.TrimSpace(d.ReceiptURL),
		Status:        models.ExpenseDraft,
		ExpenseDate:   expenseDate.UTC(),
	})
	if err != nil {
		return nil, err
	}
	if !d.Submit {
		return &created, nil
	}
	return t.submit(ctx, u, &created, p)
}

// Submit sends a draft for review. Only the submitter may submit.
func (t *Tracker) Submit(ctx context.Context, u *models.User, id primitive.ObjectID) (*models.Expense, error) {
	e, err := t.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.SubmitterID != u.ID {
		return nil, ErrNotSubmitter
	}
	p, err := t.projects.GetByID(ctx, e.ProjectID)
	if err != nil {
		return nil, err
	}
	if p.IsArchived() {
		return nil, ErrProjectArchived
	}
	return t.submit(ctx, u, e, p)
}

func (t *Tracker) submit(ctx context.Context, u *models.User, e *models.Expense, p *models.Project) (*models.Expense, error) {
	updated, err := t.transition(ctx, e, models.StatusChange{To: models.ExpensePending, At: t.now().UTC()})
	if err != nil {
		return nil, err
	}
	t.audit.ExpenseSubmitted(ctx, u.ID, updated)
	t.dispatch(ctx, events.Event{
		Kind:      models.NotifyExpenseSubmitted,
		Actor:     u,
		Project:   p,
		Expense:   updated,
		Delegates: t.delegates(ctx, p.ID),
	})
	return updated, nil
}

// Approve moves a pending expense to APPROVED.
func (t *Tracker) Approve(ctx context.Context, u *models.User, id primitive.ObjectID, comment string) (*models.Expense, error) {
	return t.decide(ctx, u, id, models.ExpenseApproved, comment)
}

// Reject moves a pending expense to REJECTED. A reason is required.
func (t *Tracker) Reject(ctx context.Context, u *models.User, id primitive.ObjectID, reason string) (*models.Expense, error) {
	if htmlsanitize.PlainText(reason) == "" {
		return nil, apperr.Invalid("a reason is required to reject an expense")
	}
	return t.decide(ctx, u, id, models.ExpenseRejected, reason)
}

func (t *Tracker) decide(ctx context.Context, u *models.User, id primitive.ObjectID, to models.ExpenseStatus, comment string) (*models.Expense, error) {
	comment = htmlsanitize.PlainText(comment)
	if len([]rune(comment)) > maxCommentLen {
		return nil, apperr.Invalid("comment is too long")
	}

	e, err := t.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := t.projects.GetByID(ctx, e.ProjectID)
	if err != nil {
		return nil, err
	}
	if e.SubmitterID == u.ID {
		t.audit.ReviewDenied(ctx, u.ID, e, "self review")
		return nil, ErrSelfReview
	}
	auth, err := t.ReviewAuthority(ctx, u, p)
	if err != nil {
		return nil, err
	}
	if !auth.Allowed {
		t.audit.ReviewDenied(ctx, u.ID, e, "no review authority")
		return nil, ErrNotReviewer
	}

	reviewer := u.ID
	updated, err := t.transition(ctx, e, models.StatusChange{
		To:           to,
		ReviewerID:   &reviewer,
		ReviewerName: u.FullName,
		Comment:      comment,
		At:           t.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	t.audit.ExpenseDecided(ctx, u.ID, updated, auth.ViaDelegation)
	kind := models.NotifyExpenseApproved
	if to == models.ExpenseRejected {
		kind = models.NotifyExpenseRejected
	}
	t.dispatch(ctx, events.Event{Kind: kind, Actor: u, Project: p, Expense: updated, Text: comment})

	if to == models.ExpenseApproved {
		t.checkBudget(ctx, u, p, updated)
	}
	return updated, nil
}

// Comment attaches a comment to an expense in any status. The submitter
// writes the submitter comment; reviewers write the review comment.
func (t *Tracker) Comment(ctx context.Context, u *models.User, id primitive.ObjectID, text string) (*models.Expense, error) {
	text = htmlsanitize.PlainText(text)
	if text == "" {
		return nil, apperr.Invalid("comment is required")
	}
	if len([]rune(text)) > maxCommentLen {
		return nil, apperr.Invalid("comment is too long")
	}

	e, err := t.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := t.projects.GetByID(ctx, e.ProjectID)
	if err != nil {
		return nil, err
	}

	byReviewer := e.SubmitterID != u.ID
	if byReviewer {
		auth, err := t.ReviewAuthority(ctx, u, p)
		if err != nil {
			return nil, err
		}
		if !auth.Allowed {
			return nil, ErrNotReviewer
		}
	}

	updated, err := t.expenses.SetComment(ctx, e.ID, byReviewer, text)
	if err != nil {
		return nil, err
	}
	t.dispatch(ctx, events.Event{Kind: models.NotifyExpenseComment, Actor: u, Project: p, Expense: updated, Text: text})
	return updated, nil
}

// Summary returns counts and totals for a project the user can see, with
// approved spend measured against the project budget.
func (t *Tracker) Summary(ctx context.Context, u *models.User, projectID primitive.ObjectID) (models.ExpenseSummary, error) {
	p, err := t.projects.GetByID(ctx, projectID)
	if err != nil {
		return models.ExpenseSummary{}, err
	}
	if err := t.requireVisibility(ctx, u, p); err != nil {
		return models.ExpenseSummary{}, err
	}
	s, err := t.expenses.Summarize(ctx, projectID)
	if err != nil {
		return models.ExpenseSummary{}, err
	}
	s.ProjectID = projectID
	s.Budget = p.Budget
	s.Remaining = p.Budget - s.ByStatus[models.ExpenseApproved].Amount
	return s, nil
}

// checkBudget emits BUDGET_THRESHOLD when approving e pushed approved spend
// across a threshold, for the project and for e's department.
func (t *Tracker) checkBudget(ctx context.Context, u *models.User, p *models.Project, e *models.Expense) {
	check := func(department string, budget int64) {
		if budget <= 0 {
			return
		}
		after, err := t.expenses.ApprovedTotal(ctx, p.ID, department)
		if err != nil {
			t.log.Warn("budget check failed", zap.Error(err), zap.String("project_id", p.ID.Hex()))
			return
		}
		if pct, ok := Crossed(after-e.Amount, after, budget); ok {
			t.dispatch(ctx, events.Event{
				Kind:       models.NotifyBudgetThreshold,
				Actor:      u,
				Project:    p,
				Department: department,
				Percent:    pct,
			})
		}
	}

	check("", p.Budget)
	if b, ok := p.DepartmentBudget(e.Department); ok && e.Department != "" {
		check(e.Department, b)
	}
}

// Crossed reports the highest threshold that spend moving from before to
// after crossed, as a percentage of budget.
func Crossed(before, after, budget int64) (int, bool) {
	if budget <= 0 || after <= before {
		return 0, false
	}
	for _, th := range thresholds {
		limit := budget * int64(th)
		if before*100 < limit && after*100 >= limit {
			return th, true
		}
	}
	return 0, false
}
