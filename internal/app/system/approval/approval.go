// Package approval owns the expense review workflow:
//
//	DRAFT -> PENDING -> APPROVED | REJECTED
//
// APPROVED and REJECTED are terminal. Every transition is applied by the
// store as a conditional update on the current status, so two reviewers
// racing on the same expense cannot overwrite each other's decision.
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auditlog"
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrNotReviewer     = fmt.Errorf("not allowed to review expenses on this project: %w", apperr.ErrForbidden)
	ErrSelfReview      = fmt.Errorf("cannot review your own expense: %w", apperr.ErrForbidden)
	ErrNotSubmitter    = fmt.Errorf("only the submitter can do that: %w", apperr.ErrForbidden)
	ErrNotMember       = fmt.Errorf("not a member of this project: %w", apperr.ErrForbidden)
	ErrProjectArchived = fmt.Errorf("project is archived: %w", apperr.ErrConflict)
)

// InvalidStateError reports a transition the state machine does not allow.
type InvalidStateError struct {
	From models.ExpenseStatus
	To   models.ExpenseStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot move expense from %s to %s", e.From, e.To)
}

func (e *InvalidStateError) Unwrap() error { return apperr.ErrConflict }

// CanTransition reports whether an expense may move from one status to another.
func CanTransition(from, to models.ExpenseStatus) bool {
	switch from {
	case models.ExpenseDraft:
		return to == models.ExpensePending
	case models.ExpensePending:
		return to == models.ExpenseApproved || to == models.ExpenseRejected
	}
	return false
}

// Expenses is the expense persistence the tracker needs.
//
// Transition must only apply ch when the stored status still equals from,
// and must return an error wrapping apperr.ErrConflict otherwise.
type Expenses interface {
	Create(ctx context.Context, e models.Expense) (models.Expense, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Expense, error)
	Transition(ctx context.Context, id primitive.ObjectID, from models.ExpenseStatus, ch models.StatusChange) (*models.Expense, error)
	SetComment(ctx context.Context, id primitive.ObjectID, byReviewer bool, text string) (*models.Expense, error)
	Summarize(ctx context.Context, projectID primitive.ObjectID) (models.ExpenseSummary, error)
	ApprovedTotal(ctx context.Context, projectID primitive.ObjectID, department string) (int64, error)
}

// Projects loads the project an expense belongs to.
type Projects interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
}

// Delegations lists delegations that have not expired.
type Delegations interface {
	ListActive(ctx context.Context, projectID primitive.ObjectID, now time.Time) ([]models.TemporaryApprover, error)
}

// Notifier fans an event out to its recipients.
type Notifier interface {
	Dispatch(ctx context.Context, ev events.Event) ([]models.Notification, error)
}

// Tracker applies review transitions and emits their notifications.
type Tracker struct {
	expenses    Expenses
	projects    Projects
	delegations Delegations
	notify      Notifier
	audit       *auditlog.Logger
	log         *zap.Logger
	now         func() time.Time
}

// New builds a Tracker. audit may be nil.
func New(expenses Expenses, projects Projects, delegations Delegations, notify Notifier, audit *auditlog.Logger, log *zap.Logger) *Tracker {
	return &Tracker{
		expenses:    expenses,
		projects:    projects,
		delegations: delegations,
		notify:      notify,
		audit:       audit,
		log:         log,
		now:         time.Now,
	}
}

// WithClock replaces the tracker's time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Authority describes why a user may review a project's expenses.
type Authority struct {
	Allowed       bool
	ViaDelegation bool
}

// ReviewAuthority reports whether u may approve or reject expenses on p.
// Standing authority comes from being an approver or production head on the
// project, or an admin. A live accepted delegation grants temporary authority.
func (t *Tracker) ReviewAuthority(ctx context.Context, u *models.User, p *models.Project) (Authority, error) {
	if u == nil || !u.IsActive {
		return Authority{}, nil
	}
	if u.Role == models.RoleAdmin || p.IsApprover(u.ID) || p.IsProductionHead(u.ID) {
		return Authority{Allowed: true}, nil
	}
	ds, err := t.delegations.ListActive(ctx, p.ID, t.now())
	if err != nil {
		return Authority{}, fmt.Errorf("load delegations: %w", err)
	}
	now := t.now()
	for i := range ds {
		if ds[i].ApproverID == u.ID && ds[i].GrantsAuthority(now) {
			return Authority{Allowed: true, ViaDelegation: true}, nil
		}
	}
	return Authority{}, nil
}

// Get returns an expense the user is allowed to see: their own, or any on a
// project they belong to or review.
func (t *Tracker) Get(ctx context.Context, u *models.User, id primitive.ObjectID) (*models.Expense, error) {
	e, err := t.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.SubmitterID == u.ID || u.Role == models.RoleAdmin {
		return e, nil
	}
	p, err := t.projects.GetByID(ctx, e.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := t.requireVisibility(ctx, u, p); err != nil {
		return nil, err
	}
	return e, nil
}

func (t *Tracker) requireVisibility(ctx context.Context, u *models.User, p *models.Project) error {
	if u.Role == models.RoleAdmin || p.HasMember(u.ID) {
		return nil
	}
	auth, err := t.ReviewAuthority(ctx, u, p)
	if err != nil {
		return err
	}
	if !auth.Allowed {
		return ErrNotMember
	}
	return nil
}

func (t *Tracker) dispatch(ctx context.Context, ev events.Event) {
	if t.notify == nil {
		return
	}
	if _, err := t.notify.Dispatch(ctx, ev); err != nil {
		// The transition is already committed.
		t.log.Error("notification dispatch failed",
			zap.Error(err),
			zap.String("type", string(ev.Kind)))
	}
}

// delegates returns the users currently holding delegated authority on p.
func (t *Tracker) delegates(ctx context.Context, projectID primitive.ObjectID) []primitive.ObjectID {
	ds, err := t.delegations.ListActive(ctx, projectID, t.now())
	if err != nil {
		t.log.Warn("load delegates for notification", zap.Error(err), zap.String("project_id", projectID.Hex()))
		return nil
	}
	now := t.now()
	var ids []primitive.ObjectID
	for i := range ds {
		if ds[i].GrantsAuthority(now) {
			ids = append(ids, ds[i].ApproverID)
		}
	}
	return ids
}

// transition applies from -> to and converts a lost race into an
// InvalidStateError carrying the status that won.
func (t *Tracker) transition(ctx context.Context, e *models.Expense, ch models.StatusChange) (*models.Expense, error) {
	if !CanTransition(e.Status, ch.To) {
		return nil, &InvalidStateError{From: e.Status, To: ch.To}
	}
	updated, err := t.expenses.Transition(ctx, e.ID, e.Status, ch)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, apperr.ErrConflict) {
		return nil, err
	}
	current, gerr := t.expenses.GetByID(ctx, e.ID)
	if gerr != nil {
		return nil, err
	}
	return nil, &InvalidStateError{From: current.Status, To: ch.To}
}
