// Package delegation manages temporary approvers: a production head lends
// approval authority on one project to an approver for a bounded window.
//
// A delegation is pending until the delegate accepts or rejects it. Expiry
// is a pure function of the clock and ExpiringDate; every read re-checks it.
// SweepExpired exists only so that DELEGATION_EXPIRED is actually delivered.
package delegation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/expensehub/internal/app/store/audit"
	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auditlog"
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrNotProductionHead = fmt.Errorf("only a production head of the project can do that: %w", apperr.ErrForbidden)
	ErrNotDelegate       = fmt.Errorf("only the delegate can respond: %w", apperr.ErrForbidden)
	ErrNotMember         = fmt.Errorf("not a member of this project: %w", apperr.ErrForbidden)
	ErrNotInApproverPool = fmt.Errorf("delegate must be an approver on the project: %w", apperr.ErrInvalid)
	ErrNotPending        = fmt.Errorf("delegation has already been answered: %w", apperr.ErrConflict)
	ErrExpired           = fmt.Errorf("delegation has expired: %w", apperr.ErrConflict)
	ErrInactive          = fmt.Errorf("delegation is no longer active: %w", apperr.ErrConflict)
	ErrAlreadyDelegated  = fmt.Errorf("delegate already holds an active delegation on this project: %w", apperr.ErrConflict)
	ErrProjectArchived   = fmt.Errorf("project is archived: %w", apperr.ErrConflict)
)

// Store persists delegations. Respond, Deactivate and MarkExpired are
// conditional updates and return an error wrapping apperr.ErrConflict when
// the record is no longer in the state they require.
type Store interface {
	Create(ctx context.Context, d models.TemporaryApprover) (models.TemporaryApprover, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.TemporaryApprover, error)
	Respond(ctx context.Context, id primitive.ObjectID, status models.DelegationStatus, at time.Time) (*models.TemporaryApprover, error)
	Deactivate(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.TemporaryApprover, error)
	ListActive(ctx context.Context, projectID primitive.ObjectID, now time.Time) ([]models.TemporaryApprover, error)
	ListForApprover(ctx context.Context, approverID primitive.ObjectID, now time.Time) ([]models.TemporaryApprover, error)
	ListExpiredUnnotified(ctx context.Context, now time.Time, limit int64) ([]models.TemporaryApprover, error)
	MarkExpired(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// Projects loads projects and records the temporary approver's phone.
type Projects interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	SetTemporaryApproverPhone(ctx context.Context, id primitive.ObjectID, phone string) error
}

// Users loads the delegate.
type Users interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Notifier fans an event out to its recipients.
type Notifier interface {
	Dispatch(ctx context.Context, ev events.Event) ([]models.Notification, error)
}

// Service implements the delegation lifecycle.
type Service struct {
	store    Store
	projects Projects
	users    Users
	notify   Notifier
	audit    *auditlog.Logger
	log      *zap.Logger
	now      func() time.Time
}

// New builds a Service. audit may be nil.
func New(store Store, projects Projects, users Users, notify Notifier, audit *auditlog.Logger, log *zap.Logger) *Service {
	return &Service{store: store, projects: projects, users: users, notify: notify, audit: audit, log: log, now: time.Now}
}

// WithClock replaces the service's time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Assignment is a production head's request to delegate approval.
type Assignment struct {
	ProjectID    primitive.ObjectID
	ApproverID   primitive.ObjectID
	StartDate    time.Time // zero means now
	ExpiringDate time.Time
}

// Assign creates a pending delegation and notifies the delegate.
func (s *Service) Assign(ctx context.Context, actor *models.User, a Assignment) (*models.TemporaryApprover, error) {
	now := s.now().UTC()
	p, err := s.projects.GetByID(ctx, a.ProjectID)
	if err != nil {
		return nil, err
	}
	if p.IsArchived() {
		return nil, ErrProjectArchived
	}
	if !p.IsProductionHead(actor.ID) {
		return nil, ErrNotProductionHead
	}

	start := a.StartDate.UTC()
	if start.IsZero() {
		start = now
	}
	end := a.ExpiringDate.UTC()
	if !end.After(start) {
		return nil, apperr.Invalid("expiring date must be after the start date")
	}
	if !end.After(now) {
		return nil, apperr.Invalid("expiring date must be in the future")
	}
	if a.ApproverID == actor.ID {
		return nil, apperr.Invalid("cannot delegate to yourself")
	}

	delegate, err := s.users.GetByID(ctx, a.ApproverID)
	if err != nil {
		return nil, err
	}
	if !delegate.IsActive || !InApproverPool(p, delegate) {
		return nil, ErrNotInApproverPool
	}

	live, err := s.store.ListActive(ctx, p.ID, now)
	if err != nil {
		return nil, err
	}
	for i := range live {
		if live[i].ApproverID == delegate.ID && live[i].Status != models.DelegationRejected {
			return nil, ErrAlreadyDelegated
		}
	}

	d, err := s.store.Create(ctx, models.TemporaryApprover{
		ProjectID:     p.ID,
		ApproverID:    delegate.ID,
		ApproverName:  delegate.FullName,
		ApproverPhone: delegate.Phone,
		AssignedBy:    actor.ID,
		StartDate:     start,
		ExpiringDate:  end,
		IsActive:      true,
		Status:        models.DelegationPending,
	})
	if err != nil {
		return nil, err
	}

	s.setPhone(ctx, p.ID, delegate.Phone)
	s.audit.Delegation(ctx, audit.EventDelegationAssigned, actor.ID, &d)
	s.dispatch(ctx, events.Event{Kind: models.NotifyDelegationAssigned, Actor: actor, Project: p, Delegation: &d})
	return &d, nil
}

// InApproverPool reports whether u may receive delegated authority on p:
// a standing approver on the project, or an APPROVER-role team member.
func InApproverPool(p *models.Project, u *models.User) bool {
	if p.IsApprover(u.ID) {
		return true
	}
	return u.Role == models.RoleApprover && p.HasMember(u.ID)
}

// Accept records the delegate's acceptance.
func (s *Service) Accept(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.TemporaryApprover, error) {
	return s.respond(ctx, actor, id, models.DelegationAccepted)
}

// Reject records the delegate's refusal. A rejected delegation is inactive.
func (s *Service) Reject(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.TemporaryApprover, error) {
	return s.respond(ctx, actor, id, models.DelegationRejected)
}

func (s *Service) respond(ctx context.Context, actor *models.User, id primitive.ObjectID, status models.DelegationStatus) (*models.TemporaryApprover, error) {
	now := s.now().UTC()
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.ApproverID != actor.ID {
		return nil, ErrNotDelegate
	}
	if d.Status != models.DelegationPending {
		return nil, ErrNotPending
	}
	if d.IsExpired(now) {
		return nil, ErrExpired
	}
	if !d.IsActive {
		return nil, ErrInactive
	}

	updated, err := s.store.Respond(ctx, id, status, now)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, ErrNotPending
		}
		return nil, err
	}

	p, err := s.projects.GetByID(ctx, updated.ProjectID)
	if err != nil {
		s.log.Warn("load project for delegation response", zap.Error(err))
	}

	eventType, kind := audit.EventDelegationAccepted, models.NotifyDelegationAccepted
	if status == models.DelegationRejected {
		eventType, kind = audit.EventDelegationRejected, models.NotifyDelegationRejected
		if p != nil && p.TemporaryApproverPhone == updated.ApproverPhone {
			s.setPhone(ctx, p.ID, "")
		}
	}
	s.audit.Delegation(ctx, eventType, actor.ID, updated)
	s.dispatch(ctx, events.Event{Kind: kind, Actor: actor, Project: p, Delegation: updated})
	return updated, nil
}

// Remove ends a delegation early. Only a production head of the project may
// remove it.
func (s *Service) Remove(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.TemporaryApprover, error) {
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.GetByID(ctx, d.ProjectID)
	if err != nil {
		return nil, err
	}
	if !p.IsProductionHead(actor.ID) {
		return nil, ErrNotProductionHead
	}
	if !d.IsActive {
		return nil, ErrInactive
	}

	updated, err := s.store.Deactivate(ctx, id, s.now().UTC())
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, ErrInactive
		}
		return nil, err
	}
	if p.TemporaryApproverPhone == updated.ApproverPhone {
		s.setPhone(ctx, p.ID, "")
	}
	s.audit.Delegation(ctx, audit.EventDelegationRemoved, actor.ID, updated)
	s.dispatch(ctx, events.Event{Kind: models.NotifyDelegationRemoved, Actor: actor, Project: p, Delegation: updated})
	return updated, nil
}

// Get returns a delegation visible to the actor: the delegate, or anyone on
// the project.
func (s *Service) Get(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.TemporaryApprover, error) {
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.ApproverID == actor.ID || actor.Role == models.RoleAdmin {
		return d, nil
	}
	p, err := s.projects.GetByID(ctx, d.ProjectID)
	if err != nil {
		return nil, err
	}
	if !p.HasMember(actor.ID) {
		return nil, ErrNotMember
	}
	return d, nil
}

// ListActive returns the project's delegations that are active right now.
// Expired rows never appear even if the sweeper has not reached them yet.
func (s *Service) ListActive(ctx context.Context, actor *models.User, projectID primitive.ObjectID) ([]models.TemporaryApprover, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && !p.HasMember(actor.ID) {
		return nil, ErrNotMember
	}
	now := s.now()
	ds, err := s.store.ListActive(ctx, projectID, now)
	if err != nil {
		return nil, err
	}
	return FilterActive(ds, now), nil
}

// ListMine returns the actor's own live delegations, pending ones included.
func (s *Service) ListMine(ctx context.Context, actor *models.User) ([]models.TemporaryApprover, error) {
	now := s.now()
	ds, err := s.store.ListForApprover(ctx, actor.ID, now)
	if err != nil {
		return nil, err
	}
	return FilterActive(ds, now), nil
}

// FilterActive keeps the delegations active at now.
func FilterActive(ds []models.TemporaryApprover, now time.Time) []models.TemporaryApprover {
	out := ds[:0]
	for _, d := range ds {
		if d.IsActiveAt(now) {
			out = append(out, d)
		}
	}
	return out
}

const sweepBatch = 200

// SweepExpired deactivates delegations whose window has passed and sends
// DELEGATION_EXPIRED once per delegation. It returns how many it expired.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now().UTC()
	ds, err := s.store.ListExpiredUnnotified(ctx, now, sweepBatch)
	if err != nil {
		return 0, err
	}

	n := 0
	for i := range ds {
		d := ds[i]
		if !d.IsExpired(now) {
			continue
		}
		if err := s.store.MarkExpired(ctx, d.ID, now); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				// Another sweeper got it first.
				continue
			}
			return n, err
		}
		n++
		d.IsActive = false
		d.ExpiredNotified = true

		p, err := s.projects.GetByID(ctx, d.ProjectID)
		if err != nil {
			s.log.Warn("load project for expired delegation", zap.Error(err), zap.String("delegation_id", d.ID.Hex()))
		}
		if p != nil && p.TemporaryApproverPhone != "" && p.TemporaryApproverPhone == d.ApproverPhone {
			s.setPhone(ctx, p.ID, "")
		}
		s.audit.Delegation(ctx, audit.EventDelegationExpired, primitive.NilObjectID, &d)
		s.dispatch(ctx, events.Event{Kind: models.NotifyDelegationExpired, Project: p, Delegation: &d})
	}
	return n, nil
}

func (s *Service) setPhone(ctx context.Context, projectID primitive.ObjectID, phone string) {
	if err := s.projects.SetTemporaryApproverPhone(ctx, projectID, phone); err != nil {
		s.log.Warn("update temporary approver phone", zap.Error(err), zap.String("project_id", projectID.Hex()))
	}
}

func (s *Service) dispatch(ctx context.Context, ev events.Event) {
	if s.notify == nil {
		return
	}
	if _, err := s.notify.Dispatch(ctx, ev); err != nil {
		s.log.Error("notification dispatch failed", zap.Error(err), zap.String("type", string(ev.Kind)))
	}
}
