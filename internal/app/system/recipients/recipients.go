// Package recipients decides who hears about an event.
//
// All routing by event kind and role lives in Resolve so screens and services
// never branch on roles to pick notification targets themselves.
package recipients

import (
	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recipient is one user to notify and the capacity they are notified in.
type Recipient struct {
	UserID primitive.ObjectID
	Role   models.Role
}

// Resolve returns the recipients for ev in a stable order, without
// duplicates and without the actor.
func Resolve(ev events.Event) []Recipient {
	var s set
	switch ev.Kind {
	case models.NotifyExpenseSubmitted:
		if ev.Project != nil {
			s.addAll(ev.Project.ApproverIDs, models.RoleApprover)
			s.addAll(ev.Project.ProductionHeadIDs, models.RoleProductionHead)
		}
		s.addAll(ev.Delegates, models.RoleApprover)

	case models.NotifyExpenseApproved, models.NotifyExpenseRejected:
		if ev.Expense != nil {
			s.add(ev.Expense.SubmitterID, models.RoleUser)
		}

	case models.NotifyExpenseComment:
		if ev.Expense == nil {
			break
		}
		if ev.ActorID() != ev.Expense.SubmitterID {
			s.add(ev.Expense.SubmitterID, models.RoleUser)
			break
		}
		// Submitter commented: tell whoever reviewed it, or the reviewers.
		if ev.Expense.ReviewerID != nil {
			s.add(*ev.Expense.ReviewerID, models.RoleApprover)
		} else if ev.Project != nil {
			s.addAll(ev.Project.ApproverIDs, models.RoleApprover)
			s.addAll(ev.Project.ProductionHeadIDs, models.RoleProductionHead)
		}

	case models.NotifyProjectAssigned, models.NotifyProjectRemoved, models.NotifyRoleChanged:
		if ev.Subject != nil {
			s.add(ev.Subject.ID, ev.Subject.Role)
		}

	case models.NotifyProjectArchived:
		if ev.Project != nil {
			s.addAll(ev.Project.TeamMembers, models.RoleUser)
			s.addAll(ev.Project.ApproverIDs, models.RoleApprover)
			s.addAll(ev.Project.ProductionHeadIDs, models.RoleProductionHead)
		}

	case models.NotifyDelegationAssigned, models.NotifyDelegationRemoved:
		if ev.Delegation != nil {
			s.add(ev.Delegation.ApproverID, models.RoleApprover)
		}

	case models.NotifyDelegationExpired:
		if ev.Delegation != nil {
			s.add(ev.Delegation.ApproverID, models.RoleApprover)
			s.add(ev.Delegation.AssignedBy, models.RoleProductionHead)
		}

	case models.NotifyDelegationAccepted, models.NotifyDelegationRejected:
		if ev.Delegation != nil {
			s.add(ev.Delegation.AssignedBy, models.RoleProductionHead)
		}

	case models.NotifyChatMessage:
		if ev.Chat != nil {
			if other, ok := ev.Chat.Other(ev.ActorID()); ok {
				s.add(other, models.RoleUser)
			}
		}

	case models.NotifyBudgetThreshold:
		if ev.Project != nil {
			s.addAll(ev.Project.ProductionHeadIDs, models.RoleProductionHead)
		}
	}

	return s.without(ev.ActorID())
}

type set struct {
	order []Recipient
	seen  map[primitive.ObjectID]struct{}
}

func (s *set) add(id primitive.ObjectID, role models.Role) {
	if id.IsZero() {
		return
	}
	if s.seen == nil {
		s.seen = make(map[primitive.ObjectID]struct{})
	}
	if _, dup := s.seen[id]; dup {
		return
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, Recipient{UserID: id, Role: role})
}

func (s *set) addAll(ids []primitive.ObjectID, role models.Role) {
	for _, id := range ids {
		s.add(id, role)
	}
}

func (s *set) without(actor primitive.ObjectID) []Recipient {
	if actor.IsZero() {
		return s.order
	}
	out := s.order[:0]
	for _, r := range s.order {
		if r.UserID != actor {
			out = append(out, r)
		}
	}
	return out
}
