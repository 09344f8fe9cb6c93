// Package events describes the domain state changes that fan out into
// notifications.
package events

import (
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is one state change. Kind selects which of the optional payload
// fields are read; unrelated fields are ignored.
type Event struct {
	Kind models.NotificationType

	// Actor performed the change. Nil for system-driven events such as
	// delegation expiry.
	Actor *models.User

	Project    *models.Project
	Expense    *models.Expense
	Delegation *models.TemporaryApprover
	Chat       *models.Chat

	// Subject is the user affected by an assignment or role change.
	Subject *models.User

	// Delegates are accepted, live temporary approvers on the project.
	// Read for EXPENSE_SUBMITTED.
	Delegates []primitive.ObjectID

	// Text carries a chat preview, comment or role name depending on Kind.
	Text string

	// Department and Percent describe a BUDGET_THRESHOLD crossing. An empty
	// Department means the whole project budget.
	Department string
	Percent    int
}

// ActorID returns the actor's id or NilObjectID.
func (e Event) ActorID() primitive.ObjectID {
	if e.Actor == nil {
		return primitive.NilObjectID
	}
	return e.Actor.ID
}

// ActorName returns a display name for the actor.
func (e Event) ActorName() string {
	if e.Actor == nil || e.Actor.FullName == "" {
		return "Someone"
	}
	return e.Actor.FullName
}

// ProjectID returns the project id the event concerns, if any.
func (e Event) ProjectID() *primitive.ObjectID {
	switch {
	case e.Project != nil:
		id := e.Project.ID
		return &id
	case e.Expense != nil:
		id := e.Expense.ProjectID
		return &id
	case e.Delegation != nil:
		id := e.Delegation.ProjectID
		return &id
	case e.Chat != nil:
		id := e.Chat.ProjectID
		return &id
	}
	return nil
}
