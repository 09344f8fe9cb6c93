// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotifyExpenseSubmitted   NotificationType = "EXPENSE_SUBMITTED"
	NotifyExpenseApproved    NotificationType = "EXPENSE_APPROVED"
	NotifyExpenseRejected    NotificationType = "EXPENSE_REJECTED"
	NotifyExpenseComment     NotificationType = "EXPENSE_COMMENT"
	NotifyProjectAssigned    NotificationType = "PROJECT_ASSIGNED"
	NotifyProjectRemoved     NotificationType = "PROJECT_REMOVED"
	NotifyProjectArchived    NotificationType = "PROJECT_ARCHIVED"
	NotifyRoleChanged        NotificationType = "ROLE_CHANGED"
	NotifyDelegationAssigned NotificationType = "DELEGATION_ASSIGNED"
	NotifyDelegationAccepted NotificationType = "DELEGATION_ACCEPTED"
	NotifyDelegationRejected NotificationType = "DELEGATION_REJECTED"
	NotifyDelegationExpired  NotificationType = "DELEGATION_EXPIRED"
	NotifyDelegationRemoved  NotificationType = "DELEGATION_REMOVED"
	NotifyChatMessage        NotificationType = "CHAT_MESSAGE"
	NotifyBudgetThreshold    NotificationType = "BUDGET_THRESHOLD"
)

// NotificationTypes lists every type.
var NotificationTypes = []NotificationType{
	NotifyExpenseSubmitted, NotifyExpenseApproved, NotifyExpenseRejected, NotifyExpenseComment,
	NotifyProjectAssigned, NotifyProjectRemoved, NotifyProjectArchived, NotifyRoleChanged,
	NotifyDelegationAssigned, NotifyDelegationAccepted, NotifyDelegationRejected,
	NotifyDelegationExpired, NotifyDelegationRemoved, NotifyChatMessage, NotifyBudgetThreshold,
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	for _, x := range NotificationTypes {
		if x == t {
			return true
		}
	}
	return false
}

// Notification is one in-app message for one recipient.
// Only IsRead/ReadAt change after creation.
type Notification struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RecipientID      primitive.ObjectID  `bson:"recipient_id" json:"recipient_id"`
	RecipientRole    Role                `bson:"recipient_role,omitempty" json:"recipient_role,omitempty"`
	ProjectID        *primitive.ObjectID `bson:"project_id,omitempty" json:"project_id,omitempty"`
	Type             NotificationType    `bson:"type" json:"type"`
	Title            string              `bson:"title" json:"title"`
	Message          string              `bson:"message" json:"message"`
	RelatedID        string              `bson:"related_id,omitempty" json:"related_id,omitempty"`
	NavigationTarget string              `bson:"navigation_target" json:"navigation_target"`
	ActorID          *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	IsRead           bool                `bson:"is_read" json:"is_read"`
	ReadAt           *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
}
