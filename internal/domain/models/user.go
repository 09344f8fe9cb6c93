// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is anyone who signs in to the app: crew submitting expenses,
// approvers, production heads and admins.
//
// Users are never hard-deleted; deactivation flips IsActive.
type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	FullName         string               `bson:"full_name" json:"full_name"`
	FullNameCI       string               `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Phone            string               `bson:"phone" json:"phone"`
	Email            string               `bson:"email,omitempty" json:"email,omitempty"`
	Role             Role                 `bson:"role" json:"role"`
	Department       string               `bson:"department,omitempty" json:"department,omitempty"`
	AssignedProjects []primitive.ObjectID `bson:"assigned_projects" json:"assigned_projects"`
	Preferences      NotificationPrefs    `bson:"notification_prefs" json:"notification_prefs"`
	IsActive         bool                 `bson:"is_active" json:"is_active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NotificationPrefs controls which notifications a user receives.
type NotificationPrefs struct {
	PushEnabled bool                      `bson:"push_enabled" json:"push_enabled"`
	Muted       map[NotificationType]bool `bson:"muted,omitempty" json:"muted,omitempty"`
}

// DefaultNotificationPrefs is applied to users created on first login.
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{PushEnabled: true}
}

// Wants reports whether the user has not muted notifications of type t.
func (p NotificationPrefs) Wants(t NotificationType) bool {
	return !p.Muted[t]
}

// IsAssignedTo reports whether projectID appears in the user's assignments.
func (u *User) IsAssignedTo(projectID primitive.ObjectID) bool {
	for _, id := range u.AssignedProjects {
		if id == projectID {
			return true
		}
	}
	return false
}
