// internal/domain/models/delegation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DelegationStatus is the delegate's response to an assignment.
type DelegationStatus string

const (
	DelegationPending  DelegationStatus = "pending"
	DelegationAccepted DelegationStatus = "accepted"
	DelegationRejected DelegationStatus = "rejected"
)

// TemporaryApprover grants a delegate approval authority on one project
// between StartDate and ExpiringDate.
//
// Expiry is evaluated against the clock on read; nothing rewrites the row
// when ExpiringDate passes except the sweeper, which only flips IsActive.
type TemporaryApprover struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID       primitive.ObjectID `bson:"project_id" json:"project_id"`
	ApproverID      primitive.ObjectID `bson:"approver_id" json:"approver_id"`
	ApproverName    string             `bson:"approver_name,omitempty" json:"approver_name,omitempty"`
	ApproverPhone   string             `bson:"approver_phone,omitempty" json:"approver_phone,omitempty"`
	AssignedBy      primitive.ObjectID `bson:"assigned_by" json:"assigned_by"`
	StartDate       time.Time          `bson:"start_date" json:"start_date"`
	ExpiringDate    time.Time          `bson:"expiring_date" json:"expiring_date"`
	IsActive        bool               `bson:"is_active" json:"is_active"`
	Status          DelegationStatus   `bson:"status" json:"status"`
	RespondedAt     *time.Time         `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
	ExpiredNotified bool               `bson:"expired_notified" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsExpired reports whether now is past ExpiringDate, independent of IsActive.
func (t *TemporaryApprover) IsExpired(now time.Time) bool {
	return now.After(t.ExpiringDate)
}

// IsActiveAt reports whether the delegation is live at now.
func (t *TemporaryApprover) IsActiveAt(now time.Time) bool {
	return t.IsActive && !t.IsExpired(now)
}

// GrantsAuthority reports whether the delegate may review expenses at now:
// the delegation must be live, accepted and already started.
func (t *TemporaryApprover) GrantsAuthority(now time.Time) bool {
	return t.IsActiveAt(now) && t.Status == DelegationAccepted && !now.Before(t.StartDate)
}
