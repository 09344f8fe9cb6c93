// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProjectStatusActive   = "active"
	ProjectStatusArchived = "archived"
)

// Project is a production with its budget and crew.
// Amounts are minor currency units (cents).
type Project struct {
	ID                     primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name                   string               `bson:"name" json:"name"`
	NameCI                 string               `bson:"name_ci" json:"-"`
	Description            string               `bson:"description,omitempty" json:"description,omitempty"`
	Currency               string               `bson:"currency" json:"currency"`
	Budget                 int64                `bson:"budget" json:"budget"`
	DepartmentBudgets      map[string]int64     `bson:"department_budgets,omitempty" json:"department_budgets,omitempty"`
	TeamMembers            []primitive.ObjectID `bson:"team_members" json:"team_members"`
	ApproverIDs            []primitive.ObjectID `bson:"approver_ids" json:"approver_ids"`
	ProductionHeadIDs      []primitive.ObjectID `bson:"production_head_ids" json:"production_head_ids"`
	TemporaryApproverPhone string               `bson:"temporary_approver_phone,omitempty" json:"temporary_approver_phone,omitempty"`
	Status                 string               `bson:"status" json:"status"`
	StartDate              *time.Time           `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate                *time.Time           `bson:"end_date,omitempty" json:"end_date,omitempty"`
	CreatedBy              primitive.ObjectID   `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsArchived reports whether the project no longer accepts expenses.
func (p *Project) IsArchived() bool {
	return p.Status == ProjectStatusArchived
}

// HasMember reports whether id is on the team in any capacity.
func (p *Project) HasMember(id primitive.ObjectID) bool {
	return containsID(p.TeamMembers, id) || p.IsApprover(id) || p.IsProductionHead(id)
}

// IsApprover reports whether id is a standing approver on the project.
func (p *Project) IsApprover(id primitive.ObjectID) bool {
	return containsID(p.ApproverIDs, id)
}

// IsProductionHead reports whether id is a production head on the project.
func (p *Project) IsProductionHead(id primitive.ObjectID) bool {
	return containsID(p.ProductionHeadIDs, id)
}

// DepartmentBudget returns the budget for dept and whether one is set.
func (p *Project) DepartmentBudget(dept string) (int64, bool) {
	b, ok := p.DepartmentBudgets[dept]
	return b, ok
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
