// internal/domain/models/expense.go
package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExpenseStatus is the review state of an expense.
type ExpenseStatus string

const (
	ExpenseDraft    ExpenseStatus = "DRAFT"
	ExpensePending  ExpenseStatus = "PENDING"
	ExpenseApproved ExpenseStatus = "APPROVED"
	ExpenseRejected ExpenseStatus = "REJECTED"
)

// ExpenseStatuses lists every valid status.
var ExpenseStatuses = []ExpenseStatus{ExpenseDraft, ExpensePending, ExpenseApproved, ExpenseRejected}

// Valid reports whether s is one of the known statuses.
func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpenseDraft, ExpensePending, ExpenseApproved, ExpenseRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s ExpenseStatus) Terminal() bool {
	return s == ExpenseApproved || s == ExpenseRejected
}

// Expense is a single claim against a project budget.
// Amount is in minor currency units.
type Expense struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProjectID        primitive.ObjectID  `bson:"project_id" json:"project_id"`
	SubmitterID      primitive.ObjectID  `bson:"submitter_id" json:"submitter_id"`
	SubmitterName    string              `bson:"submitter_name" json:"submitter_name"`
	ReviewerID       *primitive.ObjectID `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	ReviewerName     string              `bson:"reviewer_name,omitempty" json:"reviewer_name,omitempty"`
	Amount           int64               `bson:"amount" json:"amount"`
	Currency         string              `bson:"currency" json:"currency"`
	Category         string              `bson:"category" json:"category"`
	Department       string              `bson:"department" json:"department"`
	Description      string              `bson:"description,omitempty" json:"description,omitempty"`
	ReceiptURL       string              `bson:"receipt_url,omitempty" json:"receipt_url,omitempty"`
	Status           ExpenseStatus       `bson:"status" json:"status"`
	ReviewComment    string              `bson:"review_comment,omitempty" json:"review_comment,omitempty"`
	SubmitterComment string              `bson:"submitter_comment,omitempty" json:"submitter_comment,omitempty"`
	ExpenseDate      time.Time           `bson:"expense_date" json:"expense_date"`
	SubmittedAt      *time.Time          `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	ReviewedAt       *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FormatAmount renders minor units as a decimal string, e.g. 12345 -> "123.45".
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// StatusChange is applied when an expense moves out of its current status.
type StatusChange struct {
	To           ExpenseStatus
	ReviewerID   *primitive.ObjectID
	ReviewerName string
	Comment      string
	At           time.Time
}

// Total is a count and sum of expense amounts.
type Total struct {
	Count  int64 `bson:"count" json:"count"`
	Amount int64 `bson:"amount" json:"amount"`
}

// ExpenseSummary aggregates a project's expenses. Department and category
// totals count approved expenses only.
type ExpenseSummary struct {
	ProjectID    primitive.ObjectID      `json:"project_id"`
	ByStatus     map[ExpenseStatus]Total `json:"by_status"`
	ByDepartment map[string]Total        `json:"by_department"`
	ByCategory   map[string]Total        `json:"by_category"`
	Budget       int64                   `json:"budget"`
	Remaining    int64                   `json:"remaining"`
}
