package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

var phoneSeq atomic.Int64

// NextPhone returns a phone number not used by any other fixture in this process.
func NextPhone() string {
	return fmt.Sprintf("+1555%07d", phoneSeq.Add(1))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates an active test user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName string, role models.Role) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:               primitive.NewObjectID(),
		FullName:         fullName,
		FullNameCI:       text.Fold(fullName),
		Phone:            NextPhone(),
		Role:             role,
		AssignedProjects: []primitive.ObjectID{},
		Preferences:      models.DefaultNotificationPrefs(),
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err := f.db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, models.RoleAdmin)
}

// CreateApprover creates a test approver.
func (f *Fixtures) CreateApprover(ctx context.Context, fullName string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, models.RoleApprover)
}

// CreateProductionHead creates a test production head.
func (f *Fixtures) CreateProductionHead(ctx context.Context, fullName string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, models.RoleProductionHead)
}

// CreateDeactivatedUser creates a crew member whose account is switched off.
func (f *Fixtures) CreateDeactivatedUser(ctx context.Context, fullName string) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, fullName, models.RoleUser)
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID,
		bson.M{"$set": bson.M{"is_active": false}}); err != nil {
		f.t.Fatalf("failed to deactivate test user: %v", err)
	}
	u.IsActive = false
	return u
}

// Crew names the people attached to a test project.
type Crew struct {
	Members         []primitive.ObjectID
	Approvers       []primitive.ObjectID
	ProductionHeads []primitive.ObjectID
}

// CreateProject creates an active project with the given budget and crew
// and records the assignment on each user.
func (f *Fixtures) CreateProject(ctx context.Context, name string, budget int64, crew Crew) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:                primitive.NewObjectID(),
		Name:              name,
		NameCI:            text.Fold(name),
		Currency:          "USD",
		Budget:            budget,
		TeamMembers:       nonNil(crew.Members),
		ApproverIDs:       nonNil(crew.Approvers),
		ProductionHeadIDs: nonNil(crew.ProductionHeads),
		Status:            models.ProjectStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}

	all := append(append(append([]primitive.ObjectID{}, p.TeamMembers...), p.ApproverIDs...), p.ProductionHeadIDs...)
	if len(all) > 0 {
		_, err := f.db.Collection("users").UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": all}},
			bson.M{"$addToSet": bson.M{"assigned_projects": p.ID}})
		if err != nil {
			f.t.Fatalf("failed to assign test project: %v", err)
		}
	}

	return p
}

// CreateExpense creates an expense in the given status.
func (f *Fixtures) CreateExpense(ctx context.Context, p models.Project, submitter models.User, amount int64, dept string, status models.ExpenseStatus) models.Expense {
	f.t.Helper()

	now := time.Now().UTC()
	e := models.Expense{
		ID:            primitive.NewObjectID(),
		ProjectID:     p.ID,
		SubmitterID:   submitter.ID,
		SubmitterName: submitter.FullName,
		Amount:        amount,
		Currency:      p.Currency,
		Category:      "Equipment",
		Department:    dept,
		Description:   "test expense",
		Status:        status,
		ExpenseDate:   now.Truncate(24 * time.Hour),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status != models.ExpenseDraft {
		e.SubmittedAt = &now
	}

	if _, err := f.db.Collection("expenses").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test expense: %v", err)
	}

	return e
}

// CreateDelegation creates a delegation in the given state.
func (f *Fixtures) CreateDelegation(ctx context.Context, projectID, approverID, assignedBy primitive.ObjectID, start, end time.Time, status models.DelegationStatus, active bool) models.TemporaryApprover {
	f.t.Helper()

	now := time.Now().UTC()
	d := models.TemporaryApprover{
		ID:           primitive.NewObjectID(),
		ProjectID:    projectID,
		ApproverID:   approverID,
		AssignedBy:   assignedBy,
		StartDate:    start,
		ExpiringDate: end,
		IsActive:     active,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("temporary_approvers").InsertOne(ctx, d); err != nil {
		f.t.Fatalf("failed to create test delegation: %v", err)
	}

	return d
}

// CreateNotification creates an unread notification for recipient.
func (f *Fixtures) CreateNotification(ctx context.Context, recipient primitive.ObjectID, typ models.NotificationType) models.Notification {
	f.t.Helper()

	n := models.Notification{
		ID:               primitive.NewObjectID(),
		RecipientID:      recipient,
		Type:             typ,
		Title:            "Test",
		Message:          "test notification",
		NavigationTarget: "notifications",
		CreatedAt:        time.Now().UTC(),
	}

	if _, err := f.db.Collection("notifications").InsertOne(ctx, n); err != nil {
		f.t.Fatalf("failed to create test notification: %v", err)
	}

	return n
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
