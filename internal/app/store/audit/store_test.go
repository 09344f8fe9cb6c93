package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/expensehub/internal/app/store/audit"
	"github.com/dalemusser/expensehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	projectID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()
	expenseID := primitive.NewObjectID().Hex()

	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryApproval,
		EventType: audit.EventExpenseApproved,
		ProjectID: &projectID,
		ActorID:   &actorID,
		SubjectID: expenseID,
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetBySubject(ctx, expenseID, 10)
	if err != nil {
		t.Fatalf("GetBySubject failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p1 := primitive.NewObjectID()
	p2 := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)

	for i, e := range []audit.Event{
		{Category: audit.CategoryApproval, EventType: audit.EventExpenseApproved, ProjectID: &p1, Success: true},
		{Category: audit.CategoryApproval, EventType: audit.EventExpenseRejected, ProjectID: &p1, Success: true},
		{Category: audit.CategoryDelegation, EventType: audit.EventDelegationAssigned, ProjectID: &p1, Success: true},
		{Category: audit.CategoryApproval, EventType: audit.EventExpenseApproved, ProjectID: &p2, Success: true},
	} {
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := store.GetByProject(ctx, p1, 10)
	if err != nil {
		t.Fatalf("GetByProject failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events for p1, got %d", len(got))
	}
	if got[0].EventType != audit.EventDelegationAssigned {
		t.Errorf("expected newest first, got %q", got[0].EventType)
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{Category: audit.CategoryApproval, EventType: audit.EventExpenseApproved})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 approvals, got %d", n)
	}

	start := base.Add(90 * time.Second)
	got, err = store.Query(ctx, audit.QueryFilter{ProjectID: &p1, StartTime: &start})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 event after start time, got %d", len(got))
	}
}

func TestStore_EnsureIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	// Idempotent.
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("second EnsureIndexes failed: %v", err)
	}
}
