package auditlog_test

import (
	"testing"
	"time"

	"github.com/dalemusser/expensehub/internal/app/store/audit"
	"github.com/dalemusser/expensehub/internal/app/system/auditlog"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/expensehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// These should all be no-ops, not panic
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.RoleChanged(ctx, primitive.NewObjectID(), primitive.NewObjectID(), models.RoleUser, models.RoleApprover)
	logger.ExpenseDecided(ctx, primitive.NewObjectID(), &models.Expense{}, false)
}

func TestLogger_Log_ConfigLogOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// No store: "log" must never touch MongoDB.
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Approval: "log"})

	e := &models.Expense{ID: primitive.NewObjectID(), ProjectID: primitive.NewObjectID(), Amount: 1999, Status: models.ExpenseApproved}
	logger.ExpenseDecided(ctx, primitive.NewObjectID(), e, true)

	entries := logs.FilterMessage("audit event").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 zap entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event_type"] != audit.EventExpenseApproved {
		t.Errorf("event_type: got %v", fields["event_type"])
	}
	if fields["detail_amount"] != "19.99" {
		t.Errorf("detail_amount: got %v", fields["detail_amount"])
	}
	if fields["detail_via"] != "delegation" {
		t.Errorf("detail_via: got %v", fields["detail_via"])
	}
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{
		Approval:   "off",
		Delegation: "off",
		Admin:      "off",
	})

	userID := primitive.NewObjectID()
	logger.RoleChanged(ctx, primitive.NewObjectID(), userID, models.RoleUser, models.RoleApprover)

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 0 {
		t.Error("expected no events when config is 'off'")
	}
}

func TestLogger_Log_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Delegation: "db"})

	d := &models.TemporaryApprover{
		ID:           primitive.NewObjectID(),
		ProjectID:    primitive.NewObjectID(),
		ApproverID:   primitive.NewObjectID(),
		Status:       models.DelegationAccepted,
		ExpiringDate: time.Now().Add(time.Hour),
	}
	logger.Delegation(ctx, audit.EventDelegationAccepted, d.ApproverID, d)

	events, err := store.GetBySubject(ctx, d.ID.Hex(), 10)
	if err != nil {
		t.Fatalf("GetBySubject failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Category != audit.CategoryDelegation || events[0].Details["status"] != "accepted" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestLogger_ReviewDenied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Approval: "all"})
	e := &models.Expense{ID: primitive.NewObjectID(), ProjectID: primitive.NewObjectID()}
	logger.ReviewDenied(ctx, primitive.NewObjectID(), e, "not a reviewer")

	events, err := store.GetBySubject(ctx, e.ID.Hex(), 10)
	if err != nil {
		t.Fatalf("GetBySubject failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Success || events[0].FailureReason != "not a reviewer" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}
