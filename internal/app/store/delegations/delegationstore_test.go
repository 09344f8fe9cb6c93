package delegationstore_test

import (
	"errors"
	"testing"
	"time"

	delegationstore "github.com/dalemusser/expensehub/internal/app/store/delegations"
	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/expensehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := delegationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	created, err := store.Create(ctx, models.TemporaryApprover{
		ProjectID:    primitive.NewObjectID(),
		ApproverID:   primitive.NewObjectID(),
		AssignedBy:   primitive.NewObjectID(),
		StartDate:    now,
		ExpiringDate: now.Add(48 * time.Hour),
		IsActive:     true,
		Status:       models.DelegationPending,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.DelegationPending || !got.IsActive {
		t.Errorf("unexpected delegation: %+v", got)
	}
	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, delegationstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Respond(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := delegationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	pid, head := primitive.NewObjectID(), primitive.NewObjectID()
	acc := fixtures.CreateDelegation(ctx, pid, primitive.NewObjectID(), head, now, now.Add(time.Hour), models.DelegationPending, true)
	rej := fixtures.CreateDelegation(ctx, pid, primitive.NewObjectID(), head, now, now.Add(time.Hour), models.DelegationPending, true)

	got, err := store.Respond(ctx, acc.ID, models.DelegationAccepted, now)
	if err != nil {
		t.Fatalf("Respond accept failed: %v", err)
	}
	if got.Status != models.DelegationAccepted || !got.IsActive || got.RespondedAt == nil {
		t.Errorf("unexpected accepted delegation: %+v", got)
	}

	got, err = store.Respond(ctx, rej.ID, models.DelegationRejected, now)
	if err != nil {
		t.Fatalf("Respond reject failed: %v", err)
	}
	if got.Status != models.DelegationRejected || got.IsActive {
		t.Errorf("expected rejected and inactive, got %+v", got)
	}

	if _, err := store.Respond(ctx, acc.ID, models.DelegationRejected, now); !errors.Is(err, delegationstore.ErrChanged) {
		t.Errorf("expected ErrChanged answering twice, got %v", err)
	}
	if _, err := store.Respond(ctx, acc.ID, models.DelegationPending, now); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid response status, got %v", err)
	}
}

func TestStore_Deactivate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := delegationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	d := fixtures.CreateDelegation(ctx, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(),
		now, now.Add(time.Hour), models.DelegationAccepted, true)

	got, err := store.Deactivate(ctx, d.ID, now)
	if err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if got.IsActive {
		t.Error("expected inactive")
	}
	if _, err := store.Deactivate(ctx, d.ID, now); !errors.Is(err, delegationstore.ErrChanged) {
		t.Errorf("expected ErrChanged, got %v", err)
	}
	if _, err := store.Deactivate(ctx, primitive.NewObjectID(), now); !errors.Is(err, delegationstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListActive_ExcludesExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := delegationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	pid, head, delegate := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	live := fixtures.CreateDelegation(ctx, pid, delegate, head, now.Add(-time.Hour), now.Add(time.Hour), models.DelegationAccepted, true)
	fixtures.CreateDelegation(ctx, pid, delegate, head, now.Add(-48*time.Hour), now.Add(-time.Hour), models.DelegationAccepted, true)
	fixtures.CreateDelegation(ctx, pid, delegate, head, now, now.Add(time.Hour), models.DelegationAccepted, false)
	fixtures.CreateDelegation(ctx, primitive.NewObjectID(), delegate, head, now, now.Add(time.Hour), models.DelegationPending, true)

	got, err := store.ListActive(ctx, pid, now)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != live.ID {
		t.Errorf("expected only the live delegation, got %+v", got)
	}

	mine, err := store.ListForApprover(ctx, delegate, now)
	if err != nil {
		t.Fatalf("ListForApprover failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 live delegations for delegate, got %d", len(mine))
	}
}

func TestStore_ExpirySweep(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := delegationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	pid, head := primitive.NewObjectID(), primitive.NewObjectID()
	expired := fixtures.CreateDelegation(ctx, pid, primitive.NewObjectID(), head, now.Add(-48*time.Hour), now.Add(-time.Hour), models.DelegationAccepted, true)
	fixtures.CreateDelegation(ctx, pid, primitive.NewObjectID(), head, now, now.Add(time.Hour), models.DelegationAccepted, true)

	due, err := store.ListExpiredUnnotified(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListExpiredUnnotified failed: %v", err)
	}
	if len(due) != 1 || due[0].ID != expired.ID {
		t.Fatalf("expected the expired delegation, got %+v", due)
	}

	if err := store.MarkExpired(ctx, expired.ID, now); err != nil {
		t.Fatalf("MarkExpired failed: %v", err)
	}
	if err := store.MarkExpired(ctx, expired.ID, now); !errors.Is(err, delegationstore.ErrChanged) {
		t.Errorf("expected second MarkExpired to report ErrChanged, got %v", err)
	}

	got, _ := store.GetByID(ctx, expired.ID)
	if got.IsActive || !got.ExpiredNotified {
		t.Errorf("expected inactive and notified, got %+v", got)
	}
	due, _ = store.ListExpiredUnnotified(ctx, now, 10)
	if len(due) != 0 {
		t.Errorf("expected nothing left to sweep, got %d", len(due))
	}
}

func TestStore_MarkExpired_SkipsRemoved(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := delegationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	pid, head := primitive.NewObjectID(), primitive.NewObjectID()
	d := fixtures.CreateDelegation(ctx, pid, primitive.NewObjectID(), head, now.Add(-48*time.Hour), now.Add(-time.Hour), models.DelegationAccepted, true)

	if _, err := store.Deactivate(ctx, d.ID, now); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if err := store.MarkExpired(ctx, d.ID, now); !errors.Is(err, delegationstore.ErrChanged) {
		t.Errorf("expected ErrChanged for a removed delegation, got %v", err)
	}

	got, _ := store.GetByID(ctx, d.ID)
	if got.ExpiredNotified {
		t.Errorf("removed delegation must not be flagged as expiry-notified")
	}
}
