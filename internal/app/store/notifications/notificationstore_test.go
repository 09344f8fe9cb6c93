package notificationstore_test

import (
	"errors"
	"testing"

	notificationstore "github.com/dalemusser/expensehub/internal/app/store/notifications"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/expensehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_InsertMany(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	got, err := store.InsertMany(ctx, []models.Notification{
		{RecipientID: a, Type: models.NotifyExpenseSubmitted, Title: "t", NavigationTarget: "pending_approvals/x"},
		{RecipientID: b, Type: models.NotifyExpenseSubmitted, Title: "t", NavigationTarget: "pending_approvals/x", IsRead: true},
	})
	if err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	for _, n := range got {
		if n.ID.IsZero() || n.CreatedAt.IsZero() {
			t.Errorf("expected id and created_at assigned: %+v", n)
		}
		if n.IsRead {
			t.Error("new notifications start unread")
		}
	}

	none, err := store.InsertMany(ctx, nil)
	if err != nil || none != nil {
		t.Errorf("expected no-op for empty input, got %v, %v", none, err)
	}
}

func TestStore_ListForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me, other := primitive.NewObjectID(), primitive.NewObjectID()
	var mine []models.Notification
	for i := 0; i < 3; i++ {
		mine = append(mine, fixtures.CreateNotification(ctx, me, models.NotifyChatMessage))
	}
	fixtures.CreateNotification(ctx, other, models.NotifyChatMessage)

	page1, next, err := store.ListForUser(ctx, me, false, "", 2)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != mine[2].ID {
		t.Fatalf("expected newest first, got %+v", page1)
	}
	if next == "" {
		t.Fatal("expected next cursor")
	}
	page2, next2, _ := store.ListForUser(ctx, me, false, next, 2)
	if len(page2) != 1 || page2[0].ID != mine[0].ID || next2 != "" {
		t.Errorf("unexpected second page: %+v next=%q", page2, next2)
	}

	if _, err := store.MarkRead(ctx, mine[1].ID, me); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	unread, _, _ := store.ListForUser(ctx, me, true, "", 0)
	if len(unread) != 2 {
		t.Errorf("expected 2 unread, got %d", len(unread))
	}

	empty, _, err := store.ListForUser(ctx, primitive.NewObjectID(), false, "", 0)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil list, got %v, %v", empty, err)
	}
}

func TestStore_MarkRead_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := primitive.NewObjectID()
	n := fixtures.CreateNotification(ctx, me, models.NotifyExpenseApproved)

	first, err := store.MarkRead(ctx, n.ID, me)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if !first.IsRead || first.ReadAt == nil {
		t.Fatalf("expected read with timestamp, got %+v", first)
	}

	second, err := store.MarkRead(ctx, n.ID, me)
	if err != nil {
		t.Fatalf("second MarkRead failed: %v", err)
	}
	if !second.IsRead {
		t.Error("expected still read")
	}
	if !second.ReadAt.Equal(*first.ReadAt) {
		t.Errorf("read_at moved from %v to %v", first.ReadAt, second.ReadAt)
	}

	count, _ := store.UnreadCount(ctx, me)
	if count != 0 {
		t.Errorf("expected 0 unread, got %d", count)
	}
}

func TestStore_MarkRead_OtherRecipient(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	n := fixtures.CreateNotification(ctx, owner, models.NotifyExpenseApproved)

	if _, err := store.MarkRead(ctx, n.ID, primitive.NewObjectID()); !errors.Is(err, notificationstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound for someone else's notification, got %v", err)
	}
	count, _ := store.UnreadCount(ctx, owner)
	if count != 1 {
		t.Errorf("owner's notification should stay unread, unread=%d", count)
	}
}

func TestStore_MarkAllRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me, other := primitive.NewObjectID(), primitive.NewObjectID()
	for i := 0; i < 3; i++ {
		fixtures.CreateNotification(ctx, me, models.NotifyChatMessage)
	}
	fixtures.CreateNotification(ctx, other, models.NotifyChatMessage)

	changed, err := store.MarkAllRead(ctx, me)
	if err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}
	if changed != 3 {
		t.Errorf("expected 3 changed, got %d", changed)
	}
	again, _ := store.MarkAllRead(ctx, me)
	if again != 0 {
		t.Errorf("expected 0 changed on repeat, got %d", again)
	}
	if c, _ := store.UnreadCount(ctx, other); c != 1 {
		t.Errorf("other recipient unread: got %d, want 1", c)
	}
}
