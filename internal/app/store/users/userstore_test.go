package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/expensehub/internal/app/store/users"
	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/expensehub/internal/testutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName: "  Ana   Núñez ",
		Phone:    "+1 (555) 010-2030",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.FullName != "Ana Núñez" {
		t.Errorf("FullName: got %q", created.FullName)
	}
	if created.FullNameCI != text.Fold("Ana Núñez") {
		t.Errorf("FullNameCI: got %q", created.FullNameCI)
	}
	if created.Phone != "+15550102030" {
		t.Errorf("Phone: got %q", created.Phone)
	}
	if created.Role != models.RoleUser {
		t.Errorf("Role: got %q, want USER", created.Role)
	}
	if !created.IsActive {
		t.Error("expected new user to be active")
	}
	if !created.Preferences.PushEnabled {
		t.Error("expected push enabled by default")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name string
		user models.User
	}{
		{"missing phone", models.User{FullName: "No Phone"}},
		{"missing name", models.User{FullName: "  ", Phone: "+15550000002"}},
		{"bad role", models.User{FullName: "Bad Role", Phone: "+15550000001", Role: "OWNER"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Create(ctx, tc.user)
			if !errors.Is(err, apperr.ErrInvalid) {
				t.Errorf("expected invalid error, got %v", err)
			}
		})
	}
}

func TestStore_Create_DuplicatePhone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	if _, err := store.Create(ctx, models.User{FullName: "First", Phone: "+15550001111"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{FullName: "Second", Phone: "+1 555 000 1111"})
	if !errors.Is(err, userstore.ErrDuplicatePhone) {
		t.Errorf("expected ErrDuplicatePhone, got %v", err)
	}
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict kind, got %v", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_GetByPhone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Phone Owner", models.RoleUser)

	got, err := store.GetByPhone(ctx, u.Phone)
	if err != nil {
		t.Fatalf("GetByPhone failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("got user %s, want %s", got.ID.Hex(), u.ID.Hex())
	}
}

func TestStore_ListByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateUser(ctx, "A", models.RoleUser)
	b := fixtures.CreateApprover(ctx, "B")
	fixtures.CreateUser(ctx, "C", models.RoleUser)

	got, err := store.ListByIDs(ctx, []primitive.ObjectID{a.ID, b.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("ListByIDs failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 users, got %d", len(got))
	}

	none, err := store.ListByIDs(ctx, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("expected empty result for no ids, got %v, %v", none, err)
	}
}

func TestStore_SetRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Promoted", models.RoleUser)

	before, err := store.SetRole(ctx, u.ID, models.RoleApprover)
	if err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	if before.Role != models.RoleUser {
		t.Errorf("expected previous role USER, got %q", before.Role)
	}

	after, _ := store.GetByID(ctx, u.ID)
	if after.Role != models.RoleApprover {
		t.Errorf("expected APPROVER, got %q", after.Role)
	}

	if _, err := store.SetRole(ctx, u.ID, "BOSS"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid role error, got %v", err)
	}
	if _, err := store.SetRole(ctx, primitive.NewObjectID(), models.RoleAdmin); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Deactivate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Leaving", models.RoleUser)
	if err := store.Deactivate(ctx, u.ID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	got, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.IsActive {
		t.Error("expected user to be inactive")
	}

	if err := store.Deactivate(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SetPreferences(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Quiet", models.RoleUser)

	prefs := models.NotificationPrefs{
		PushEnabled: false,
		Muted:       map[models.NotificationType]bool{models.NotifyChatMessage: true},
	}
	got, err := store.SetPreferences(ctx, u.ID, prefs)
	if err != nil {
		t.Fatalf("SetPreferences failed: %v", err)
	}
	if got.Preferences.PushEnabled {
		t.Error("expected push disabled")
	}
	if got.Preferences.Wants(models.NotifyChatMessage) {
		t.Error("expected chat messages muted")
	}

	bad := models.NotificationPrefs{Muted: map[models.NotificationType]bool{"NOPE": true}}
	if _, err := store.SetPreferences(ctx, u.ID, bad); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid error, got %v", err)
	}
}

func TestStore_AddRemoveProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateUser(ctx, "A", models.RoleUser)
	b := fixtures.CreateUser(ctx, "B", models.RoleUser)
	pid := primitive.NewObjectID()

	ids := []primitive.ObjectID{a.ID, b.ID}
	if err := store.AddProject(ctx, ids, pid); err != nil {
		t.Fatalf("AddProject failed: %v", err)
	}
	// adding twice keeps a single entry
	if err := store.AddProject(ctx, ids, pid); err != nil {
		t.Fatalf("AddProject failed: %v", err)
	}
	got, _ := store.GetByID(ctx, a.ID)
	if len(got.AssignedProjects) != 1 || !got.IsAssignedTo(pid) {
		t.Errorf("expected single assignment, got %v", got.AssignedProjects)
	}

	if err := store.RemoveProject(ctx, []primitive.ObjectID{a.ID}, pid); err != nil {
		t.Fatalf("RemoveProject failed: %v", err)
	}
	got, _ = store.GetByID(ctx, a.ID)
	if got.IsAssignedTo(pid) {
		t.Error("expected assignment removed")
	}
	other, _ := store.GetByID(ctx, b.ID)
	if !other.IsAssignedTo(pid) {
		t.Error("expected other user to keep assignment")
	}
}

func TestStore_List_Paging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, n := range []string{"Dana", "Abe", "Cleo", "Bea", "Eli"} {
		fixtures.CreateUser(ctx, n, models.RoleUser)
	}
	fixtures.CreateApprover(ctx, "Ava")

	page1, next, err := store.List(ctx, userstore.ListFilter{Role: models.RoleUser, Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page1) != 2 || page1[0].FullName != "Abe" || page1[1].FullName != "Bea" {
		t.Fatalf("unexpected first page: %+v", page1)
	}
	if next == "" {
		t.Fatal("expected next cursor")
	}

	page2, next2, err := store.List(ctx, userstore.ListFilter{Role: models.RoleUser, Limit: 2, After: next})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page2) != 2 || page2[0].FullName != "Cleo" {
		t.Fatalf("unexpected second page: %+v", page2)
	}

	page3, next3, _ := store.List(ctx, userstore.ListFilter{Role: models.RoleUser, Limit: 2, After: next2})
	if len(page3) != 1 || next3 != "" {
		t.Errorf("expected final page of 1 with no cursor, got %d, %q", len(page3), next3)
	}

	search, _, _ := store.List(ctx, userstore.ListFilter{Search: "a"})
	if len(search) != 2 {
		t.Errorf("expected Abe and Ava for prefix 'a', got %d", len(search))
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fetcher := userstore.NewFetcher(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	active := fixtures.CreateUser(ctx, "Active", models.RoleUser)
	inactive := fixtures.CreateDeactivatedUser(ctx, "Gone")

	if u := fetcher.FetchUser(ctx, active.ID.Hex()); u == nil || u.ID != active.ID {
		t.Errorf("expected active user, got %+v", u)
	}
	if u := fetcher.FetchUser(ctx, inactive.ID.Hex()); u != nil {
		t.Error("expected nil for inactive user")
	}
	if u := fetcher.FetchUser(ctx, "not-an-id"); u != nil {
		t.Error("expected nil for malformed id")
	}
	if u := fetcher.FetchUser(ctx, primitive.NewObjectID().Hex()); u != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestFetcher_FetchOrCreateByPhone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fetcher := userstore.NewFetcher(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first := fetcher.FetchOrCreateByPhone(ctx, "+1 (555) 010-4242", "Dana Grip")
	if first == nil {
		t.Fatal("expected user to be created on first login")
	}
	if first.Phone != "+15550104242" || first.Role != models.RoleUser || !first.IsActive {
		t.Errorf("unexpected new user: %+v", first)
	}
	if !first.Preferences.PushEnabled || first.FullNameCI != text.Fold("Dana Grip") {
		t.Errorf("expected default prefs and folded name, got %+v", first)
	}

	again := fetcher.FetchOrCreateByPhone(ctx, "+15550104242", "Someone Else")
	if again == nil || again.ID != first.ID || again.FullName != "Dana Grip" {
		t.Errorf("second login should reuse the user, got %+v", again)
	}
	count, err := db.Collection("users").CountDocuments(ctx, map[string]any{"phone": "+15550104242"})
	if err != nil || count != 1 {
		t.Errorf("expected exactly one user for the phone, got %d (%v)", count, err)
	}

	unnamed := fetcher.FetchOrCreateByPhone(ctx, "+15550107777", "")
	if unnamed == nil || unnamed.FullName != "+15550107777" {
		t.Errorf("expected phone as fallback name, got %+v", unnamed)
	}

	gone := fixtures.CreateDeactivatedUser(ctx, "Gone")
	if u := fetcher.FetchOrCreateByPhone(ctx, gone.Phone, "Gone"); u != nil {
		t.Error("expected nil for a deactivated user")
	}
	if u := fetcher.FetchOrCreateByPhone(ctx, "  ", "Blank"); u != nil {
		t.Error("expected nil for a blank phone")
	}
}
