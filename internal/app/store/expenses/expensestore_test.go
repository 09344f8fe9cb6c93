package expensestore_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	expensestore "github.com/dalemusser/expensehub/internal/app/store/expenses"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/expensehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := expensestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.Expense{
		ProjectID:   primitive.NewObjectID(),
		SubmitterID: primitive.NewObjectID(),
		Amount:      1250,
		Currency:    "USD",
		Category:    "Catering",
		ExpenseDate: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Status != models.ExpenseDraft {
		t.Errorf("expected DRAFT default, got %q", created.Status)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Amount != 1250 || got.Category != "Catering" {
		t.Errorf("unexpected expense: %+v", got)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, expensestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Transition(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := expensestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	crew := fixtures.CreateUser(ctx, "Crew", models.RoleUser)
	head := fixtures.CreateProductionHead(ctx, "Head")
	p := fixtures.CreateProject(ctx, "Shoot", 0, testutil.Crew{Members: []primitive.ObjectID{crew.ID}})
	e := fixtures.CreateExpense(ctx, p, crew, 900, "Camera", models.ExpenseDraft)

	now := time.Now().UTC().Truncate(time.Millisecond)
	pending, err := store.Transition(ctx, e.ID, models.ExpenseDraft, models.StatusChange{To: models.ExpensePending, At: now})
	if err != nil {
		t.Fatalf("Transition to PENDING failed: %v", err)
	}
	if pending.Status != models.ExpensePending || pending.SubmittedAt == nil {
		t.Errorf("unexpected pending expense: %+v", pending)
	}

	approved, err := store.Transition(ctx, e.ID, models.ExpensePending, models.StatusChange{
		To:           models.ExpenseApproved,
		ReviewerID:   &head.ID,
		ReviewerName: head.FullName,
		Comment:      "ok",
		At:           now,
	})
	if err != nil {
		t.Fatalf("Transition to APPROVED failed: %v", err)
	}
	if approved.ReviewerID == nil || *approved.ReviewerID != head.ID {
		t.Error("expected reviewer recorded")
	}
	if approved.ReviewComment != "ok" || approved.ReviewedAt == nil {
		t.Errorf("expected review comment and time, got %+v", approved)
	}

	// A stale expectation leaves the terminal state untouched.
	_, err = store.Transition(ctx, e.ID, models.ExpensePending, models.StatusChange{To: models.ExpenseRejected, At: now})
	if !errors.Is(err, expensestore.ErrStatusChanged) {
		t.Errorf("expected ErrStatusChanged, got %v", err)
	}
	got, _ := store.GetByID(ctx, e.ID)
	if got.Status != models.ExpenseApproved {
		t.Errorf("terminal status changed to %q", got.Status)
	}

	_, err = store.Transition(ctx, primitive.NewObjectID(), models.ExpensePending, models.StatusChange{To: models.ExpenseApproved, At: now})
	if !errors.Is(err, expensestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Transition_ConcurrentDecisions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := expensestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	crew := fixtures.CreateUser(ctx, "Crew", models.RoleUser)
	p := fixtures.CreateProject(ctx, "Race", 0, testutil.Crew{Members: []primitive.ObjectID{crew.ID}})
	e := fixtures.CreateExpense(ctx, p, crew, 100, "", models.ExpensePending)

	targets := []models.ExpenseStatus{
		models.ExpenseApproved, models.ExpenseRejected,
		models.ExpenseApproved, models.ExpenseRejected,
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for _, to := range targets {
		wg.Add(1)
		go func(to models.ExpenseStatus) {
			defer wg.Done()
			_, err := store.Transition(ctx, e.ID, models.ExpensePending, models.StatusChange{To: to, At: time.Now()})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, expensestore.ErrStatusChanged) {
				t.Errorf("unexpected error: %v", err)
			}
		}(to)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winning decision, got %d", wins)
	}
}

func TestStore_SetComment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := expensestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	crew := fixtures.CreateUser(ctx, "Crew", models.RoleUser)
	p := fixtures.CreateProject(ctx, "Notes", 0, testutil.Crew{})
	e := fixtures.CreateExpense(ctx, p, crew, 100, "", models.ExpensePending)

	if _, err := store.SetComment(ctx, e.ID, true, "need receipt"); err != nil {
		t.Fatalf("SetComment failed: %v", err)
	}
	got, err := store.SetComment(ctx, e.ID, false, "attached")
	if err != nil {
		t.Fatalf("SetComment failed: %v", err)
	}
	if got.ReviewComment != "need receipt" || got.SubmitterComment != "attached" {
		t.Errorf("unexpected comments: %q / %q", got.ReviewComment, got.SubmitterComment)
	}
}

func TestStore_SummarizeAndApprovedTotal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := expensestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	crew := fixtures.CreateUser(ctx, "Crew", models.RoleUser)
	p := fixtures.CreateProject(ctx, "Totals", 10000, testutil.Crew{})
	other := fixtures.CreateProject(ctx, "Other", 0, testutil.Crew{})

	fixtures.CreateExpense(ctx, p, crew, 100, "Camera", models.ExpenseApproved)
	fixtures.CreateExpense(ctx, p, crew, 250, "Camera", models.ExpenseApproved)
	fixtures.CreateExpense(ctx, p, crew, 400, "Sound", models.ExpenseApproved)
	fixtures.CreateExpense(ctx, p, crew, 999, "Camera", models.ExpensePending)
	fixtures.CreateExpense(ctx, p, crew, 50, "Sound", models.ExpenseRejected)
	fixtures.CreateExpense(ctx, other, crew, 7777, "Camera", models.ExpenseApproved)

	s, err := store.Summarize(ctx, p.ID)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got := s.ByStatus[models.ExpenseApproved]; got.Count != 3 || got.Amount != 750 {
		t.Errorf("approved total: got %+v", got)
	}
	if got := s.ByStatus[models.ExpensePending]; got.Count != 1 || got.Amount != 999 {
		t.Errorf("pending total: got %+v", got)
	}
	if got := s.ByStatus[models.ExpenseDraft]; got.Count != 0 {
		t.Errorf("expected zero drafts, got %+v", got)
	}
	if got := s.ByDepartment["Camera"]; got.Count != 2 || got.Amount != 350 {
		t.Errorf("Camera total: got %+v", got)
	}
	if got := s.ByCategory["Equipment"]; got.Amount != 750 {
		t.Errorf("Equipment total: got %+v", got)
	}

	total, err := store.ApprovedTotal(ctx, p.ID, "")
	if err != nil {
		t.Fatalf("ApprovedTotal failed: %v", err)
	}
	if total != 750 {
		t.Errorf("project approved total: got %d, want 750", total)
	}
	sound, _ := store.ApprovedTotal(ctx, p.ID, "Sound")
	if sound != 400 {
		t.Errorf("Sound approved total: got %d, want 400", sound)
	}
	none, _ := store.ApprovedTotal(ctx, primitive.NewObjectID(), "")
	if none != 0 {
		t.Errorf("expected 0 for empty project, got %d", none)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := expensestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateUser(ctx, "A", models.RoleUser)
	b := fixtures.CreateUser(ctx, "B", models.RoleUser)
	p := fixtures.CreateProject(ctx, "Listing", 0, testutil.Crew{})

	var ids []primitive.ObjectID
	for i := 0; i < 3; i++ {
		ids = append(ids, fixtures.CreateExpense(ctx, p, a, 10, "Camera", models.ExpensePending).ID)
	}
	fixtures.CreateExpense(ctx, p, b, 10, "Sound", models.ExpenseApproved)

	page1, next, err := store.List(ctx, expensestore.ListFilter{ProjectID: p.ID, Status: models.ExpensePending}, "", 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != ids[2] || page1[1].ID != ids[1] {
		t.Fatalf("expected newest first, got %+v", page1)
	}
	page2, next2, _ := store.List(ctx, expensestore.ListFilter{ProjectID: p.ID, Status: models.ExpensePending}, next, 2)
	if len(page2) != 1 || page2[0].ID != ids[0] || next2 != "" {
		t.Errorf("unexpected second page: %+v next=%q", page2, next2)
	}

	mine, _, _ := store.List(ctx, expensestore.ListFilter{ProjectID: p.ID, SubmitterID: &b.ID}, "", 0)
	if len(mine) != 1 {
		t.Errorf("expected 1 expense for B, got %d", len(mine))
	}
	sound, _, _ := store.List(ctx, expensestore.ListFilter{ProjectID: p.ID, Department: "Sound"}, "", 0)
	if len(sound) != 1 {
		t.Errorf("expected 1 Sound expense, got %d", len(sound))
	}
}

func TestStore_List_EmptyIsNotNil(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := expensestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rows, next, err := store.List(ctx, expensestore.ListFilter{ProjectID: primitive.NewObjectID()}, "", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if rows == nil || len(rows) != 0 || next != "" {
		t.Fatalf("expected empty non-nil page, got %#v next=%q", rows, next)
	}
	b, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(b) != "[]" {
		t.Errorf("expected [] for an empty page, got %s", b)
	}
}

func TestStore_Each_DateRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := expensestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	pid := primitive.NewObjectID()
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	for _, d := range []int{5, 1, 10, 3} {
		if _, err := store.Create(ctx, models.Expense{ProjectID: pid, Amount: int64(d), ExpenseDate: day(d)}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	from, to := day(2), day(5)
	var got []int64
	err := store.Each(ctx, expensestore.ListFilter{ProjectID: pid, From: &from, To: &to}, func(e models.Expense) error {
		got = append(got, e.Amount)
		return nil
	})
	if err != nil {
		t.Fatalf("Each failed: %v", err)
	}
	if len(got) != 2 || got[0] != 3 || got[1] != 5 {
		t.Errorf("expected [3 5] in date order, got %v", got)
	}

	stop := errors.New("stop")
	calls := 0
	err = store.Each(ctx, expensestore.ListFilter{ProjectID: pid}, func(models.Expense) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("expected early stop after 1 call, got %d calls, err %v", calls, err)
	}
}
