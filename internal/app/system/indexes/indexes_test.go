package indexes_test

import (
	"testing"

	"github.com/dalemusser/expensehub/internal/app/system/indexes"
	"github.com/dalemusser/expensehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		coll  string
		names []string
	}{
		{"users", []string{"uniq_phone", "idx_name_ci", "idx_assigned_projects"}},
		{"projects", []string{"uniq_name_ci", "idx_team_members", "idx_approver_ids", "idx_production_head_ids"}},
		{"expenses", []string{"idx_project_status", "idx_submitter", "idx_project_expense_date"}},
		{"notifications", []string{"idx_recipient_newest", "idx_recipient_unread"}},
		{"temporary_approvers", []string{"idx_project_active", "idx_approver_active", "idx_sweep"}},
		{"chats", []string{"uniq_project_pair"}},
		{"chat_messages", []string{"idx_chat_newest"}},
	}

	for _, tt := range tests {
		t.Run(tt.coll, func(t *testing.T) {
			got := indexNames(t, db, tt.coll)
			for _, name := range tt.names {
				if !got[name] {
					t.Errorf("expected index %q to exist on %s collection", name, tt.coll)
				}
			}
		})
	}
}

func TestEnsureAll_UniqueIndexEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := db.Collection("users").InsertOne(ctx, bson.M{"phone": "+15550001111", "full_name": "A"})
	if err != nil {
		t.Fatalf("Insert user failed: %v", err)
	}
	_, err = db.Collection("users").InsertOne(ctx, bson.M{"phone": "+15550001111", "full_name": "B"})
	if err == nil {
		t.Error("expected duplicate key error for unique index on users.phone")
	}
}
