// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	auditstore "github.com/dalemusser/expensehub/internal/app/store/audit"
	chatstore "github.com/dalemusser/expensehub/internal/app/store/chats"
	delegationstore "github.com/dalemusser/expensehub/internal/app/store/delegations"
	expensestore "github.com/dalemusser/expensehub/internal/app/store/expenses"
	notificationstore "github.com/dalemusser/expensehub/internal/app/store/notifications"
	projectstore "github.com/dalemusser/expensehub/internal/app/store/projects"
	userstore "github.com/dalemusser/expensehub/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
)

type ensurer interface {
	EnsureIndexes(ctx context.Context) error
}

/*
EnsureAll is called at startup. Each store's EnsureIndexes is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		name string
		s    ensurer
	}{
		{"users", userstore.New(db)},
		{"projects", projectstore.New(db)},
		{"expenses", expensestore.New(db)},
		{"notifications", notificationstore.New(db)},
		{"temporary_approvers", delegationstore.New(db)},
		{"chats", chatstore.New(db)},
		{"audit_events", auditstore.New(db)},
	}

	var problems []string
	for _, set := range sets {
		if err := set.s.EnsureIndexes(ctx); err != nil {
			problems = append(problems, set.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
