// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/expensehub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// collections lists every collection the app writes, with its JSON-Schema
// validator. A nil schema means the collection is only created.
func collections() []struct {
	name   string
	schema bson.M
} {
	return []struct {
		name   string
		schema bson.M
	}{
		{"users", usersSchema()},
		{"projects", projectsSchema()},
		{"expenses", expensesSchema()},
		{"notifications", notificationsSchema()},
		{"temporary_approvers", delegationsSchema()},
		{"chats", nil},
		{"chat_messages", nil},
		{"audit_events", nil},
	}
}

// EnsureAll creates missing collections and attaches their validators.
// Servers without collMod support (some DocumentDB versions) skip the
// validators with an info log.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing := map[string]bool{}
	if names, err := db.ListCollectionNames(ctx, bson.M{}); err == nil {
		for _, n := range names {
			existing[n] = true
		}
	}

	var problems []string
	for _, c := range collections() {
		if !existing[c.name] {
			if err := db.CreateCollection(ctx, c.name); err != nil && !commandErr(err, []int32{48}, "already exists", "namespace exists") {
				problems = append(problems, c.name+": "+err.Error())
				continue
			}
			zap.L().Info("created collection", zap.String("collection", c.name))
		}
		if c.schema == nil {
			continue
		}
		if err := setValidator(ctx, db, c.name, c.schema); err != nil {
			if commandErr(err, []int32{59, 115}, "no such command", "not implemented", "not supported") {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
				continue
			}
			problems = append(problems, c.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

// commandErr reports whether err is a command error with one of codes, or
// its message contains one of phrases.
func commandErr(err error, codes []int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

/* ------------------------- JSON-Schema docs ---------------------- */

func enum[T ~string](vals []T) bson.A {
	out := make(bson.A, 0, len(vals))
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	objectID = bson.M{"bsonType": "objectId"}
	money    = bson.M{"bsonType": bson.A{"int", "long"}}
)

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "phone", "role", "is_active"},
			"properties": bson.M{
				"full_name":    nonBlank,
				"full_name_ci": nonBlank,
				"phone":        nonBlank,
				"email":        bson.M{"bsonType": bson.A{"string", "null"}},
				"role":         bson.M{"enum": enum(models.Roles)},
				"is_active":    bson.M{"bsonType": "bool"},
			},
		},
	}
}

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "budget", "status"},
			"properties": bson.M{
				"name":    nonBlank,
				"name_ci": nonBlank,
				"budget":  bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"status":  bson.M{"enum": bson.A{models.ProjectStatusActive, models.ProjectStatusArchived}},
			},
		},
	}
}

// Every expense carries exactly one of the known statuses.
func expensesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "submitter_id", "amount", "status"},
			"properties": bson.M{
				"project_id":   objectID,
				"submitter_id": objectID,
				"amount":       money,
				"status":       bson.M{"enum": enum(models.ExpenseStatuses)},
			},
		},
	}
}

// Every notification has exactly one recipient.
func notificationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"recipient_id", "type", "is_read", "created_at"},
			"properties": bson.M{
				"recipient_id": objectID,
				"type":         bson.M{"enum": enum(models.NotificationTypes)},
				"is_read":      bson.M{"bsonType": "bool"},
				"created_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func delegationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "approver_id", "expiring_date", "is_active", "status"},
			"properties": bson.M{
				"project_id":    objectID,
				"approver_id":   objectID,
				"expiring_date": bson.M{"bsonType": "date"},
				"is_active":     bson.M{"bsonType": "bool"},
				"status": bson.M{"enum": enum([]models.DelegationStatus{
					models.DelegationPending, models.DelegationAccepted, models.DelegationRejected,
				})},
			},
		},
	}
}
