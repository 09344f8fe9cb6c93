package userstore

import (
	"context"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/normalize"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each request,
// so role changes and deactivation take effect without re-issuing tokens.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// FetchUser returns the user or nil if the id is malformed, the user does
// not exist or is inactive, or the lookup fails.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *models.User {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		return nil
	}
	if !u.IsActive {
		return nil
	}
	return &u
}

// FetchOrCreateByPhone returns the user registered under phone. On first
// login a USER with default notification preferences is created, named
// name or, when the provider sent none, the phone number. Deactivated
// users get nil.
func (f *Fetcher) FetchOrCreateByPhone(ctx context.Context, phone, name string) *models.User {
	phone = normalize.Phone(phone)
	if phone == "" {
		return nil
	}
	if name = normalize.Name(name); name == "" {
		name = phone
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	now := time.Now().UTC()
	onInsert := bson.M{
		"_id":                primitive.NewObjectID(),
		"full_name":          name,
		"full_name_ci":       text.Fold(name),
		"role":               models.RoleUser,
		"assigned_projects":  []primitive.ObjectID{},
		"notification_prefs": models.DefaultNotificationPrefs(),
		"is_active":          true,
		"created_at":         now,
		"updated_at":         now,
	}

	var u models.User
	err := f.users.FindOneAndUpdate(ctx,
		bson.M{"phone": phone},
		bson.M{"$setOnInsert": onInsert},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&u)
	if wafflemongo.IsDup(err) {
		// Lost a race with a concurrent first login for the same phone.
		err = f.users.FindOne(ctx, bson.M{"phone": phone}).Decode(&u)
	}
	if err != nil || !u.IsActive {
		return nil
	}
	return &u
}
