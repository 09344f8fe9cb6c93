package userstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/normalize"
	"github.com/dalemusser/expensehub/internal/app/system/paging"
	"github.com/dalemusser/expensehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = fmt.Errorf("user %w", apperr.ErrNotFound)
	// ErrDuplicatePhone is returned when a phone number is already registered.
	ErrDuplicatePhone = fmt.Errorf("a user with this phone number already exists: %w", apperr.ErrConflict)
	errBadRole        = apperr.Invalid(`role must be "USER"|"APPROVER"|"PRODUCTION_HEAD"|"ADMIN"`)
	errPhoneNeeded    = apperr.Invalid("phone is required")
	errNameNeeded     = apperr.Invalid("full name is required")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// EnsureIndexes creates the indexes user lookups rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_phone"),
		},
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_name_ci"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "full_name_ci", Value: 1}},
			Options: options.Index().SetName("idx_role_name"),
		},
		{
			Keys:    bson.D{{Key: "assigned_projects", Value: 1}},
			Options: options.Index().SetName("idx_assigned_projects"),
		},
	})
	return err
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByPhone looks up a user by normalized phone number.
func (s *Store) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"phone": normalize.Phone(phone)})
}

// ListByIDs returns the users among ids that exist, in no particular order.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new user after normalizing & validating fields.
// Users start active with default notification preferences.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Phone = normalize.Phone(u.Phone)
	u.Email = normalize.Email(u.Email)
	if u.Phone == "" {
		return models.User{}, errPhoneNeeded
	}
	if u.FullName == "" {
		return models.User{}, errNameNeeded
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if _, ok := models.ParseRole(string(u.Role)); !ok {
		return models.User{}, errBadRole
	}
	if u.AssignedProjects == nil {
		u.AssignedProjects = []primitive.ObjectID{}
	}
	if !u.Preferences.PushEnabled && u.Preferences.Muted == nil {
		u.Preferences = models.DefaultNotificationPrefs()
	}
	u.IsActive = true
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicatePhone
		}
		return models.User{}, err
	}
	return u, nil
}

// SetRole changes a user's role and returns the user as it was before.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role models.Role) (*models.User, error) {
	if _, ok := models.ParseRole(string(role)); !ok {
		return nil, errBadRole
	}
	var before models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &before, nil
}

// Deactivate soft-deletes a user.
func (s *Store) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPreferences replaces a user's notification preferences.
func (s *Store) SetPreferences(ctx context.Context, id primitive.ObjectID, prefs models.NotificationPrefs) (*models.User, error) {
	for t := range prefs.Muted {
		if !t.Valid() {
			return nil, apperr.Invalid("unknown notification type " + string(t))
		}
	}
	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"notification_prefs": prefs, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AddProject records projectID in each user's assignments.
func (s *Store) AddProject(ctx context.Context, userIDs []primitive.ObjectID, projectID primitive.ObjectID) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": userIDs}},
		bson.M{"$addToSet": bson.M{"assigned_projects": projectID}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	return err
}

// RemoveProject removes projectID from each user's assignments.
func (s *Store) RemoveProject(ctx context.Context, userIDs []primitive.ObjectID, projectID primitive.ObjectID) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": userIDs}},
		bson.M{"$pull": bson.M{"assigned_projects": projectID}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	return err
}

// ListFilter narrows List.
type ListFilter struct {
	Role   models.Role
	Search string // prefix match on folded full name
	After  string
	Limit  int
}

// List returns users ordered by name with keyset paging.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, string, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = paging.DefaultLimit
	}
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if lo, hi := text.PrefixRange(f.Search); lo != "" {
		filter["full_name_ci"] = bson.M{"$gte": lo, "$lt": hi}
	}

	find := options.Find()
	cfg := paging.ConfigureKeyset(f.After)
	cfg.ApplyToFind(find, "full_name_ci", limit)
	if ks := cfg.KeysetWindow("full_name_ci"); ks != nil {
		if _, ranged := filter["full_name_ci"]; ranged {
			filter = bson.M{"$and": []bson.M{filter, ks}}
		} else {
			maps.Copy(filter, ks)
		}
	}

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)
	rows := []models.User{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, "", err
	}

	next := ""
	if paging.TrimPage(&rows, limit) {
		next = paging.BuildCursor(rows,
			func(u models.User) string { return u.FullNameCI },
			func(u models.User) primitive.ObjectID { return u.ID })
	}
	return rows, next, nil
}
