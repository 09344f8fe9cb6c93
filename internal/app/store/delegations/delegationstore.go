package delegationstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrNotFound is returned when no delegation matches.
	ErrNotFound = fmt.Errorf("delegation %w", apperr.ErrNotFound)
	// ErrChanged is returned when a conditional update finds the delegation
	// no longer in the expected state.
	ErrChanged = fmt.Errorf("delegation changed: %w", apperr.ErrConflict)
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("temporary_approvers")}
}

// EnsureIndexes creates the indexes delegation queries and the sweeper rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "is_active", Value: 1}, {Key: "expiring_date", Value: 1}},
			Options: options.Index().SetName("idx_project_active"),
		},
		{
			Keys:    bson.D{{Key: "approver_id", Value: 1}, {Key: "is_active", Value: 1}, {Key: "expiring_date", Value: 1}},
			Options: options.Index().SetName("idx_approver_active"),
		},
		{
			Keys:    bson.D{{Key: "expiring_date", Value: 1}},
			Options: options.Index().SetName("idx_sweep").SetPartialFilterExpression(bson.M{"is_active": true, "expired_notified": false}),
		},
	})
	return err
}

// Create inserts d and assigns its id and timestamps.
func (s *Store) Create(ctx context.Context, d models.TemporaryApprover) (models.TemporaryApprover, error) {
	d.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		return models.TemporaryApprover{}, err
	}
	return d, nil
}

// GetByID loads a delegation by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TemporaryApprover, error) {
	var d models.TemporaryApprover
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Respond records the delegate's answer on a pending, active delegation.
// A rejection also deactivates it.
func (s *Store) Respond(ctx context.Context, id primitive.ObjectID, status models.DelegationStatus, at time.Time) (*models.TemporaryApprover, error) {
	if status != models.DelegationAccepted && status != models.DelegationRejected {
		return nil, apperr.Invalid("response must be accepted or rejected")
	}
	set := bson.M{"status": status, "responded_at": at, "updated_at": at}
	if status == models.DelegationRejected {
		set["is_active"] = false
	}
	return s.update(ctx,
		bson.M{"_id": id, "status": models.DelegationPending, "is_active": true},
		bson.M{"$set": set})
}

// Deactivate ends an active delegation.
func (s *Store) Deactivate(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.TemporaryApprover, error) {
	return s.update(ctx,
		bson.M{"_id": id, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": at}})
}

// MarkExpired deactivates an expired delegation and flags that its expiry
// was announced. It succeeds at most once per delegation, and never for a
// delegation that was already removed.
func (s *Store) MarkExpired(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "expired_notified": false, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "expired_notified": true, "updated_at": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrChanged
	}
	return nil
}

// ListActive returns the project's active delegations whose window has not
// ended at now. Pending and future-dated rows are included.
func (s *Store) ListActive(ctx context.Context, projectID primitive.ObjectID, now time.Time) ([]models.TemporaryApprover, error) {
	return s.find(ctx, bson.M{
		"project_id":    projectID,
		"is_active":     true,
		"expiring_date": bson.M{"$gte": now.UTC()},
	}, options.Find().SetSort(bson.D{{Key: "expiring_date", Value: 1}}))
}

// ListForApprover returns the delegate's active, unexpired delegations.
func (s *Store) ListForApprover(ctx context.Context, approverID primitive.ObjectID, now time.Time) ([]models.TemporaryApprover, error) {
	return s.find(ctx, bson.M{
		"approver_id":   approverID,
		"is_active":     true,
		"expiring_date": bson.M{"$gte": now.UTC()},
	}, options.Find().SetSort(bson.D{{Key: "expiring_date", Value: 1}}))
}

// ListExpiredUnnotified returns up to limit active delegations past their
// expiring date whose expiry has not been announced, oldest first.
func (s *Store) ListExpiredUnnotified(ctx context.Context, now time.Time, limit int64) ([]models.TemporaryApprover, error) {
	return s.find(ctx, bson.M{
		"is_active":        true,
		"expired_notified": false,
		"expiring_date":    bson.M{"$lt": now.UTC()},
	}, options.Find().SetSort(bson.D{{Key: "expiring_date", Value: 1}}).SetLimit(limit))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.TemporaryApprover, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.TemporaryApprover{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) update(ctx context.Context, filter, update bson.M) (*models.TemporaryApprover, error) {
	var d models.TemporaryApprover
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := s.c.CountDocuments(ctx, bson.M{"_id": filter["_id"]})
		if cerr != nil {
			return nil, cerr
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrChanged
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
