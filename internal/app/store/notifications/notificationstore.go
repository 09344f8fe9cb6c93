package notificationstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/paging"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no notification matches for the recipient.
var ErrNotFound = fmt.Errorf("notification %w", apperr.ErrNotFound)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// EnsureIndexes creates the indexes the feed and unread badge rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_recipient_newest"),
		},
		{
			Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "is_read", Value: 1}},
			Options: options.Index().SetName("idx_recipient_unread"),
		},
	})
	return err
}

// InsertMany stores ns in one write and returns them with ids assigned.
// Records that already carry an id keep it.
func (s *Store) InsertMany(ctx context.Context, ns []models.Notification) ([]models.Notification, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	out := make([]models.Notification, len(ns))
	docs := make([]any, len(ns))
	for i, n := range ns {
		if n.ID.IsZero() {
			n.ID = primitive.NewObjectID()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		n.IsRead = false
		n.ReadAt = nil
		out[i] = n
		docs[i] = n
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		return nil, err
	}
	return out, nil
}

// ListForUser returns a recipient's notifications newest first. after is
// the id of the last notification on the previous page.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, after string, limit int) ([]models.Notification, string, error) {
	if limit <= 0 {
		limit = paging.DefaultLimit
	}
	filter := bson.M{"recipient_id": userID}
	if unreadOnly {
		filter["is_read"] = false
	}
	find := options.Find()
	if ks := paging.NewestFirst(find, after, limit); ks != nil {
		maps.Copy(filter, ks)
	}

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)
	rows := []models.Notification{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, "", err
	}

	next := ""
	if paging.TrimPage(&rows, limit) {
		next = rows[len(rows)-1].ID.Hex()
	}
	return rows, next, nil
}

// UnreadCount counts a recipient's unread notifications.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"recipient_id": userID, "is_read": false})
}

// MarkRead marks one notification read. Marking an already-read
// notification returns it unchanged, so ReadAt keeps the first read time.
// A notification belonging to someone else is reported as not found.
func (s *Store) MarkRead(ctx context.Context, id, recipientID primitive.ObjectID) (*models.Notification, error) {
	now := time.Now().UTC()
	var n models.Notification
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "recipient_id": recipientID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err == nil {
		return &n, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	if err := s.c.FindOne(ctx, bson.M{"_id": id, "recipient_id": recipientID}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// MarkAllRead marks every unread notification of the recipient read and
// returns how many changed.
func (s *Store) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Watch opens a change stream over the recipient's notifications. Inserts
// and updates are both reported; callers re-read rather than decode events.
func (s *Store) Watch(ctx context.Context, recipientID primitive.ObjectID) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType":             bson.M{"$in": []string{"insert", "update", "replace"}},
			"fullDocument.recipient_id": recipientID,
		}}},
	}
	return s.c.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
}
