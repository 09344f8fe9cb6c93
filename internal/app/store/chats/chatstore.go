package chatstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/paging"
	"github.com/dalemusser/expensehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no chat matches.
var ErrNotFound = fmt.Errorf("chat %w", apperr.ErrNotFound)

// lastMessageLen bounds the preview kept on the chat row.
const lastMessageLen = 120

type Store struct {
	chats    *mongo.Collection
	messages *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		chats:    db.Collection("chats"),
		messages: db.Collection("chat_messages"),
	}
}

// EnsureIndexes creates the chat and message indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.chats.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "participant_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_project_pair"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "participants", Value: 1}, {Key: "last_message_at", Value: -1}},
			Options: options.Index().SetName("idx_project_participant_recent"),
		},
	})
	if err != nil {
		return err
	}
	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("idx_chat_newest"),
	})
	return err
}

// ParticipantKey is the order-independent key of a pair of users.
func ParticipantKey(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}

// Open returns the project chat between a and b, creating it when it does
// not exist yet. created reports whether this call created it.
func (s *Store) Open(ctx context.Context, projectID, a, b primitive.ObjectID) (chat *models.Chat, created bool, err error) {
	if a == b {
		return nil, false, apperr.Invalid("a chat needs two different participants")
	}
	key := ParticipantKey(a, b)
	filter := bson.M{"project_id": projectID, "participant_key": key}

	res, err := s.chats.UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": bson.M{
			"_id":          primitive.NewObjectID(),
			"participants": []primitive.ObjectID{a, b},
			"created_at":   time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	// Two concurrent opens can both try to insert; the loser reads the winner's row.
	if err != nil && !wafflemongo.IsDup(err) {
		return nil, false, err
	}
	if err == nil {
		created = res.UpsertedCount == 1
	}

	var c models.Chat
	if err := s.chats.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, false, err
	}
	return &c, created, nil
}

// GetByID loads a chat by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	var c models.Chat
	if err := s.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListForUser returns the user's chats on a project, most recent activity first.
func (s *Store) ListForUser(ctx context.Context, projectID, userID primitive.ObjectID) ([]models.Chat, error) {
	cur, err := s.chats.Find(ctx,
		bson.M{"project_id": projectID, "participants": userID},
		options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Chat{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Append adds a message to a chat and updates the chat's preview. The
// sender has read their own message.
func (s *Store) Append(ctx context.Context, chatID, senderID primitive.ObjectID, text string, at time.Time) (models.Message, error) {
	m := models.Message{
		ID:       primitive.NewObjectID(),
		ChatID:   chatID,
		SenderID: senderID,
		Text:     text,
		SentAt:   at.UTC(),
		ReadBy:   []primitive.ObjectID{senderID},
	}
	if _, err := s.messages.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}

	preview := []rune(text)
	if len(preview) > lastMessageLen {
		preview = preview[:lastMessageLen]
	}
	res, err := s.chats.UpdateByID(ctx, chatID, bson.M{"$set": bson.M{
		"last_message":    string(preview),
		"last_message_at": m.SentAt,
	}})
	if err != nil {
		return models.Message{}, err
	}
	if res.MatchedCount == 0 {
		return models.Message{}, ErrNotFound
	}
	return m, nil
}

// Messages returns a chat's messages newest first. after is the id of the
// last message on the previous page.
func (s *Store) Messages(ctx context.Context, chatID primitive.ObjectID, after string, limit int) ([]models.Message, string, error) {
	if limit <= 0 {
		limit = paging.DefaultLimit
	}
	filter := bson.M{"chat_id": chatID}
	find := options.Find()
	if ks := paging.NewestFirst(find, after, limit); ks != nil {
		maps.Copy(filter, ks)
	}

	cur, err := s.messages.Find(ctx, filter, find)
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)
	rows := []models.Message{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, "", err
	}

	next := ""
	if paging.TrimPage(&rows, limit) {
		next = rows[len(rows)-1].ID.Hex()
	}
	return rows, next, nil
}

// MarkRead records that userID has read every message in the chat and
// returns how many messages changed.
func (s *Store) MarkRead(ctx context.Context, chatID, userID primitive.ObjectID) (int64, error) {
	res, err := s.messages.UpdateMany(ctx,
		bson.M{"chat_id": chatID, "read_by": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnreadCount counts the chat's messages userID has not read.
func (s *Store) UnreadCount(ctx context.Context, chatID, userID primitive.ObjectID) (int64, error) {
	return s.messages.CountDocuments(ctx, bson.M{"chat_id": chatID, "read_by": bson.M{"$ne": userID}})
}
