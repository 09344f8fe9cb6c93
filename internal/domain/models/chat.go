// internal/domain/models/chat.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat is a 1:1 conversation between two members of a project.
type Chat struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProjectID      primitive.ObjectID   `bson:"project_id" json:"project_id"`
	Participants   []primitive.ObjectID `bson:"participants" json:"participants"`
	ParticipantKey string               `bson:"participant_key" json:"-"` // sorted hex pair, unique per project
	LastMessage    string               `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastMessageAt  *time.Time           `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
}

// Other returns the participant that is not id.
func (c *Chat) Other(id primitive.ObjectID) (primitive.ObjectID, bool) {
	for _, p := range c.Participants {
		if p != id {
			return p, true
		}
	}
	return primitive.NilObjectID, false
}

// Includes reports whether id is a participant.
func (c *Chat) Includes(id primitive.ObjectID) bool {
	return containsID(c.Participants, id)
}

// Message is one append-only chat entry.
type Message struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ChatID   primitive.ObjectID   `bson:"chat_id" json:"chat_id"`
	SenderID primitive.ObjectID   `bson:"sender_id" json:"sender_id"`
	Text     string               `bson:"text" json:"text"`
	SentAt   time.Time            `bson:"sent_at" json:"sent_at"`
	ReadBy   []primitive.ObjectID `bson:"read_by" json:"read_by"`
}
