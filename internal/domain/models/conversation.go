package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Participant is the denormalized identity of one side of a conversation.
type Participant struct {
	UserID string `bson:"user_id" json:"userId"`
	Name   string `bson:"name" json:"name"`
	Type   string `bson:"type" json:"type"`
}

// Conversation is a read-model summary of a message thread. It is keyed by
// a caller-supplied ConversationID (deterministic per participant pair and
// event) and is safe to rebuild from messages.
type Conversation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID  string             `bson:"conversation_id" json:"conversationId"`
	Participants    []Participant      `bson:"participants" json:"participants"`
	ParticipantIDs  []string           `bson:"participant_ids" json:"participantIds"`
	EventID         *int64             `bson:"event_id,omitempty" json:"eventId,omitempty"`
	EventName       string             `bson:"event_name,omitempty" json:"eventName,omitempty"`
	LastMessage     string             `bson:"last_message" json:"lastMessage"`
	LastMessageTime *time.Time         `bson:"last_message_time" json:"lastMessageTime,omitempty"` // nil until the first message

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasParticipant reports whether userID takes part in the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}
