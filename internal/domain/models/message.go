package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is immutable once written except for Read, which only ever moves
// from false to true.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversationId"`
	SenderID       string             `bson:"sender_id" json:"senderId"`
	SenderName     string             `bson:"sender_name" json:"senderName"`
	SenderType     string             `bson:"sender_type" json:"senderType"`
	ReceiverID     string             `bson:"receiver_id" json:"receiverId"`
	ReceiverName   string             `bson:"receiver_name" json:"receiverName"`
	ReceiverType   string             `bson:"receiver_type" json:"receiverType"`
	Content        string             `bson:"content" json:"content"`
	EventID        *int64             `bson:"event_id,omitempty" json:"eventId,omitempty"`
	EventName      string             `bson:"event_name,omitempty" json:"eventName,omitempty"`
	Read           bool               `bson:"read" json:"read"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}
