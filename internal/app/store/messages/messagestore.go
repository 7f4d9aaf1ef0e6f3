package messagestore

import (
	"context"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// Insert stores m as unread and returns it with its id and timestamp.
func (s *Store) Insert(ctx context.Context, m models.Message) (models.Message, error) {
	m.ID = primitive.NewObjectID()
	m.Read = false
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// ListByConversation returns the full history of a conversation, oldest
// first. Ties on created_at fall back to insertion order.
func (s *Store) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAsRead flips every unread message of the conversation addressed to
// userID. Running it again changes nothing.
func (s *Store) MarkAsRead(ctx context.Context, conversationID, userID string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"conversation_id": conversationID, "receiver_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnreadCount returns how many messages addressed to userID are unread,
// across all conversations.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"receiver_id": userID, "read": false})
}

// UnreadByConversation returns unread counts for userID keyed by
// conversation id. Conversations without unread messages are absent.
func (s *Store) UnreadByConversation(ctx context.Context, userID string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"receiver_id": userID, "read": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$conversation_id", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}
