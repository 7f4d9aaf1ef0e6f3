package conversationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no conversation has the requested id.
var ErrNotFound = errors.New("conversation not found")

// Thread describes the participants and optional event context of a
// conversation.
type Thread struct {
	ConversationID string
	Participants   []models.Participant
	EventID        *int64
	EventName      string
}

func (t Thread) participantIDs() []string {
	ids := make([]string, 0, len(t.Participants))
	for _, p := range t.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("conversations")}
}

// Create inserts the conversation if it does not exist yet and returns the
// stored record. An existing conversation is returned unchanged. A new
// conversation has no last_message_time, so the first RecordMessage always
// wins regardless of its timestamp.
func (s *Store) Create(ctx context.Context, t Thread) (*models.Conversation, error) {
	now := time.Now().UTC()
	onInsert := bson.M{
		"participants":      t.Participants,
		"participant_ids":   t.participantIDs(),
		"last_message":      "",
		"last_message_time": nil,
		"created_at":        now,
		"updated_at":        now,
	}
	if t.EventID != nil {
		onInsert["event_id"] = *t.EventID
		onInsert["event_name"] = t.EventName
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c models.Conversation
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"conversation_id": t.ConversationID},
		bson.M{"$setOnInsert": onInsert},
		opts,
	).Decode(&c)
	if err != nil && wafflemongo.IsDup(err) {
		// Lost the insert race; the winner's document is there now.
		return s.Get(ctx, t.ConversationID)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RecordMessage upserts the conversation summary for a message sent at at.
// The summary only moves forward: an older message arriving late does not
// overwrite a newer last_message.
func (s *Store) RecordMessage(ctx context.Context, t Thread, content string, at time.Time) error {
	now := time.Now().UTC()
	newer := bson.M{"$gte": bson.A{at, bson.M{"$ifNull": bson.A{"$last_message_time", time.Time{}}}}}

	set := bson.M{
		"participants":      bson.M{"$literal": t.Participants},
		"participant_ids":   bson.M{"$literal": t.participantIDs()},
		"last_message":      bson.M{"$cond": bson.A{newer, bson.M{"$literal": content}, "$last_message"}},
		"last_message_time": bson.M{"$cond": bson.A{newer, at, "$last_message_time"}},
		"created_at":        bson.M{"$ifNull": bson.A{"$created_at", now}},
		"updated_at":        now,
	}
	if t.EventID != nil {
		set["event_id"] = *t.EventID
		set["event_name"] = bson.M{"$literal": t.EventName}
	}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}}
	filter := bson.M{"conversation_id": t.ConversationID}
	opts := options.Update().SetUpsert(true)

	_, err := s.c.UpdateOne(ctx, filter, pipeline, opts)
	if err != nil && wafflemongo.IsDup(err) {
		_, err = s.c.UpdateOne(ctx, filter, pipeline, opts)
	}
	return err
}

// Get loads a conversation by its caller-supplied id.
func (s *Store) Get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var c models.Conversation
	if err := s.c.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListForUser returns the conversations userID takes part in, most recent
// activity first. Conversations without messages come last, newest first.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"participant_ids": userID},
		options.Find().SetSort(bson.D{
			{Key: "last_message_time", Value: -1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Conversation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
