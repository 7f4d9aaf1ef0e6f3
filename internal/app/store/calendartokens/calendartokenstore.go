package calendartokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when the user has not connected a calendar.
var ErrNotFound = errors.New("calendar not connected")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("calendar_tokens")}
}

// Save upserts the token of t.UserID. An empty refresh token keeps the one
// already stored, since providers only send it on first consent.
func (s *Store) Save(ctx context.Context, t models.CalendarToken) error {
	set := bson.M{
		"access_token": t.AccessToken,
		"token_type":   t.TokenType,
		"expiry":       t.Expiry.UTC(),
		"updated_at":   time.Now().UTC(),
	}
	if t.RefreshToken != "" {
		set["refresh_token"] = t.RefreshToken
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": t.UserID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	return err
}

// Get loads the token of userID.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID) (*models.CalendarToken, error) {
	var t models.CalendarToken
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Delete removes the token of userID, if any.
func (s *Store) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
