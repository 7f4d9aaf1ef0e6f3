package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CalendarToken holds the OAuth2 tokens granted by a user for calendar sync.
type CalendarToken struct {
	UserID       primitive.ObjectID `bson:"user_id"`
	AccessToken  string             `bson:"access_token"`
	RefreshToken string             `bson:"refresh_token,omitempty"`
	TokenType    string             `bson:"token_type,omitempty"`
	Expiry       time.Time          `bson:"expiry"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}
