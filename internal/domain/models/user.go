// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account types. A user's type decides which profile collection owns its
// approval gate; admins have no profile.
const (
	TypeVolunteer = "volunteer"
	TypeOrganizer = "organizer"
	TypeAdmin     = "admin"
)

// IsValidType reports whether t is a known account type.
func IsValidType(t string) bool {
	switch t {
	case TypeVolunteer, TypeOrganizer, TypeAdmin:
		return true
	}
	return false
}

// IsProfileType reports whether t is an account type that carries a profile
// (and therefore an approval gate).
func IsProfileType(t string) bool {
	return t == TypeVolunteer || t == TypeOrganizer
}

// User is the authentication record. It is authoritative for login and
// authorization; profile data lives in the volunteers/organizers collections
// and is joined by email.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"` // normalized, unique
	PasswordHash string             `bson:"password_hash" json:"-"`
	Type         string             `bson:"type" json:"type"` // volunteer | organizer | admin

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
