package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApprovalGate is the (isPending, isApproved) pair shared by profiles and
// events. Pending implies not approved; approved implies not pending.
type ApprovalGate struct {
	IsPending  bool `bson:"is_pending" json:"isPending"`
	IsApproved bool `bson:"is_approved" json:"isApproved"`
}

// Pending returns the gate for a record awaiting admin review.
func Pending() ApprovalGate { return ApprovalGate{IsPending: true} }

// Approved returns the gate for an admin-approved record.
func Approved() ApprovalGate { return ApprovalGate{IsApproved: true} }

// VolunteerProfile is 1:1 with a volunteer User by email.
type VolunteerProfile struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email             string             `bson:"email" json:"email"`
	Name              string             `bson:"name" json:"name"`
	Phone             string             `bson:"phone,omitempty" json:"phone,omitempty"`
	City              string             `bson:"city,omitempty" json:"city,omitempty"`
	Bio               string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Skills            SkillSet           `bson:"skills" json:"skills"`
	Availability      []string           `bson:"availability,omitempty" json:"availability,omitempty"`
	ProfilePictureURL string             `bson:"profile_picture_url,omitempty" json:"profilePictureUrl,omitempty"`
	ApprovalGate      `bson:",inline"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// OrganizerProfile is 1:1 with an organizer User by email.
type OrganizerProfile struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email             string             `bson:"email" json:"email"`
	Name              string             `bson:"name" json:"name"`
	Organization      string             `bson:"organization" json:"organization"`
	Phone             string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Website           string             `bson:"website,omitempty" json:"website,omitempty"`
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	ProfilePictureURL string             `bson:"profile_picture_url,omitempty" json:"profilePictureUrl,omitempty"`
	ApprovalGate      `bson:",inline"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
