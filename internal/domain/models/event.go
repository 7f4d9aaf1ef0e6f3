package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is an organizer-created volunteer opportunity.
//
// Lifecycle (flags, not a status string, to keep the stored shape compatible
// with the approval gate used by profiles):
//
//	created        -> pending
//	approve/reject -> approved | rejected (both flags false, not completed)
//	close          -> pending again, registrations_closed
//	complete       -> completed (terminal)
type Event struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID              int64              `bson:"event_id" json:"eventId"`
	OrganizerID          primitive.ObjectID `bson:"organizer_id" json:"organizerId"`
	OrganizerEmail       string             `bson:"organizer_email" json:"organizerEmail"`
	OrganizerName        string             `bson:"organizer_name" json:"organizerName"`
	Title                string             `bson:"title" json:"title"`
	Description          string             `bson:"description" json:"description"`
	Location             string             `bson:"location" json:"location"`
	Category             string             `bson:"category,omitempty" json:"category,omitempty"`
	Date                 time.Time          `bson:"date" json:"date"`
	StartTime            string             `bson:"start_time,omitempty" json:"startTime,omitempty"` // HH:MM, local to the event
	EndTime              string             `bson:"end_time,omitempty" json:"endTime,omitempty"`
	RequiredSkills       SkillSet           `bson:"required_skills" json:"requiredSkills"`
	VolunteersNeeded     int                `bson:"volunteers_needed" json:"volunteersNeeded"`
	VolunteersRegistered int                `bson:"volunteers_registered" json:"volunteersRegistered"`
	RegisteredVolunteers []string           `bson:"registered_volunteers" json:"registeredVolunteers"`
	ApprovalGate         `bson:",inline"`
	RegistrationsClosed  bool `bson:"registrations_closed" json:"registrationsClosed"`
	IsCompleted          bool `bson:"is_completed" json:"isCompleted"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Event states derived from the flags.
const (
	EventPending   = "pending"
	EventApproved  = "approved"
	EventRejected  = "rejected"
	EventCompleted = "completed"
)

// State derives the lifecycle state from the stored flags.
func (e Event) State() string {
	switch {
	case e.IsCompleted:
		return EventCompleted
	case e.IsPending:
		return EventPending
	case e.IsApproved:
		return EventApproved
	default:
		return EventRejected
	}
}

// OpenForRegistration reports whether a volunteer could register right now,
// ignoring capacity.
func (e Event) OpenForRegistration() bool {
	return e.IsApproved && !e.IsPending && !e.RegistrationsClosed && !e.IsCompleted
}

// SpotsLeft is the remaining capacity (never negative).
func (e Event) SpotsLeft() int {
	if n := e.VolunteersNeeded - e.VolunteersRegistered; n > 0 {
		return n
	}
	return 0
}
