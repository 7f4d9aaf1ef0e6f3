package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	counterstore "github.com/dalemusser/volunteerhub/internal/app/store/counters"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no event has the requested id.
	ErrNotFound = errors.New("event not found")
	// ErrNotOwner is returned when an organizer touches another organizer's event.
	ErrNotOwner = errors.New("event belongs to another organizer")
	// ErrEventNotApproved is returned when registering for an event that is
	// pending review or was rejected.
	ErrEventNotApproved = errors.New("event is not approved for registration")
	// ErrRegistrationsClosed is returned when the organizer closed registrations.
	ErrRegistrationsClosed = errors.New("registrations for this event are closed")
	// ErrEventCompleted is returned for any change to a completed event.
	ErrEventCompleted = errors.New("event is completed")
	// ErrEventFull is returned when no spots are left.
	ErrEventFull = errors.New("event is full")
	// ErrAlreadyRegistered is returned for a duplicate registration.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrNotRegistered is returned when unregistering a volunteer who is not registered.
	ErrNotRegistered = errors.New("not registered for this event")
	// ErrCapacityTooLow is returned when volunteers_needed would drop below
	// the number already registered.
	ErrCapacityTooLow = errors.New("volunteers needed cannot be less than volunteers already registered")
	// ErrConflict is returned when the event kept changing underneath a
	// conditional update.
	ErrConflict = errors.New("event changed concurrently, try again")
)

// counterName is the sequence used for event ids.
const counterName = "events"

// maxAttempts bounds the retry loop of conditional updates whose failure
// could not be explained by re-reading the event.
const maxAttempts = 3

type Store struct {
	c        *mongo.Collection
	counters *counterstore.Store
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("events"),
		counters: counterstore.New(db),
	}
}

// Create assigns the next event id and inserts e as pending review with no
// registrations.
func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	id, err := s.counters.Next(ctx, counterName, counterstore.MaxOf(s.c, "event_id"))
	if err != nil {
		return models.Event{}, fmt.Errorf("next event id: %w", err)
	}

	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.EventID = id
	e.OrganizerEmail = normalize.Email(e.OrganizerEmail)
	if e.RequiredSkills == nil {
		e.RequiredSkills = models.SkillSet{}
	}
	e.VolunteersRegistered = 0
	e.RegisteredVolunteers = []string{}
	e.ApprovalGate = models.Pending()
	e.RegistrationsClosed = false
	e.IsCompleted = false
	e.CreatedAt = now
	e.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// Get loads an event by its numeric id.
func (s *Store) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"event_id": eventID}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Update holds the organizer-editable fields of an event.
type Update struct {
	Title            string
	Description      string
	Location         string
	Category         string
	Date             time.Time
	StartTime        string
	EndTime          string
	RequiredSkills   models.SkillSet
	VolunteersNeeded int
}

// Update edits an event owned by organizerID and sends it back to review.
func (s *Store) Update(ctx context.Context, eventID int64, organizerID primitive.ObjectID, upd Update) (*models.Event, error) {
	if upd.RequiredSkills == nil {
		upd.RequiredSkills = models.SkillSet{}
	}
	filter := bson.M{
		"event_id":              eventID,
		"organizer_id":          organizerID,
		"is_completed":          false,
		"volunteers_registered": bson.M{"$lte": upd.VolunteersNeeded},
	}
	set := bson.M{
		"title":             upd.Title,
		"description":       upd.Description,
		"location":          upd.Location,
		"category":          upd.Category,
		"date":              upd.Date,
		"start_time":        upd.StartTime,
		"end_time":          upd.EndTime,
		"required_skills":   upd.RequiredSkills,
		"volunteers_needed": upd.VolunteersNeeded,
		"is_pending":        true,
		"is_approved":       false,
		"updated_at":        time.Now().UTC(),
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		e, err := s.findAndUpdate(ctx, filter, bson.M{"$set": set})
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		cur, err := s.Get(ctx, eventID)
		if err != nil {
			return nil, err
		}
		switch {
		case cur.OrganizerID != organizerID:
			return nil, ErrNotOwner
		case cur.IsCompleted:
			return nil, ErrEventCompleted
		case cur.VolunteersRegistered > upd.VolunteersNeeded:
			return nil, ErrCapacityTooLow
		}
	}
	return nil, ErrConflict
}

// Register adds email to the event in one conditional update. The filter
// carries every precondition, so concurrent registrations can never push
// volunteers_registered past volunteers_needed. When nothing matches the
// event is re-read to report why.
func (s *Store) Register(ctx context.Context, eventID int64, email string) (*models.Event, error) {
	email = normalize.Email(email)
	filter := bson.M{
		"event_id":              eventID,
		"is_approved":           true,
		"is_pending":            false,
		"registrations_closed":  false,
		"is_completed":          false,
		"registered_volunteers": bson.M{"$ne": email},
		"$expr":                 bson.M{"$lt": bson.A{"$volunteers_registered", "$volunteers_needed"}},
	}
	update := bson.M{
		"$inc":  bson.M{"volunteers_registered": 1},
		"$push": bson.M{"registered_volunteers": email},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		e, err := s.findAndUpdate(ctx, filter, update)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		if err := s.whyNotRegistered(ctx, eventID, email); err != nil {
			return nil, err
		}
	}
	return nil, ErrConflict
}

func (s *Store) whyNotRegistered(ctx context.Context, eventID int64, email string) error {
	e, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}
	switch {
	case e.IsCompleted:
		return ErrEventCompleted
	case e.RegistrationsClosed:
		return ErrRegistrationsClosed
	case !e.IsApproved || e.IsPending:
		return ErrEventNotApproved
	case contains(e.RegisteredVolunteers, email):
		return ErrAlreadyRegistered
	case e.VolunteersRegistered >= e.VolunteersNeeded:
		return ErrEventFull
	}
	return nil
}

// Unregister removes email from the event. Completed events are frozen.
func (s *Store) Unregister(ctx context.Context, eventID int64, email string) (*models.Event, error) {
	email = normalize.Email(email)
	filter := bson.M{
		"event_id":              eventID,
		"is_completed":          false,
		"registered_volunteers": email,
	}
	update := bson.M{
		"$inc":  bson.M{"volunteers_registered": -1},
		"$pull": bson.M{"registered_volunteers": email},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	e, err := s.findAndUpdate(ctx, filter, update)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	cur, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if cur.IsCompleted {
		return nil, ErrEventCompleted
	}
	return nil, ErrNotRegistered
}

// Close stops registrations and sends the event back to admin review.
func (s *Store) Close(ctx context.Context, eventID int64) (*models.Event, error) {
	return s.transition(ctx, eventID, bson.M{
		"registrations_closed": true,
		"is_pending":           true,
		"is_approved":          false,
	})
}

// Approve marks the event approved.
func (s *Store) Approve(ctx context.Context, eventID int64) (*models.Event, error) {
	return s.transition(ctx, eventID, bson.M{"is_pending": false, "is_approved": true})
}

// Reject marks the event rejected.
func (s *Store) Reject(ctx context.Context, eventID int64) (*models.Event, error) {
	return s.transition(ctx, eventID, bson.M{"is_pending": false, "is_approved": false})
}

// Complete marks the event completed. Completion is terminal and freezes the
// registration count.
func (s *Store) Complete(ctx context.Context, eventID int64) (*models.Event, error) {
	return s.transition(ctx, eventID, bson.M{
		"is_pending":   false,
		"is_approved":  false,
		"is_completed": true,
	})
}

func (s *Store) transition(ctx context.Context, eventID int64, set bson.M) (*models.Event, error) {
	set["updated_at"] = time.Now().UTC()
	e, err := s.findAndUpdate(ctx,
		bson.M{"event_id": eventID, "is_completed": false},
		bson.M{"$set": set},
	)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}
	return nil, ErrEventCompleted
}

func (s *Store) findAndUpdate(ctx context.Context, filter, update bson.M) (*models.Event, error) {
	var e models.Event
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// OpenFilter narrows ListOpen.
type OpenFilter struct {
	Skill    models.Skill
	Category string
	From     time.Time // events on or after this date; zero means no bound
}

// ListOpen returns approved events that accept registrations, soonest first.
func (s *Store) ListOpen(ctx context.Context, f OpenFilter) ([]models.Event, error) {
	filter := bson.M{
		"is_approved":          true,
		"is_pending":           false,
		"registrations_closed": false,
		"is_completed":         false,
	}
	if f.Skill != "" {
		filter["required_skills"] = f.Skill
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if !f.From.IsZero() {
		filter["date"] = bson.M{"$gte": f.From}
	}
	return s.list(ctx, filter, bson.D{{Key: "date", Value: 1}, {Key: "event_id", Value: 1}})
}

// ListByOrganizer returns every event of one organizer, newest date first.
func (s *Store) ListByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]models.Event, error) {
	return s.list(ctx, bson.M{"organizer_id": organizerID},
		bson.D{{Key: "date", Value: -1}, {Key: "event_id", Value: -1}})
}

// ListPending returns events awaiting admin review, oldest submission first.
func (s *Store) ListPending(ctx context.Context) ([]models.Event, error) {
	return s.list(ctx, bson.M{"is_pending": true, "is_completed": false},
		bson.D{{Key: "updated_at", Value: 1}, {Key: "event_id", Value: 1}})
}

// ListRegistered returns the events a volunteer is registered for.
func (s *Store) ListRegistered(ctx context.Context, email string) ([]models.Event, error) {
	return s.list(ctx, bson.M{"registered_volunteers": normalize.Email(email)},
		bson.D{{Key: "date", Value: 1}, {Key: "event_id", Value: 1}})
}

func (s *Store) list(ctx context.Context, filter bson.M, sort bson.D) ([]models.Event, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByOrganizer removes every event of an organizer.
func (s *Store) DeleteByOrganizer(ctx context.Context, organizerID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"organizer_id": organizerID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// WithdrawVolunteer removes email from every event that is not completed.
// Completed events keep their frozen registrations.
func (s *Store) WithdrawVolunteer(ctx context.Context, email string) (int64, error) {
	email = normalize.Email(email)
	res, err := s.c.UpdateMany(ctx,
		bson.M{"registered_volunteers": email, "is_completed": false},
		bson.M{
			"$inc":  bson.M{"volunteers_registered": -1},
			"$pull": bson.M{"registered_volunteers": email},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
