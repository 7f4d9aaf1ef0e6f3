package testutil

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "correct-horse-battery"

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db      *mongo.Database
	t       *testing.T
	eventID atomic.Int64
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	f := &Fixtures{db: db, t: t}
	f.eventID.Store(1000)
	return f
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

var passwordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// CreateUser creates a test user whose password is TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, email, typ string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: passwordHash,
		Type:         typ,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateVolunteer creates a volunteer user and its profile.
func (f *Fixtures) CreateVolunteer(ctx context.Context, email, name string, approved bool) (models.User, models.VolunteerProfile) {
	f.t.Helper()

	u := f.CreateUser(ctx, email, models.TypeVolunteer)
	p := models.VolunteerProfile{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Name:         name,
		Skills:       models.SkillSet{},
		ApprovalGate: gate(approved),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.CreatedAt,
	}
	if _, err := f.db.Collection("volunteers").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test volunteer: %v", err)
	}
	return u, p
}

// CreateOrganizer creates an organizer user and its profile.
func (f *Fixtures) CreateOrganizer(ctx context.Context, email, name string, approved bool) (models.User, models.OrganizerProfile) {
	f.t.Helper()

	u := f.CreateUser(ctx, email, models.TypeOrganizer)
	p := models.OrganizerProfile{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Name:         name,
		Organization: name + " Org",
		ApprovalGate: gate(approved),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.CreatedAt,
	}
	if _, err := f.db.Collection("organizers").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test organizer: %v", err)
	}
	return u, p
}

// EventOption customizes a fixture event.
type EventOption func(*models.Event)

// WithCapacity sets volunteers_needed.
func WithCapacity(n int) EventOption {
	return func(e *models.Event) { e.VolunteersNeeded = n }
}

// WithDate sets the event date.
func WithDate(d time.Time) EventOption {
	return func(e *models.Event) { e.Date = d }
}

// WithGate sets the approval flags.
func WithGate(pending, approved bool) EventOption {
	return func(e *models.Event) {
		e.IsPending = pending
		e.IsApproved = approved
	}
}

// WithRegistered pre-registers the given emails.
func WithRegistered(emails ...string) EventOption {
	return func(e *models.Event) {
		e.RegisteredVolunteers = append(e.RegisteredVolunteers, emails...)
		e.VolunteersRegistered = len(e.RegisteredVolunteers)
	}
}

// Completed marks the event completed.
func Completed() EventOption {
	return func(e *models.Event) {
		e.IsCompleted = true
		e.IsPending = false
		e.IsApproved = false
	}
}

// CreateEvent creates an approved, open event owned by organizer with room
// for five volunteers unless options say otherwise.
func (f *Fixtures) CreateEvent(ctx context.Context, organizer models.User, title string, opts ...EventOption) models.Event {
	f.t.Helper()

	now := time.Now().UTC()
	e := models.Event{
		ID:                   primitive.NewObjectID(),
		EventID:              f.eventID.Add(1),
		OrganizerID:          organizer.ID,
		OrganizerEmail:       organizer.Email,
		OrganizerName:        "Test Organizer",
		Title:                title,
		Description:          "A test event",
		Location:             "Test City",
		Date:                 now.AddDate(0, 0, 7).Truncate(24 * time.Hour),
		RequiredSkills:       models.SkillSet{},
		VolunteersNeeded:     5,
		RegisteredVolunteers: []string{},
		ApprovalGate:         models.Approved(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	for _, opt := range opts {
		opt(&e)
	}
	if _, err := f.db.Collection("events").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test event: %v", err)
	}
	return e
}

// CreateMessage inserts a message directly.
func (f *Fixtures) CreateMessage(ctx context.Context, conversationID, senderID, receiverID, content string, read bool) models.Message {
	f.t.Helper()

	m := models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     "Sender",
		SenderType:     models.TypeVolunteer,
		ReceiverID:     receiverID,
		ReceiverName:   "Receiver",
		ReceiverType:   models.TypeOrganizer,
		Content:        content,
		Read:           read,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := f.db.Collection("messages").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return m
}

func gate(approved bool) models.ApprovalGate {
	if approved {
		return models.Approved()
	}
	return models.Pending()
}
