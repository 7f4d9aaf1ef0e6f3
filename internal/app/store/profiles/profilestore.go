package profilestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no profile matches.
	ErrNotFound = errors.New("profile not found")
	// ErrDuplicateEmail is returned when a profile for the email already exists.
	ErrDuplicateEmail = errors.New("a profile with this email already exists")
	// ErrUnknownType is returned for account types that have no profile.
	ErrUnknownType = errors.New(`profile type must be "volunteer"|"organizer"`)
)

// Ref identifies a profile for follow-up work such as cascades and
// notification email.
type Ref struct {
	ID    primitive.ObjectID `bson:"_id"`
	Email string             `bson:"email"`
	Name  string             `bson:"name"`
}

// Store owns both profile collections. Methods taking a type select the
// collection; the rest are typed per profile kind.
type Store struct {
	volunteers *mongo.Collection
	organizers *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		volunteers: db.Collection("volunteers"),
		organizers: db.Collection("organizers"),
	}
}

func (s *Store) coll(typ string) (*mongo.Collection, error) {
	switch normalize.Type(typ) {
	case models.TypeVolunteer:
		return s.volunteers, nil
	case models.TypeOrganizer:
		return s.organizers, nil
	}
	return nil, ErrUnknownType
}

// CreateVolunteer inserts a new volunteer profile awaiting approval.
func (s *Store) CreateVolunteer(ctx context.Context, p models.VolunteerProfile) (models.VolunteerProfile, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.Email = normalize.Email(p.Email)
	p.Name = normalize.Name(p.Name)
	if p.Skills == nil {
		p.Skills = models.SkillSet{}
	}
	p.ApprovalGate = models.Pending()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.volunteers.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.VolunteerProfile{}, ErrDuplicateEmail
		}
		return models.VolunteerProfile{}, err
	}
	return p, nil
}

// CreateOrganizer inserts a new organizer profile awaiting approval.
func (s *Store) CreateOrganizer(ctx context.Context, p models.OrganizerProfile) (models.OrganizerProfile, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.Email = normalize.Email(p.Email)
	p.Name = normalize.Name(p.Name)
	p.Organization = normalize.Name(p.Organization)
	p.ApprovalGate = models.Pending()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.organizers.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.OrganizerProfile{}, ErrDuplicateEmail
		}
		return models.OrganizerProfile{}, err
	}
	return p, nil
}

// GetVolunteer loads a volunteer profile by email.
func (s *Store) GetVolunteer(ctx context.Context, email string) (*models.VolunteerProfile, error) {
	var p models.VolunteerProfile
	if err := s.volunteers.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// GetOrganizer loads an organizer profile by email.
func (s *Store) GetOrganizer(ctx context.Context, email string) (*models.OrganizerProfile, error) {
	var p models.OrganizerProfile
	if err := s.organizers.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Gate returns the approval gate of the profile of the given type.
func (s *Store) Gate(ctx context.Context, typ, email string) (models.ApprovalGate, error) {
	c, err := s.coll(typ)
	if err != nil {
		return models.ApprovalGate{}, err
	}
	var g models.ApprovalGate
	err = c.FindOne(ctx, bson.M{"email": normalize.Email(email)},
		options.FindOne().SetProjection(bson.M{"is_pending": 1, "is_approved": 1}),
	).Decode(&g)
	if err != nil {
		return models.ApprovalGate{}, notFound(err)
	}
	return g, nil
}

// VolunteerUpdate holds the editable volunteer fields.
type VolunteerUpdate struct {
	Name         string
	Phone        string
	City         string
	Bio          string
	Skills       models.SkillSet
	Availability []string
}

// UpdateVolunteer replaces the editable fields and returns the new profile.
// The approval gate is not touched.
func (s *Store) UpdateVolunteer(ctx context.Context, email string, upd VolunteerUpdate) (*models.VolunteerProfile, error) {
	if upd.Skills == nil {
		upd.Skills = models.SkillSet{}
	}
	set := bson.M{
		"name":         normalize.Name(upd.Name),
		"phone":        upd.Phone,
		"city":         upd.City,
		"bio":          upd.Bio,
		"skills":       upd.Skills,
		"availability": upd.Availability,
		"updated_at":   time.Now().UTC(),
	}
	var p models.VolunteerProfile
	err := s.volunteers.FindOneAndUpdate(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// OrganizerUpdate holds the editable organizer fields.
type OrganizerUpdate struct {
	Name         string
	Organization string
	Phone        string
	Website      string
	Description  string
}

// UpdateOrganizer replaces the editable fields and returns the new profile.
func (s *Store) UpdateOrganizer(ctx context.Context, email string, upd OrganizerUpdate) (*models.OrganizerProfile, error) {
	set := bson.M{
		"name":         normalize.Name(upd.Name),
		"organization": normalize.Name(upd.Organization),
		"phone":        upd.Phone,
		"website":      upd.Website,
		"description":  upd.Description,
		"updated_at":   time.Now().UTC(),
	}
	var p models.OrganizerProfile
	err := s.organizers.FindOneAndUpdate(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// SetPicture records the public URL of the profile picture.
func (s *Store) SetPicture(ctx context.Context, typ, email, url string) error {
	c, err := s.coll(typ)
	if err != nil {
		return err
	}
	res, err := c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": bson.M{"profile_picture_url": url, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Approve opens the approval gate on the profile with id.
func (s *Store) Approve(ctx context.Context, typ string, id primitive.ObjectID) (Ref, error) {
	c, err := s.coll(typ)
	if err != nil {
		return Ref{}, err
	}
	var ref Ref
	err = c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_pending": false, "is_approved": true, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetProjection(refProjection),
	).Decode(&ref)
	if err != nil {
		return Ref{}, notFound(err)
	}
	return ref, nil
}

// Delete removes the profile with id and returns what was removed.
func (s *Store) Delete(ctx context.Context, typ string, id primitive.ObjectID) (Ref, error) {
	c, err := s.coll(typ)
	if err != nil {
		return Ref{}, err
	}
	var ref Ref
	err = c.FindOneAndDelete(ctx, bson.M{"_id": id},
		options.FindOneAndDelete().SetProjection(refProjection),
	).Decode(&ref)
	if err != nil {
		return Ref{}, notFound(err)
	}
	return ref, nil
}

// DeleteByEmail removes the profile of the given type for email. Deleting a
// missing profile returns 0 and no error.
func (s *Store) DeleteByEmail(ctx context.Context, typ, email string) (int64, error) {
	c, err := s.coll(typ)
	if err != nil {
		return 0, err
	}
	res, err := c.DeleteOne(ctx, bson.M{"email": normalize.Email(email)})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListPendingVolunteers returns volunteer profiles awaiting review, oldest first.
func (s *Store) ListPendingVolunteers(ctx context.Context) ([]models.VolunteerProfile, error) {
	out := []models.VolunteerProfile{}
	if err := s.listPending(ctx, s.volunteers, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPendingOrganizers returns organizer profiles awaiting review, oldest first.
func (s *Store) ListPendingOrganizers(ctx context.Context) ([]models.OrganizerProfile, error) {
	out := []models.OrganizerProfile{}
	if err := s.listPending(ctx, s.organizers, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) listPending(ctx context.Context, c *mongo.Collection, out any) error {
	cur, err := c.Find(ctx, bson.M{"is_pending": true},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

var refProjection = bson.M{"_id": 1, "email": 1, "name": 1}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
