package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/validators"
	"github.com/dalemusser/volunteerhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "volunteers", "organizers", "events", "conversations", "messages", "counters"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func eventDoc(needed, registered int) bson.M {
	return bson.M{
		"event_id":              int64(1),
		"organizer_id":          primitive.NewObjectID(),
		"title":                 "Beach cleanup",
		"date":                  time.Now().UTC(),
		"volunteers_needed":     needed,
		"volunteers_registered": registered,
		"is_pending":            true,
		"is_approved":           false,
	}
}

func TestEventsValidator_RejectsOverCapacity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := db.Collection("events").InsertOne(ctx, eventDoc(1, 2))
	if err == nil {
		t.Fatal("expected validation failure for registered > needed")
	}
	if !validators.IsValidationFailure(err) {
		t.Errorf("expected document validation failure, got %v", err)
	}

	if _, err := db.Collection("events").InsertOne(ctx, eventDoc(2, 2)); err != nil {
		t.Errorf("expected full event to be accepted, got %v", err)
	}
}

func TestVolunteersValidator_RejectsPendingAndApproved(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := db.Collection("volunteers").InsertOne(ctx, bson.M{
		"email":       "v@example.com",
		"name":        "Vee",
		"is_pending":  true,
		"is_approved": true,
	})
	if !validators.IsValidationFailure(err) {
		t.Errorf("expected document validation failure, got %v", err)
	}
}

func TestVolunteersValidator_RejectsUnknownSkill(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := db.Collection("volunteers").InsertOne(ctx, bson.M{
		"email":       "v@example.com",
		"name":        "Vee",
		"skills":      bson.A{"juggling"},
		"is_pending":  true,
		"is_approved": false,
	})
	if !validators.IsValidationFailure(err) {
		t.Errorf("expected document validation failure, got %v", err)
	}
}
