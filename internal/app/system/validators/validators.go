// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/volunteerhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, validator bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if validator == nil {
			return
		}
		if err := setValidator(ctx, db, coll, validator); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("volunteers", volunteersSchema())
	ensure("organizers", organizersSchema())
	ensure("events", eventsSchema())
	ensure("conversations", conversationsSchema())
	ensure("messages", messagesSchema())

	// Support collections: no validators, but created up front so the
	// first transaction touching them does not have to create them.
	ensure("counters", nil)
	ensure("oauth_states", nil)
	ensure("calendar_tokens", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 48 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 59 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 115 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

// IsValidationFailure reports whether err is a document validation rejection
// (code 121), e.g. an update that would overfill an event.
func IsValidationFailure(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 121 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	return errors.As(err, &ce) && ce.Code == 121
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	anyInt   = bson.A{"int", "long"}
)

func skillEnum() bson.A {
	out := make(bson.A, 0, len(models.AllSkills))
	for _, s := range models.AllSkills {
		out = append(out, string(s))
	}
	return out
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "password_hash", "type"},
			"properties": bson.M{
				"email":         nonBlank,
				"password_hash": nonBlank,
				"type":          bson.M{"enum": bson.A{models.TypeVolunteer, models.TypeOrganizer, models.TypeAdmin}},
			},
		},
	}
}

func gateProperties(extra bson.M) bson.M {
	props := bson.M{
		"email":       nonBlank,
		"name":        nonBlank,
		"is_pending":  bson.M{"bsonType": "bool"},
		"is_approved": bson.M{"bsonType": "bool"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// notPendingAndApproved rejects the one contradictory gate combination.
var notPendingAndApproved = bson.M{
	"$not": bson.A{bson.M{"$and": bson.A{"$is_pending", "$is_approved"}}},
}

func volunteersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "name", "is_pending", "is_approved"},
			"properties": gateProperties(bson.M{
				"skills": bson.M{"bsonType": "array", "items": bson.M{"enum": skillEnum()}},
			}),
		},
		"$expr": notPendingAndApproved,
	}
}

func organizersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   bson.A{"email", "name", "organization", "is_pending", "is_approved"},
			"properties": gateProperties(bson.M{"organization": nonBlank}),
		},
		"$expr": notPendingAndApproved,
	}
}

func eventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{
				"event_id", "organizer_id", "title", "date",
				"volunteers_needed", "volunteers_registered",
				"is_pending", "is_approved",
			},
			"properties": bson.M{
				"event_id":              bson.M{"bsonType": anyInt, "minimum": 1},
				"organizer_id":          bson.M{"bsonType": "objectId"},
				"title":                 nonBlank,
				"date":                  bson.M{"bsonType": "date"},
				"volunteers_needed":     bson.M{"bsonType": anyInt, "minimum": 1},
				"volunteers_registered": bson.M{"bsonType": anyInt, "minimum": 0},
				"registered_volunteers": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"required_skills":       bson.M{"bsonType": "array", "items": bson.M{"enum": skillEnum()}},
				"is_pending":            bson.M{"bsonType": "bool"},
				"is_approved":           bson.M{"bsonType": "bool"},
				"registrations_closed":  bson.M{"bsonType": "bool"},
				"is_completed":          bson.M{"bsonType": "bool"},
			},
		},
		// Capacity is never exceeded, whatever path wrote the document.
		"$expr": bson.M{"$and": bson.A{
			bson.M{"$lte": bson.A{"$volunteers_registered", "$volunteers_needed"}},
			notPendingAndApproved,
		}},
	}
}

func conversationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"conversation_id", "participant_ids"},
			"properties": bson.M{
				"conversation_id": nonBlank,
				"participant_ids": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"last_message":    bson.M{"bsonType": "string"},
			},
		},
	}
}

func messagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"conversation_id", "sender_id", "receiver_id", "content", "read", "created_at"},
			"properties": bson.M{
				"conversation_id": nonBlank,
				"sender_id":       nonBlank,
				"receiver_id":     nonBlank,
				"content":         nonBlank,
				"read":            bson.M{"bsonType": "bool"},
				"created_at":      bson.M{"bsonType": "date"},
			},
		},
	}
}
