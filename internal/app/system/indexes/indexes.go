// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"volunteers", ensureVolunteers},
		{"organizers", ensureOrganizers},
		{"events", ensureEvents},
		{"conversations", ensureConversations},
		{"messages", ensureMessages},
		{"oauth_states", ensureOAuthStates},
		{"calendar_tokens", ensureCalendarTokens},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops the index named old and creates m in its place.
func recreate(ctx context.Context, coll *mongo.Collection, old string, m mongo.IndexModel, desiredName string, unique bool) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		return fmt.Errorf("%s(%s): drop failed: %v", coll.Name(), desiredName, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		if isDuplicateKeyErr(err) && unique {
			return fmt.Errorf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName)
		}
		return fmt.Errorf("%s(%s): %v", coll.Name(), desiredName, err)
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		unique := desiredUnique != nil && *desiredUnique
		desiredSig := keySig(m.Keys.(bson.D))
		start := time.Now()

		existing := listIndexes(ctx, coll)

		if ex, ok := existing[desiredSig]; ok {
			switch {
			case !sameBoolPtr(desiredUnique, ex.Unique):
				// Options mismatch (e.g., upgrading to unique).
				if err := recreate(ctx, coll, ex.Name, m, desiredName, unique); err != nil {
					zap.L().Warn("index recreate failed", zap.String("collection", coll.Name()), zap.Error(err))
					errs = append(errs, err.Error())
					continue
				}
				zap.L().Info("index dropped and recreated",
					zap.String("collection", coll.Name()),
					zap.String("name", desiredName),
					zap.String("keys", desiredSig),
					zap.String("took", time.Since(start).String()))
			case desiredName != "" && ex.Name != desiredName:
				if err := recreate(ctx, coll, ex.Name, m, desiredName, unique); err != nil {
					zap.L().Warn("index rename failed", zap.String("collection", coll.Name()), zap.Error(err))
					errs = append(errs, err.Error())
					continue
				}
				zap.L().Info("index renamed",
					zap.String("collection", coll.Name()),
					zap.String("from", ex.Name),
					zap.String("to", desiredName))
			default:
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig))
			}
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil {
			if isOptionsConflictErr(err) {
				// Same keys appeared under another name between list and create.
				if ex, ok := listIndexes(ctx, coll)[desiredSig]; ok {
					if sameBoolPtr(desiredUnique, ex.Unique) {
						continue
					}
					if rerr := recreate(ctx, coll, ex.Name, m, desiredName, unique); rerr == nil {
						continue
					} else {
						err = rerr
					}
				}
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", unique),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("created_name", created),
			zap.String("keys", desiredSig),
			zap.Bool("unique", unique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		// Email is the login identity and the join key to profiles.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Orphan sweep: users of a profile type older than a cutoff.
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_users_type_created"),
		},
	})
}

func profileIndexes(prefix string) []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_" + prefix + "_email"),
		},
		// Admin pending queue, oldest first.
		{
			Keys:    bson.D{{Key: "is_pending", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_" + prefix + "_pending_created"),
		},
		// Analytics: approved profiles bucketed by created_at.
		{
			Keys:    bson.D{{Key: "is_approved", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_" + prefix + "_approved_created"),
		},
	}
}

func ensureVolunteers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("volunteers"), profileIndexes("volunteers"))
}

func ensureOrganizers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("organizers"), profileIndexes("organizers"))
}

func ensureEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_events_event_id"),
		},
		// Organizer's own events by date.
		{
			Keys:    bson.D{{Key: "organizer_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("idx_events_organizer_date"),
		},
		// Open listing and analytics: approved, not pending, by date.
		{
			Keys: bson.D{
				{Key: "is_approved", Value: 1},
				{Key: "is_pending", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetName("idx_events_approved_pending_date"),
		},
		// Volunteer's registered events.
		{
			Keys:    bson.D{{Key: "registered_volunteers", Value: 1}},
			Options: options.Index().SetName("idx_events_registered_volunteers"),
		},
	})
}

func ensureConversations(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("conversations"), []mongo.IndexModel{
		// One summary per conversation id; concurrent upserts rely on this.
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_conversations_conversation_id"),
		},
		{
			Keys:    bson.D{{Key: "participant_ids", Value: 1}, {Key: "last_message_time", Value: -1}},
			Options: options.Index().SetName("idx_conversations_participant_lastmsg"),
		},
	})
}

func ensureMessages(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("messages"), []mongo.IndexModel{
		// History in insertion order.
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_messages_conversation_created"),
		},
		// Global unread count.
		{
			Keys:    bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("idx_messages_receiver_read"),
		},
		// Mark-as-read within one conversation.
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("idx_messages_conversation_receiver_read"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("oauth_states"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_states_state"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_states_ttl"),
		},
	})
}

func ensureCalendarTokens(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("calendar_tokens"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_calendar_tokens_user"),
		},
	})
}
