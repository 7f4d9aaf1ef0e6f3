package counterstore

import (
	"context"
	"errors"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SeedFunc returns the value a counter starts from the first time it is used,
// typically the current maximum id in the owning collection.
type SeedFunc func(ctx context.Context) (int64, error)

// Store hands out monotonically increasing sequence values kept in the
// counters collection ({_id: name, seq: n}).
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("counters")}
}

// Next atomically increments counter name and returns the new value. A
// missing counter is created from seed first; concurrent first callers race
// on the insert and the losers fall through to the increment.
func (s *Store) Next(ctx context.Context, name string, seed SeedFunc) (int64, error) {
	v, err := s.inc(ctx, name)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, err
	}

	var start int64
	if seed != nil {
		if start, err = seed(ctx); err != nil {
			return 0, err
		}
	}
	if _, err := s.c.InsertOne(ctx, bson.M{"_id": name, "seq": start}); err != nil && !wafflemongo.IsDup(err) {
		return 0, err
	}
	return s.inc(ctx, name)
}

func (s *Store) inc(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// MaxOf returns a SeedFunc yielding the largest value of field in coll, or 0
// when the collection is empty.
func MaxOf(coll *mongo.Collection, field string) SeedFunc {
	return func(ctx context.Context) (int64, error) {
		var doc bson.M
		err := coll.FindOne(ctx, bson.M{},
			options.FindOne().
				SetSort(bson.D{{Key: field, Value: -1}}).
				SetProjection(bson.M{field: 1}),
		).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		switch v := doc[field].(type) {
		case int64:
			return v, nil
		case int32:
			return int64(v), nil
		case float64:
			return int64(v), nil
		}
		return 0, nil
	}
}
