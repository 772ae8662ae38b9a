package availabilityRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const opTimeout = 5 * time.Second

type mongoAvailabilityRepo struct {
	coll *mongo.Collection
}

// NewMongoAvailabilityRepo constructs a MongoDB AvailabilityStore backed by
// the given collection.
func NewMongoAvailabilityRepo(db *mongo.Database, collection string) AvailabilityStore {
	return &mongoAvailabilityRepo{
		coll: db.Collection(collection),
	}
}

func (r *mongoAvailabilityRepo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	return nil
}

// unavailable wraps a driver error so callers can match both ErrUnavailable
// and the original driver error.
func unavailable(op, date string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, date, err)
}
