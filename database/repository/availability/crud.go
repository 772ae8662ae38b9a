// File: database/repository/availability/crud.go
package availabilityRepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gigcal/models"
)

func (r *mongoAvailabilityRepo) Get(ctx context.Context, date string) (*models.AvailabilityRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var rec models.AvailabilityRecord
	err := r.coll.FindOne(ctx, bson.M{"date": date}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get", date, err)
	}
	return &rec, nil
}

// GetRange returns the stored records between from and to inclusive, ordered
// by date. Days without a record are simply absent.
func (r *mongoAvailabilityRepo) GetRange(ctx context.Context, from, to string) ([]models.AvailabilityRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"date": bson.M{"$gte": from, "$lte": to}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("range", from+".."+to, err)
	}
	defer cursor.Close(ctx)

	var records []models.AvailabilityRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, unavailable("range decode", from+".."+to, err)
	}
	return records, nil
}

func (r *mongoAvailabilityRepo) DeleteIf(ctx context.Context, date string, pred Predicate) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, predicateFilter(date, pred))
	if err != nil {
		return false, unavailable("delete", date, err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteExpiredHolds removes every hold whose expiry is at or before now. The
// TTL index does the same on the server's own schedule.
func (r *mongoAvailabilityRepo) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, expiredHoldsFilter(now))
	if err != nil {
		return 0, unavailable("reap", now.UTC().Format(time.RFC3339), err)
	}
	return res.DeletedCount, nil
}
