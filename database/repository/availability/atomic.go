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

// predicateFilter translates a Predicate into the filter half of a
// find-and-modify. It must stay equivalent to Predicate.Matches.
func predicateFilter(date string, pred Predicate) bson.M {
	filter := bson.M{"date": date}
	switch pred.Kind {
	case Claimable:
		filter["$or"] = bson.A{
			bson.M{"status": bson.M{"$exists": false}},
			bson.M{"status": models.StatusFree},
			bson.M{"status": models.StatusHold, "expiresAt": bson.M{"$lte": pred.Now}},
		}
	case HeldBy:
		filter["status"] = models.StatusHold
		filter["token"] = pred.Token
	case ExpiredHeldBy:
		filter["status"] = models.StatusHold
		filter["token"] = pred.Token
		filter["expiresAt"] = bson.M{"$lte": pred.Now}
	}
	return filter
}

func expiredHoldsFilter(now time.Time) bson.M {
	return bson.M{
		"status":    models.StatusHold,
		"expiresAt": bson.M{"$lte": now},
	}
}

// updateDocument translates an Update into $set/$unset/$setOnInsert operators.
func updateDocument(date string, upd Update) bson.M {
	set := bson.M{
		"date":      date,
		"status":    upd.Status,
		"updatedAt": upd.Now,
	}
	if upd.Note != nil {
		set["note"] = *upd.Note
	}

	doc := bson.M{}
	if upd.Status == models.StatusHold {
		set["token"] = upd.Token
		set["expiresAt"] = upd.ExpiresAt
	} else {
		// Leaving expiresAt behind on a busy day would hand it to the TTL monitor.
		doc["$unset"] = bson.M{"token": "", "expiresAt": ""}
	}

	if upd.ResetCreated {
		set["createdAt"] = upd.Now
	} else {
		doc["$setOnInsert"] = bson.M{"createdAt": upd.Now}
	}
	doc["$set"] = set
	return doc
}

// UpsertAtomic runs a single FindOneAndUpdate whose filter carries both the
// date key and the precondition. For upserting predicates a non-matching
// existing record makes the server attempt an insert, which the unique date
// index rejects; that duplicate key error is the "precondition failed" signal.
func (r *mongoAvailabilityRepo) UpsertAtomic(ctx context.Context, date string, pred Predicate, upd Update) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := predicateFilter(date, pred)
	update := updateDocument(date, upd)
	opts := options.FindOneAndUpdate().
		SetUpsert(pred.Upserts()).
		SetReturnDocument(options.After)

	// Two concurrent unconditional upserts on a missing date can both choose
	// to insert; the loser sees a duplicate key and must retry as an update.
	attempts := 1
	if pred.Kind == Unconditional {
		attempts = 2
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Err()
		if err == nil {
			return true, nil
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return false, unavailable("upsert", date, err)
		}
		if pred.Kind != Unconditional {
			return false, nil
		}
	}
	return false, unavailable("upsert", date, err)
}
