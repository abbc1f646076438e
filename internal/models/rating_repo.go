package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const RatingColName = "ratings"

// RatingRepo is the persistence contract for rating documents. The store, not
// the application, owns the one-active-rating-per-(user,bar) invariant: a
// partial unique index over active documents rejects concurrent duplicate
// inserts and InsertRating reports that as ErrDuplicateRating.
type RatingRepo interface {
	InsertRating(ctx context.Context, rating *Rating) error
	UpdateRating(ctx context.Context, id primitive.ObjectID, value int, review string, criteria *Criteria) (*Rating, error)
	SoftDeleteRating(ctx context.Context, id primitive.ObjectID) error
	GetRatingByID(ctx context.Context, id primitive.ObjectID) (*Rating, error)
	FindActiveByUserAndBar(ctx context.Context, userID, barID primitive.ObjectID) (*Rating, error)
	FindActiveByBar(ctx context.Context, barID primitive.ObjectID) ([]*Rating, error)
	FindActiveByBarPaged(ctx context.Context, barID primitive.ObjectID, skip, limit int) ([]*Rating, int, error)
	FindActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]*Rating, error)
	FindActiveByUserPaged(ctx context.Context, userID primitive.ObjectID, skip, limit int) ([]*Rating, int, error)
}

func (mdb *MongodbRepo) InsertRating(ctx context.Context, rating *Rating) error {
	if err := rating.ValidateRating(); err != nil {
		return err
	}

	col, err := mdb.GetCollection(ctx, RatingColName)
	if err != nil {
		return fmt.Errorf("failed to insert rating: %w", err)
	}

	_, err = col.InsertOne(ctx, rating)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateRating
		}
		return fmt.Errorf("failed to insert rating into database: %w", err)
	}

	return nil
}

func (mdb *MongodbRepo) UpdateRating(ctx context.Context, id primitive.ObjectID, value int, review string, criteria *Criteria) (*Rating, error) {
	col, err := mdb.GetCollection(ctx, RatingColName)
	if err != nil {
		return nil, fmt.Errorf("failed to update rating: %w", err)
	}

	set := bson.M{
		"value":  value,
		"review": review,
		"date":   time.Now().UTC(),
	}
	// Criteria is only overwritten when the caller supplied one; an update
	// without criteria keeps whatever the rating already had.
	if criteria != nil {
		set["criteria"] = *criteria
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Rating
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update rating: %w", err)
	}

	return &updated, nil
}

func (mdb *MongodbRepo) SoftDeleteRating(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(ctx, RatingColName)
	if err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}

	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"active": false,
		"date":   time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (mdb *MongodbRepo) GetRatingByID(ctx context.Context, id primitive.ObjectID) (*Rating, error) {
	col, err := mdb.GetCollection(ctx, RatingColName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}

	var rating Rating
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&rating)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}

	return &rating, nil
}

// FindActiveByUserAndBar returns (nil, nil) when the user has no active
// rating for the bar, so callers can branch between create and update.
func (mdb *MongodbRepo) FindActiveByUserAndBar(ctx context.Context, userID, barID primitive.ObjectID) (*Rating, error) {
	col, err := mdb.GetCollection(ctx, RatingColName)
	if err != nil {
		return nil, fmt.Errorf("failed to find rating: %w", err)
	}

	var rating Rating
	err = col.FindOne(ctx, bson.M{"user": userID, "bar": barID, "active": true}).Decode(&rating)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find rating: %w", err)
	}

	return &rating, nil
}

func (mdb *MongodbRepo) FindActiveByBar(ctx context.Context, barID primitive.ObjectID) ([]*Rating, error) {
	return mdb.findRatings(ctx, bson.M{"bar": barID, "active": true}, nil)
}

func (mdb *MongodbRepo) FindActiveByBarPaged(ctx context.Context, barID primitive.ObjectID, skip, limit int) ([]*Rating, int, error) {
	return mdb.findRatingsPaged(ctx, bson.M{"bar": barID, "active": true}, skip, limit)
}

func (mdb *MongodbRepo) FindActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]*Rating, error) {
	return mdb.findRatings(ctx, bson.M{"user": userID, "active": true}, nil)
}

func (mdb *MongodbRepo) FindActiveByUserPaged(ctx context.Context, userID primitive.ObjectID, skip, limit int) ([]*Rating, int, error) {
	return mdb.findRatingsPaged(ctx, bson.M{"user": userID, "active": true}, skip, limit)
}

func (mdb *MongodbRepo) findRatings(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*Rating, error) {
	col, err := mdb.GetCollection(ctx, RatingColName)
	if err != nil {
		return nil, fmt.Errorf("failed to find ratings: %w", err)
	}

	var cursor *mongo.Cursor
	if opts != nil {
		cursor, err = col.Find(ctx, filter, opts)
	} else {
		cursor, err = col.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var ratings []*Rating
	for cursor.Next(ctx) {
		var r Rating
		if err := cursor.Decode(&r); err != nil {
			return nil, fmt.Errorf("failed to decode rating: %w", err)
		}
		ratings = append(ratings, &r)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return ratings, nil
}

func (mdb *MongodbRepo) findRatingsPaged(ctx context.Context, filter bson.M, skip, limit int) ([]*Rating, int, error) {
	col, err := mdb.GetCollection(ctx, RatingColName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find ratings: %w", err)
	}

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ratings: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	ratings, err := mdb.findRatings(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	return ratings, int(total), nil
}
