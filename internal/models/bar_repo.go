package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calibar/server/internal/geo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const BarColName = "bars"

// BarRepo is the persistence contract for bar documents. SetRatingAggregate
// is the only writer of the derived rating fields and flushes both in a
// single update so readers never observe a half-written aggregate.
type BarRepo interface {
	InsertBar(ctx context.Context, bar *Bar) error
	GetBarByID(ctx context.Context, id primitive.ObjectID) (*Bar, error)
	ListBars(ctx context.Context, filters BarFilters, skip, limit int) ([]*Bar, int, error)
	FindActiveInBounds(ctx context.Context, bounds geo.Bounds) ([]*Bar, error)
	SetRatingAggregate(ctx context.Context, barID primitive.ObjectID, average float64, total int) error
	UpdateBar(ctx context.Context, id primitive.ObjectID, set bson.M) (*Bar, error)
	DeactivateBar(ctx context.Context, id primitive.ObjectID) error
}

func (mdb *MongodbRepo) InsertBar(ctx context.Context, bar *Bar) error {
	col, err := mdb.GetCollection(ctx, BarColName)
	if err != nil {
		return fmt.Errorf("failed to insert bar: %w", err)
	}

	_, err = col.InsertOne(ctx, bar)
	if err != nil {
		return fmt.Errorf("failed to insert bar into database: %w", err)
	}

	return nil
}

func (mdb *MongodbRepo) GetBarByID(ctx context.Context, id primitive.ObjectID) (*Bar, error) {
	col, err := mdb.GetCollection(ctx, BarColName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bar: %w", err)
	}

	var bar Bar
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&bar)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bar: %w", err)
	}

	return &bar, nil
}

func (mdb *MongodbRepo) ListBars(ctx context.Context, filters BarFilters, skip, limit int) ([]*Bar, int, error) {
	col, err := mdb.GetCollection(ctx, BarColName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bars: %w", err)
	}

	filter := bson.M{"active": true}
	for _, eq := range filters.Equipment {
		filter["equipment."+eq] = true
	}
	for _, f := range filters.Features {
		filter["features."+f] = true
	}
	if filters.MinRating > 0 {
		filter["average_rating"] = bson.M{"$gte": filters.MinRating}
	}

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bars: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	bars, err := mdb.findBars(ctx, col, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	return bars, int(total), nil
}

// FindActiveInBounds is the rectangular pre-filter of the two-phase proximity
// search. It intentionally over-selects; callers refine with geo.DistanceKm.
func (mdb *MongodbRepo) FindActiveInBounds(ctx context.Context, bounds geo.Bounds) ([]*Bar, error) {
	col, err := mdb.GetCollection(ctx, BarColName)
	if err != nil {
		return nil, fmt.Errorf("failed to find bars in bounds: %w", err)
	}

	filter := bson.M{
		"location.coordinates.latitude":  bson.M{"$gte": bounds.South, "$lte": bounds.North},
		"location.coordinates.longitude": bson.M{"$gte": bounds.West, "$lte": bounds.East},
		"active":                         true,
	}

	return mdb.findBars(ctx, col, filter, nil)
}

func (mdb *MongodbRepo) SetRatingAggregate(ctx context.Context, barID primitive.ObjectID, average float64, total int) error {
	col, err := mdb.GetCollection(ctx, BarColName)
	if err != nil {
		return fmt.Errorf("failed to set rating aggregate: %w", err)
	}

	res, err := col.UpdateOne(ctx, bson.M{"_id": barID}, bson.M{"$set": bson.M{
		"average_rating": average,
		"total_ratings":  total,
		"updated_at":     time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to set rating aggregate: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (mdb *MongodbRepo) UpdateBar(ctx context.Context, id primitive.ObjectID, set bson.M) (*Bar, error) {
	col, err := mdb.GetCollection(ctx, BarColName)
	if err != nil {
		return nil, fmt.Errorf("failed to update bar: %w", err)
	}

	set["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Bar
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update bar: %w", err)
	}

	return &updated, nil
}

func (mdb *MongodbRepo) DeactivateBar(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(ctx, BarColName)
	if err != nil {
		return fmt.Errorf("failed to deactivate bar: %w", err)
	}

	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"active":     false,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to deactivate bar: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (mdb *MongodbRepo) findBars(ctx context.Context, col *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]*Bar, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = col.Find(ctx, filter, opts)
	} else {
		cursor, err = col.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bars: %w", err)
	}
	defer cursor.Close(ctx)

	var bars []*Bar
	for cursor.Next(ctx) {
		var b Bar
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode bar: %w", err)
		}
		bars = append(bars, &b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return bars, nil
}
