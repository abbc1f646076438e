package connect

import (
	"context"
	"fmt"
	"time"

	"github.com/calibar/server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoDBClient *mongo.Client

func MongoDBConnect(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)

	var err error
	MongoDBClient, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := MongoDBClient.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return MongoDBClient, nil
}

func MongoDBDisconnect() error {
	if MongoDBClient == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := MongoDBClient.Disconnect(ctx)
	if err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	MongoDBClient = nil
	return nil
}

// EnsureIndexes creates the indexes the rating engine depends on. The partial
// unique index over active (user, bar) pairs is the authority for the
// one-rating-per-user invariant; the application pre-check only selects the
// create-vs-update branch.
func EnsureIndexes(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	ratingIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "bar", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys: bson.D{{Key: "bar", Value: 1}, {Key: "date", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}},
		},
	}
	if _, err := db.Collection(models.RatingColName).Indexes().CreateMany(ctx, ratingIndexes); err != nil {
		return fmt.Errorf("failed to create rating indexes: %w", err)
	}

	barIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "location.coordinates.latitude", Value: 1},
				{Key: "location.coordinates.longitude", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "creator", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "average_rating", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}
	if _, err := db.Collection(models.BarColName).Indexes().CreateMany(ctx, barIndexes); err != nil {
		return fmt.Errorf("failed to create bar indexes: %w", err)
	}

	return nil
}
