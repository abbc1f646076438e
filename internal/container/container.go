package container

import (
	"log/slog"

	"github.com/calibar/server/internal/config"
	"github.com/calibar/server/internal/models"
	"github.com/calibar/server/internal/services"
	"github.com/cloudinary/cloudinary-go/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Logger        *slog.Logger
	Config        *config.Config
	MongoDBClient *mongo.Client
	BarService    *services.BarService
	RatingService *services.RatingService
}

// NewContainer creates a new dependency injection container
func NewContainer(
	logger *slog.Logger,
	cfg *config.Config,
	mongoDBClient *mongo.Client,
	cld *cloudinary.Cloudinary,
) *Container {
	repo := models.MongodbNewRepo(mongoDBClient, cfg.MongoDBName)

	aggregator := services.NewRatingAggregator(repo, repo)
	guard := services.NewProximityGuard(repo, cfg.MinSeparationKm)
	barService := services.NewBarService(repo, repo, guard, cld)
	ratingService := services.NewRatingService(repo, repo, aggregator)

	return &Container{
		Logger:        logger,
		Config:        cfg,
		MongoDBClient: mongoDBClient,
		BarService:    barService,
		RatingService: ratingService,
	}
}
