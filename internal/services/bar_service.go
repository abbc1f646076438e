package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/calibar/server/internal/geo"
	"github.com/calibar/server/internal/helpers"
	"github.com/calibar/server/internal/models"
	"github.com/cloudinary/cloudinary-go/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSearchRadiusKm is used when a location search supplies no radius.
const DefaultSearchRadiusKm = 5.0

type BarService struct {
	bars    models.BarRepo
	ratings models.RatingRepo
	guard   *ProximityGuard
	cld     *cloudinary.Cloudinary
}

// NewBarService wires the bar use cases. cld may be nil, in which case image
// uploads are skipped and submitted URLs are stored as-is.
func NewBarService(bars models.BarRepo, ratings models.RatingRepo, guard *ProximityGuard, cld *cloudinary.Cloudinary) *BarService {
	return &BarService{
		bars:    bars,
		ratings: ratings,
		guard:   guard,
		cld:     cld,
	}
}

// CreateBar registers a new bar after validating its coordinates and making
// sure no existing bar sits within the minimum separation distance.
func (bs *BarService) CreateBar(ctx context.Context, bar *models.Bar, creatorID primitive.ObjectID) (*models.Bar, error) {
	if err := models.Validate.Struct(bar); err != nil {
		return nil, models.NewValidationError("bar", err.Error())
	}

	lat := bar.Location.Coordinates.Latitude
	lon := bar.Location.Coordinates.Longitude

	result, err := bs.guard.CheckConflict(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if result.Conflict {
		return nil, &models.ProximityConflictError{Nearby: result.Nearby}
	}

	if bs.cld != nil && len(bar.Images) > 0 {
		uploadChan := make(chan []string, 1)
		errorChan := make(chan error, 1)

		go func() {
			urls, uploadErr := helpers.UploadImages(ctx, bs.cld, bar.Images, helpers.BarFolder)
			if uploadErr != nil {
				errorChan <- uploadErr
				return
			}
			uploadChan <- urls
		}()

		select {
		case urls := <-uploadChan:
			bar.Images = urls
		case uploadErr := <-errorChan:
			return nil, fmt.Errorf("failed to upload images: %w", uploadErr)
		case <-time.After(30 * time.Second):
			return nil, fmt.Errorf("image upload timeout")
		}
	}

	bar.Creator = creatorID
	bar.BeforeCreate()

	if err := bs.bars.InsertBar(ctx, bar); err != nil {
		return nil, err
	}

	return bar, nil
}

// GetBar returns an active bar together with its rating statistics.
func (bs *BarService) GetBar(ctx context.Context, id primitive.ObjectID) (*models.Bar, *models.RatingStats, error) {
	bar, err := bs.bars.GetBarByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !bar.Active {
		return nil, nil, fmt.Errorf("bar is not available: %w", models.ErrNotFound)
	}

	ratings, err := bs.ratings.FindActiveByBar(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	stats := ComputeStats(ratings)
	// The displayed average is the stored aggregate, not a fresh derivation.
	stats.Average = bar.AverageRating

	return bar, &stats, nil
}

// ListBars pages through active bars, optionally filtered by equipment,
// features and minimum rating.
func (bs *BarService) ListBars(ctx context.Context, filters models.BarFilters, offset, limit int) ([]*models.Bar, int, error) {
	if offset < 0 || limit <= 0 {
		return nil, 0, models.NewValidationError("pagination", "invalid offset or limit")
	}
	return bs.bars.ListBars(ctx, filters, offset, limit)
}

// SearchByLocation finds active bars within radiusKm of a point, nearest
// first, using the same box-then-refine pattern as the proximity guard.
func (bs *BarService) SearchByLocation(ctx context.Context, lat, lon, radiusKm float64) ([]models.BarWithDistance, error) {
	if !geo.IsValidCoordinate(lat, lon) {
		return nil, models.NewValidationError("coordinates", "invalid GPS coordinates")
	}
	if radiusKm <= 0 {
		radiusKm = DefaultSearchRadiusKm
	}

	bounds := geo.BoundingBox(lat, lon, radiusKm)
	candidates, err := bs.bars.FindActiveInBounds(ctx, bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to search bars by location: %w", err)
	}

	results := make([]models.BarWithDistance, 0, len(candidates))
	for _, bar := range candidates {
		d := geo.DistanceKm(lat, lon, bar.Location.Coordinates.Latitude, bar.Location.Coordinates.Longitude)
		if d <= radiusKm {
			results = append(results, models.BarWithDistance{Bar: bar, DistanceKm: d})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})

	return results, nil
}

// BarUpdate carries the optional fields of a bar update. Nil means "leave
// unchanged".
type BarUpdate struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	Location    *models.BarLocation `json:"location,omitempty"`
	Equipment   *models.Equipment   `json:"equipment,omitempty"`
	Features    *models.Features    `json:"features,omitempty"`
	Images      []string            `json:"images,omitempty"`
}

// UpdateBar applies a partial update. Only the creator or an admin may edit a
// bar; a coordinate change is re-validated and re-checked for proximity
// conflicts (ignoring the bar itself).
func (bs *BarService) UpdateBar(ctx context.Context, id, userID primitive.ObjectID, isAdmin bool, update BarUpdate) (*models.Bar, error) {
	existing, err := bs.bars.GetBarByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Creator != userID && !isAdmin {
		return nil, fmt.Errorf("you can only update bars you created: %w", models.ErrPermissionDenied)
	}

	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Equipment != nil {
		set["equipment"] = *update.Equipment
	}
	if update.Features != nil {
		set["features"] = *update.Features
	}
	if update.Images != nil {
		set["images"] = update.Images
	}
	if update.Location != nil {
		lat := update.Location.Coordinates.Latitude
		lon := update.Location.Coordinates.Longitude

		result, err := bs.guard.CheckConflict(ctx, lat, lon)
		if err != nil {
			return nil, err
		}
		nearby := make([]models.NearbyBar, 0, len(result.Nearby))
		for _, n := range result.Nearby {
			if n.ID != id.Hex() {
				nearby = append(nearby, n)
			}
		}
		if len(nearby) > 0 {
			return nil, &models.ProximityConflictError{Nearby: nearby}
		}

		set["location"] = *update.Location
	}

	if len(set) == 0 {
		return existing, nil
	}

	return bs.bars.UpdateBar(ctx, id, set)
}

// DeleteBar soft-deactivates a bar. Creator or admin only.
func (bs *BarService) DeleteBar(ctx context.Context, id, userID primitive.ObjectID, isAdmin bool) error {
	bar, err := bs.bars.GetBarByID(ctx, id)
	if err != nil {
		return err
	}
	if bar.Creator != userID && !isAdmin {
		return fmt.Errorf("you can only delete bars you created: %w", models.ErrPermissionDenied)
	}

	return bs.bars.DeactivateBar(ctx, id)
}

// CheckProximity exposes the duplicate-location guard for pre-flight checks
// from the client before a create is attempted.
func (bs *BarService) CheckProximity(ctx context.Context, lat, lon float64) (*ProximityResult, error) {
	return bs.guard.CheckConflict(ctx, lat, lon)
}
