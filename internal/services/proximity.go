package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/calibar/server/internal/geo"
	"github.com/calibar/server/internal/models"
)

// DefaultMinSeparationKm is the minimum distance between two bars, ~50 m.
const DefaultMinSeparationKm = 0.05

// ProximityGuard decides whether a proposed bar location collides with an
// existing one. It runs a cheap rectangular pre-filter in the store, then
// refines the small candidate set with exact haversine distances, which keeps
// duplicate detection correct without any geospatial index.
type ProximityGuard struct {
	bars            models.BarRepo
	minSeparationKm float64
}

func NewProximityGuard(bars models.BarRepo, minSeparationKm float64) *ProximityGuard {
	if minSeparationKm <= 0 {
		minSeparationKm = DefaultMinSeparationKm
	}
	return &ProximityGuard{
		bars:            bars,
		minSeparationKm: minSeparationKm,
	}
}

// ProximityResult reports conflicting bars sorted nearest-first.
type ProximityResult struct {
	Conflict bool               `json:"conflict"`
	Nearby   []models.NearbyBar `json:"nearby"`
}

// CheckConflict returns the bars within the minimum separation distance of
// the candidate point. The threshold is a closed boundary: a bar exactly at
// minSeparationKm counts as a conflict.
func (pg *ProximityGuard) CheckConflict(ctx context.Context, lat, lon float64) (*ProximityResult, error) {
	if !geo.IsValidCoordinate(lat, lon) {
		return nil, models.NewValidationError("location.coordinates", "invalid GPS coordinates")
	}

	bounds := geo.BoundingBox(lat, lon, pg.minSeparationKm)
	candidates, err := pg.bars.FindActiveInBounds(ctx, bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to check proximity: %w", err)
	}

	nearby := make([]models.NearbyBar, 0, len(candidates))
	for _, bar := range candidates {
		d := geo.DistanceKm(lat, lon, bar.Location.Coordinates.Latitude, bar.Location.Coordinates.Longitude)
		if d <= pg.minSeparationKm {
			nearby = append(nearby, models.NearbyBar{
				ID:         bar.ID.Hex(),
				Name:       bar.Name,
				DistanceKm: d,
			})
		}
	}
	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})

	return &ProximityResult{
		Conflict: len(nearby) > 0,
		Nearby:   nearby,
	}, nil
}

// MinSeparationKm exposes the configured threshold.
func (pg *ProximityGuard) MinSeparationKm() float64 {
	return pg.minSeparationKm
}
