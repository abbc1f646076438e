package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/calibar/server/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// recentWindow bounds the "recent ratings" counter in statistics.
const recentWindow = 30 * 24 * time.Hour

// RatingAggregator keeps a bar's stored average_rating/total_ratings
// consistent with its active rating set. Every recompute re-reads the full
// active set instead of adjusting a running average, so concurrent writers
// can race on the final write without compounding drift: whichever recompute
// lands last reflects some serialization of the underlying writes.
type RatingAggregator struct {
	ratings models.RatingRepo
	bars    models.BarRepo
}

func NewRatingAggregator(ratings models.RatingRepo, bars models.BarRepo) *RatingAggregator {
	return &RatingAggregator{
		ratings: ratings,
		bars:    bars,
	}
}

// Round1 rounds to one decimal place, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Recompute recalculates and persists the aggregate fields for a bar. Must be
// called after every rating create, update and soft-delete; both fields go out
// in a single update so no partial state is ever visible.
func (ra *RatingAggregator) Recompute(ctx context.Context, barID primitive.ObjectID) error {
	ratings, err := ra.ratings.FindActiveByBar(ctx, barID)
	if err != nil {
		return fmt.Errorf("failed to recompute bar rating: %w", err)
	}

	var average float64
	total := len(ratings)
	if total > 0 {
		sum := 0
		for _, r := range ratings {
			sum += r.Value
		}
		average = Round1(float64(sum) / float64(total))
	}

	if err := ra.bars.SetRatingAggregate(ctx, barID, average, total); err != nil {
		return fmt.Errorf("failed to persist bar rating aggregate: %w", err)
	}

	return nil
}

// ComputeStats derives the full statistics view from an active rating set.
// Nothing here is stored; it is recomputed per request with the same rounding
// rule as the persisted average.
func ComputeStats(ratings []*models.Rating) models.RatingStats {
	stats := models.RatingStats{
		Total:        len(ratings),
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		Criteria:     ComputeCriteriaMeans(ratings),
	}

	if len(ratings) == 0 {
		return stats
	}

	cutoff := time.Now().Add(-recentWindow)
	sum := 0
	for _, r := range ratings {
		sum += r.Value
		if r.Value >= 1 && r.Value <= 5 {
			stats.Distribution[r.Value]++
		}
		if r.Date.After(cutoff) {
			stats.RecentCount++
		}
	}
	stats.Average = Round1(float64(sum) / float64(len(ratings)))

	return stats
}

// ComputeCriteriaMeans averages each criterion independently across the
// active set, each rounded to 1 decimal. All zeros for an empty set.
func ComputeCriteriaMeans(ratings []*models.Rating) models.CriteriaMeans {
	if len(ratings) == 0 {
		return models.CriteriaMeans{}
	}

	var equipment, location, maintenance, safety int
	for _, r := range ratings {
		equipment += r.Criteria.Equipment
		location += r.Criteria.Location
		maintenance += r.Criteria.Maintenance
		safety += r.Criteria.Safety
	}

	n := float64(len(ratings))
	return models.CriteriaMeans{
		Equipment:   Round1(float64(equipment) / n),
		Location:    Round1(float64(location) / n),
		Maintenance: Round1(float64(maintenance) / n),
		Safety:      Round1(float64(safety) / n),
	}
}
