package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calibar/server/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RatingService orchestrates the create-or-update and delete use cases for
// ratings. The application-level lookup only picks the friendly branch; the
// store's partial unique index is the authority on duplicates, and a
// duplicate-key rejection on insert is converted into the update path rather
// than surfaced.
type RatingService struct {
	ratings    models.RatingRepo
	bars       models.BarRepo
	aggregator *RatingAggregator
}

func NewRatingService(ratings models.RatingRepo, bars models.BarRepo, aggregator *RatingAggregator) *RatingService {
	return &RatingService{
		ratings:    ratings,
		bars:       bars,
		aggregator: aggregator,
	}
}

// Submit creates the user's rating for a bar, or updates it in place when one
// already exists. The returned bool is true for a create, false for an
// update. A nil criteria defaults all four sub-scores to value on create but
// leaves the stored criteria untouched on update.
func (rs *RatingService) Submit(ctx context.Context, userID, barID primitive.ObjectID, value int, review string, criteria *models.Criteria) (*models.Rating, bool, error) {
	if value < 1 || value > 5 {
		return nil, false, models.NewValidationError("value", "rating must be between 1 and 5")
	}
	if criteria != nil {
		probe := models.Rating{User: userID, Bar: barID, Value: value, Criteria: *criteria}
		if err := probe.ValidateRating(); err != nil {
			return nil, false, err
		}
	}

	bar, err := rs.bars.GetBarByID(ctx, barID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, false, fmt.Errorf("bar not found or inactive: %w", models.ErrNotFound)
		}
		return nil, false, err
	}
	if !bar.Active {
		return nil, false, fmt.Errorf("bar not found or inactive: %w", models.ErrNotFound)
	}

	review = strings.TrimSpace(review)

	existing, err := rs.ratings.FindActiveByUserAndBar(ctx, userID, barID)
	if err != nil {
		return nil, false, err
	}

	var rating *models.Rating
	created := false

	if existing != nil {
		rating, err = rs.ratings.UpdateRating(ctx, existing.ID, value, review, criteria)
		if err != nil {
			return nil, false, err
		}
	} else {
		newRating := &models.Rating{
			User:   userID,
			Bar:    barID,
			Value:  value,
			Review: review,
		}
		if criteria != nil {
			newRating.Criteria = *criteria
		} else {
			newRating.Criteria = models.UniformCriteria(value)
		}
		newRating.Sanitize()
		newRating.BeforeCreate()

		err = rs.ratings.InsertRating(ctx, newRating)
		switch {
		case err == nil:
			rating = newRating
			created = true
		case errors.Is(err, models.ErrDuplicateRating):
			// A concurrent submission by the same user won the insert.
			// Re-read the winner and apply this submission as an update.
			racedRating, raceErr := rs.ratings.FindActiveByUserAndBar(ctx, userID, barID)
			if raceErr != nil {
				return nil, false, raceErr
			}
			if racedRating == nil {
				return nil, false, fmt.Errorf("duplicate rating reported but no active rating found: %w", err)
			}
			rating, err = rs.ratings.UpdateRating(ctx, racedRating.ID, value, review, criteria)
			if err != nil {
				return nil, false, err
			}
		default:
			return nil, false, err
		}
	}

	if err := rs.aggregator.Recompute(ctx, barID); err != nil {
		return nil, false, err
	}

	return rating, created, nil
}

// Delete soft-deletes a rating. Only the rating's owner or an admin may
// delete it; an already deleted rating is rejected rather than treated as a
// no-op.
func (rs *RatingService) Delete(ctx context.Context, ratingID, userID primitive.ObjectID, isAdmin bool) error {
	rating, err := rs.ratings.GetRatingByID(ctx, ratingID)
	if err != nil {
		return err
	}

	if !rating.Active {
		return models.ErrAlreadyDeleted
	}
	if rating.User != userID && !isAdmin {
		return fmt.Errorf("you can only delete your own ratings: %w", models.ErrPermissionDenied)
	}

	if err := rs.ratings.SoftDeleteRating(ctx, ratingID); err != nil {
		return err
	}

	return rs.aggregator.Recompute(ctx, rating.Bar)
}

// GetBarStats returns the on-demand statistics view for a bar.
func (rs *RatingService) GetBarStats(ctx context.Context, barID primitive.ObjectID) (*models.RatingStats, error) {
	if err := rs.requireActiveBar(ctx, barID); err != nil {
		return nil, err
	}

	ratings, err := rs.ratings.FindActiveByBar(ctx, barID)
	if err != nil {
		return nil, err
	}

	stats := ComputeStats(ratings)
	return &stats, nil
}

// GetBarRatings lists a bar's active ratings, newest first.
func (rs *RatingService) GetBarRatings(ctx context.Context, barID primitive.ObjectID, offset, limit int) ([]*models.Rating, int, error) {
	if offset < 0 || limit <= 0 {
		return nil, 0, models.NewValidationError("pagination", "invalid offset or limit")
	}
	if err := rs.requireActiveBar(ctx, barID); err != nil {
		return nil, 0, err
	}

	return rs.ratings.FindActiveByBarPaged(ctx, barID, offset, limit)
}

// GetUserRatings lists a user's active ratings, newest first, together with
// the user's own rating statistics.
func (rs *RatingService) GetUserRatings(ctx context.Context, userID primitive.ObjectID, offset, limit int) ([]*models.Rating, *models.RatingStats, int, error) {
	if offset < 0 || limit <= 0 {
		return nil, nil, 0, models.NewValidationError("pagination", "invalid offset or limit")
	}

	ratings, total, err := rs.ratings.FindActiveByUserPaged(ctx, userID, offset, limit)
	if err != nil {
		return nil, nil, 0, err
	}

	allRatings, err := rs.ratings.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, nil, 0, err
	}
	stats := ComputeStats(allRatings)

	return ratings, &stats, total, nil
}

// GetUserBarRating returns one user's active rating for a bar. Only the user
// themselves or an admin may look it up.
func (rs *RatingService) GetUserBarRating(ctx context.Context, barID, userID, requesterID primitive.ObjectID, requesterIsAdmin bool) (*models.Rating, error) {
	if requesterID != userID && !requesterIsAdmin {
		return nil, fmt.Errorf("you can only view your own ratings: %w", models.ErrPermissionDenied)
	}

	rating, err := rs.ratings.FindActiveByUserAndBar(ctx, userID, barID)
	if err != nil {
		return nil, err
	}
	if rating == nil {
		return nil, models.ErrNotFound
	}

	return rating, nil
}

func (rs *RatingService) requireActiveBar(ctx context.Context, barID primitive.ObjectID) error {
	bar, err := rs.bars.GetBarByID(ctx, barID)
	if err != nil {
		return err
	}
	if !bar.Active {
		return fmt.Errorf("bar not found or inactive: %w", models.ErrNotFound)
	}
	return nil
}
