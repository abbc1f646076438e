package services

import (
	"context"
	"errors"
	"testing"

	"github.com/calibar/server/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newRatingFixture() (*memStore, *RatingService, *models.Bar) {
	store := newMemStore()
	aggregator := NewRatingAggregator(store, store)
	service := NewRatingService(store, store, aggregator)
	bar := store.addBar("Parque O'Higgins", -33.4489, -70.6693)
	return store, service, bar
}

func mustBar(t *testing.T, store *memStore, id primitive.ObjectID) *models.Bar {
	t.Helper()
	bar, err := store.GetBarByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetBarByID: %v", err)
	}
	return bar
}

func TestSubmitFirstRating(t *testing.T) {
	store, service, bar := newRatingFixture()
	userID := primitive.NewObjectID()

	rating, created, err := service.Submit(context.Background(), userID, bar.ID, 5, "great spot", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !created {
		t.Error("first submission should report created=true")
	}
	if rating.Value != 5 {
		t.Errorf("rating value = %d, want 5", rating.Value)
	}
	// Omitted criteria defaults every sub-score to the overall value.
	want := models.UniformCriteria(5)
	if rating.Criteria != want {
		t.Errorf("criteria = %+v, want %+v", rating.Criteria, want)
	}

	got := mustBar(t, store, bar.ID)
	if got.AverageRating != 5 || got.TotalRatings != 1 {
		t.Errorf("aggregate = (%v, %d), want (5, 1)", got.AverageRating, got.TotalRatings)
	}
}

func TestSubmitSecondTimeUpdatesInPlace(t *testing.T) {
	store, service, bar := newRatingFixture()
	userID := primitive.NewObjectID()
	ctx := context.Background()

	first, _, err := service.Submit(ctx, userID, bar.ID, 5, "", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	second, created, err := service.Submit(ctx, userID, bar.ID, 3, "worse than I remembered", nil)
	if err != nil {
		t.Fatalf("Submit (update): %v", err)
	}
	if created {
		t.Error("second submission should report created=false")
	}
	if second.ID != first.ID {
		t.Error("second submission must mutate the existing rating, not insert a new one")
	}

	got := mustBar(t, store, bar.ID)
	if got.AverageRating != 3 || got.TotalRatings != 1 {
		t.Errorf("aggregate = (%v, %d), want (3, 1)", got.AverageRating, got.TotalRatings)
	}

	all, _ := store.FindActiveByUser(ctx, userID)
	if len(all) != 1 {
		t.Errorf("user has %d active ratings, want 1", len(all))
	}
}

func TestSubmitSecondUserAveragesWithRounding(t *testing.T) {
	store, service, bar := newRatingFixture()
	ctx := context.Background()
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()

	if _, _, err := service.Submit(ctx, alice, bar.ID, 3, "", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, _, err := service.Submit(ctx, bob, bar.ID, 4, "", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := mustBar(t, store, bar.ID)
	if got.AverageRating != 3.5 || got.TotalRatings != 2 {
		t.Errorf("aggregate = (%v, %d), want (3.5, 2)", got.AverageRating, got.TotalRatings)
	}
}

func TestDeleteRecomputesAggregate(t *testing.T) {
	store, service, bar := newRatingFixture()
	ctx := context.Background()
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()

	aliceRating, _, err := service.Submit(ctx, alice, bar.ID, 3, "", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, _, err := service.Submit(ctx, bob, bar.ID, 4, "", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := service.Delete(ctx, aliceRating.ID, alice, false); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got := mustBar(t, store, bar.ID)
	if got.AverageRating != 4 || got.TotalRatings != 1 {
		t.Errorf("aggregate = (%v, %d), want (4, 1)", got.AverageRating, got.TotalRatings)
	}
}

func TestDeleteLastRatingZeroesAggregate(t *testing.T) {
	store, service, bar := newRatingFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	rating, _, err := service.Submit(ctx, userID, bar.ID, 4, "", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := service.Delete(ctx, rating.ID, userID, false); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got := mustBar(t, store, bar.ID)
	if got.AverageRating != 0 || got.TotalRatings != 0 {
		t.Errorf("aggregate = (%v, %d), want (0, 0)", got.AverageRating, got.TotalRatings)
	}
}

func TestCriteriaRetainedWhenOmittedOnUpdate(t *testing.T) {
	_, service, bar := newRatingFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	criteria := &models.Criteria{Equipment: 5, Location: 2, Maintenance: 4, Safety: 3}
	if _, _, err := service.Submit(ctx, userID, bar.ID, 4, "", criteria); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Update without criteria: value changes, stored criteria must not.
	updated, _, err := service.Submit(ctx, userID, bar.ID, 2, "broken rings", nil)
	if err != nil {
		t.Fatalf("Submit (update): %v", err)
	}
	if updated.Criteria != *criteria {
		t.Errorf("criteria = %+v, want retained %+v", updated.Criteria, *criteria)
	}

	// Update with criteria: overwritten.
	newCriteria := &models.Criteria{Equipment: 1, Location: 1, Maintenance: 1, Safety: 1}
	updated, _, err = service.Submit(ctx, userID, bar.ID, 1, "", newCriteria)
	if err != nil {
		t.Fatalf("Submit (update): %v", err)
	}
	if updated.Criteria != *newCriteria {
		t.Errorf("criteria = %+v, want overwritten %+v", updated.Criteria, *newCriteria)
	}
}

func TestSubmitDuplicateRaceConvertsToUpdate(t *testing.T) {
	store, service, bar := newRatingFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	// The pre-check sees no rating, but by the time the insert lands a
	// concurrent submission by the same user has won; the store rejects the
	// insert through the unique constraint.
	raced := &models.Rating{
		User:     userID,
		Bar:      bar.ID,
		Value:    5,
		Criteria: models.UniformCriteria(5),
	}
	raced.BeforeCreate()
	store.failNextInsert = true
	store.racedRating = raced

	rating, created, err := service.Submit(ctx, userID, bar.ID, 2, "changed my mind", nil)
	if err != nil {
		t.Fatalf("Submit should convert the duplicate race into an update, got %v", err)
	}
	if created {
		t.Error("raced submission should report created=false")
	}
	if rating.ID != raced.ID {
		t.Error("raced submission should update the winning rating in place")
	}
	if rating.Value != 2 {
		t.Errorf("rating value = %d, want 2", rating.Value)
	}

	all, _ := store.FindActiveByUser(ctx, userID)
	if len(all) != 1 {
		t.Fatalf("user has %d active ratings after race, want 1", len(all))
	}

	got := mustBar(t, store, bar.ID)
	if got.AverageRating != 2 || got.TotalRatings != 1 {
		t.Errorf("aggregate = (%v, %d), want (2, 1)", got.AverageRating, got.TotalRatings)
	}
}

func TestSubmitValueOutOfRange(t *testing.T) {
	_, service, bar := newRatingFixture()
	ctx := context.Background()

	for _, v := range []int{0, 6, -1} {
		_, _, err := service.Submit(ctx, primitive.NewObjectID(), bar.ID, v, "", nil)
		var validationErr *models.ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("Submit(value=%d) error = %v, want ValidationError", v, err)
		}
	}
}

func TestSubmitUnknownOrInactiveBar(t *testing.T) {
	store, service, _ := newRatingFixture()
	ctx := context.Background()

	_, _, err := service.Submit(ctx, primitive.NewObjectID(), primitive.NewObjectID(), 4, "", nil)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Submit(unknown bar) error = %v, want ErrNotFound", err)
	}

	inactive := store.addBar("closed spot", 10, 10)
	inactive.Active = false
	_, _, err = service.Submit(ctx, primitive.NewObjectID(), inactive.ID, 4, "", nil)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Submit(inactive bar) error = %v, want ErrNotFound", err)
	}
}

func TestDeletePermissions(t *testing.T) {
	_, service, bar := newRatingFixture()
	ctx := context.Background()
	owner := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	rating, _, err := service.Submit(ctx, owner, bar.ID, 4, "", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := service.Delete(ctx, rating.ID, stranger, false); !errors.Is(err, models.ErrPermissionDenied) {
		t.Errorf("Delete by stranger error = %v, want ErrPermissionDenied", err)
	}

	// Admin may delete someone else's rating.
	if err := service.Delete(ctx, rating.ID, stranger, true); err != nil {
		t.Errorf("Delete by admin: %v", err)
	}

	// A second delete hits the already-deleted guard.
	if err := service.Delete(ctx, rating.ID, owner, false); !errors.Is(err, models.ErrAlreadyDeleted) {
		t.Errorf("Delete of deleted rating error = %v, want ErrAlreadyDeleted", err)
	}

	if err := service.Delete(ctx, primitive.NewObjectID(), owner, false); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Delete of unknown rating error = %v, want ErrNotFound", err)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	store, service, bar := newRatingFixture()
	ctx := context.Background()

	if _, _, err := service.Submit(ctx, primitive.NewObjectID(), bar.ID, 5, "", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, _, err := service.Submit(ctx, primitive.NewObjectID(), bar.ID, 2, "", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	aggregator := NewRatingAggregator(store, store)
	if err := aggregator.Recompute(ctx, bar.ID); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	first := mustBar(t, store, bar.ID)

	if err := aggregator.Recompute(ctx, bar.ID); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	second := mustBar(t, store, bar.ID)

	if first.AverageRating != second.AverageRating || first.TotalRatings != second.TotalRatings {
		t.Errorf("repeat recompute changed aggregate: (%v, %d) -> (%v, %d)",
			first.AverageRating, first.TotalRatings, second.AverageRating, second.TotalRatings)
	}
}

func TestGetBarStats(t *testing.T) {
	_, service, bar := newRatingFixture()
	ctx := context.Background()

	criteria := &models.Criteria{Equipment: 5, Location: 4, Maintenance: 3, Safety: 2}
	if _, _, err := service.Submit(ctx, primitive.NewObjectID(), bar.ID, 5, "", criteria); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, _, err := service.Submit(ctx, primitive.NewObjectID(), bar.ID, 4, "", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, _, err := service.Submit(ctx, primitive.NewObjectID(), bar.ID, 4, "", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	stats, err := service.GetBarStats(ctx, bar.ID)
	if err != nil {
		t.Fatalf("GetBarStats: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	// (5+4+4)/3 = 4.333... -> 4.3
	if stats.Average != 4.3 {
		t.Errorf("average = %v, want 4.3", stats.Average)
	}
	if stats.Distribution[5] != 1 || stats.Distribution[4] != 2 || stats.Distribution[3] != 0 {
		t.Errorf("distribution = %v", stats.Distribution)
	}
	// equipment: (5+4+4)/3 = 4.3, location: (4+4+4)/3 = 4,
	// maintenance: (3+4+4)/3 = 3.7, safety: (2+4+4)/3 = 3.3
	wantCriteria := models.CriteriaMeans{Equipment: 4.3, Location: 4, Maintenance: 3.7, Safety: 3.3}
	if stats.Criteria != wantCriteria {
		t.Errorf("criteria means = %+v, want %+v", stats.Criteria, wantCriteria)
	}
	if stats.RecentCount != 3 {
		t.Errorf("recent count = %d, want 3", stats.RecentCount)
	}
}

func TestGetBarStatsEmptySet(t *testing.T) {
	_, service, bar := newRatingFixture()

	stats, err := service.GetBarStats(context.Background(), bar.ID)
	if err != nil {
		t.Fatalf("GetBarStats: %v", err)
	}
	if stats.Total != 0 || stats.Average != 0 {
		t.Errorf("stats = %+v, want zero total and average", stats)
	}
	if stats.Criteria != (models.CriteriaMeans{}) {
		t.Errorf("criteria means = %+v, want all zeros", stats.Criteria)
	}
}

func TestGetUserBarRatingPermissions(t *testing.T) {
	_, service, bar := newRatingFixture()
	ctx := context.Background()
	owner := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	if _, _, err := service.Submit(ctx, owner, bar.ID, 4, "", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := service.GetUserBarRating(ctx, bar.ID, owner, stranger, false); !errors.Is(err, models.ErrPermissionDenied) {
		t.Errorf("stranger lookup error = %v, want ErrPermissionDenied", err)
	}
	if _, err := service.GetUserBarRating(ctx, bar.ID, owner, owner, false); err != nil {
		t.Errorf("owner lookup: %v", err)
	}
	if _, err := service.GetUserBarRating(ctx, bar.ID, owner, stranger, true); err != nil {
		t.Errorf("admin lookup: %v", err)
	}
	if _, err := service.GetUserBarRating(ctx, bar.ID, stranger, stranger, false); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing rating lookup error = %v, want ErrNotFound", err)
	}
}

func TestRound1HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{3.45, 3.5},
		{3.44, 3.4},
		{4.25, 4.3},
		{0, 0},
		{3.333333, 3.3},
		{4.666666, 4.7},
	}
	for _, c := range cases {
		if got := Round1(c.in); got != c.want {
			t.Errorf("Round1(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
