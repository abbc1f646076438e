package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/calibar/server/internal/geo"
	"github.com/calibar/server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory stand-in for the Mongo repositories. It mirrors
// the store-level behavior the services rely on, including the partial unique
// constraint over active (user, bar) pairs.
type memStore struct {
	mu      sync.Mutex
	bars    map[primitive.ObjectID]*models.Bar
	ratings map[primitive.ObjectID]*models.Rating

	// failInsert simulates losing the insert race: the first insert attempt
	// is rejected as a duplicate after racedRating is planted.
	failNextInsert bool
	racedRating    *models.Rating
}

func newMemStore() *memStore {
	return &memStore{
		bars:    make(map[primitive.ObjectID]*models.Bar),
		ratings: make(map[primitive.ObjectID]*models.Rating),
	}
}

func (m *memStore) addBar(name string, lat, lon float64) *models.Bar {
	bar := &models.Bar{
		Name:        name,
		Description: "a street workout spot",
		Location: models.BarLocation{
			Coordinates: models.Coordinates{Latitude: lat, Longitude: lon},
		},
	}
	bar.BeforeCreate()
	m.mu.Lock()
	m.bars[bar.ID] = bar
	m.mu.Unlock()
	return bar
}

func (m *memStore) InsertBar(ctx context.Context, bar *models.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[bar.ID] = bar
	return nil
}

func (m *memStore) GetBarByID(ctx context.Context, id primitive.ObjectID) (*models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bar, ok := m.bars[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *bar
	return &cp, nil
}

func (m *memStore) ListBars(ctx context.Context, filters models.BarFilters, skip, limit int) ([]*models.Bar, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Bar
	for _, b := range m.bars {
		if b.Active && b.AverageRating >= filters.MinRating {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *memStore) FindActiveInBounds(ctx context.Context, bounds geo.Bounds) ([]*models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Bar
	for _, b := range m.bars {
		if !b.Active {
			continue
		}
		lat := b.Location.Coordinates.Latitude
		lon := b.Location.Coordinates.Longitude
		if lat >= bounds.South && lat <= bounds.North && lon >= bounds.West && lon <= bounds.East {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) SetRatingAggregate(ctx context.Context, barID primitive.ObjectID, average float64, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bar, ok := m.bars[barID]
	if !ok {
		return models.ErrNotFound
	}
	// Both fields land together, as the Mongo implementation's single $set.
	bar.AverageRating = average
	bar.TotalRatings = total
	bar.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) UpdateBar(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bar, ok := m.bars[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if v, ok := set["name"].(string); ok {
		bar.Name = v
	}
	if v, ok := set["description"].(string); ok {
		bar.Description = v
	}
	if v, ok := set["location"].(models.BarLocation); ok {
		bar.Location = v
	}
	bar.UpdatedAt = time.Now().UTC()
	cp := *bar
	return &cp, nil
}

func (m *memStore) DeactivateBar(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bar, ok := m.bars[id]
	if !ok {
		return models.ErrNotFound
	}
	bar.Active = false
	return nil
}

func (m *memStore) InsertRating(ctx context.Context, rating *models.Rating) error {
	if err := rating.ValidateRating(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNextInsert {
		m.failNextInsert = false
		if m.racedRating != nil {
			m.ratings[m.racedRating.ID] = m.racedRating
		}
		return models.ErrDuplicateRating
	}

	// Partial unique index semantics: one active rating per (user, bar).
	for _, r := range m.ratings {
		if r.Active && r.User == rating.User && r.Bar == rating.Bar {
			return models.ErrDuplicateRating
		}
	}
	m.ratings[rating.ID] = rating
	return nil
}

func (m *memStore) UpdateRating(ctx context.Context, id primitive.ObjectID, value int, review string, criteria *models.Criteria) (*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	r.Value = value
	r.Review = review
	r.Date = time.Now().UTC()
	if criteria != nil {
		r.Criteria = *criteria
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) SoftDeleteRating(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[id]
	if !ok {
		return models.ErrNotFound
	}
	r.Active = false
	r.Date = time.Now().UTC()
	return nil
}

func (m *memStore) GetRatingByID(ctx context.Context, id primitive.ObjectID) (*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) FindActiveByUserAndBar(ctx context.Context, userID, barID primitive.ObjectID) (*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.ratings {
		if r.Active && r.User == userID && r.Bar == barID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindActiveByBar(ctx context.Context, barID primitive.ObjectID) ([]*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Rating
	for _, r := range m.ratings {
		if r.Active && r.Bar == barID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) FindActiveByBarPaged(ctx context.Context, barID primitive.ObjectID, skip, limit int) ([]*models.Rating, int, error) {
	all, err := m.FindActiveByBar(ctx, barID)
	if err != nil {
		return nil, 0, err
	}
	return pageRatings(all, skip, limit)
}

func (m *memStore) FindActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Rating
	for _, r := range m.ratings {
		if r.Active && r.User == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) FindActiveByUserPaged(ctx context.Context, userID primitive.ObjectID, skip, limit int) ([]*models.Rating, int, error) {
	all, err := m.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return pageRatings(all, skip, limit)
}

func pageRatings(all []*models.Rating, skip, limit int) ([]*models.Rating, int, error) {
	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	total := len(all)
	if skip >= total {
		return nil, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return all[skip:end], total, nil
}
