package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coordinates is a plain GPS point. Range validation lives in the geo
// package; the validator tags only guard request decoding.
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `bson:"longitude" json:"longitude" validate:"min=-180,max=180"`
}

// BarLocation groups coordinates with an optional street address.
type BarLocation struct {
	Coordinates Coordinates `bson:"coordinates" json:"coordinates"`
	Address     string      `bson:"address,omitempty" json:"address,omitempty" validate:"max=200"`
}

// Equipment lists what a bar site offers.
type Equipment struct {
	PullUpBar    bool   `bson:"pull_up_bar" json:"pull_up_bar"`
	ParallelBars bool   `bson:"parallel_bars" json:"parallel_bars"`
	WallBars     bool   `bson:"wall_bars" json:"wall_bars"`
	Rings        bool   `bson:"rings" json:"rings"`
	Other        string `bson:"other,omitempty" json:"other,omitempty" validate:"max=200"`
}

// Features describes the surroundings of a bar site.
type Features struct {
	Parking       bool `bson:"parking" json:"parking"`
	Lighting      bool `bson:"lighting" json:"lighting"`
	Accessibility bool `bson:"accessibility" json:"accessibility"`
	Covered       bool `bson:"covered" json:"covered"`
}

// Bar is a registered street-workout location. AverageRating and TotalRatings
// are derived from the active ratings referencing the bar and are only ever
// written by the rating aggregator, both fields in one atomic update.
type Bar struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name" validate:"required,min=3,max=100"`
	Description string             `bson:"description" json:"description" validate:"required,min=10,max=500"`
	Creator     primitive.ObjectID `bson:"creator" json:"creator"`

	Location  BarLocation `bson:"location" json:"location"`
	Equipment Equipment   `bson:"equipment" json:"equipment"`
	Features  Features    `bson:"features" json:"features"`
	Images    []string    `bson:"images,omitempty" json:"images,omitempty" validate:"dive,url"`

	AverageRating float64 `bson:"average_rating" json:"average_rating"`
	TotalRatings  int     `bson:"total_ratings" json:"total_ratings"`

	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (b *Bar) BeforeCreate() {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Active = true
	b.AverageRating = 0
	b.TotalRatings = 0
}

// BarWithDistance decorates a bar with its distance from a search center.
type BarWithDistance struct {
	Bar        *Bar    `json:"bar"`
	DistanceKm float64 `json:"distance_km"`
}

// BarFilters narrows ListBars. Zero values mean "no filter".
type BarFilters struct {
	Equipment []string
	Features  []string
	MinRating float64
}
