package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/calibar/server/internal/helpers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Criteria holds the four per-aspect sub-scores of a rating. Each is an
// independent 1-5 integer, unrelated to the overall value.
type Criteria struct {
	Equipment   int `bson:"equipment" json:"equipment" validate:"required,min=1,max=5"`
	Location    int `bson:"location" json:"location" validate:"required,min=1,max=5"`
	Maintenance int `bson:"maintenance" json:"maintenance" validate:"required,min=1,max=5"`
	Safety      int `bson:"safety" json:"safety" validate:"required,min=1,max=5"`
}

// UniformCriteria returns criteria with all four aspects set to value. Used
// when a first submission supplies no criteria of its own.
func UniformCriteria(value int) Criteria {
	return Criteria{
		Equipment:   value,
		Location:    value,
		Maintenance: value,
		Safety:      value,
	}
}

// Rating is one user's evaluation of a bar. At most one active rating may
// exist per (user, bar) pair; a partial unique index over active documents is
// the authority for that invariant.
type Rating struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User     primitive.ObjectID `bson:"user" json:"user"`
	Bar      primitive.ObjectID `bson:"bar" json:"bar"`
	Value    int                `bson:"value" json:"value" validate:"required,min=1,max=5"`
	Review   string             `bson:"review,omitempty" json:"review,omitempty" validate:"max=500"`
	Criteria Criteria           `bson:"criteria" json:"criteria"`
	Active   bool               `bson:"active" json:"active"`
	Date     time.Time          `bson:"date" json:"date"`
}

func (r *Rating) BeforeCreate() {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.Active = true
	r.Date = time.Now().UTC()
}

// ValidateRating checks the fields the unique index and validator tags cannot.
func (r *Rating) ValidateRating() error {
	if r.Value < 1 || r.Value > 5 {
		return NewValidationError("value", "rating must be between 1 and 5")
	}
	if r.User.IsZero() {
		return fmt.Errorf("invalid user ID")
	}
	if r.Bar.IsZero() {
		return fmt.Errorf("invalid bar ID")
	}
	for name, v := range map[string]int{
		"equipment":   r.Criteria.Equipment,
		"location":    r.Criteria.Location,
		"maintenance": r.Criteria.Maintenance,
		"safety":      r.Criteria.Safety,
	} {
		if v < 1 || v > 5 {
			return NewValidationError("criteria."+name, "criterion must be between 1 and 5")
		}
	}
	return nil
}

func (r *Rating) Sanitize() {
	r.Review = helpers.StringTrim(r.Review)
}

// CriteriaAverage is the mean of the four sub-scores, rounded to 1 decimal.
func (r *Rating) CriteriaAverage() float64 {
	sum := r.Criteria.Equipment + r.Criteria.Location + r.Criteria.Maintenance + r.Criteria.Safety
	return math.Round(float64(sum)/4*10) / 10
}

func (r *Rating) HasReview() bool {
	return strings.TrimSpace(r.Review) != ""
}

// CriteriaMeans is the per-aspect mean across a set of active ratings,
// each aspect rounded to 1 decimal. All zeros when the set is empty.
type CriteriaMeans struct {
	Equipment   float64 `json:"equipment"`
	Location    float64 `json:"location"`
	Maintenance float64 `json:"maintenance"`
	Safety      float64 `json:"safety"`
}

// RatingStats is the on-demand statistics view for a bar or a user. Nothing
// here is persisted; it is recomputed from the active rating set per request.
type RatingStats struct {
	Total        int           `json:"total"`
	Average      float64       `json:"average"`
	Distribution map[int]int   `json:"distribution"`
	Criteria     CriteriaMeans `json:"criteria"`
	RecentCount  int           `json:"recent_count"`
}
