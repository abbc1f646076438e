package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the rating and bar domain. Services return these (or
// wrap them with %w) so handlers can map them to HTTP statuses with errors.Is
// / errors.As instead of string matching.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyDeleted   = errors.New("rating is already deleted")
	ErrPermissionDenied = errors.New("permission denied")

	// ErrDuplicateRating is returned by RatingRepo.InsertRating when the
	// partial unique index over active (user, bar) pairs rejects the write.
	// RatingService converts it into the update path; it never reaches a
	// caller.
	ErrDuplicateRating = errors.New("user already has an active rating for this bar")
)

// ValidationError marks caller-fault input problems (bad coordinates,
// out-of-range values). Not retryable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NearbyBar describes an existing bar found too close to a proposed location.
type NearbyBar struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
}

// ProximityConflictError is returned when a new bar would land within the
// minimum separation distance of an existing one. It carries the offending
// bars so the caller can show them.
type ProximityConflictError struct {
	Nearby []NearbyBar
}

func (e *ProximityConflictError) Error() string {
	return fmt.Sprintf("a bar is already registered within the minimum separation distance (%d nearby)", len(e.Nearby))
}
