package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for haversine distances.
const EarthRadiusKm = 6371.0

// Bounds is a rectangular area around a point, in degrees.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// IsValidCoordinate reports whether lat/lon form a usable GPS coordinate.
func IsValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// DistanceKm returns the great-circle distance between two points using the
// haversine formula, rounded to 2 decimal places.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	distance := EarthRadiusKm * c

	return math.Round(distance*100) / 100
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}

// BoundingBox returns the rectangular bounds around a center point.
// It approximates 1 degree ~= 111 km, which is good enough at the radii we
// query but degrades near the poles; callers refine with DistanceKm anyway.
func BoundingBox(lat, lon, radiusKm float64) Bounds {
	radiusDegrees := radiusKm / 111

	return Bounds{
		North: lat + radiusDegrees,
		South: lat - radiusDegrees,
		East:  lon + radiusDegrees,
		West:  lon - radiusDegrees,
	}
}

// IsWithinRadius reports whether a point lies within radiusKm of a center.
// The boundary is inclusive.
func IsWithinRadius(centerLat, centerLon, pointLat, pointLon, radiusKm float64) bool {
	return DistanceKm(centerLat, centerLon, pointLat, pointLon) <= radiusKm
}

// FormatDistance renders a distance for display, e.g. "850 m" or "1.2 km".
func FormatDistance(distanceKm float64) string {
	if distanceKm < 1 {
		return fmt.Sprintf("%d m", int(math.Round(distanceKm*1000)))
	}
	return fmt.Sprintf("%.1f km", distanceKm)
}

// Point is a plain latitude/longitude pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CenterPoint returns the arithmetic center of a set of points, or false when
// the set is empty.
func CenterPoint(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Latitude
		sumLon += p.Longitude
	}

	return Point{
		Latitude:  sumLat / float64(len(points)),
		Longitude: sumLon / float64(len(points)),
	}, true
}
