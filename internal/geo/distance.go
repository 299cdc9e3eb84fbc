// Package geo holds the two proximity tests used by the community features.
//
// They are intentionally separate: the coarse box is a cheap "same area"
// filter for consensus and ranking, the haversine radius is a tight test for
// map marker overlap.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// CoarseBoxDegrees is the per-axis half-width of the coarse box test.
const CoarseBoxDegrees = 0.1

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// DistanceKm returns the haversine great-circle distance between two
// coordinates in kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	d := a.Distance(b).Radians() * EarthRadiusKm
	if d < 0 || math.IsNaN(d) {
		return 0
	}
	return d
}

// Distance is DistanceKm for two points.
func Distance(a, b Point) float64 {
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// WithinCoarseBox reports whether b lies inside the axis-aligned box of
// ±CoarseBoxDegrees around a. Both bounds are strict.
func WithinCoarseBox(a, b Point) bool {
	return math.Abs(a.Lat-b.Lat) < CoarseBoxDegrees && math.Abs(a.Lng-b.Lng) < CoarseBoxDegrees
}

// WithinRadiusKm reports whether the great-circle distance between a and b is
// at most radiusKm.
func WithinRadiusKm(a, b Point, radiusKm float64) bool {
	return Distance(a, b) <= radiusKm
}
