package services

import (
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371010.0

// DistanceMeters returns the geodesic distance between two coordinate pairs.
// Parameters are named longitude-first to match the store's canonical
// coordinate order; the s2 conversion below is the only place the order
// flips, because s2 speaks (lat, lng).
func DistanceMeters(lon1, lat1, lon2, lat2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * earthRadiusMeters
}
