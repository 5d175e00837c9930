package utils

import "math"

const earthRadiusM = 6371000.0

// HaversineM returns the great-circle distance in metres between two
// latitude/longitude pairs given in degrees.
func HaversineM(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// WithinRadius reports whether the point is within radiusM metres of the
// centre.
func WithinRadius(centreLat, centreLng, lat, lng, radiusM float64) bool {
	return HaversineM(centreLat, centreLng, lat, lng) <= radiusM
}
