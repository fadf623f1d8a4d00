package geo

import (
	"math"
	"time"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is Earth's mean radius.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance between two coordinates in meters.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Bearing returns the initial bearing (forward azimuth) from point 1 to
// point 2 in degrees, normalized to [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lonDiff := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x) * 180 / math.Pi

	return math.Mod(bearing+360, 360)
}

// SpeedKmh returns the speed in km/h implied by covering distanceM meters in
// elapsed. Non-positive elapsed yields 0 (duplicate or out-of-order stamps).
func SpeedKmh(distanceM float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return distanceM / elapsed.Seconds() * 3.6
}

// BoundingBox returns a latitude/longitude rectangle extending halfSizeM
// meters from the center in each direction. The longitude span widens with
// latitude so the box stays roughly square on the ground.
func BoundingBox(lat, lon, halfSizeM float64) (minLat, maxLat, minLon, maxLon float64) {
	latDelta := halfSizeM / EarthRadiusMeters * 180 / math.Pi

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01 // near the poles every longitude qualifies
	}
	lonDelta := latDelta / cosLat

	return lat - latDelta, lat + latDelta, lon - lonDelta, lon + lonDelta
}

// RoundCoord rounds a coordinate to 7 decimal places (~1 cm), the fixed
// precision of the position columns.
func RoundCoord(v float64) float64 {
	return math.Round(v*1e7) / 1e7
}
