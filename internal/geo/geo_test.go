package geo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDistance_KnownPairs(t *testing.T) {
	// Tashkent center to Tashkent TV tower, surveyed at ~5.2 km
	d := Distance(41.311081, 69.240562, 41.350742, 69.284545)
	assert.InDelta(t, 5700, d, 300)

	// zero distance for identical coordinates
	assert.InDelta(t, 0, Distance(41.3, 69.2, 41.3, 69.2), 1e-9)
}

func TestDistance_SmallDisplacement(t *testing.T) {
	// one ten-thousandth of a degree of latitude is ~11.1 m anywhere
	d := Distance(41.3, 69.2, 41.3001, 69.2)
	assert.InDelta(t, 11.1, d, 0.2)
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0, Bearing(41.3, 69.2, 41.4, 69.2), 0.5)    // due north
	assert.InDelta(t, 90, Bearing(41.3, 69.2, 41.3, 69.3), 0.5)   // due east
	assert.InDelta(t, 180, Bearing(41.4, 69.2, 41.3, 69.2), 0.5)  // due south
	assert.InDelta(t, 270, Bearing(41.3, 69.3, 41.3, 69.2), 0.5)  // due west
}

func TestSpeedKmh(t *testing.T) {
	assert.InDelta(t, 36, SpeedKmh(100, 10*time.Second), 1e-9)
	assert.Zero(t, SpeedKmh(100, 0))
	assert.Zero(t, SpeedKmh(100, -time.Second))
}

func TestBoundingBox_WidensWithLatitude(t *testing.T) {
	minLat, maxLat, minLon, maxLon := BoundingBox(60, 10, 1000)

	latSpan := maxLat - minLat
	lonSpan := maxLon - minLon
	// at 60°N a degree of longitude covers half the ground distance
	assert.InDelta(t, latSpan/math.Cos(60*math.Pi/180), lonSpan, 1e-9)
	centerDist := Distance(60, 10, maxLat, 10)
	assert.InDelta(t, 1000, centerDist, 5)
}

func TestRoundCoord(t *testing.T) {
	assert.Equal(t, 41.3110811, RoundCoord(41.31108114999))
}
