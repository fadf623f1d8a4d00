package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamsmac/VendHub-OS-sub009/internal/geo"
)

func TestAddPoint_DistanceFromPrev(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	p1, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3110, Lon: 69.2406, RecordedAt: at(base, 0)})
	require.NoError(t, err)
	assert.False(t, p1.Rejected)
	assert.Zero(t, p1.DistanceFromPrevM)

	p2, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3120, Lon: 69.2410, RecordedAt: at(base, 30)})
	require.NoError(t, err)
	assert.False(t, p2.Rejected)

	want := geo.Distance(p1.Lat, p1.Lon, p2.Lat, p2.Lon)
	assert.InDelta(t, want, p2.DistanceFromPrevM, 1e-6)

	var reloaded Trip
	require.NoError(t, s.DB.First(&reloaded, trip.ID).Error)
	assert.Equal(t, 2, reloaded.PointCount)
	assert.InDelta(t, want, reloaded.DistanceM, 1e-6)
	// first accepted point pins the start coordinates
	require.NotNil(t, reloaded.StartLat)
	assert.InDelta(t, 41.3110, *reloaded.StartLat, 1e-9)
}

func TestAddPoint_LowAccuracyRejected(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	p1, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3110, Lon: 69.2406, RecordedAt: at(base, 0)})
	require.NoError(t, err)

	bad, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3200, Lon: 69.2500, AccuracyM: f64(80), RecordedAt: at(base, 30)})
	require.NoError(t, err)
	assert.True(t, bad.Rejected)
	require.NotNil(t, bad.RejectReason)
	assert.Equal(t, RejectReasonLowAccuracy, *bad.RejectReason)
	assert.Zero(t, bad.DistanceFromPrevM)

	// the rejected point must not become the "previous accepted point"
	p3, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3115, Lon: 69.2406, RecordedAt: at(base, 60)})
	require.NoError(t, err)
	want := geo.Distance(p1.Lat, p1.Lon, p3.Lat, p3.Lon)
	assert.InDelta(t, want, p3.DistanceFromPrevM, 1e-6)
}

func TestAddPoint_GPSJumpRejected(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	_, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3000, Lon: 69.2000, RecordedAt: at(base, 0)})
	require.NoError(t, err)

	// ~5.5 km in 10 s, far beyond 1.5x the speed limit
	jump, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3500, Lon: 69.2000, RecordedAt: at(base, 10)})
	require.NoError(t, err)
	assert.True(t, jump.Rejected)
	require.NotNil(t, jump.RejectReason)
	assert.Equal(t, RejectReasonGPSJump, *jump.RejectReason)

	var anomalies []TripAnomaly
	require.NoError(t, s.DB.Where("trip_id = ?", trip.ID).Find(&anomalies).Error)
	require.Len(t, anomalies, 1)
	assert.Equal(t, AnomalyGPSJump, anomalies[0].Type)
	assert.Equal(t, SeverityInfo, anomalies[0].Severity)

	var reloaded Trip
	require.NoError(t, s.DB.First(&reloaded, trip.ID).Error)
	assert.Equal(t, 1, reloaded.AnomalyCount)
}

func TestAddPoint_ZeroElapsedJumpRejected(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	_, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3000, Lon: 69.2000, RecordedAt: at(base, 0)})
	require.NoError(t, err)

	// ~5.5 km with the same timestamp: instantaneous displacement
	dup, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3500, Lon: 69.2000, RecordedAt: at(base, 0)})
	require.NoError(t, err)
	assert.True(t, dup.Rejected)
	require.NotNil(t, dup.RejectReason)
	assert.Equal(t, RejectReasonGPSJump, *dup.RejectReason)
	assert.Zero(t, dup.DistanceFromPrevM)

	// out-of-order timestamp behaves the same
	ooo, err := s.AddPoint(trip.ID, PointInput{Lat: 41.2500, Lon: 69.2000, RecordedAt: at(base, -60)})
	require.NoError(t, err)
	assert.True(t, ooo.Rejected)

	var reloaded Trip
	require.NoError(t, s.DB.First(&reloaded, trip.ID).Error)
	assert.Zero(t, reloaded.DistanceM)
	assert.Equal(t, 2, reloaded.AnomalyCount)
}

func TestAddPoint_SlowLargeDisplacementAccepted(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	_, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3000, Lon: 69.2000, RecordedAt: at(base, 0)})
	require.NoError(t, err)

	// ~5.5 km in 30 min is ~11 km/h: a long displacement, not a jump
	p, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3500, Lon: 69.2000, RecordedAt: at(base, 1800)})
	require.NoError(t, err)
	assert.False(t, p.Rejected)
	assert.Greater(t, p.DistanceFromPrevM, 5000.0)
}

func TestAddPoint_SpeedViolation(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	// 40 m/s is 144 km/h: over the limit, but the point stays accepted
	p, err := s.AddPoint(trip.ID, PointInput{Lat: 41.3000, Lon: 69.2000, SpeedMs: f64(40), RecordedAt: at(base, 0)})
	require.NoError(t, err)
	assert.False(t, p.Rejected)

	var anomaly TripAnomaly
	require.NoError(t, s.DB.Where("trip_id = ?", trip.ID).First(&anomaly).Error)
	assert.Equal(t, AnomalySpeedViolation, anomaly.Type)
	assert.Equal(t, SeverityWarning, anomaly.Severity)
}

func TestAddPoint_TripPreconditions(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)

	_, err := s.AddPoint(12345, PointInput{Lat: 41.3, Lon: 69.2})
	assert.ErrorIs(t, err, ErrTripNotFound)

	trip := startTestTrip(t, s, StartTripInput{})
	_, err = s.CancelTrip(trip.ID, nil)
	require.NoError(t, err)

	_, err = s.AddPoint(trip.ID, PointInput{Lat: 41.3, Lon: 69.2})
	assert.ErrorIs(t, err, ErrTripNotActive)

	_, err = s.AddPoint(trip.ID, PointInput{Lat: 91, Lon: 69.2})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestAddPointsBatch_ProcessedInOrder(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	points, err := s.AddPointsBatch(trip.ID, []PointInput{
		{Lat: 41.3000, Lon: 69.2000, RecordedAt: at(base, 0)},
		{Lat: 41.3010, Lon: 69.2000, RecordedAt: at(base, 30)},
		{Lat: 41.3020, Lon: 69.2000, AccuracyM: f64(200), RecordedAt: at(base, 60)},
		{Lat: 41.3020, Lon: 69.2000, RecordedAt: at(base, 90)},
	})
	require.NoError(t, err)
	require.Len(t, points, 4)

	assert.False(t, points[0].Rejected)
	assert.False(t, points[1].Rejected)
	assert.True(t, points[2].Rejected)
	assert.False(t, points[3].Rejected)

	// each accepted increment is measured from the previous accepted point
	assert.InDelta(t, geo.Distance(41.3010, 69.2000, 41.3020, 69.2000), points[3].DistanceFromPrevM, 1e-6)

	var reloaded Trip
	require.NoError(t, s.DB.First(&reloaded, trip.ID).Error)
	assert.Equal(t, 4, reloaded.PointCount)
}
