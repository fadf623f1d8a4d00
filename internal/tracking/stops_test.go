package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamsmac/VendHub-OS-sub009/internal/site"
	"github.com/jamsmac/VendHub-OS-sub009/internal/task"
)

func TestStopDetector_OpensAndClosesStop(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	// three points clustered within meters of each other
	_, err := s.AddPointsBatch(trip.ID, []PointInput{
		{Lat: 41.30000, Lon: 69.20000, RecordedAt: at(base, 0)},
		{Lat: 41.30010, Lon: 69.20000, RecordedAt: at(base, 90)},
		{Lat: 41.30005, Lon: 69.20005, RecordedAt: at(base, 180)},
	})
	require.NoError(t, err)

	var stops []TripStop
	require.NoError(t, s.DB.Where("trip_id = ?", trip.ID).Find(&stops).Error)
	require.Len(t, stops, 1)
	assert.Nil(t, stops[0].EndedAt)
	// anchored at the dwell's first point, not the detection instant
	assert.Equal(t, base.Unix(), stops[0].StartedAt.Unix())
	assert.InDelta(t, 41.30000, stops[0].Lat, 1e-9)

	var reloaded Trip
	require.NoError(t, s.DB.First(&reloaded, trip.ID).Error)
	assert.Equal(t, 1, reloaded.StopCount)

	// movement resumes ~550 m away: the stop closes
	_, err = s.AddPoint(trip.ID, PointInput{Lat: 41.30500, Lon: 69.20000, RecordedAt: at(base, 240)})
	require.NoError(t, err)

	require.NoError(t, s.DB.Where("trip_id = ?", trip.ID).Find(&stops).Error)
	require.Len(t, stops, 1)
	require.NotNil(t, stops[0].EndedAt)
	require.NotNil(t, stops[0].DurationSeconds)
	assert.Equal(t, int64(240), *stops[0].DurationSeconds)
}

func TestStopDetector_AtMostOneOpenStop(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	inputs := make([]PointInput, 0, 10)
	for i := 0; i < 10; i++ {
		inputs = append(inputs, PointInput{Lat: 41.30000, Lon: 69.20000, RecordedAt: at(base, i*60)})
	}
	_, err := s.AddPointsBatch(trip.ID, inputs)
	require.NoError(t, err)

	var open int64
	require.NoError(t, s.DB.Model(&TripStop{}).
		Where("trip_id = ? AND ended_at IS NULL", trip.ID).Count(&open).Error)
	assert.Equal(t, int64(1), open)

	var reloaded Trip
	require.NoError(t, s.DB.First(&reloaded, trip.ID).Error)
	assert.Equal(t, 1, reloaded.StopCount)
}

func TestStopDetector_TooFewPointsInWindow(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	// second point arrives long after the window drained
	_, err := s.AddPointsBatch(trip.ID, []PointInput{
		{Lat: 41.30000, Lon: 69.20000, RecordedAt: at(base, 0)},
		{Lat: 41.30000, Lon: 69.20000, RecordedAt: at(base, 600)},
	})
	require.NoError(t, err)

	var stops int64
	require.NoError(t, s.DB.Model(&TripStop{}).Where("trip_id = ?", trip.ID).Count(&stops).Error)
	assert.Zero(t, stops)
}

func TestStopDetector_VerifiedStopPromotesTaskLinks(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)

	st := site.Site{OrganizationID: 1, Name: "Central mall", Address: "Amir Temur 12", Lat: 41.30002, Lon: 69.20002, Active: true}
	require.NoError(t, s.DB.Create(&st).Error)
	tk := task.ServiceTask{OrganizationID: 1, SiteID: &st.ID, Title: "Refill machine 7", Active: true}
	require.NoError(t, s.DB.Create(&tk).Error)

	trip := startTestTrip(t, s, StartTripInput{TaskIDs: []int64{tk.ID}})
	base := time.Now().UTC().Add(-time.Hour)

	_, err := s.AddPointsBatch(trip.ID, []PointInput{
		{Lat: 41.30000, Lon: 69.20000, RecordedAt: at(base, 0)},
		{Lat: 41.30004, Lon: 69.20001, RecordedAt: at(base, 120)},
	})
	require.NoError(t, err)

	var stop TripStop
	require.NoError(t, s.DB.Where("trip_id = ?", trip.ID).First(&stop).Error)
	assert.True(t, stop.Verified)
	require.NotNil(t, stop.SiteID)
	assert.Equal(t, st.ID, *stop.SiteID)
	require.NotNil(t, stop.SiteName)
	assert.Equal(t, "Central mall", *stop.SiteName)
	require.NotNil(t, stop.SiteDistanceM)
	assert.Less(t, *stop.SiteDistanceM, 100.0)

	var link TripTaskLink
	require.NoError(t, s.DB.Where("trip_id = ? AND task_id = ?", trip.ID, tk.ID).First(&link).Error)
	assert.Equal(t, TaskLinkInProgress, link.Status)
	assert.True(t, link.GPSVerified)
	require.NotNil(t, link.GPSVerifiedAt)
	require.NotNil(t, link.StartedAt)
}

func TestStopDetector_UnmatchedStopIsUnverified(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	base := time.Now().UTC().Add(-time.Hour)

	// no sites anywhere near: the lookup resolves to "no match"
	_, err := s.AddPointsBatch(trip.ID, []PointInput{
		{Lat: 41.30000, Lon: 69.20000, RecordedAt: at(base, 0)},
		{Lat: 41.30001, Lon: 69.20001, RecordedAt: at(base, 120)},
	})
	require.NoError(t, err)

	var stop TripStop
	require.NoError(t, s.DB.Where("trip_id = ?", trip.ID).First(&stop).Error)
	assert.False(t, stop.Verified)
	assert.Nil(t, stop.SiteID)
}
