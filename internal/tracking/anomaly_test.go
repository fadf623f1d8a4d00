package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAnomaly(t *testing.T, s *Service, tripID int64) *TripAnomaly {
	t.Helper()
	var a *TripAnomaly
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		a, err = raiseAnomaly(tx, tripID, AnomalySpeedViolation, SeverityWarning, nil, nil,
			SpeedViolationDetails{SpeedKmh: 140, LimitKmh: 120})
		return err
	})
	require.NoError(t, err)
	return a
}

func TestRaiseAnomaly_IncrementsCounterAtomically(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})

	seedAnomaly(t, s, trip.ID)
	seedAnomaly(t, s, trip.ID)

	var reloaded Trip
	require.NoError(t, s.DB.First(&reloaded, trip.ID).Error)
	assert.Equal(t, 2, reloaded.AnomalyCount)
}

func TestResolveAnomaly(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	a := seedAnomaly(t, s, trip.ID)

	resolved, err := s.ResolveAnomaly(a.ID, 77, 1, str("driver was on the highway"))
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, int64(77), *resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ResolutionNotes)
}

func TestResolveAnomaly_Idempotent(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	a := seedAnomaly(t, s, trip.ID)

	_, err := s.ResolveAnomaly(a.ID, 77, 1, nil)
	require.NoError(t, err)

	// resolving twice is a silent success that re-stamps the resolver
	again, err := s.ResolveAnomaly(a.ID, 78, 1, nil)
	require.NoError(t, err)
	assert.True(t, again.Resolved)
	assert.Equal(t, int64(78), *again.ResolvedBy)
}

func TestResolveAnomaly_OrgCrossCheck(t *testing.T) {
	s := newTestService(t)
	seedOrgAndVehicle(t, s.DB, 0)
	trip := startTestTrip(t, s, StartTripInput{})
	a := seedAnomaly(t, s, trip.ID)

	_, err := s.ResolveAnomaly(a.ID, 77, 2, nil)
	assert.ErrorIs(t, err, ErrAnomalyNotFound)

	_, err = s.ResolveAnomaly(99999, 77, 1, nil)
	assert.ErrorIs(t, err, ErrAnomalyNotFound)
}
