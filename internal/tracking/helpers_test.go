package tracking

import (
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	gsqlite "github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jamsmac/VendHub-OS-sub009/internal/config"
	"github.com/jamsmac/VendHub-OS-sub009/internal/organization"
	"github.com/jamsmac/VendHub-OS-sub009/internal/site"
	"github.com/jamsmac/VendHub-OS-sub009/internal/task"
	"github.com/jamsmac/VendHub-OS-sub009/internal/vehicle"
)

var testDBSeq atomic.Int64

// setupTestDB opens an in-memory sqlite DB and migrates every model the
// engine touches.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A uniquely named shared-cache DSN keeps every pooled connection on the
	// same database; a plain file::memory: DSN gives each connection its own.
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(gsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&organization.Organization{},
		&vehicle.Vehicle{},
		&site.Site{},
		&task.ServiceTask{},
		&Trip{},
		&TripPoint{},
		&TripStop{},
		&TripAnomaly{},
		&TripTaskLink{},
		&TripReconciliation{},
	))
	return db
}

func testConfig() config.Tracking {
	return config.Tracking{
		MinGPSAccuracyMeters:      50,
		MaxSpeedKmh:               120,
		GPSJumpDistanceMeters:     1000,
		StopDetectionRadiusMeters: 50,
		StopMinDuration:           3 * time.Minute,
		GeofenceRadiusMeters:      100,
		LongStopThreshold:         45 * time.Minute,
		AutoCloseAfter:            12 * time.Hour,
		SweepInterval:             15 * time.Minute,
		MileageThresholdKm:        50,
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(setupTestDB(t), testConfig(), log)
}

// seedOrgAndVehicle creates org 1 with one vehicle and returns the vehicle id.
func seedOrgAndVehicle(t *testing.T, db *gorm.DB, odometerKm float64) int64 {
	t.Helper()
	require.NoError(t, db.Create(&organization.Organization{ID: 1, Name: "VendHub Tashkent", Active: true}).Error)
	v := vehicle.Vehicle{OrganizationID: 1, PlateNumber: "01A111AA", Name: "Van 1", Active: true, CurrentOdometerKm: odometerKm}
	require.NoError(t, db.Create(&v).Error)
	return v.ID
}

func startTestTrip(t *testing.T, s *Service, in StartTripInput) *Trip {
	t.Helper()
	if in.OrganizationID == 0 {
		in.OrganizationID = 1
	}
	if in.EmployeeID == 0 {
		in.EmployeeID = 10
	}
	trip, err := s.StartTrip(in)
	require.NoError(t, err)
	return trip
}

// at returns base shifted by a number of seconds, as a pointer for PointInput.
func at(base time.Time, seconds int) *time.Time {
	ts := base.Add(time.Duration(seconds) * time.Second)
	return &ts
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }
func str(v string) *string   { return &v }
