package tracking

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Trip statuses. ACTIVE is the only non-terminal state.
const (
	TripStatusActive     = "ACTIVE"
	TripStatusCompleted  = "COMPLETED"
	TripStatusCancelled  = "CANCELLED"
	TripStatusAutoClosed = "AUTO_CLOSED"
)

// Rejection reasons for stored-but-ignored points.
const (
	RejectReasonLowAccuracy = "LOW_ACCURACY"
	RejectReasonGPSJump     = "GPS_JUMP"
)

// Task link statuses.
const (
	TaskLinkPending    = "PENDING"
	TaskLinkInProgress = "IN_PROGRESS"
	TaskLinkCompleted  = "COMPLETED"
	TaskLinkSkipped    = "SKIPPED"
)

// Trip is one work session for one employee, optionally tied to a vehicle.
// At most one ACTIVE trip exists per employee. Never physically deleted.
type Trip struct {
	ID               int64          `json:"id"               gorm:"column:id;primaryKey"`
	OrganizationID   int64          `json:"organizationId"   gorm:"column:organization_id"`
	EmployeeID       int64          `json:"employeeId"       gorm:"column:employee_id"`
	VehicleID        *int64         `json:"vehicleId"        gorm:"column:vehicle_id"`
	TaskType         *string        `json:"taskType"         gorm:"column:task_type"`
	Status           string         `json:"status"           gorm:"column:status"`
	StartedAt        time.Time      `json:"startedAt"        gorm:"column:started_at"`
	EndedAt          *time.Time     `json:"endedAt"          gorm:"column:ended_at"`
	StartOdometerKm  *int64         `json:"startOdometerKm"  gorm:"column:start_odometer_km"`
	EndOdometerKm    *int64         `json:"endOdometerKm"    gorm:"column:end_odometer_km"`
	DistanceM        float64        `json:"distanceM"        gorm:"column:distance_m"`
	StartLat         *float64       `json:"startLat"         gorm:"column:start_lat"`
	StartLon         *float64       `json:"startLon"         gorm:"column:start_lon"`
	EndLat           *float64       `json:"endLat"           gorm:"column:end_lat"`
	EndLon           *float64       `json:"endLon"           gorm:"column:end_lon"`
	StartSiteID      *int64         `json:"startSiteId"      gorm:"column:start_site_id"`
	EndSiteID        *int64         `json:"endSiteId"        gorm:"column:end_site_id"`
	PointCount       int            `json:"pointCount"       gorm:"column:point_count"`
	StopCount        int            `json:"stopCount"        gorm:"column:stop_count"`
	AnomalyCount     int            `json:"anomalyCount"     gorm:"column:anomaly_count"`
	VisitedSiteCount int            `json:"visitedSiteCount" gorm:"column:visited_site_count"`
	LiveBroadcast    bool           `json:"liveBroadcast"    gorm:"column:live_broadcast"`
	LastUpdateAt     time.Time      `json:"lastUpdateAt"     gorm:"column:last_update_at"`
	Notes            *string        `json:"notes"            gorm:"column:notes"`
	CreatedAt        time.Time      `json:"createdAt"        gorm:"column:created_at"`
	DeletedAt        gorm.DeletedAt `json:"-"                gorm:"column:deleted_at"`
}

func (Trip) TableName() string {
	return "trips"
}

// IsActive reports whether the trip still accepts positional reports.
func (t *Trip) IsActive() bool {
	return t.Status == TripStatusActive
}

// TripPoint is one positional report. Append-only; rejected points are kept
// with a reason but excluded from distance and stop computation.
type TripPoint struct {
	ID                int64     `json:"id"                gorm:"column:id;primaryKey"`
	TripID            int64     `json:"tripId"            gorm:"column:trip_id"`
	Lat               float64   `json:"lat"               gorm:"column:lat"`
	Lon               float64   `json:"lon"               gorm:"column:lon"`
	AccuracyM         *float64  `json:"accuracyM"         gorm:"column:accuracy_m"`
	SpeedMs           *float64  `json:"speedMs"           gorm:"column:speed_ms"`
	HeadingDeg        *float64  `json:"headingDeg"        gorm:"column:heading_deg"`
	AltitudeM         *float64  `json:"altitudeM"         gorm:"column:altitude_m"`
	DistanceFromPrevM float64   `json:"distanceFromPrevM" gorm:"column:distance_from_prev_m"`
	Rejected          bool      `json:"rejected"          gorm:"column:rejected"`
	RejectReason      *string   `json:"rejectReason"      gorm:"column:reject_reason"`
	RecordedAt        time.Time `json:"recordedAt"        gorm:"column:recorded_at"`
	CreatedAt         time.Time `json:"createdAt"         gorm:"column:created_at"`
}

func (TripPoint) TableName() string {
	return "trip_points"
}

// TripStop is a detected dwell. EndedAt is nil while the stop is open; at
// most one open stop exists per trip.
type TripStop struct {
	ID               int64      `json:"id"               gorm:"column:id;primaryKey"`
	TripID           int64      `json:"tripId"           gorm:"column:trip_id"`
	Lat              float64    `json:"lat"              gorm:"column:lat"`
	Lon              float64    `json:"lon"              gorm:"column:lon"`
	SiteID           *int64     `json:"siteId"           gorm:"column:site_id"`
	SiteName         *string    `json:"siteName"         gorm:"column:site_name"`
	SiteAddress      *string    `json:"siteAddress"      gorm:"column:site_address"`
	SiteDistanceM    *float64   `json:"siteDistanceM"    gorm:"column:site_distance_m"`
	StartedAt        time.Time  `json:"startedAt"        gorm:"column:started_at"`
	EndedAt          *time.Time `json:"endedAt"          gorm:"column:ended_at"`
	DurationSeconds  *int64     `json:"durationSeconds"  gorm:"column:duration_seconds"`
	Verified         bool       `json:"verified"         gorm:"column:verified"`
	Anomaly          bool       `json:"anomaly"          gorm:"column:anomaly"`
	NotificationSent bool       `json:"notificationSent" gorm:"column:notification_sent"`
	Notes            *string    `json:"notes"            gorm:"column:notes"`
	CreatedAt        time.Time  `json:"createdAt"        gorm:"column:created_at"`
}

func (TripStop) TableName() string {
	return "trip_stops"
}

// TripAnomaly is a detected irregular event kept for human review. Details
// holds the type-specific payload (see anomaly.go). Append-only apart from
// the resolve operation.
type TripAnomaly struct {
	ID              int64          `json:"id"              gorm:"column:id;primaryKey"`
	TripID          int64          `json:"tripId"          gorm:"column:trip_id"`
	Type            string         `json:"type"            gorm:"column:type"`
	Severity        string         `json:"severity"        gorm:"column:severity"`
	Lat             *float64       `json:"lat"             gorm:"column:lat"`
	Lon             *float64       `json:"lon"             gorm:"column:lon"`
	Details         datatypes.JSON `json:"details"         gorm:"column:details"`
	Resolved        bool           `json:"resolved"        gorm:"column:resolved"`
	ResolvedBy      *int64         `json:"resolvedBy"      gorm:"column:resolved_by"`
	ResolvedAt      *time.Time     `json:"resolvedAt"      gorm:"column:resolved_at"`
	ResolutionNotes *string        `json:"resolutionNotes" gorm:"column:resolution_notes"`
	DetectedAt      time.Time      `json:"detectedAt"      gorm:"column:detected_at"`
	CreatedAt       time.Time      `json:"createdAt"       gorm:"column:created_at"`
}

func (TripAnomaly) TableName() string {
	return "trip_anomalies"
}

// TripTaskLink ties a trip to a work order held by the task service.
// (trip, task) is unique among non-removed links.
type TripTaskLink struct {
	ID            int64          `json:"id"            gorm:"column:id;primaryKey"`
	TripID        int64          `json:"tripId"        gorm:"column:trip_id"`
	TaskID        int64          `json:"taskId"        gorm:"column:task_id"`
	Status        string         `json:"status"        gorm:"column:status"`
	GPSVerified   bool           `json:"gpsVerified"   gorm:"column:gps_verified"`
	GPSVerifiedAt *time.Time     `json:"gpsVerifiedAt" gorm:"column:gps_verified_at"`
	StartedAt     *time.Time     `json:"startedAt"     gorm:"column:started_at"`
	CompletedAt   *time.Time     `json:"completedAt"   gorm:"column:completed_at"`
	Notes         *string        `json:"notes"         gorm:"column:notes"`
	CreatedAt     time.Time      `json:"createdAt"     gorm:"column:created_at"`
	DeletedAt     gorm.DeletedAt `json:"-"             gorm:"column:deleted_at"`
}

func (TripTaskLink) TableName() string {
	return "trip_task_links"
}

// TripReconciliation is a point-in-time odometer audit for a vehicle,
// independent of any trip. Immutable once created.
type TripReconciliation struct {
	ID                 int64     `json:"id"                 gorm:"column:id;primaryKey"`
	OrganizationID     int64     `json:"organizationId"     gorm:"column:organization_id"`
	VehicleID          int64     `json:"vehicleId"          gorm:"column:vehicle_id"`
	ActualOdometerKm   float64   `json:"actualOdometerKm"   gorm:"column:actual_odometer_km"`
	ExpectedOdometerKm float64   `json:"expectedOdometerKm" gorm:"column:expected_odometer_km"`
	DifferenceKm       float64   `json:"differenceKm"       gorm:"column:difference_km"`
	ThresholdKm        float64   `json:"thresholdKm"        gorm:"column:threshold_km"`
	Anomaly            bool      `json:"anomaly"            gorm:"column:anomaly"`
	PerformedBy        int64     `json:"performedBy"        gorm:"column:performed_by"`
	PerformedAt        time.Time `json:"performedAt"        gorm:"column:performed_at"`
	Notes              *string   `json:"notes"              gorm:"column:notes"`
}

func (TripReconciliation) TableName() string {
	return "trip_reconciliations"
}
