package tracking

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Anomaly types.
const (
	AnomalyGPSJump            = "GPS_JUMP"
	AnomalySpeedViolation     = "SPEED_VIOLATION"
	AnomalyLongStop           = "LONG_STOP"
	AnomalyMileageDiscrepancy = "MILEAGE_DISCREPANCY"
	// reserved: detail schemas exist, triggers live outside this core
	AnomalyRouteDeviation = "ROUTE_DEVIATION"
	AnomalyMissedLocation = "MISSED_LOCATION"
)

// Anomaly severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// One detail struct per anomaly type; the anomaly row stores exactly one of
// these as JSON, keyed by the Type column.

type GPSJumpDetails struct {
	PrevLat         float64 `json:"prevLat"`
	PrevLon         float64 `json:"prevLon"`
	DistanceM       float64 `json:"distanceM"`
	ElapsedSeconds  float64 `json:"elapsedSeconds"`
	ImpliedSpeedKmh float64 `json:"impliedSpeedKmh"`
}

type SpeedViolationDetails struct {
	SpeedKmh float64 `json:"speedKmh"`
	LimitKmh float64 `json:"limitKmh"`
}

type LongStopDetails struct {
	StopID           int64   `json:"stopId"`
	DurationMinutes  float64 `json:"durationMinutes"`
	ThresholdMinutes float64 `json:"thresholdMinutes"`
}

type MileageDiscrepancyDetails struct {
	ExpectedKm   float64 `json:"expectedKm"` // GPS-derived
	ActualKm     float64 `json:"actualKm"`   // odometer-reported
	DifferenceKm float64 `json:"differenceKm"`
	ThresholdKm  float64 `json:"thresholdKm"`
}

type RouteDeviationDetails struct {
	ExpectedSiteID int64   `json:"expectedSiteId"`
	DeviationM     float64 `json:"deviationM"`
}

type MissedLocationDetails struct {
	SiteID   int64  `json:"siteId"`
	SiteName string `json:"siteName"`
}

// raiseAnomaly inserts the anomaly and increments the trip's counter inside
// the given transaction, so the pair is atomic.
func raiseAnomaly(tx *gorm.DB, tripID int64, typ, severity string, lat, lon *float64, details interface{}) (*TripAnomaly, error) {
	payload, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}

	a := TripAnomaly{
		TripID:     tripID,
		Type:       typ,
		Severity:   severity,
		Lat:        lat,
		Lon:        lon,
		Details:    payload,
		DetectedAt: time.Now().UTC(),
	}
	if err := tx.Create(&a).Error; err != nil {
		return nil, err
	}
	err = tx.Model(&Trip{}).Where("id = ?", tripID).
		UpdateColumn("anomaly_count", gorm.Expr("anomaly_count + 1")).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ResolveAnomaly marks an anomaly reviewed. The caller's organization is
// cross-checked through the owning trip; a foreign anomaly reads as absent.
// Resolving an already-resolved anomaly re-stamps the resolver and succeeds.
func (s *Service) ResolveAnomaly(anomalyID, resolverID, organizationID int64, notes *string) (*TripAnomaly, error) {
	var a TripAnomaly
	err := s.DB.
		Joins("JOIN trips ON trips.id = trip_anomalies.trip_id").
		Where("trip_anomalies.id = ? AND trips.organization_id = ?", anomalyID, organizationID).
		First(&a).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAnomalyNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	a.Resolved = true
	a.ResolvedBy = &resolverID
	a.ResolvedAt = &now
	if notes != nil {
		a.ResolutionNotes = notes
	}
	if err := s.DB.Save(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
