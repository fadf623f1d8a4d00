package tracking

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jamsmac/VendHub-OS-sub009/internal/geo"
)

// PointInput is one raw positional report from the device.
type PointInput struct {
	Lat        float64
	Lon        float64
	AccuracyM  *float64
	SpeedMs    *float64 // as reported by the device, m/s
	HeadingDeg *float64
	AltitudeM  *float64
	RecordedAt *time.Time
}

// AddPoint runs one report through the filter pipeline: accuracy gate, jump
// detection, speed check, persistence, then the stop detector. Rejected
// points are stored with a reason and do not feed distance or stops. The
// only failure mode besides storage errors is a trip that is missing or no
// longer ACTIVE.
func (s *Service) AddPoint(tripID int64, in PointInput) (*TripPoint, error) {
	unlock := s.locks.lock(tripID)
	defer unlock()
	return s.addPointLocked(tripID, in)
}

// AddPointsBatch ingests reports one at a time, in submission order. Each
// point goes through the exact same pipeline as a single report.
func (s *Service) AddPointsBatch(tripID int64, inputs []PointInput) ([]*TripPoint, error) {
	unlock := s.locks.lock(tripID)
	defer unlock()

	points := make([]*TripPoint, 0, len(inputs))
	for _, in := range inputs {
		p, err := s.addPointLocked(tripID, in)
		if err != nil {
			return points, err
		}
		points = append(points, p)
	}
	return points, nil
}

func (s *Service) addPointLocked(tripID int64, in PointInput) (*TripPoint, error) {
	if in.Lat < -90 || in.Lat > 90 || in.Lon < -180 || in.Lon > 180 {
		return nil, ErrInvalidCoordinates
	}

	trip, err := s.getTrip(tripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsActive() {
		return nil, ErrTripNotActive
	}

	recordedAt := time.Now().UTC()
	if in.RecordedAt != nil {
		recordedAt = in.RecordedAt.UTC()
	}

	point := TripPoint{
		TripID:     tripID,
		Lat:        geo.RoundCoord(in.Lat),
		Lon:        geo.RoundCoord(in.Lon),
		AccuracyM:  in.AccuracyM,
		SpeedMs:    in.SpeedMs,
		HeadingDeg: in.HeadingDeg,
		AltitudeM:  in.AltitudeM,
		RecordedAt: recordedAt,
	}

	var prev *TripPoint
	var jump *GPSJumpDetails
	firstAccepted := false

	if in.AccuracyM != nil && *in.AccuracyM > s.Cfg.MinGPSAccuracyMeters {
		reason := RejectReasonLowAccuracy
		point.Rejected = true
		point.RejectReason = &reason
	} else {
		prev, err = s.lastAcceptedPoint(tripID)
		if err != nil {
			return nil, err
		}
		if prev == nil {
			firstAccepted = true
		} else {
			dist := geo.Distance(prev.Lat, prev.Lon, point.Lat, point.Lon)
			if dist > s.Cfg.GPSJumpDistanceMeters {
				elapsed := recordedAt.Sub(prev.RecordedAt)
				implied := geo.SpeedKmh(dist, elapsed)
				// zero or negative elapsed means the displacement was
				// instantaneous; the implied speed is unbounded
				if elapsed <= 0 || implied > s.Cfg.MaxSpeedKmh*1.5 {
					reason := RejectReasonGPSJump
					point.Rejected = true
					point.RejectReason = &reason
					jump = &GPSJumpDetails{
						PrevLat:         prev.Lat,
						PrevLon:         prev.Lon,
						DistanceM:       dist,
						ElapsedSeconds:  elapsed.Seconds(),
						ImpliedSpeedKmh: implied,
					}
				}
			}
			if !point.Rejected {
				point.DistanceFromPrevM = dist
			}
		}
	}

	var startSiteID *int64
	if firstAccepted && trip.StartSiteID == nil {
		// best effort; an empty directory just leaves the reference unset
		if match, merr := s.Sites.Nearest(trip.OrganizationID, point.Lat, point.Lon); merr == nil && match != nil && match.IsWithinRadius {
			startSiteID = &match.SiteID
		}
	}

	var speeding *SpeedViolationDetails
	if !point.Rejected && in.SpeedMs != nil {
		kmh := *in.SpeedMs * 3.6
		if kmh > s.Cfg.MaxSpeedKmh {
			speeding = &SpeedViolationDetails{SpeedKmh: kmh, LimitKmh: s.Cfg.MaxSpeedKmh}
		}
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&point).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"point_count":    gorm.Expr("point_count + 1"),
			"last_update_at": time.Now().UTC(),
		}
		if !point.Rejected {
			updates["distance_m"] = gorm.Expr("distance_m + ?", point.DistanceFromPrevM)
		}
		if firstAccepted && trip.StartLat == nil {
			updates["start_lat"] = point.Lat
			updates["start_lon"] = point.Lon
		}
		if startSiteID != nil {
			updates["start_site_id"] = *startSiteID
		}
		if err := tx.Model(&Trip{}).Where("id = ?", tripID).Updates(updates).Error; err != nil {
			return err
		}

		if jump != nil {
			if _, err := raiseAnomaly(tx, tripID, AnomalyGPSJump, SeverityInfo, &point.Lat, &point.Lon, jump); err != nil {
				return err
			}
		}
		if speeding != nil {
			if _, err := raiseAnomaly(tx, tripID, AnomalySpeedViolation, SeverityWarning, &point.Lat, &point.Lon, speeding); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if jump != nil {
		s.Log.WithFields(logrus.Fields{
			"trip_id":    tripID,
			"distance_m": jump.DistanceM,
			"speed_kmh":  jump.ImpliedSpeedKmh,
		}).Info("rejected implausible GPS jump")
	}

	if !point.Rejected {
		if err := s.checkStop(trip, &point); err != nil {
			// stop bookkeeping must not fail the ingestion path
			s.Log.WithError(err).WithField("trip_id", tripID).Error("stop detection failed")
		}
	}

	return &point, nil
}

// lastAcceptedPoint returns the most recent accepted point, or nil.
func (s *Service) lastAcceptedPoint(tripID int64) (*TripPoint, error) {
	var p TripPoint
	err := s.DB.
		Where("trip_id = ? AND rejected = ?", tripID, false).
		Order("recorded_at DESC").
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
