package tracking

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jamsmac/VendHub-OS-sub009/internal/geo"
)

// stopLookbackPoints bounds the dwell window query; points older than
// StopMinDuration are filtered out afterwards anyway.
const stopLookbackPoints = 50

// checkStop runs after each accepted point, under the trip's lock. It looks
// at the trailing window of accepted points: if any of them sits outside the
// detection radius of the newest point the subject is moving and any open
// stop gets closed; if the whole window clusters inside the radius a dwell
// holds and a stop is opened, anchored at the oldest windowed point (the
// actual dwell start, not the detection instant).
func (s *Service) checkStop(trip *Trip, newest *TripPoint) error {
	var recent []TripPoint
	err := s.DB.
		Where("trip_id = ? AND rejected = ?", trip.ID, false).
		Order("recorded_at DESC").
		Limit(stopLookbackPoints).
		Find(&recent).Error
	if err != nil {
		return err
	}

	cutoff := newest.RecordedAt.Add(-s.Cfg.StopMinDuration)
	n := 0
	for _, p := range recent {
		if p.RecordedAt.Before(cutoff) {
			break // sorted newest first
		}
		n++
	}
	window := recent[:n]

	if len(window) < 2 {
		return nil // not enough evidence either way
	}

	for _, p := range window {
		if geo.Distance(newest.Lat, newest.Lon, p.Lat, p.Lon) > s.Cfg.StopDetectionRadiusMeters {
			return s.closeOpenStop(trip.ID, newest.RecordedAt)
		}
	}

	// dwell condition holds
	open, err := s.openStop(trip.ID)
	if err != nil {
		return err
	}
	if open != nil {
		return nil // already tracked
	}

	oldest := window[len(window)-1]
	stop := TripStop{
		TripID:    trip.ID,
		Lat:       oldest.Lat,
		Lon:       oldest.Lon,
		StartedAt: oldest.RecordedAt,
	}

	// failures here resolve to "no match", never failing stop detection
	match, err := s.Sites.Nearest(trip.OrganizationID, stop.Lat, stop.Lon)
	if err != nil {
		s.Log.WithError(err).WithField("trip_id", trip.ID).Warn("site lookup failed, stop left unmatched")
		match = nil
	}
	if match != nil {
		stop.SiteID = &match.SiteID
		stop.SiteName = &match.Name
		stop.SiteAddress = &match.Address
		stop.SiteDistanceM = &match.DistanceM
		stop.Verified = match.IsWithinRadius
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&stop).Error; err != nil {
			return err
		}
		return tx.Model(&Trip{}).Where("id = ?", trip.ID).
			UpdateColumn("stop_count", gorm.Expr("stop_count + 1")).Error
	})
	if err != nil {
		return err
	}

	s.Log.WithFields(logrus.Fields{
		"trip_id":  trip.ID,
		"stop_id":  stop.ID,
		"verified": stop.Verified,
	}).Debug("stop opened")

	if stop.Verified && stop.SiteID != nil {
		if err := s.verifyTaskLinks(trip, *stop.SiteID); err != nil {
			s.Log.WithError(err).WithField("trip_id", trip.ID).Error("task link verification failed")
		}
	}
	return nil
}

// openStop returns the trip's current open stop, or nil.
func (s *Service) openStop(tripID int64) (*TripStop, error) {
	var stop TripStop
	err := s.DB.
		Where("trip_id = ? AND ended_at IS NULL", tripID).
		Order("started_at DESC").
		First(&stop).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &stop, nil
}

// closeOpenStop ends the trip's open stop, if any, computing its duration
// against the given instant.
func (s *Service) closeOpenStop(tripID int64, at time.Time) error {
	open, err := s.openStop(tripID)
	if err != nil || open == nil {
		return err
	}
	return s.closeStop(s.DB, open, at)
}

func (s *Service) closeStop(tx *gorm.DB, stop *TripStop, at time.Time) error {
	duration := int64(at.Sub(stop.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	stop.EndedAt = &at
	stop.DurationSeconds = &duration
	return tx.Model(stop).Updates(map[string]interface{}{
		"ended_at":         at,
		"duration_seconds": duration,
	}).Error
}
