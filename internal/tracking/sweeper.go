package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// idleTripAge is how long an active trip may sit with zero accepted points
// before the sweep logs it.
const idleTripAge = 15 * time.Minute

// RunSweeper ticks until ctx is cancelled. One failing trip never aborts a
// sweep; errors are logged per item and the loop moves on.
func (s *Service) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.Cfg.SweepInterval)
	defer ticker.Stop()

	s.Log.WithField("interval", s.Cfg.SweepInterval).Info("trip sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.Log.Info("trip sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs the three housekeeping passes once.
func (s *Service) Sweep() {
	if err := s.sweepStaleTrips(); err != nil {
		s.Log.WithError(err).Error("stale trip sweep failed")
	}
	if err := s.sweepLongStops(); err != nil {
		s.Log.WithError(err).Error("long stop sweep failed")
	}
	if err := s.logIdleTrips(); err != nil {
		s.Log.WithError(err).Error("idle trip check failed")
	}
}

// sweepStaleTrips auto-closes ACTIVE trips whose last update is older than
// the configured window, closing their open stop and skipping their
// outstanding task links.
func (s *Service) sweepStaleTrips() error {
	cutoff := time.Now().UTC().Add(-s.Cfg.AutoCloseAfter)

	var stale []Trip
	err := s.DB.
		Where("status = ? AND last_update_at < ?", TripStatusActive, cutoff).
		Find(&stale).Error
	if err != nil {
		return err
	}

	for i := range stale {
		if err := s.autoCloseTrip(&stale[i]); err != nil {
			s.Log.WithError(err).WithField("trip_id", stale[i].ID).Error("auto-close failed")
			continue
		}
		s.Log.WithFields(logrus.Fields{
			"trip_id":     stale[i].ID,
			"employee_id": stale[i].EmployeeID,
			"last_update": stale[i].LastUpdateAt,
		}).Warn("trip auto-closed after inactivity")
	}
	return nil
}

func (s *Service) autoCloseTrip(trip *Trip) error {
	unlock := s.locks.lock(trip.ID)
	defer unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		// re-read under the lock; a point may have just arrived
		var current Trip
		if err := tx.First(&current, trip.ID).Error; err != nil {
			return err
		}
		if !current.IsActive() || !current.LastUpdateAt.Before(time.Now().UTC().Add(-s.Cfg.AutoCloseAfter)) {
			return nil
		}

		now := time.Now().UTC()
		note := fmt.Sprintf("auto-closed: no position update since %s", current.LastUpdateAt.Format(time.RFC3339))
		current.Status = TripStatusAutoClosed
		current.EndedAt = &now
		current.LiveBroadcast = false
		current.Notes = appendNote(current.Notes, note)
		if err := tx.Save(&current).Error; err != nil {
			return err
		}

		open, err := s.openStop(current.ID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := s.closeStop(tx, open, now); err != nil {
				return err
			}
		}

		return tx.Model(&TripTaskLink{}).
			Where("trip_id = ? AND status IN ?", current.ID, []string{TaskLinkPending, TaskLinkInProgress}).
			Updates(map[string]interface{}{
				"status": TaskLinkSkipped,
				"notes":  "skipped: trip auto-closed",
			}).Error
	})
}

// sweepLongStops raises a LONG_STOP anomaly for every open, unmatched stop
// past the threshold. The notification flag guarantees at most one anomaly
// per stop for this rule.
func (s *Service) sweepLongStops() error {
	cutoff := time.Now().UTC().Add(-s.Cfg.LongStopThreshold)

	var stops []TripStop
	err := s.DB.
		Where("ended_at IS NULL AND notification_sent = ? AND site_id IS NULL AND started_at < ?", false, cutoff).
		Find(&stops).Error
	if err != nil {
		return err
	}

	for i := range stops {
		stop := &stops[i]
		duration := time.Since(stop.StartedAt)

		err := s.flagLongStop(stop, duration)
		if err != nil {
			s.Log.WithError(err).WithField("stop_id", stop.ID).Error("long stop flagging failed")
			continue
		}
		s.Log.WithFields(logrus.Fields{
			"trip_id":      stop.TripID,
			"stop_id":      stop.ID,
			"duration_min": int(duration.Minutes()),
		}).Warn("long unplanned stop detected")
	}
	return nil
}

// flagLongStop raises the anomaly under the trip's lock so the counter
// increment cannot race a concurrent full-row trip write.
func (s *Service) flagLongStop(stop *TripStop, duration time.Duration) error {
	unlock := s.locks.lock(stop.TripID)
	defer unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		details := LongStopDetails{
			StopID:           stop.ID,
			DurationMinutes:  duration.Minutes(),
			ThresholdMinutes: s.Cfg.LongStopThreshold.Minutes(),
		}
		if _, err := raiseAnomaly(tx, stop.TripID, AnomalyLongStop, SeverityWarning, &stop.Lat, &stop.Lon, details); err != nil {
			return err
		}
		return tx.Model(stop).Updates(map[string]interface{}{
			"anomaly":           true,
			"notification_sent": true,
		}).Error
	})
}

// logIdleTrips reports ACTIVE trips that have produced no points since well
// after start. Observable in logs only; not persisted as an anomaly.
func (s *Service) logIdleTrips() error {
	cutoff := time.Now().UTC().Add(-idleTripAge)

	var idle []Trip
	err := s.DB.
		Where("status = ? AND point_count = 0 AND started_at < ?", TripStatusActive, cutoff).
		Find(&idle).Error
	if err != nil {
		return err
	}

	for _, t := range idle {
		s.Log.WithFields(logrus.Fields{
			"trip_id":     t.ID,
			"employee_id": t.EmployeeID,
			"age_min":     int(time.Since(t.StartedAt).Minutes()),
		}).Warn("active trip has no GPS points")
	}
	return nil
}
