package tracking

import (
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/jamsmac/VendHub-OS-sub009/internal/task"
	"github.com/jamsmac/VendHub-OS-sub009/internal/vehicle"
)

// StartTripInput carries everything a new work session needs.
type StartTripInput struct {
	OrganizationID  int64
	EmployeeID      int64
	VehicleID       *int64
	TaskType        *string
	StartOdometerKm *int64
	TaskIDs         []int64
	Notes           *string
}

// EndTripInput closes a work session.
type EndTripInput struct {
	EndOdometerKm *int64
	Notes         *string
}

// StartTrip creates an ACTIVE trip with pending links for the requested work
// orders. Fails if the employee already has an active trip or the vehicle is
// not the organization's.
func (s *Service) StartTrip(in StartTripInput) (*Trip, error) {
	var active int64
	err := s.DB.Model(&Trip{}).
		Where("employee_id = ? AND status = ?", in.EmployeeID, TripStatusActive).
		Count(&active).Error
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrActiveTripExists
	}

	if in.VehicleID != nil {
		var v vehicle.Vehicle
		err := s.DB.Where("id = ? AND organization_id = ?", *in.VehicleID, in.OrganizationID).First(&v).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ErrVehicleNotOwned
			}
			return nil, err
		}
	}

	now := time.Now().UTC()
	trip := Trip{
		OrganizationID:  in.OrganizationID,
		EmployeeID:      in.EmployeeID,
		VehicleID:       in.VehicleID,
		TaskType:        in.TaskType,
		Status:          TripStatusActive,
		StartedAt:       now,
		StartOdometerKm: in.StartOdometerKm,
		LiveBroadcast:   true,
		LastUpdateAt:    now,
		Notes:           in.Notes,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trip).Error; err != nil {
			return err
		}
		seen := make(map[int64]bool, len(in.TaskIDs))
		for _, taskID := range in.TaskIDs {
			if seen[taskID] {
				continue
			}
			seen[taskID] = true

			var t task.ServiceTask
			if err := tx.Where("id = ? AND organization_id = ?", taskID, in.OrganizationID).First(&t).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return ErrTaskNotFound
				}
				return err
			}
			link := TripTaskLink{TripID: trip.ID, TaskID: taskID, Status: TaskLinkPending}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// EndTrip completes an active trip: final coordinates from the last accepted
// point, total distance as the sum of accepted increments, distinct visited
// sites, closing any open stop, the vehicle odometer update, and the mileage
// discrepancy check.
func (s *Service) EndTrip(tripID int64, in EndTripInput) (*Trip, error) {
	unlock := s.locks.lock(tripID)
	defer unlock()

	trip, err := s.getTrip(tripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsActive() {
		return nil, ErrTripNotActive
	}

	now := time.Now().UTC()

	last, err := s.lastAcceptedPoint(tripID)
	if err != nil {
		return nil, err
	}

	var totalDistanceM float64
	err = s.DB.Model(&TripPoint{}).
		Where("trip_id = ? AND rejected = ?", tripID, false).
		Select("COALESCE(SUM(distance_from_prev_m), 0)").
		Scan(&totalDistanceM).Error
	if err != nil {
		return nil, err
	}

	var visitedSites int64
	err = s.DB.Model(&TripStop{}).
		Where("trip_id = ? AND site_id IS NOT NULL", tripID).
		Distinct("site_id").
		Count(&visitedSites).Error
	if err != nil {
		return nil, err
	}

	trip.Status = TripStatusCompleted
	trip.EndedAt = &now
	trip.DistanceM = totalDistanceM
	trip.VisitedSiteCount = int(visitedSites)
	trip.LiveBroadcast = false
	trip.LastUpdateAt = now
	if last != nil {
		trip.EndLat = &last.Lat
		trip.EndLon = &last.Lon
		if match, merr := s.Sites.Nearest(trip.OrganizationID, last.Lat, last.Lon); merr == nil && match != nil && match.IsWithinRadius {
			trip.EndSiteID = &match.SiteID
		}
	}
	if in.EndOdometerKm != nil {
		trip.EndOdometerKm = in.EndOdometerKm
	}
	if in.Notes != nil {
		trip.Notes = appendNote(trip.Notes, *in.Notes)
	}

	var mileage *MileageDiscrepancyDetails
	if trip.StartOdometerKm != nil && trip.EndOdometerKm != nil {
		reportedKm := float64(*trip.EndOdometerKm - *trip.StartOdometerKm)
		gpsKm := totalDistanceM / 1000
		diff := math.Abs(reportedKm - gpsKm)
		if diff > s.Cfg.MileageThresholdKm {
			mileage = &MileageDiscrepancyDetails{
				ExpectedKm:   gpsKm,
				ActualKm:     reportedKm,
				DifferenceKm: diff,
				ThresholdKm:  s.Cfg.MileageThresholdKm,
			}
		}
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		open, err := s.openStop(tripID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := s.closeStop(tx, open, now); err != nil {
				return err
			}
		}

		if err := tx.Save(trip).Error; err != nil {
			return err
		}

		if trip.VehicleID != nil && in.EndOdometerKm != nil {
			err := tx.Model(&vehicle.Vehicle{}).Where("id = ?", *trip.VehicleID).
				Updates(map[string]interface{}{
					"current_odometer_km": float64(*in.EndOdometerKm),
					"odometer_source":     vehicle.OdometerSourceGPS,
				}).Error
			if err != nil {
				return err
			}
		}

		if mileage != nil {
			if _, err := raiseAnomaly(tx, tripID, AnomalyMileageDiscrepancy, SeverityWarning, trip.EndLat, trip.EndLon, mileage); err != nil {
				return err
			}
			trip.AnomalyCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// CancelTrip voids an active trip. No distance, odometer, or anomaly logic
// runs; the reason lands in the notes.
func (s *Service) CancelTrip(tripID int64, reason *string) (*Trip, error) {
	unlock := s.locks.lock(tripID)
	defer unlock()

	trip, err := s.getTrip(tripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsActive() {
		return nil, ErrTripNotActive
	}

	now := time.Now().UTC()
	trip.Status = TripStatusCancelled
	trip.EndedAt = &now
	trip.LiveBroadcast = false
	trip.LastUpdateAt = now
	if reason != nil {
		trip.Notes = appendNote(trip.Notes, "cancelled: "+*reason)
	}

	if err := s.DB.Save(trip).Error; err != nil {
		return nil, err
	}
	return trip, nil
}

func appendNote(existing *string, note string) *string {
	if existing == nil || *existing == "" {
		return &note
	}
	combined := *existing + "\n" + note
	return &combined
}
