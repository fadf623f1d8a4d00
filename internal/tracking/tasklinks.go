package tracking

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jamsmac/VendHub-OS-sub009/internal/task"
)

// LinkTask associates a work order with a trip. The task must exist and
// belong to the trip's organization; the (trip, task) pair must be unique
// among non-removed links.
func (s *Service) LinkTask(tripID, taskID int64) (*TripTaskLink, error) {
	trip, err := s.getTrip(tripID)
	if err != nil {
		return nil, err
	}

	var t task.ServiceTask
	if err := s.DB.Where("id = ? AND organization_id = ?", taskID, trip.OrganizationID).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	var existing int64
	err = s.DB.Model(&TripTaskLink{}).
		Where("trip_id = ? AND task_id = ?", tripID, taskID).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrDuplicateTaskLink
	}

	link := TripTaskLink{TripID: tripID, TaskID: taskID, Status: TaskLinkPending}
	if err := s.DB.Create(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// CompleteTask marks a linked work order done. Works regardless of trip
// status; field crews close paperwork after the drive home.
func (s *Service) CompleteTask(tripID, taskID int64, notes *string) (*TripTaskLink, error) {
	var link TripTaskLink
	err := s.DB.Where("trip_id = ? AND task_id = ?", tripID, taskID).First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTaskLinkNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	link.Status = TaskLinkCompleted
	link.CompletedAt = &now
	if notes != nil {
		link.Notes = notes
	}
	if err := s.DB.Save(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// verifyTaskLinks promotes the trip's pending links whose task belongs to
// the matched site: the employee demonstrably arrived, so the work order
// moves to in-progress with a GPS-verified stamp.
func (s *Service) verifyTaskLinks(trip *Trip, siteID int64) error {
	var taskIDs []int64
	err := s.DB.Model(&task.ServiceTask{}).
		Where("organization_id = ? AND site_id = ?", trip.OrganizationID, siteID).
		Pluck("id", &taskIDs).Error
	if err != nil {
		return err
	}
	if len(taskIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	res := s.DB.Model(&TripTaskLink{}).
		Where("trip_id = ? AND task_id IN ? AND status = ?", trip.ID, taskIDs, TaskLinkPending).
		Updates(map[string]interface{}{
			"status":          TaskLinkInProgress,
			"gps_verified":    true,
			"gps_verified_at": now,
			"started_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.Log.WithFields(logrus.Fields{
			"trip_id": trip.ID,
			"site_id": siteID,
			"links":   res.RowsAffected,
		}).Info("task links GPS-verified")
	}
	return nil
}
