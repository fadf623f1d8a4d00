package tracking

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jamsmac/VendHub-OS-sub009/internal/config"
	"github.com/jamsmac/VendHub-OS-sub009/internal/site"
)

// Service is the trip tracking engine: point filtering, stop detection,
// geofence matching, anomaly classification, trip lifecycle, task-link
// verification, reconciliation and the stale-trip sweeper.
type Service struct {
	DB    *gorm.DB
	Cfg   config.Tracking
	Sites *site.Matcher
	Log   *logrus.Logger

	locks *tripLocks
}

func NewService(db *gorm.DB, cfg config.Tracking, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		DB:    db,
		Cfg:   cfg,
		Sites: site.NewMatcher(db, cfg.GeofenceRadiusMeters),
		Log:   log,
		locks: newTripLocks(),
	}
}

// getTrip loads a trip or maps gorm's not-found to the domain error.
func (s *Service) getTrip(tripID int64) (*Trip, error) {
	var t Trip
	if err := s.DB.First(&t, tripID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return &t, nil
}
