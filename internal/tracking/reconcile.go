package tracking

import (
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/jamsmac/VendHub-OS-sub009/internal/vehicle"
)

// ReconcileInput is a manually reported odometer reading for one vehicle.
type ReconcileInput struct {
	OrganizationID   int64
	VehicleID        int64
	ActualOdometerKm float64
	PerformedBy      int64
	Notes            *string
}

// Reconcile audits a reported odometer value against the vehicle's stored
// reading, persists the audit row, and moves the stored odometer to the
// reported value. Independent of any trip.
func (s *Service) Reconcile(in ReconcileInput) (*TripReconciliation, error) {
	var v vehicle.Vehicle
	err := s.DB.Where("id = ? AND organization_id = ?", in.VehicleID, in.OrganizationID).First(&v).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrVehicleNotOwned
		}
		return nil, err
	}

	expected := v.CurrentOdometerKm
	diff := math.Abs(in.ActualOdometerKm - expected)

	rec := TripReconciliation{
		OrganizationID:     in.OrganizationID,
		VehicleID:          in.VehicleID,
		ActualOdometerKm:   in.ActualOdometerKm,
		ExpectedOdometerKm: expected,
		DifferenceKm:       diff,
		ThresholdKm:        s.Cfg.MileageThresholdKm,
		Anomaly:            diff > s.Cfg.MileageThresholdKm,
		PerformedBy:        in.PerformedBy,
		PerformedAt:        time.Now().UTC(),
		Notes:              in.Notes,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		v.SetOdometer(in.ActualOdometerKm, vehicle.OdometerSourceManual)
		return tx.Save(&v).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
