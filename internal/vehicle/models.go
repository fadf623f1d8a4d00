package vehicle

import "time"

// Odometer sources
const (
	OdometerSourceGPS    = "GPS"
	OdometerSourceManual = "MANUAL"
)

// Vehicle is a service van. The stored odometer is the engine's notion of the
// vehicle's current reading; trip end and reconciliation both move it.
type Vehicle struct {
	ID                int64     `json:"id"                gorm:"column:id;primaryKey"`
	OrganizationID    int64     `json:"organizationId"    gorm:"column:organization_id"`
	PlateNumber       string    `json:"plateNumber"       gorm:"column:plate_number"`
	Name              string    `json:"name"              gorm:"column:name"`
	Active            bool      `json:"active"            gorm:"column:active"`
	CurrentOdometerKm float64   `json:"currentOdometerKm" gorm:"column:current_odometer_km"`
	OdometerSource    string    `json:"odometerSource"    gorm:"column:odometer_source"`
	CreatedAt         time.Time `json:"createdAt"         gorm:"column:created_at"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

// SetOdometer records a new reading and where it came from.
func (v *Vehicle) SetOdometer(km float64, source string) {
	v.CurrentOdometerKm = km
	v.OdometerSource = source
}
