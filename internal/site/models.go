package site

import "time"

// Site is a known service location (a building hosting one or more vending
// machines). The directory is maintained elsewhere; the tracking core reads
// it for geofence matching.
type Site struct {
	ID             int64     `json:"id"             gorm:"column:id;primaryKey"`
	OrganizationID int64     `json:"organizationId" gorm:"column:organization_id"`
	Name           string    `json:"name"           gorm:"column:name"`
	Address        string    `json:"address"        gorm:"column:address"`
	Lat            float64   `json:"lat"            gorm:"column:lat"`
	Lon            float64   `json:"lon"            gorm:"column:lon"`
	Active         bool      `json:"active"         gorm:"column:active"`
	CreatedAt      time.Time `json:"createdAt"      gorm:"column:created_at"`
}

func (Site) TableName() string {
	return "sites"
}
