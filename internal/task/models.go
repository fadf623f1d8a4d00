package task

import "time"

// ServiceTask is the read model of a work order held by the task service.
// The tracking core only needs its identity, organization, and site binding
// to verify that a trip-linked task belongs to the site a stop matched.
type ServiceTask struct {
	ID             int64     `json:"id"             gorm:"column:id;primaryKey"`
	OrganizationID int64     `json:"organizationId" gorm:"column:organization_id"`
	SiteID         *int64    `json:"siteId"         gorm:"column:site_id"`
	Title          string    `json:"title"          gorm:"column:title"`
	Active         bool      `json:"active"         gorm:"column:active"`
	CreatedAt      time.Time `json:"createdAt"      gorm:"column:created_at"`
}

func (ServiceTask) TableName() string {
	return "service_tasks"
}
