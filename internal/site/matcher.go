package site

import (
	"gorm.io/gorm"

	"github.com/jamsmac/VendHub-OS-sub009/internal/geo"
)

// searchBoxHalfSizeM bounds the rectangular prefilter to ~2 km around the
// query point so the exact distance pass never scans the whole directory.
const searchBoxHalfSizeM = 1000.0

// Match is the nearest active site to a query point, if any.
type Match struct {
	SiteID         int64
	Name           string
	Address        string
	DistanceM      float64
	IsWithinRadius bool
}

// Matcher resolves stop centers against an organization's site directory.
type Matcher struct {
	DB             *gorm.DB
	GeofenceRadius float64 // meters
}

func NewMatcher(db *gorm.DB, geofenceRadiusM float64) *Matcher {
	return &Matcher{DB: db, GeofenceRadius: geofenceRadiusM}
}

// Nearest returns the closest active site of the organization, with
// IsWithinRadius true when the distance is inside the geofence. A nil Match
// means no candidate inside the search box; that is not an error.
func (m *Matcher) Nearest(organizationID int64, lat, lon float64) (*Match, error) {
	minLat, maxLat, minLon, maxLon := geo.BoundingBox(lat, lon, searchBoxHalfSizeM)

	var candidates []Site
	err := m.DB.
		Where("organization_id = ? AND active = ?", organizationID, true).
		Where("lat BETWEEN ? AND ?", minLat, maxLat).
		Where("lon BETWEEN ? AND ?", minLon, maxLon).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := &Match{DistanceM: -1}
	for _, s := range candidates {
		d := geo.Distance(lat, lon, s.Lat, s.Lon)
		if best.DistanceM < 0 || d < best.DistanceM {
			best.SiteID = s.ID
			best.Name = s.Name
			best.Address = s.Address
			best.DistanceM = d
		}
	}
	best.IsWithinRadius = best.DistanceM <= m.GeofenceRadius

	return best, nil
}
