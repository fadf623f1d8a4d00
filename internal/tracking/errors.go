package tracking

import "errors"

// Domain errors surfaced synchronously to callers. Soft rejections
// (low accuracy, GPS jump) are not errors; the point is stored either way.
var (
	ErrTripNotFound       = errors.New("trip not found")
	ErrTripNotActive      = errors.New("trip is not active")
	ErrActiveTripExists   = errors.New("employee already has an active trip")
	ErrVehicleNotOwned    = errors.New("vehicle not found or not owned by organization")
	ErrTaskNotFound       = errors.New("task not found or not owned by organization")
	ErrDuplicateTaskLink  = errors.New("task already linked to this trip")
	ErrTaskLinkNotFound   = errors.New("task link not found")
	ErrAnomalyNotFound    = errors.New("anomaly not found")
	ErrInvalidCoordinates = errors.New("coordinates out of range")
)
