package tracking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jamsmac/VendHub-OS-sub009/internal/auth"
	"github.com/jamsmac/VendHub-OS-sub009/internal/pagination"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/trips", h.StartTrip)
	router.GET("/trips", h.ListTrips)
	router.GET("/trips/:id", h.GetTripDetail)
	router.POST("/trips/:id/end", h.EndTrip)
	router.POST("/trips/:id/cancel", h.CancelTrip)
	router.POST("/trips/:id/points", h.AddPoint)
	router.POST("/trips/:id/points/batch", h.AddPointsBatch)
	router.POST("/trips/:id/tasks", h.LinkTask)
	router.POST("/trips/:id/tasks/:taskId/complete", h.CompleteTask)
	router.GET("/trips/:id/anomalies", h.ListTripAnomalies)
	router.POST("/anomalies/:id/resolve", h.ResolveAnomaly)
	router.POST("/reconciliations", h.PerformReconciliation)
	router.GET("/vehicles/:id/reconciliations", h.ListVehicleReconciliations)
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": name + " must be numeric"})
		return 0, false
	}
	return id, true
}

// respondDomainError maps engine sentinels onto HTTP statuses.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTripNotFound), errors.Is(err, ErrAnomalyNotFound),
		errors.Is(err, ErrTaskLinkNotFound), errors.Is(err, ErrVehicleNotOwned),
		errors.Is(err, ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, ErrActiveTripExists), errors.Is(err, ErrDuplicateTaskLink):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": err.Error()})
	case errors.Is(err, ErrTripNotActive), errors.Is(err, ErrInvalidCoordinates):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
	}
}

// requireOrgCaller resolves the caller's organization. Super-admins act on
// behalf of an org given in the request body; everyone else uses their own.
func requireOrgCaller(c *gin.Context, bodyOrgID *int64) (auth.CurrentUser, int64, bool) {
	cu, ok := auth.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return cu, 0, false
	}
	if orgID, has := cu.OrgID(); has {
		return cu, orgID, true
	}
	if cu.IsSuperAdmin() && bodyOrgID != nil {
		return cu, *bodyOrgID, true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "no_org_access"})
	return cu, 0, false
}

type StartTripRequest struct {
	OrganizationID  *int64  `json:"organizationId"` // super-admin only
	EmployeeID      *int64  `json:"employeeId"`     // super-admin only
	VehicleID       *int64  `json:"vehicleId"`
	TaskType        *string `json:"taskType"`
	StartOdometerKm *int64  `json:"startOdometerKm"`
	TaskIDs         []int64 `json:"taskIds"`
	Notes           *string `json:"notes"`
}

func (h *Handler) StartTrip(c *gin.Context) {
	var req StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}

	cu, orgID, ok := requireOrgCaller(c, req.OrganizationID)
	if !ok {
		return
	}
	employeeID := cu.ID
	if cu.IsSuperAdmin() && req.EmployeeID != nil {
		employeeID = *req.EmployeeID
	}

	trip, err := h.Svc.StartTrip(StartTripInput{
		OrganizationID:  orgID,
		EmployeeID:      employeeID,
		VehicleID:       req.VehicleID,
		TaskType:        req.TaskType,
		StartOdometerKm: req.StartOdometerKm,
		TaskIDs:         req.TaskIDs,
		Notes:           req.Notes,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trip)
}

type EndTripRequest struct {
	EndOdometerKm *int64  `json:"endOdometerKm"`
	Notes         *string `json:"notes"`
}

func (h *Handler) EndTrip(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req EndTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if !h.tripAccessible(c, tripID) {
		return
	}

	trip, err := h.Svc.EndTrip(tripID, EndTripInput{EndOdometerKm: req.EndOdometerKm, Notes: req.Notes})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

type CancelTripRequest struct {
	Reason *string `json:"reason"`
}

func (h *Handler) CancelTrip(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req CancelTripRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if !h.tripAccessible(c, tripID) {
		return
	}

	trip, err := h.Svc.CancelTrip(tripID, req.Reason)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

type PointRequest struct {
	Lat        *float64   `json:"lat" binding:"required"`
	Lon        *float64   `json:"lon" binding:"required"`
	AccuracyM  *float64   `json:"accuracyM"`
	SpeedMs    *float64   `json:"speedMs"`
	HeadingDeg *float64   `json:"headingDeg"`
	AltitudeM  *float64   `json:"altitudeM"`
	RecordedAt *time.Time `json:"recordedAt"`
}

func (r PointRequest) toInput() PointInput {
	return PointInput{
		Lat:        *r.Lat,
		Lon:        *r.Lon,
		AccuracyM:  r.AccuracyM,
		SpeedMs:    r.SpeedMs,
		HeadingDeg: r.HeadingDeg,
		AltitudeM:  r.AltitudeM,
		RecordedAt: r.RecordedAt,
	}
}

func pointResult(p *TripPoint) gin.H {
	res := gin.H{"pointId": p.ID, "rejected": p.Rejected}
	if p.RejectReason != nil {
		res["reason"] = *p.RejectReason
	}
	return res
}

func (h *Handler) AddPoint(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "lat and lon are required"})
		return
	}
	if !h.tripAccessible(c, tripID) {
		return
	}

	point, err := h.Svc.AddPoint(tripID, req.toInput())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pointResult(point))
}

type BatchPointsRequest struct {
	Points []PointRequest `json:"points" binding:"required,dive"`
}

func (h *Handler) AddPointsBatch(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req BatchPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "points array with lat/lon is required"})
		return
	}
	if !h.tripAccessible(c, tripID) {
		return
	}

	inputs := make([]PointInput, len(req.Points))
	for i, p := range req.Points {
		inputs[i] = p.toInput()
	}

	points, err := h.Svc.AddPointsBatch(tripID, inputs)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	results := make([]gin.H, len(points))
	for i, p := range points {
		results[i] = pointResult(p)
	}
	c.JSON(http.StatusCreated, gin.H{"results": results})
}

type LinkTaskRequest struct {
	TaskID int64 `json:"taskId" binding:"required"`
}

func (h *Handler) LinkTask(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req LinkTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "taskId is required"})
		return
	}
	if !h.tripAccessible(c, tripID) {
		return
	}

	link, err := h.Svc.LinkTask(tripID, req.TaskID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

type CompleteTaskRequest struct {
	Notes *string `json:"notes"`
}

func (h *Handler) CompleteTask(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "taskId")
	if !ok {
		return
	}
	var req CompleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if !h.tripAccessible(c, tripID) {
		return
	}

	link, err := h.Svc.CompleteTask(tripID, taskID, req.Notes)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

type ResolveAnomalyRequest struct {
	Notes *string `json:"notes"`
}

func (h *Handler) ResolveAnomaly(c *gin.Context) {
	anomalyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ResolveAnomalyRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}

	cu, orgID, ok := requireOrgCaller(c, nil)
	if !ok {
		return
	}

	anomaly, err := h.Svc.ResolveAnomaly(anomalyID, cu.ID, orgID, req.Notes)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, anomaly)
}

type ReconciliationRequest struct {
	OrganizationID   *int64   `json:"organizationId"` // super-admin only
	VehicleID        int64    `json:"vehicleId" binding:"required"`
	ActualOdometerKm *float64 `json:"actualOdometerKm" binding:"required"`
	Notes            *string  `json:"notes"`
}

func (h *Handler) PerformReconciliation(c *gin.Context) {
	var req ReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "vehicleId and actualOdometerKm are required"})
		return
	}
	if *req.ActualOdometerKm < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "actualOdometerKm must not be negative"})
		return
	}

	cu, orgID, ok := requireOrgCaller(c, req.OrganizationID)
	if !ok {
		return
	}

	rec, err := h.Svc.Reconcile(ReconcileInput{
		OrganizationID:   orgID,
		VehicleID:        req.VehicleID,
		ActualOdometerKm: *req.ActualOdometerKm,
		PerformedBy:      cu.ID,
		Notes:            req.Notes,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListTrips(c *gin.Context) {
	cu, ok := auth.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.Svc.DB.Model(&Trip{})
	if !cu.IsSuperAdmin() {
		orgID, has := cu.OrgID()
		if !has {
			c.JSON(http.StatusForbidden, gin.H{"error": "no_org_access"})
			return
		}
		query = query.Where("organization_id = ?", orgID)
	}
	if status := c.Query("status"); status != "" {
		switch status {
		case TripStatusActive, TripStatusCompleted, TripStatusCancelled, TripStatusAutoClosed:
			query = query.Where("status = ?", status)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid status filter"})
			return
		}
	}
	if emp := c.Query("employeeId"); emp != "" {
		if id, err := strconv.ParseInt(emp, 10, 64); err == nil {
			query = query.Where("employee_id = ?", id)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	var trips []Trip
	if err := query.Order("started_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&trips).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trips, "pagination": p.Meta(total)})
}

// GetTripDetail returns the trip with its points, stops, anomalies and task
// links.
func (h *Handler) GetTripDetail(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	trip, ok := h.accessibleTrip(c, tripID)
	if !ok {
		return
	}

	var points []TripPoint
	if err := h.Svc.DB.Where("trip_id = ?", tripID).Order("recorded_at ASC").Find(&points).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	var stops []TripStop
	if err := h.Svc.DB.Where("trip_id = ?", tripID).Order("started_at ASC").Find(&stops).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	var anomalies []TripAnomaly
	if err := h.Svc.DB.Where("trip_id = ?", tripID).Order("detected_at ASC").Find(&anomalies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	var links []TripTaskLink
	if err := h.Svc.DB.Where("trip_id = ?", tripID).Order("id").Find(&links).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trip":      trip,
		"points":    points,
		"stops":     stops,
		"anomalies": anomalies,
		"taskLinks": links,
	})
}

func (h *Handler) ListTripAnomalies(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := h.accessibleTrip(c, tripID); !ok {
		return
	}

	var anomalies []TripAnomaly
	query := h.Svc.DB.Where("trip_id = ?", tripID)
	if r := c.Query("resolved"); r == "true" || r == "false" {
		query = query.Where("resolved = ?", r == "true")
	}
	if err := query.Order("detected_at ASC").Find(&anomalies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": anomalies})
}

func (h *Handler) ListVehicleReconciliations(c *gin.Context) {
	vehicleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	cu, ok := auth.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.Svc.DB.Model(&TripReconciliation{}).Where("vehicle_id = ?", vehicleID)
	if !cu.IsSuperAdmin() {
		orgID, has := cu.OrgID()
		if !has {
			c.JSON(http.StatusForbidden, gin.H{"error": "no_org_access"})
			return
		}
		query = query.Where("organization_id = ?", orgID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	var recs []TripReconciliation
	if err := query.Order("performed_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&recs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recs, "pagination": p.Meta(total)})
}

// accessibleTrip loads the trip and enforces org ownership; a foreign trip
// reads as absent.
func (h *Handler) accessibleTrip(c *gin.Context, tripID int64) (*Trip, bool) {
	cu, ok := auth.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	var trip Trip
	if err := h.Svc.DB.First(&trip, tripID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return nil, false
	}

	if !cu.IsSuperAdmin() {
		orgID, has := cu.OrgID()
		if !has || trip.OrganizationID != orgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return nil, false
		}
	}
	return &trip, true
}

func (h *Handler) tripAccessible(c *gin.Context, tripID int64) bool {
	_, ok := h.accessibleTrip(c, tripID)
	return ok
}
