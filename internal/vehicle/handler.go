package vehicle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jamsmac/VendHub-OS-sub009/internal/auth"
	"github.com/jamsmac/VendHub-OS-sub009/internal/pagination"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/vehicles", h.ListVehicles)
	router.GET("/vehicles/:id", h.GetVehicle)
}

func (h *Handler) ListVehicles(c *gin.Context) {
	cu, ok := auth.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.DB.Model(&Vehicle{})
	if !cu.IsSuperAdmin() {
		orgID, ok := cu.OrgID()
		if !ok {
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

	var vehicles []Vehicle
	if err := query.Order("id").Limit(p.Limit).Offset(p.Offset).Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicles, "pagination": p.Meta(total)})
}

func (h *Handler) GetVehicle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "id must be numeric"})
		return
	}

	var v Vehicle
	if err := h.DB.First(&v, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	cu, ok := auth.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if !cu.IsSuperAdmin() {
		orgID, hasOrg := cu.OrgID()
		if !hasOrg || v.OrganizationID != orgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
	}

	c.JSON(http.StatusOK, v)
}
