package site

import (
	"net/http"

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
	router.GET("/sites", h.ListSites)
}

// ListSites returns the caller's site directory, active sites first.
func (h *Handler) ListSites(c *gin.Context) {
	cu, ok := auth.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.DB.Model(&Site{})
	if !cu.IsSuperAdmin() {
		orgID, hasOrg := cu.OrgID()
		if !hasOrg {
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

	var sites []Site
	if err := query.Order("active DESC, id").Limit(p.Limit).Offset(p.Offset).Find(&sites).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sites, "pagination": p.Meta(total)})
}
