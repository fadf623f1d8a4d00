package pagination

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit    int `json:"limit"`
	Offset   int `json:"offset"`
	Page     int `json:"page"`
	MaxLimit int `json:"maxLimit"`
}

// Parse reads query params `limit` and `page`. The hard cap comes from env
// `MAX_PAGE_LIMIT` (default 500). Invalid values abort with 400.
func Parse(c *gin.Context) Pagination {
	defaultLimit := 20
	maxLimit := 500

	if ml := os.Getenv("MAX_PAGE_LIMIT"); ml != "" {
		if v, err := strconv.Atoi(ml); err == nil && v > 0 {
			maxLimit = v
		}
	}

	limit := defaultLimit
	if ls := c.Query("limit"); ls != "" {
		v, err := strconv.Atoi(ls)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid limit parameter"})
			c.Abort()
			return Pagination{}
		}
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	page := 1
	if ps := c.Query("page"); ps != "" {
		v, err := strconv.Atoi(ps)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid page parameter"})
			c.Abort()
			return Pagination{}
		}
		page = v
	}

	return Pagination{Limit: limit, Offset: (page - 1) * limit, Page: page, MaxLimit: maxLimit}
}

// Meta is the response envelope fragment handlers attach next to data.
func (p Pagination) Meta(total int64) gin.H {
	return gin.H{"total": total, "limit": p.Limit, "page": p.Page, "max_limit": p.MaxLimit}
}
