package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/middleware"
	"github.com/meatvault/stock-service/services"
	"github.com/meatvault/stock-service/views"
)

// DashboardController serves the aggregate views backing the dashboard
// cards. Everything is recomputed from the classified full set per request;
// statuses are never cached across requests.
type DashboardController struct {
	service *services.InventoryService
	log     *zap.Logger
}

func NewDashboardController(service *services.InventoryService, log *zap.Logger) *DashboardController {
	return &DashboardController{service: service, log: log}
}

// expiringListLimit caps the nearing-expiry list, matching the dashboard
// card that shows the five most urgent items.
const expiringListLimit = 5

// GetSummary returns the tile values, computed over the full unfiltered set.
// GET /dashboard/summary
func (dc *DashboardController) GetSummary(c *gin.Context) {
	items, err := dc.service.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views.Summarize(items))
}

// GetCategories returns quantity totals per category over the currently
// visible item set, largest first.
// GET /dashboard/categories?status=ALL&q=
func (dc *DashboardController) GetCategories(c *gin.Context) {
	bucket, ok := views.ParseBucket(c.Query("status"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status filter"})
		return
	}

	items, err := dc.service.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		dc.fail(c, err)
		return
	}

	visible := views.Search(views.Visible(items, bucket, time.Now()), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"categories": views.CategoryTotals(visible)})
}

// GetExpiring returns the items nearest to expiry among those currently
// EXPIRING_SOON, most urgent first.
// GET /dashboard/expiring
func (dc *DashboardController) GetExpiring(c *gin.Context) {
	items, err := dc.service.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": views.ExpiringSoon(items, expiringListLimit)})
}

func (dc *DashboardController) fail(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotSignedIn) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrNotSignedIn.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
}
