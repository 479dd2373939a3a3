package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/meatvault/stock-service/controllers"
	"github.com/meatvault/stock-service/middleware"
)

// RegisterRoutes wires all service routes. Everything except /health sits
// behind the auth middleware.
func RegisterRoutes(
	r *gin.Engine,
	jwtSecret []byte,
	inventory *controllers.InventoryController,
	needs *controllers.NeedsController,
	dashboard *controllers.DashboardController,
	scan *controllers.ScanController,
) {
	authed := r.Group("/", middleware.RequireUser(jwtSecret))

	inv := authed.Group("/inventory")
	{
		inv.GET("", inventory.GetItems)
		inv.GET("/stream", inventory.StreamItems)
		inv.POST("", inventory.CreateItem)
		inv.PATCH("/:id", inventory.UpdateItem)
		inv.DELETE("/:id", inventory.DeleteItem)
	}

	needsGroup := authed.Group("/needs")
	{
		needsGroup.GET("", needs.GetNeeds)
		needsGroup.GET("/stream", needs.StreamNeeds)
		needsGroup.POST("", needs.CreateNeed)
		needsGroup.PATCH("/:id", needs.UpdateNeed)
		needsGroup.DELETE("/:id", needs.DeleteNeed)
	}

	dash := authed.Group("/dashboard")
	{
		dash.GET("/summary", dashboard.GetSummary)
		dash.GET("/categories", dashboard.GetCategories)
		dash.GET("/expiring", dashboard.GetExpiring)
	}

	// Every scan fans out to the extraction API, so keep a per-IP lid on it.
	authed.POST("/scan", middleware.RateLimit(rate.Every(time.Minute/20), 5), scan.ScanItem)
}
