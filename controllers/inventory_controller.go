package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/middleware"
	"github.com/meatvault/stock-service/models"
	"github.com/meatvault/stock-service/repository"
	"github.com/meatvault/stock-service/services"
	"github.com/meatvault/stock-service/views"
)

// InventoryController handles HTTP requests for inventory items.
type InventoryController struct {
	service *services.InventoryService
	log     *zap.Logger
}

func NewInventoryController(service *services.InventoryService, log *zap.Logger) *InventoryController {
	return &InventoryController{service: service, log: log}
}

// GetItems returns the classified, filtered item list plus the summary.
// The summary always covers the full set, whatever bucket is selected.
// GET /inventory?status=ALL&q=ribeye
func (ic *InventoryController) GetItems(c *gin.Context) {
	bucket, ok := views.ParseBucket(c.Query("status"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status filter"})
		return
	}

	items, err := ic.service.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		if errors.Is(err, services.ErrNotSignedIn) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrNotSignedIn.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
		return
	}

	visible := views.Search(views.Visible(items, bucket, time.Now()), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{
		"items":   visible,
		"summary": views.Summarize(items),
	})
}

// CreateItem adds an inventory item.
// POST /inventory
func (ic *InventoryController) CreateItem(c *gin.Context) {
	var req models.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, err := ic.service.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotSignedIn):
			c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrNotSignedIn.Error()})
		case errors.Is(err, services.ErrEmptyName):
			c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrEmptyName.Error()})
		default:
			// The failure is also on the error bus; this response keeps the
			// client's form open with a message.
			c.JSON(http.StatusForbidden, gin.H{"error": "Failed to add item"})
		}
		return
	}

	c.JSON(http.StatusCreated, item)
}

// UpdateItem applies a partial update.
// PATCH /inventory/:id
func (ic *InventoryController) UpdateItem(c *gin.Context) {
	var req models.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	err := ic.service.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotSignedIn):
			c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrNotSignedIn.Error()})
		case errors.Is(err, services.ErrEmptyName):
			c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrEmptyName.Error()})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		default:
			c.JSON(http.StatusForbidden, gin.H{"error": "Failed to update item"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// DeleteItem removes an item, fire-and-forget: the response acknowledges the
// attempt, and the outcome reaches clients through the live stream.
// DELETE /inventory/:id
func (ic *InventoryController) DeleteItem(c *gin.Context) {
	err := ic.service.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrNotSignedIn.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// StreamItems holds an SSE connection open and pushes the full classified
// snapshot on every store change. A once-a-minute tick re-derives statuses
// so an untouched item still moves from EXPIRING_SOON to EXPIRED when its
// expiry instant passes.
// GET /inventory/stream?status=ALL&q=
func (ic *InventoryController) StreamItems(c *gin.Context) {
	bucket, ok := views.ParseBucket(c.Query("status"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status filter"})
		return
	}
	query := c.Query("q")

	ctx := c.Request.Context()
	sync, err := ic.service.OpenSync(ctx, middleware.CurrentUser(c))
	defer sync.Stop()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	if err != nil {
		// Already published on the error bus; the client just sees an empty,
		// non-loading view.
		c.SSEvent("snapshot", gin.H{"items": []models.InventoryItemWithStatus{}, "summary": views.Summary{}, "loading": false})
		c.Writer.Flush()
		return
	}

	updates, unsubscribe := sync.Updates()
	defer unsubscribe()

	memo := &views.Memo{}
	send := func() {
		raw, version := sync.Items()
		classified := ic.service.Classify(raw)
		visible, summary := memo.Project(classified, version, bucket, query, time.Now())
		c.SSEvent("snapshot", gin.H{
			"items":   visible,
			"summary": summary,
			"loading": sync.Loading(),
		})
		c.Writer.Flush()
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	send()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			send()
		case <-ticker.C:
			memo.Invalidate()
			send()
		}
	}
}
