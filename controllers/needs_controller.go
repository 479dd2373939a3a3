package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/middleware"
	"github.com/meatvault/stock-service/models"
	"github.com/meatvault/stock-service/repository"
	"github.com/meatvault/stock-service/services"
)

// NeedsController handles HTTP requests for the reorder list.
type NeedsController struct {
	service *services.NeedsService
	log     *zap.Logger
}

func NewNeedsController(service *services.NeedsService, log *zap.Logger) *NeedsController {
	return &NeedsController{service: service, log: log}
}

// GetNeeds returns the reorder list, newest first.
// GET /needs
func (nc *NeedsController) GetNeeds(c *gin.Context) {
	needs, err := nc.service.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		if errors.Is(err, services.ErrNotSignedIn) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrNotSignedIn.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch needs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"needs": needs})
}

// CreateNeed adds a reorder entry.
// POST /needs
func (nc *NeedsController) CreateNeed(c *gin.Context) {
	var req models.CreateNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	need, err := nc.service.AddNeed(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotSignedIn):
			c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrNotSignedIn.Error()})
		case errors.Is(err, services.ErrEmptyName):
			c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrEmptyName.Error()})
		default:
			c.JSON(http.StatusForbidden, gin.H{"error": "Failed to add need"})
		}
		return
	}

	c.JSON(http.StatusCreated, need)
}

// UpdateNeed applies a partial update to a reorder entry.
// PATCH /needs/:id
func (nc *NeedsController) UpdateNeed(c *gin.Context) {
	var req models.UpdateNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	err := nc.service.UpdateNeed(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotSignedIn):
			c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrNotSignedIn.Error()})
		case errors.Is(err, services.ErrEmptyName):
			c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrEmptyName.Error()})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Need not found"})
		default:
			c.JSON(http.StatusForbidden, gin.H{"error": "Failed to update need"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// DeleteNeed removes a reorder entry, fire-and-forget.
// DELETE /needs/:id
func (nc *NeedsController) DeleteNeed(c *gin.Context) {
	err := nc.service.DeleteNeed(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrNotSignedIn.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// StreamNeeds pushes the full reorder list on every store change.
// GET /needs/stream
func (nc *NeedsController) StreamNeeds(c *gin.Context) {
	ctx := c.Request.Context()
	sync, err := nc.service.OpenSync(ctx, middleware.CurrentUser(c))
	defer sync.Stop()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	if err != nil {
		c.SSEvent("snapshot", gin.H{"needs": []models.NeedItem{}, "loading": false})
		c.Writer.Flush()
		return
	}

	updates, unsubscribe := sync.Updates()
	defer unsubscribe()

	send := func() {
		needs, _ := sync.Items()
		c.SSEvent("snapshot", gin.H{"needs": needs, "loading": sync.Loading()})
		c.Writer.Flush()
	}

	send()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			send()
		}
	}
}
