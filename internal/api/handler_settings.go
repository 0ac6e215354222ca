package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"device-monitor-backend/internal/model"
	"device-monitor-backend/internal/store"
)

type saveSettingsRequest struct {
	Enabled       *bool  `json:"enabled"`
	Email         string `json:"email" binding:"required,email"`
	Threshold     int    `json:"threshold"`
	CheckInterval int    `json:"checkInterval"`
	OfflineAlert  *bool  `json:"offlineAlert"`
	OnlineAlert   *bool  `json:"onlineAlert"`
}

// GetNotificationSettings returns the singleton settings, or null when none
// have been saved yet.
func (h *Handler) GetNotificationSettings(c *gin.Context) {
	settings, err := h.store.GetNotificationSettings(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, nil)
		return
	}
	if err != nil {
		h.respondStoreError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SaveNotificationSettings replaces the singleton settings row.
func (h *Handler) SaveNotificationSettings(c *gin.Context) {
	var req saveSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification settings"})
		return
	}

	settings := &model.NotificationSettings{
		Enabled:       true,
		Email:         req.Email,
		Threshold:     req.Threshold,
		CheckInterval: req.CheckInterval,
		OfflineAlert:  true,
	}
	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}
	if req.OfflineAlert != nil {
		settings.OfflineAlert = *req.OfflineAlert
	}
	if req.OnlineAlert != nil {
		settings.OnlineAlert = *req.OnlineAlert
	}
	if settings.Threshold <= 0 {
		settings.Threshold = 10
	}
	if settings.CheckInterval <= 0 {
		settings.CheckInterval = 15
	}

	if err := h.store.SaveNotificationSettings(c.Request.Context(), settings); err != nil {
		h.respondStoreError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, settings)
}
