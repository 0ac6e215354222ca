package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"device-monitor-backend/internal/recon"
	"device-monitor-backend/internal/store"
)

type assignBranchRequest struct {
	BranchID *string `json:"branchId"`
}

// ListDevices returns all known devices.
func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.store.ListDevices(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, devices)
}

// GetDeviceHistory returns a device's status transitions, newest first.
func (h *Handler) GetDeviceHistory(c *gin.Context) {
	if _, err := h.store.GetDevice(c.Request.Context(), c.Param("id")); err != nil {
		h.respondStoreError(c, err, "device not found")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := h.store.ListDeviceHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.respondStoreError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// AssignDeviceBranch maps a device to a branch, or unassigns it when
// branchId is null or empty.
func (h *Handler) AssignDeviceBranch(c *gin.Context) {
	var req assignBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	branchID := ""
	if req.BranchID != nil {
		branchID = *req.BranchID
	}
	if branchID != "" {
		if _, err := h.store.GetBranch(c.Request.Context(), branchID); err != nil {
			h.respondStoreError(c, err, "branch not found")
			return
		}
	}

	device, err := h.store.UpdateDevice(c.Request.Context(), c.Param("id"), store.DevicePatch{
		BranchID: &branchID,
	})
	if err != nil {
		h.respondStoreError(c, err, "device not found")
		return
	}
	c.JSON(http.StatusOK, device)
}

// CheckDeviceStatus manually triggers a full status reconciliation.
func (h *Handler) CheckDeviceStatus(c *gin.Context) {
	checked, _, err := h.recon.CheckAllStatuses(c.Request.Context())
	if err != nil {
		if errors.Is(err, recon.ErrNoCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no credentials configured"})
			return
		}
		h.log.WithError(err).Error("manual status check failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to check device status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "checked": checked})
}
