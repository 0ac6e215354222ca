package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"device-monitor-backend/internal/model"
	"device-monitor-backend/internal/recon"
	"device-monitor-backend/internal/store"
)

type createBranchRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	State string `json:"state" binding:"required"`
}

type updateBranchRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	State *string `json:"state"`
}

type createBranchWithDevicesRequest struct {
	Name    string   `json:"name" binding:"required"`
	Email   string   `json:"email" binding:"required"`
	State   string   `json:"state" binding:"required"`
	Serials []string `json:"serials"`
}

type syncBranchDevicesRequest struct {
	Serials []string `json:"serials" binding:"required"`
}

// ListBranches returns all branches.
func (h *Handler) ListBranches(c *gin.Context) {
	branches, err := h.store.ListBranches(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, branches)
}

// GetBranch returns one branch by id.
func (h *Handler) GetBranch(c *gin.Context) {
	branch, err := h.store.GetBranch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err, "branch not found")
		return
	}
	c.JSON(http.StatusOK, branch)
}

// CreateBranch creates a branch.
func (h *Handler) CreateBranch(c *gin.Context) {
	var req createBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid branch data"})
		return
	}

	branch := &model.Branch{Name: req.Name, Email: req.Email, State: req.State}
	if err := h.store.CreateBranch(c.Request.Context(), branch); err != nil {
		h.respondStoreError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, branch)
}

// UpdateBranch applies a partial update to a branch.
func (h *Handler) UpdateBranch(c *gin.Context) {
	var req updateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid branch data"})
		return
	}

	branch, err := h.store.UpdateBranch(c.Request.Context(), c.Param("id"), store.BranchPatch{
		Name:  req.Name,
		Email: req.Email,
		State: req.State,
	})
	if err != nil {
		h.respondStoreError(c, err, "branch not found")
		return
	}
	c.JSON(http.StatusOK, branch)
}

// DeleteBranch removes a branch. Devices mapped to it are left in place
// with their branchId intact.
func (h *Handler) DeleteBranch(c *gin.Context) {
	if err := h.store.DeleteBranch(c.Request.Context(), c.Param("id")); err != nil {
		h.respondStoreError(c, err, "branch not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CreateBranchWithDevices creates a branch and syncs the given serials from
// the vendor portal into it. The branch is kept even when the sync fails;
// the response then carries a syncError instead of a count.
func (h *Handler) CreateBranchWithDevices(c *gin.Context) {
	var req createBranchWithDevicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid branch data"})
		return
	}

	branch := &model.Branch{Name: req.Name, Email: req.Email, State: req.State}
	if err := h.store.CreateBranch(c.Request.Context(), branch); err != nil {
		h.respondStoreError(c, err, "")
		return
	}

	if len(req.Serials) == 0 {
		c.JSON(http.StatusOK, gin.H{"branch": branch, "devicesSynced": 0})
		return
	}

	synced, err := h.recon.SyncSerials(c.Request.Context(), req.Serials, &branch.ID)
	if err != nil {
		h.log.WithError(err).Error("device sync failed for new branch")
		c.JSON(http.StatusOK, gin.H{
			"branch":        branch,
			"devicesSynced": 0,
			"syncError":     syncErrorMessage(err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"branch": branch, "devicesSynced": synced})
}

// SyncBranchDevices syncs vendor devices by serial into an existing branch.
func (h *Handler) SyncBranchDevices(c *gin.Context) {
	var req syncBranchDevicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serials are required"})
		return
	}

	branch, err := h.store.GetBranch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err, "branch not found")
		return
	}

	synced, err := h.recon.SyncSerials(c.Request.Context(), req.Serials, &branch.ID)
	if err != nil {
		if errors.Is(err, recon.ErrNoCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no credentials configured"})
			return
		}
		h.log.WithError(err).Error("device sync failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": syncErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "devicesSynced": synced})
}

func syncErrorMessage(err error) string {
	if errors.Is(err, recon.ErrNoCredentials) {
		return "no credentials configured"
	}
	return "failed to fetch devices from the vendor portal"
}
