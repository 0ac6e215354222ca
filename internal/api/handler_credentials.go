package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"device-monitor-backend/internal/model"
)

type saveCredentialsRequest struct {
	Username  string         `json:"username" binding:"required"`
	Password  string         `json:"password" binding:"required"`
	AuthMode  model.AuthMode `json:"authMode"`
	APIKey    string         `json:"apiKey"`
	APISecret string         `json:"apiSecret"`
}

// GetCredentials returns the stored credential set with secrets stripped.
func (h *Handler) GetCredentials(c *gin.Context) {
	cred, err := h.store.GetCredentials(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "no credentials configured")
		return
	}
	// Password and APISecret are excluded by their JSON tags.
	c.JSON(http.StatusOK, cred)
}

// SaveCredentials replaces the active credential set.
func (h *Handler) SaveCredentials(c *gin.Context) {
	var req saveCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials data"})
		return
	}

	switch req.AuthMode {
	case "", model.AuthModeSessionTicket:
		req.AuthMode = model.AuthModeSessionTicket
	case model.AuthModeAPIKey:
		if req.APIKey == "" || req.APISecret == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "apiKey and apiSecret are required for api_key mode"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown auth mode"})
		return
	}

	cred := &model.Credential{
		Username:  req.Username,
		Password:  req.Password,
		AuthMode:  req.AuthMode,
		APIKey:    req.APIKey,
		APISecret: req.APISecret,
	}
	if err := h.store.SaveCredentials(c.Request.Context(), cred); err != nil {
		h.respondStoreError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, cred)
}

// LegacySync rejects the old full-catalog sync, which the vendor API no
// longer supports, and points callers at the serial-based sync instead.
func (h *Handler) LegacySync(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": "full-catalog sync is not supported by the current vendor API",
		"hint":  "sync devices by serial number via POST /api/branches/:id/sync-devices or /api/branches/create-with-devices",
	})
}
