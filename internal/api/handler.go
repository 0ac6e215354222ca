package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"device-monitor-backend/internal/recon"
	"device-monitor-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store store.Store
	recon *recon.Service
	log   *logrus.Entry
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, reconSvc *recon.Service, logger *logrus.Entry) *Handler {
	return &Handler{
		store: s,
		recon: reconSvc,
		log:   logger,
	}
}

// respondStoreError maps a store failure onto an HTTP response without
// leaking backend details.
func (h *Handler) respondStoreError(c *gin.Context, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}
	h.log.WithError(err).Error("storage operation failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
}
