package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"device-monitor-backend/config"
	"device-monitor-backend/internal/mw"
	"device-monitor-backend/internal/recon"
	"device-monitor-backend/internal/store"
)

// NewRouter creates and configures the Gin router.
func NewRouter(s store.Store, reconSvc *recon.Service, cfg *config.ServerConfig, logger *logrus.Entry) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, reconSvc, logger)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/hik-connect/credentials", handler.GetCredentials)
		api.POST("/hik-connect/credentials", handler.SaveCredentials)
		api.POST("/hik-connect/sync", handler.LegacySync)

		api.GET("/branches", handler.ListBranches)
		api.POST("/branches", handler.CreateBranch)
		api.GET("/branches/:id", handler.GetBranch)
		api.PATCH("/branches/:id", handler.UpdateBranch)
		api.DELETE("/branches/:id", handler.DeleteBranch)
		api.POST("/branches/create-with-devices", handler.CreateBranchWithDevices)
		api.POST("/branches/:id/sync-devices", handler.SyncBranchDevices)

		api.GET("/devices", caching, handler.ListDevices)
		api.GET("/devices/:id/history", handler.GetDeviceHistory)
		api.PATCH("/devices/:id/branch", handler.AssignDeviceBranch)
		api.POST("/devices/check-status", handler.CheckDeviceStatus)

		api.GET("/notification-settings", handler.GetNotificationSettings)
		api.POST("/notification-settings", handler.SaveNotificationSettings)

		api.GET("/stats/chart-data", caching, handler.GetChartData)
	}

	return r
}
