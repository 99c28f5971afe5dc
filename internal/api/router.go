package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"tortoise-backend/config"
	"tortoise-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 10*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Supplier portal
		api.GET("/devices", h.ListDevices)
		api.POST("/devices", h.CreateDevice)
		api.GET("/devices/:id", h.GetDevice)
		api.PATCH("/devices/:id", h.UpdateDevice)
		api.DELETE("/devices/:id", h.DeleteDevice)
		api.PUT("/devices/:id/stock", h.UpdateStock)

		api.POST("/devices/:id/offers", h.AddOffer)
		api.DELETE("/devices/:id/offers/:offer_id", h.RemoveOffer)
		api.POST("/devices/:id/offers/:offer_id/toggle", h.ToggleOffer)

		api.GET("/dashboard/summary", caching, h.DashboardSummary)
		api.GET("/dashboard/trend", caching, h.DashboardTrend)

		// Employee marketplace
		api.GET("/marketplace/devices", caching, h.ListMarketplace)
		api.POST("/marketplace/lease", h.Lease)

		// Push subscriptions
		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
