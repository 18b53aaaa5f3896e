package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"cafe-board-backend/config"
	"cafe-board-backend/internal/mw"
)

// NewRouter creates and configures the staff-screen Gin router.
func NewRouter(cfg *config.ServerConfig, h *Handler) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		board := api.Group("/board")
		{
			board.GET("/orders", h.GetBoard)
			board.POST("/refresh", h.PostRefresh)
			board.POST("/orders/:id/drag", h.PostDrag)
			board.POST("/orders/:id/drag/end", h.PostDragEnd)
			board.POST("/orders/:id/reopen", h.PostReopen)
			board.GET("/orders/:id/items", h.GetItems)
			board.POST("/orders/:id/items/:index/toggle", h.PostItemToggle)
		}

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", caching, h.GetVAPIDPublicKey)
	}

	return r
}
