package web

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"goflare.io/statcrab"
	"goflare.io/statcrab/config"
)

// NewRouter builds the gin engine with all routes registered.
//
// Endpoints:
//
//	GET /health         - Health check
//	GET /api/stats-card - User statistics SVG card
//	GET /api/langs-card - Top languages SVG card
func NewRouter(svc *statcrab.Service, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	handlers := NewHandlers(svc, cfg, logger)
	RegisterRoutes(router, handlers)
	return router
}

// RegisterRoutes registers all routes with the router.
func RegisterRoutes(router *gin.Engine, handlers *Handlers) {
	router.GET("/health", handlers.HandleHealth)

	api := router.Group("/api")
	{
		api.GET("/stats-card", handlers.HandleStatsCard)
		api.GET("/langs-card", handlers.HandleLangsCard)
	}
}
