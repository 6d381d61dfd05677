package handler

import (
	"net/http"

	"go-gin-bus-booking/config"
	"go-gin-bus-booking/internal/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine with the shared middleware and every handler's routes.
func NewRouter(cfg *config.Config, handlers ...Registrar) *gin.Engine {
	router := gin.New()
	// handlers pass *gin.Context down as context.Context
	router.ContextWithFallback = true
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.CORS(cfg.Server),
	)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	if cfg.Storage.Dir != "" {
		router.Static("/uploads", cfg.Storage.Dir)
	}

	groups := NewGroups(router, cfg.Auth)
	for _, h := range handlers {
		h.RegisterRoutes(groups)
	}

	return router
}
