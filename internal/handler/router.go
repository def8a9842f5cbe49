package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/noterag/internal/middleware"
)

type RouterDeps struct {
	Chat   *ChatHandler
	Health *HealthHandler

	// RateLimitWindow > 0 turns on per-client limiting for the chat route.
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Health.Health)

	chatGroup := api.Group("")
	if deps.RateLimitWindow > 0 {
		chatGroup.Use(middleware.RateLimit(deps.RateLimitWindow))
	}
	chatGroup.POST("/chat", deps.Chat.Chat)
}
