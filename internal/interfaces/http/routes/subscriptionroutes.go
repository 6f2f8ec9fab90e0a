package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kursio/kursio/internal/interfaces/http/handlers"
	"github.com/kursio/kursio/internal/interfaces/http/middleware"
)

type SubscriptionRouteConfig struct {
	SubscriptionHandler *handlers.SubscriptionHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

func SetupSubscriptionRoutes(api *gin.RouterGroup, cfg *SubscriptionRouteConfig) {
	sub := api.Group("/subscription")
	sub.Use(cfg.AuthMiddleware.RequireAuth())
	{
		sub.GET("/subscription-status", cfg.SubscriptionHandler.GetStatus)
		sub.POST("/force-check-subscription", cfg.SubscriptionHandler.ForceCheck)
	}
}
