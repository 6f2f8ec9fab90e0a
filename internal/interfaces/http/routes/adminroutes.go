package routes

import (
	"github.com/gin-gonic/gin"

	adminHandlers "github.com/kursio/kursio/internal/interfaces/http/handlers/admin"
	"github.com/kursio/kursio/internal/interfaces/http/middleware"
)

type AdminRouteConfig struct {
	SubscriberHandler    *adminHandlers.SubscriberHandler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
}

func SetupAdminRoutes(api *gin.RouterGroup, cfg *AdminRouteConfig) {
	admin := api.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAuth(), cfg.PermissionMiddleware.RequirePolicy())
	{
		admin.GET("/users", cfg.SubscriberHandler.ListUsers)
		admin.POST("/users/:id/reconcile", cfg.SubscriberHandler.ReconcileUser)
		admin.POST("/reconcile", cfg.SubscriberHandler.ReconcileAll)
		admin.GET("/webhook-events", cfg.SubscriberHandler.RecentWebhookEvents)
	}
}
