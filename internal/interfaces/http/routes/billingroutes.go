package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kursio/kursio/internal/interfaces/http/handlers"
	"github.com/kursio/kursio/internal/interfaces/http/middleware"
)

type BillingRouteConfig struct {
	BillingHandler *handlers.BillingHandler
	WebhookHandler *handlers.WebhookHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupBillingRoutes(api *gin.RouterGroup, cfg *BillingRouteConfig) {
	billing := api.Group("/billing")
	billing.Use(cfg.AuthMiddleware.RequireAuth())
	{
		billing.POST("/checkout-session", cfg.BillingHandler.CreateCheckoutSession)
		billing.POST("/portal-session", cfg.BillingHandler.CreatePortalSession)
	}

	// Authenticated by the Stripe signature, not a session token.
	api.POST("/webhook", cfg.WebhookHandler.Handle)
}
