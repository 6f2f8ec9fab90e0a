package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kursio/kursio/internal/interfaces/http/handlers"
	"github.com/kursio/kursio/internal/interfaces/http/middleware"
)

// AuthRouteConfig holds dependencies for account routes.
type AuthRouteConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	LoginLimiter   *middleware.RateLimiter
}

func SetupAuthRoutes(api *gin.RouterGroup, cfg *AuthRouteConfig) {
	api.POST("/register", cfg.LoginLimiter.Limit(), cfg.AuthHandler.Register)
	api.POST("/login", cfg.LoginLimiter.Limit(), cfg.AuthHandler.Login)
	api.GET("/me", cfg.AuthMiddleware.RequireAuth(), cfg.AuthHandler.Me)
}
