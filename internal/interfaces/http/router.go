package http

import (
	"github.com/gin-gonic/gin"

	"github.com/kursio/kursio/internal/interfaces/http/middleware"
	"github.com/kursio/kursio/internal/interfaces/http/routes"
)

// Router serves the API on top of a wired Container.
type Router struct {
	*Container
}

func NewRouter(c *Container) *Router {
	return &Router{Container: c}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.CustomLogger(r.log, r.metrics))
	r.engine.Use(middleware.Recovery(r.log))
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))

	r.engine.GET("/health", r.hdlrs.health.Health)
	r.engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	api := r.engine.Group("/api")

	routes.SetupAuthRoutes(api, &routes.AuthRouteConfig{
		AuthHandler:    r.hdlrs.auth,
		AuthMiddleware: r.authMiddleware,
		LoginLimiter:   r.loginLimiter,
	})

	routes.SetupSubscriptionRoutes(api, &routes.SubscriptionRouteConfig{
		SubscriptionHandler: r.hdlrs.subscription,
		AuthMiddleware:      r.authMiddleware,
	})

	routes.SetupBillingRoutes(api, &routes.BillingRouteConfig{
		BillingHandler: r.hdlrs.billing,
		WebhookHandler: r.hdlrs.webhook,
		AuthMiddleware: r.authMiddleware,
	})

	routes.SetupAdminRoutes(api, &routes.AdminRouteConfig{
		SubscriberHandler:    r.hdlrs.subscribers,
		AuthMiddleware:       r.authMiddleware,
		PermissionMiddleware: r.permissionMiddleware,
	})
}

// GetEngine returns the gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
