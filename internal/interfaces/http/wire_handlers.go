package http

import (
	"context"
	"time"

	"github.com/kursio/kursio/internal/interfaces/http/handlers"
	adminHandlers "github.com/kursio/kursio/internal/interfaces/http/handlers/admin"
	"github.com/kursio/kursio/internal/interfaces/http/middleware"
	sharedConfig "github.com/kursio/kursio/internal/shared/config"
)

type allHandlers struct {
	auth         *handlers.AuthHandler
	subscription *handlers.SubscriptionHandler
	billing      *handlers.BillingHandler
	webhook      *handlers.WebhookHandler
	health       *handlers.HealthHandler
	subscribers  *adminHandlers.SubscriberHandler
}

func (c *Container) initHandlers() {
	log := c.log
	ucs := c.ucs

	c.hdlrs = &allHandlers{
		auth:         handlers.NewAuthHandler(ucs.register, ucs.login, ucs.getProfile, log),
		subscription: handlers.NewSubscriptionHandler(ucs.getStatus, ucs.forceCheck, log),
		billing:      handlers.NewBillingHandler(ucs.createCheckout, ucs.createPortal, log),
		webhook:      handlers.NewWebhookHandler(c.svcs.webhookVerifier, c.svcs.webhookProcessor, log.Named("webhook")),
		health:       handlers.NewHealthHandler(c.storeBackend(), c.storePing()),
		subscribers:  adminHandlers.NewSubscriberHandler(ucs.listSubscribers, ucs.reconcileUser, ucs.reconcileAll, c.repos.eventLog, log.Named("admin")),
	}
}

func (c *Container) initMiddlewares() {
	c.authMiddleware = middleware.NewAuthMiddleware(c.svcs.jwt, c.log)
	c.permissionMiddleware = middleware.NewPermissionMiddleware(c.svcs.enforcer, c.log)
	c.loginLimiter = middleware.NewRateLimiter(c.svcs.rateLimiter, "login", c.cfg.RateLimit.LoginPerMinute, time.Minute, c.log)
}

func (c *Container) storePing() handlers.Pinger {
	if c.storeBackend() == sharedConfig.StoreBackendRedis {
		return func(ctx context.Context) error {
			return c.redis.Ping(ctx).Err()
		}
	}
	return func(ctx context.Context) error {
		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
