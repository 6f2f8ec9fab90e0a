package http

import (
	"fmt"
	"time"

	"github.com/kursio/kursio/internal/application/subscription"
	"github.com/kursio/kursio/internal/infrastructure/auth"
	"github.com/kursio/kursio/internal/infrastructure/payment"
	"github.com/kursio/kursio/internal/infrastructure/permission"
	"github.com/kursio/kursio/internal/infrastructure/pubsub"
	"github.com/kursio/kursio/internal/infrastructure/ratelimit"
	sharedConfig "github.com/kursio/kursio/internal/shared/config"
)

type services struct {
	hasher           *auth.BcryptPasswordHasher
	jwt              *auth.JWTService
	stripe           *payment.StripeProvider
	webhookVerifier  *payment.WebhookVerifier
	reconciler       *subscription.Reconciler
	webhookProcessor *subscription.WebhookProcessor
	enforcer         *permission.Enforcer
	rateLimiter      *ratelimit.RedisRateLimiter
}

func (c *Container) initServices() error {
	cfg := c.cfg

	stripeProvider := payment.NewStripeProvider(payment.StripeConfig{
		SecretKey: cfg.Stripe.SecretKey,
		ListLimit: cfg.Stripe.ListLimit,
		Timeout:   time.Duration(cfg.Stripe.TimeoutSeconds) * time.Second,
	}, c.log.Named("stripe"))
	if cfg.Stripe.SecretKey == "" {
		c.log.Warnw("stripe.secret_key is empty, billing calls will fail and reconciliation will serve cached statuses")
	}
	if cfg.Stripe.WebhookSecret == "" {
		c.log.Warnw("stripe.webhook_secret is empty, every webhook delivery will be rejected")
	}

	// Casbin policies live next to the users in Postgres; the redis backend
	// keeps them in memory and re-seeds on start.
	enforcerDB := c.db
	if c.storeBackend() == sharedConfig.StoreBackendRedis {
		enforcerDB = nil
	}
	enforcer, err := permission.NewEnforcer(enforcerDB, c.log.Named("permission"))
	if err != nil {
		return fmt.Errorf("failed to create permission enforcer: %w", err)
	}
	if err := enforcer.SeedDefaultPolicies(); err != nil {
		return fmt.Errorf("failed to seed permission policies: %w", err)
	}

	var notifier subscription.StatusNotifier
	if cfg.Redis.StatusEvents && c.redisUp {
		bus := pubsub.NewRedisStatusEventBus(c.redis, redisPrefix(cfg), c.log.Named("pubsub"))
		c.log.Infow("publishing subscription status changes", "channel", bus.Channel())
		notifier = bus
	}

	reconciler := subscription.NewReconciler(
		c.repos.userRepo,
		stripeProvider,
		c.log.Named("reconciler"),
		subscription.WithMetrics(c.metrics),
		subscription.WithStatusNotifier(notifier),
	)

	c.svcs = &services{
		hasher:           auth.NewBcryptPasswordHasher(cfg.Auth.Password.BcryptCost),
		jwt:              auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes),
		stripe:           stripeProvider,
		webhookVerifier:  payment.NewWebhookVerifier(cfg.Stripe.WebhookSecret),
		reconciler:       reconciler,
		webhookProcessor: subscription.NewWebhookProcessor(
			c.repos.userRepo,
			c.repos.eventLog,
			c.metrics,
			c.log.Named("webhook"),
			subscription.WithWebhookNotifier(notifier),
		),
		enforcer:    enforcer,
		rateLimiter: ratelimit.NewRedisRateLimiter(c.redis, redisPrefix(cfg)),
	}
	return nil
}
