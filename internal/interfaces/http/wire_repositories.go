package http

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/domain/user"
	"github.com/kursio/kursio/internal/infrastructure/config"
	"github.com/kursio/kursio/internal/infrastructure/repository"
	sharedConfig "github.com/kursio/kursio/internal/shared/config"
	"github.com/kursio/kursio/internal/shared/logger"
)

type repositories struct {
	userRepo user.Repository
	eventLog billing.EventLog
}

// initInfrastructure connects redis and picks the user store. Redis is
// mandatory for the redis backend; otherwise it only backs rate limiting
// and an unreachable server is tolerated.
func (c *Container) initInfrastructure() error {
	client, err := initRedis(c.cfg, c.log)
	if err != nil {
		if c.storeBackend() == sharedConfig.StoreBackendRedis {
			_ = client.Close()
			return err
		}
		c.log.Warnw("redis unavailable, login rate limiting will fail open", "error", err)
	}
	c.redis = client
	c.redisUp = err == nil

	switch c.storeBackend() {
	case sharedConfig.StoreBackendRedis:
		prefix := redisPrefix(c.cfg)
		c.repos = &repositories{
			userRepo: repository.NewRedisUserRepository(client, prefix, c.log),
			eventLog: repository.NewRedisEventLog(client, prefix, c.cfg.Store.EventLogSize),
		}
	default:
		if err := c.requireDB(); err != nil {
			return err
		}
		c.repos = &repositories{
			userRepo: repository.NewUserRepository(c.db, c.log),
			eventLog: repository.NewWebhookEventRepository(c.db),
		}
	}

	c.log.Infow("user store selected", "backend", c.storeBackend())
	return nil
}

func initRedis(cfg *config.Config, log logger.Interface) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return redisClient, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.GetAddr(), err)
	}
	log.Infow("Redis connection established successfully", "addr", cfg.Redis.GetAddr())

	return redisClient, nil
}

func redisPrefix(cfg *config.Config) string {
	if cfg.Redis.KeyPrefix == "" {
		return ""
	}
	return cfg.Redis.KeyPrefix + ":"
}
