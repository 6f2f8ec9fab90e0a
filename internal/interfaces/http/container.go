package http

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	adminUsecases "github.com/kursio/kursio/internal/application/admin/usecases"
	"github.com/kursio/kursio/internal/infrastructure/config"
	"github.com/kursio/kursio/internal/infrastructure/metrics"
	"github.com/kursio/kursio/internal/infrastructure/scheduler"
	"github.com/kursio/kursio/internal/interfaces/http/middleware"
	"github.com/kursio/kursio/internal/shared/logger"
)

// Container wires storage, billing, use cases and handlers together and
// owns the resources that must be released on shutdown.
type Container struct {
	engine  *gin.Engine
	db      *gorm.DB
	cfg     *config.Config
	log     logger.Interface
	redis   *redis.Client
	redisUp bool // false when the startup ping failed
	metrics *metrics.Metrics

	repos *repositories
	svcs  *services
	ucs   *allUseCases
	hdlrs *allHandlers

	authMiddleware       *middleware.AuthMiddleware
	permissionMiddleware *middleware.PermissionMiddleware
	loginLimiter         *middleware.RateLimiter

	schedulerManager *scheduler.SchedulerManager
}

// NewContainer builds the full dependency graph. db may be nil when the
// redis store backend is selected.
func NewContainer(db *gorm.DB, cfg *config.Config, log logger.Interface) (*Container, error) {
	c := &Container{
		engine:  gin.New(),
		db:      db,
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
	}

	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}
	if err := c.initServices(); err != nil {
		c.Shutdown()
		return nil, err
	}
	c.initUseCases()
	c.initHandlers()
	c.initMiddlewares()

	return c, nil
}

// ReconcileUser exposes the single-user reconciliation for the CLI.
func (c *Container) ReconcileUser() *adminUsecases.ReconcileUserUseCase {
	return c.ucs.reconcileUser
}

// ReconcileAll exposes the sweep for the CLI.
func (c *Container) ReconcileAll() *adminUsecases.ReconcileAllUseCase {
	return c.ucs.reconcileAll
}

// Shutdown stops the scheduler and closes the redis client. The database
// handle belongs to the caller.
func (c *Container) Shutdown() {
	if c.schedulerManager != nil {
		_ = c.schedulerManager.Stop()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warnw("failed to close redis client", "error", err)
		}
	}
}

func (c *Container) storeBackend() string {
	return c.cfg.Store.Backend
}

func (c *Container) requireDB() error {
	if c.db == nil {
		return fmt.Errorf("store backend %q requires a database connection", c.storeBackend())
	}
	return nil
}
