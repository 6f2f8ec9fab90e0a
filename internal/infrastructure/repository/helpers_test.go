package repository

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kursio/kursio/internal/domain/user"
	"github.com/kursio/kursio/internal/infrastructure/persistence/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.WebhookEventModel{}))
	return db
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func buildUser(t *testing.T, id, email, customerID, status string, created time.Time) *user.User {
	t.Helper()
	u, err := user.ReconstructUser(user.Snapshot{
		ID:                 id,
		Email:              email,
		Name:               "Jan Nowak",
		PasswordHash:       "hash",
		StripeCustomerID:   customerID,
		SubscriptionStatus: status,
		CreatedAt:          created,
		UpdatedAt:          created,
	})
	require.NoError(t, err)
	return u
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
