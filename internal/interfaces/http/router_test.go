package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kursio/kursio/internal/infrastructure/migration"
	"github.com/kursio/kursio/internal/infrastructure/persistence/models"
	sharedConfig "github.com/kursio/kursio/internal/shared/config"
	"github.com/kursio/kursio/internal/shared/constants"
	"github.com/kursio/kursio/internal/shared/logger"
)

const testWebhookSecret = "whsec_router_test"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	redis  *redis.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, migration.NewAutoMigrateStrategy().Migrate(db))

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := &sharedConfig.Config{
		Server: sharedConfig.ServerConfig{Mode: "test", AllowedOrigins: []string{"*"}},
		Auth: sharedConfig.AuthConfig{
			Password: sharedConfig.PasswordConfig{BcryptCost: 4},
			JWT:      sharedConfig.JWTConfig{Secret: "router-test-secret", AccessExpMinutes: 60},
		},
		Redis:     sharedConfig.RedisConfig{Host: mr.Host(), Port: port, KeyPrefix: "kursio", StatusEvents: true},
		Store:     sharedConfig.StoreConfig{Backend: sharedConfig.StoreBackendPostgres, EventLogSize: 100},
		Stripe:    sharedConfig.StripeConfig{WebhookSecret: testWebhookSecret, ListLimit: 10, TimeoutSeconds: 1},
		Reconcile: sharedConfig.ReconcileConfig{Concurrency: 2, PageSize: 10},
		RateLimit: sharedConfig.RateLimitConfig{LoginPerMinute: 100},
	}

	c, err := NewContainer(db, cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	router := NewRouter(c)
	router.SetupRoutes()
	return &testServer{engine: router.GetEngine(), db: db, redis: client}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"email": email, "name": "Test User", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var u struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &u))
	return u.ID
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var result struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kursio_http_requests_total")
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/me", "/api/subscription/subscription-status"} {
		w := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := s.do(t, http.MethodPost, "/api/subscription/force-check-subscription", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_LoginWithWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ola@example.pl")

	w := s.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ola@example.pl", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_StatusWithoutBillingCustomer(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ola@example.pl")
	token := s.login(t, "ola@example.pl")

	w := s.do(t, http.MethodGet, "/api/subscription/subscription-status", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var status struct {
		IsSubscribed bool            `json:"isSubscribed"`
		Details      json.RawMessage `json:"subscriptionDetails"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.False(t, status.IsSubscribed)
	assert.Equal(t, "null", string(status.Details))
}

func TestRouter_WebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader([]byte(`{"id":"evt_x"}`)))
	req.Header.Set(constants.HeaderStripeSignature, "t=1,v1=00")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_CheckoutWebhookActivatesUser(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "ola@example.pl")
	token := s.login(t, "ola@example.pl")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events := s.redis.Subscribe(ctx, "kursio:subscription:status")
	defer events.Close()
	_, err := events.Receive(ctx)
	require.NoError(t, err)

	payload := fmt.Sprintf(`{"id":"evt_checkout","object":"event","type":"checkout.session.completed","data":{"object":{
		"id":"cs_1","mode":"subscription","customer":"cus_router","subscription":"sub_router",
		"client_reference_id":%q}}}`, userID)
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(signed.Payload))
	req.Header.Set(constants.HeaderStripeSignature, signed.Header)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"received":true}`, w.Body.String())

	select {
	case msg := <-events.Channel():
		var ev struct {
			UserID  string `json:"user_id"`
			Status  string `json:"status"`
			Origin  string `json:"origin"`
			EventID string `json:"event_id"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, userID, ev.UserID)
		assert.Equal(t, "active", ev.Status)
		assert.Equal(t, "webhook", ev.Origin)
		assert.Equal(t, "evt_checkout", ev.EventID)
	case <-ctx.Done():
		t.Fatal("status change was not published")
	}

	w = s.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var me struct {
		IsSubscribed      bool   `json:"isSubscribed"`
		Status            string `json:"subscriptionStatus"`
		HasBillingAccount bool   `json:"hasBillingAccount"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	assert.True(t, me.IsSubscribed)
	assert.Equal(t, "active", me.Status)
	assert.True(t, me.HasBillingAccount)
}

func TestRouter_AdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "student@example.pl")
	s.register(t, "support@example.pl")
	require.NoError(t, s.db.Model(&models.UserModel{}).
		Where("email = ?", "support@example.pl").
		Update("is_admin", true).Error)

	studentToken := s.login(t, "student@example.pl")
	adminToken := s.login(t, "support@example.pl")

	w := s.do(t, http.MethodGet, "/api/admin/users", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/users?page=1&page_size=10", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total":2`)

	w = s.do(t, http.MethodPost, "/api/admin/reconcile", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"checked":0`)

	w = s.do(t, http.MethodGet, "/api/admin/webhook-events", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestContainer_StartSchedulerDisabledByDefault(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, migration.NewAutoMigrateStrategy().Migrate(db))

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := &sharedConfig.Config{
		Redis: sharedConfig.RedisConfig{Host: mr.Host(), Port: port},
		Store: sharedConfig.StoreConfig{Backend: sharedConfig.StoreBackendPostgres},
	}
	c, err := NewContainer(db, cfg, logger.NewNopLogger())
	require.NoError(t, err)
	defer c.Shutdown()

	require.NoError(t, c.StartScheduler())
	assert.Nil(t, c.schedulerManager)

	c.cfg.Reconcile.Schedule = "0 3 * * *"
	c.cfg.Reconcile.Timezone = "Europe/Warsaw"
	require.NoError(t, c.StartScheduler())
	require.NotNil(t, c.schedulerManager)
	assert.True(t, c.schedulerManager.IsStarted())
}
