package subscription

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/domain/user"
	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
	"github.com/kursio/kursio/internal/shared/logger"
)

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	args := m.Called(ctx, customerID)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUserRepository) UpdateSubscription(ctx context.Context, id string, patch user.SubscriptionPatch) error {
	return m.Called(ctx, id, patch).Error(0)
}

func (m *mockUserRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	return m.Called(ctx, id, customerID).Error(0)
}

func (m *mockUserRepository) List(ctx context.Context, filter user.ListFilter) ([]*user.User, int64, error) {
	args := m.Called(ctx, filter)
	users, _ := args.Get(0).([]*user.User)
	return users, args.Get(1).(int64), args.Error(2)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateCustomer(ctx context.Context, p billing.CreateCustomerParams) (*billing.Customer, error) {
	args := m.Called(ctx, p)
	c, _ := args.Get(0).(*billing.Customer)
	return c, args.Error(1)
}

func (m *mockProvider) ListSubscriptions(ctx context.Context, customerID string) ([]billing.Subscription, error) {
	args := m.Called(ctx, customerID)
	subs, _ := args.Get(0).([]billing.Subscription)
	return subs, args.Error(1)
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, p billing.CreateCheckoutParams) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, p)
	s, _ := args.Get(0).(*billing.CheckoutSession)
	return s, args.Error(1)
}

func (m *mockProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

type memoryEventLog struct {
	entries []billing.EventLogEntry
}

func (l *memoryEventLog) Record(_ context.Context, e billing.EventLogEntry) error {
	l.entries = append(l.entries, e)
	return nil
}

func (l *memoryEventLog) Recent(_ context.Context, limit int) ([]billing.EventLogEntry, error) {
	if limit > len(l.entries) {
		limit = len(l.entries)
	}
	return l.entries[:limit], nil
}

type countingMetrics struct {
	reconcile map[string]int
	webhook   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{reconcile: map[string]int{}, webhook: map[string]int{}}
}

func (c *countingMetrics) ObserveReconcile(source, outcome string)  { c.reconcile[source+"/"+outcome]++ }
func (c *countingMetrics) ObserveWebhook(eventType, outcome string) { c.webhook[eventType+"/"+outcome]++ }

// newUser builds a stored user in the given state.
func newUser(t *testing.T, id, customerID string, status vo.SubscriptionStatus) *user.User {
	t.Helper()
	u, err := user.ReconstructUser(user.Snapshot{
		ID:                 id,
		Email:              id + "@example.pl",
		Name:               "Test User",
		PasswordHash:       "hash",
		StripeCustomerID:   customerID,
		SubscriptionStatus: status.String(),
	})
	require.NoError(t, err)
	return u
}

func nopLogger() logger.Interface {
	return logger.NewNopLogger()
}

type recordingNotifier struct {
	changes []StatusChange
	err     error
}

func (n *recordingNotifier) NotifyStatusChange(_ context.Context, c StatusChange) error {
	n.changes = append(n.changes, c)
	return n.err
}
