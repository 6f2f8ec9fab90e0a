package subscription

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/domain/user"
	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
	apperrors "github.com/kursio/kursio/internal/shared/errors"
)

func strPtr(s string) *string { return &s }

// =============================================================================
// Users without a billing customer
// =============================================================================

func TestReconciler_NoCustomer_AlreadyInactive_NoIO(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	u := newUser(t, "u1", "", vo.SubscriptionInactive)
	repo.On("GetByID", mock.Anything, "u1").Return(u, nil)

	r := NewReconciler(repo, provider, nopLogger())
	got, diag, err := r.Reconcile(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, vo.SubscriptionInactive, got.SubscriptionStatus())
	assert.Equal(t, SourceNoCustomer, diag.Source)
	assert.False(t, diag.Written)
	repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "ListSubscriptions", mock.Anything, mock.Anything)
}

func TestReconciler_NoCustomer_StaleActiveIsCleared(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	u := newUser(t, "u1", "", vo.SubscriptionActive)
	repo.On("GetByID", mock.Anything, "u1").Return(u, nil)
	repo.On("UpdateSubscription", mock.Anything, "u1", user.SubscriptionPatch{Status: vo.SubscriptionInactive}).Return(nil)

	r := NewReconciler(repo, provider, nopLogger())

	got, diag, err := r.Reconcile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, vo.SubscriptionInactive, got.SubscriptionStatus())
	assert.True(t, diag.Changed)
	assert.True(t, diag.Written)

	// second run against the now-updated record is a no-op
	got, diag, err = r.Reconcile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, vo.SubscriptionInactive, got.SubscriptionStatus())
	assert.False(t, diag.Written)

	repo.AssertNumberOfCalls(t, "UpdateSubscription", 1)
	provider.AssertNotCalled(t, "ListSubscriptions", mock.Anything, mock.Anything)
}

// =============================================================================
// Users with a billing customer
// =============================================================================

func TestReconciler_ActiveSubscriptionAtProvider_WritesOnce(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	u := newUser(t, "a", "cus_1", vo.SubscriptionInactive)
	repo.On("GetByID", mock.Anything, "a").Return(u, nil)
	provider.On("ListSubscriptions", mock.Anything, "cus_1").
		Return([]billing.Subscription{{ID: "sub_1", CustomerID: "cus_1", Status: "active"}}, nil)
	repo.On("UpdateSubscription", mock.Anything, "a", user.SubscriptionPatch{
		Status:               vo.SubscriptionActive,
		StripeSubscriptionID: strPtr("sub_1"),
	}).Return(nil)

	got, diag, err := NewReconciler(repo, provider, nopLogger()).Reconcile(context.Background(), "a")

	require.NoError(t, err)
	assert.Equal(t, vo.SubscriptionActive, got.SubscriptionStatus())
	assert.True(t, got.IsSubscribed())
	assert.Equal(t, "sub_1", got.StripeSubscriptionID())
	assert.Equal(t, vo.SubscriptionInactive, diag.PreviousStatus)
	require.NotNil(t, diag.LiveSubscription)
	assert.Equal(t, "sub_1", diag.LiveSubscription.ID)
	repo.AssertNumberOfCalls(t, "UpdateSubscription", 1)
	provider.AssertNumberOfCalls(t, "ListSubscriptions", 1)
}

func TestReconciler_CanceledAtProvider_BecomesInactive(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	u := newUser(t, "b", "cus_2", vo.SubscriptionActive)
	repo.On("GetByID", mock.Anything, "b").Return(u, nil)
	provider.On("ListSubscriptions", mock.Anything, "cus_2").
		Return([]billing.Subscription{{ID: "sub_2", CustomerID: "cus_2", Status: "canceled"}}, nil)
	repo.On("UpdateSubscription", mock.Anything, "b", user.SubscriptionPatch{Status: vo.SubscriptionInactive}).Return(nil)

	got, diag, err := NewReconciler(repo, provider, nopLogger()).Reconcile(context.Background(), "b")

	require.NoError(t, err)
	assert.Equal(t, vo.SubscriptionInactive, got.SubscriptionStatus())
	assert.True(t, diag.Changed)
	assert.Nil(t, diag.LiveSubscription)
	repo.AssertNumberOfCalls(t, "UpdateSubscription", 1)
}

func TestReconciler_StatusPolicy(t *testing.T) {
	tests := []struct {
		name     string
		subs     []billing.Subscription
		expected vo.SubscriptionStatus
	}{
		{"no subscriptions", nil, vo.SubscriptionInactive},
		{"trialing counts as live", []billing.Subscription{{ID: "sub_t", Status: "trialing"}}, vo.SubscriptionActive},
		{"past due is not live", []billing.Subscription{{ID: "sub_p", Status: "past_due"}}, vo.SubscriptionInactive},
		{"one live among several", []billing.Subscription{
			{ID: "sub_old", Status: "incomplete_expired"},
			{ID: "sub_new", Status: "active"},
		}, vo.SubscriptionActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockUserRepository)
			provider := new(mockProvider)
			u := newUser(t, "c", "cus_3", vo.SubscriptionPastDue)
			repo.On("GetByID", mock.Anything, "c").Return(u, nil)
			provider.On("ListSubscriptions", mock.Anything, "cus_3").Return(tt.subs, nil)
			repo.On("UpdateSubscription", mock.Anything, "c", mock.Anything).Return(nil)

			got, _, err := NewReconciler(repo, provider, nopLogger()).Reconcile(context.Background(), "c")

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.SubscriptionStatus())
			repo.AssertNumberOfCalls(t, "UpdateSubscription", 1)
		})
	}
}

func TestReconciler_ActiveOnlyPolicy(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	u := newUser(t, "c", "cus_3", vo.SubscriptionInactive)
	repo.On("GetByID", mock.Anything, "c").Return(u, nil)
	provider.On("ListSubscriptions", mock.Anything, "cus_3").
		Return([]billing.Subscription{{ID: "sub_t", Status: "trialing"}}, nil)

	r := NewReconciler(repo, provider, nopLogger(), WithStatusPolicy(NewStatusPolicy(vo.SubscriptionActive)))
	got, diag, err := r.Reconcile(context.Background(), "c")

	require.NoError(t, err)
	assert.Equal(t, vo.SubscriptionInactive, got.SubscriptionStatus())
	assert.False(t, diag.Written)
	repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_Idempotent(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	u := newUser(t, "a", "cus_1", vo.SubscriptionInactive)
	repo.On("GetByID", mock.Anything, "a").Return(u, nil)
	provider.On("ListSubscriptions", mock.Anything, "cus_1").
		Return([]billing.Subscription{{ID: "sub_1", Status: "active"}}, nil)
	repo.On("UpdateSubscription", mock.Anything, "a", mock.Anything).Return(nil)

	r := NewReconciler(repo, provider, nopLogger())
	first, _, err := r.Reconcile(context.Background(), "a")
	require.NoError(t, err)
	second, diag, err := r.Reconcile(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, first.SubscriptionStatus(), second.SubscriptionStatus())
	assert.False(t, diag.Written)
	assert.False(t, diag.Changed)
	repo.AssertNumberOfCalls(t, "UpdateSubscription", 1)
	provider.AssertNumberOfCalls(t, "ListSubscriptions", 2)
}

// =============================================================================
// Soft failures
// =============================================================================

func TestReconciler_BillingFailure_KeepsCachedStatus(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	metrics := newCountingMetrics()
	u := newUser(t, "a", "cus_1", vo.SubscriptionActive)
	repo.On("GetByID", mock.Anything, "a").Return(u, nil)
	provider.On("ListSubscriptions", mock.Anything, "cus_1").Return(nil, errors.New("stripe: connection reset"))

	got, diag, err := NewReconciler(repo, provider, nopLogger(), WithMetrics(metrics)).Reconcile(context.Background(), "a")

	require.NoError(t, err)
	assert.Equal(t, vo.SubscriptionActive, got.SubscriptionStatus())
	assert.Equal(t, SourceCached, diag.Source)
	assert.True(t, apperrors.IsBillingProviderError(diag.BillingErr))
	assert.True(t, diag.Degraded())
	assert.Equal(t, 1, metrics.reconcile["cached/billing_error"])
	repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_PersistFailure_ReturnsInMemoryUser(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	u := newUser(t, "a", "cus_1", vo.SubscriptionInactive)
	repo.On("GetByID", mock.Anything, "a").Return(u, nil)
	provider.On("ListSubscriptions", mock.Anything, "cus_1").
		Return([]billing.Subscription{{ID: "sub_1", Status: "active"}}, nil)
	repo.On("UpdateSubscription", mock.Anything, "a", mock.Anything).Return(errors.New("connection refused"))

	got, diag, err := NewReconciler(repo, provider, nopLogger()).Reconcile(context.Background(), "a")

	require.NoError(t, err)
	assert.Equal(t, vo.SubscriptionActive, got.SubscriptionStatus())
	assert.False(t, diag.Written)
	assert.True(t, apperrors.IsPersistenceError(diag.PersistErr))
	repo.AssertNumberOfCalls(t, "UpdateSubscription", 1)
}

func TestReconciler_UserNotFound(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, nil)

	got, diag, err := NewReconciler(repo, provider, nopLogger()).Reconcile(context.Background(), "missing")

	assert.Nil(t, got)
	assert.Nil(t, diag)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestReconciler_LookupFailure(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	repo.On("GetByID", mock.Anything, "u1").Return(nil, errors.New("timeout"))

	_, _, err := NewReconciler(repo, provider, nopLogger()).Reconcile(context.Background(), "u1")

	assert.True(t, apperrors.IsPersistenceError(err))
}

func TestStatusPolicy_FirstLive(t *testing.T) {
	p := DefaultStatusPolicy()
	sub, ok := p.FirstLive([]billing.Subscription{{ID: "x", Status: "unpaid"}, {ID: "y", Status: "trialing"}})
	require.True(t, ok)
	assert.Equal(t, "y", sub.ID)

	_, ok = p.FirstLive(nil)
	assert.False(t, ok)
}

func TestReconciler_NotifiesOnlyPersistedChanges(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	notifier := &recordingNotifier{err: errors.New("redis down")}
	u := newUser(t, "n1", "cus_n", vo.SubscriptionInactive)
	repo.On("GetByID", mock.Anything, "n1").Return(u, nil)
	provider.On("ListSubscriptions", mock.Anything, "cus_n").
		Return([]billing.Subscription{{ID: "sub_n", CustomerID: "cus_n", Status: "trialing"}}, nil)
	repo.On("UpdateSubscription", mock.Anything, "n1", mock.Anything).Return(nil)

	r := NewReconciler(repo, provider, nopLogger(), WithStatusNotifier(notifier))

	_, diag, err := r.Reconcile(context.Background(), "n1")
	require.NoError(t, err)
	assert.True(t, diag.Written)
	assert.False(t, diag.Degraded(), "notifier failure must not degrade the result")

	_, _, err = r.Reconcile(context.Background(), "n1")
	require.NoError(t, err)

	require.Len(t, notifier.changes, 1)
	assert.Equal(t, StatusChange{
		UserID:         "n1",
		PreviousStatus: vo.SubscriptionInactive,
		Status:         vo.SubscriptionActive,
		Origin:         OriginReconcile,
	}, notifier.changes[0])
}

func TestReconciler_LiveSubscriptionBehindExpiredOnes(t *testing.T) {
	repo := new(mockUserRepository)
	provider := new(mockProvider)
	u := newUser(t, "p1", "cus_p", vo.SubscriptionActive)
	repo.On("GetByID", mock.Anything, "p1").Return(u, nil)

	subs := make([]billing.Subscription, 0, 11)
	for i := 0; i < 10; i++ {
		subs = append(subs, billing.Subscription{ID: "sub_old", CustomerID: "cus_p", Status: "incomplete_expired"})
	}
	subs = append(subs, billing.Subscription{ID: "sub_live", CustomerID: "cus_p", Status: "active"})
	provider.On("ListSubscriptions", mock.Anything, "cus_p").Return(subs, nil)
	repo.On("UpdateSubscription", mock.Anything, "p1", mock.Anything).Return(nil)

	got, diag, err := NewReconciler(repo, provider, nopLogger()).Reconcile(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, vo.SubscriptionActive, got.SubscriptionStatus())
	require.NotNil(t, diag.LiveSubscription)
	assert.Equal(t, "sub_live", diag.LiveSubscription.ID)
	assert.False(t, diag.Changed)
}
