package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kursio/kursio/internal/application/subscription"
	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/domain/user"
	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
	apperrors "github.com/kursio/kursio/internal/shared/errors"
	"github.com/kursio/kursio/internal/shared/logger"
)

type stubReconciler struct {
	user *user.User
	diag *subscription.Diagnostics
	err  error

	calls int
}

func (s *stubReconciler) Reconcile(_ context.Context, _ string) (*user.User, *subscription.Diagnostics, error) {
	s.calls++
	return s.user, s.diag, s.err
}

func storedUser(t *testing.T, status vo.SubscriptionStatus) *user.User {
	t.Helper()
	u, err := user.ReconstructUser(user.Snapshot{
		ID:                 "u1",
		Email:              "ola@example.pl",
		Name:               "Ola",
		StripeCustomerID:   "cus_1",
		SubscriptionStatus: status.String(),
	})
	require.NoError(t, err)
	return u
}

// =============================================================================
// GetSubscriptionStatus
// =============================================================================

func TestGetSubscriptionStatus_ReturnsLiveSubscription(t *testing.T) {
	live := &billing.Subscription{ID: "sub_1", Status: "active"}
	rec := &stubReconciler{
		user: storedUser(t, vo.SubscriptionActive),
		diag: &subscription.Diagnostics{Source: subscription.SourceBilling, LiveSubscription: live},
	}

	result, err := NewGetSubscriptionStatusUseCase(rec, logger.NewNopLogger()).
		Execute(context.Background(), GetSubscriptionStatusQuery{UserID: "u1"})

	require.NoError(t, err)
	assert.True(t, result.IsSubscribed)
	assert.Equal(t, "active", result.Status)
	assert.Same(t, live, result.Details)
	assert.False(t, result.Stale)
	assert.Equal(t, 1, rec.calls)
}

func TestGetSubscriptionStatus_BillingOutageServesCache(t *testing.T) {
	rec := &stubReconciler{
		user: storedUser(t, vo.SubscriptionActive),
		diag: &subscription.Diagnostics{
			Source:     subscription.SourceCached,
			BillingErr: apperrors.NewBillingProviderError("failed to list subscriptions", errors.New("timeout")),
		},
	}

	result, err := NewGetSubscriptionStatusUseCase(rec, logger.NewNopLogger()).
		Execute(context.Background(), GetSubscriptionStatusQuery{UserID: "u1"})

	require.NoError(t, err)
	assert.True(t, result.IsSubscribed)
	assert.True(t, result.Stale)
	assert.Nil(t, result.Details)
}

func TestGetSubscriptionStatus_NotFound(t *testing.T) {
	rec := &stubReconciler{err: apperrors.NewNotFoundError("user not found")}

	result, err := NewGetSubscriptionStatusUseCase(rec, logger.NewNopLogger()).
		Execute(context.Background(), GetSubscriptionStatusQuery{UserID: "nope"})

	assert.Nil(t, result)
	assert.True(t, apperrors.IsNotFoundError(err))
}

// =============================================================================
// ForceCheckSubscription
// =============================================================================

func TestForceCheckSubscription(t *testing.T) {
	tests := []struct {
		name        string
		status      vo.SubscriptionStatus
		diag        *subscription.Diagnostics
		wantSuccess bool
		wantSub     bool
	}{
		{
			name:        "status flipped and saved",
			status:      vo.SubscriptionActive,
			diag:        &subscription.Diagnostics{PreviousStatus: vo.SubscriptionInactive, Changed: true, Written: true},
			wantSuccess: true,
			wantSub:     true,
		},
		{
			name:        "write failed",
			status:      vo.SubscriptionInactive,
			diag:        &subscription.Diagnostics{PreviousStatus: vo.SubscriptionActive, PersistErr: errors.New("db down")},
			wantSuccess: false,
			wantSub:     false,
		},
		{
			name:        "billing unreachable",
			status:      vo.SubscriptionActive,
			diag:        &subscription.Diagnostics{PreviousStatus: vo.SubscriptionActive, BillingErr: errors.New("timeout")},
			wantSuccess: false,
			wantSub:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &stubReconciler{user: storedUser(t, tt.status), diag: tt.diag}

			result, err := NewForceCheckSubscriptionUseCase(rec, logger.NewNopLogger()).
				Execute(context.Background(), ForceCheckSubscriptionCommand{UserID: "u1"})

			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantSub, result.IsSubscribed)
			assert.Equal(t, tt.diag.PreviousStatus.String(), result.PreviousStatus)
			assert.Equal(t, tt.status.String(), result.Status)
		})
	}
}

func TestForceCheckSubscription_LookupFailure(t *testing.T) {
	rec := &stubReconciler{err: apperrors.NewPersistenceError("failed to load user", errors.New("timeout"))}

	_, err := NewForceCheckSubscriptionUseCase(rec, logger.NewNopLogger()).
		Execute(context.Background(), ForceCheckSubscriptionCommand{UserID: "u1"})

	assert.True(t, apperrors.IsPersistenceError(err))
}
