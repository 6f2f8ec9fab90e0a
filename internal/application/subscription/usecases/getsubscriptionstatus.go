package usecases

import (
	"context"

	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/shared/logger"
)

type GetSubscriptionStatusQuery struct {
	UserID string
}

type SubscriptionStatusResult struct {
	IsSubscribed bool                  `json:"isSubscribed"`
	Status       string                `json:"status"`
	Details      *billing.Subscription `json:"subscriptionDetails"`
	// Stale is set when the billing provider could not be reached and the
	// cached status is being served.
	Stale bool `json:"stale,omitempty"`
}

type GetSubscriptionStatusUseCase struct {
	reconciler Reconciler
	logger     logger.Interface
}

func NewGetSubscriptionStatusUseCase(reconciler Reconciler, logger logger.Interface) *GetSubscriptionStatusUseCase {
	return &GetSubscriptionStatusUseCase{
		reconciler: reconciler,
		logger:     logger,
	}
}

func (uc *GetSubscriptionStatusUseCase) Execute(ctx context.Context, query GetSubscriptionStatusQuery) (*SubscriptionStatusResult, error) {
	u, diag, err := uc.reconciler.Reconcile(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	uc.logger.Debugw("subscription status checked",
		"user_id", query.UserID,
		"status", u.SubscriptionStatus(),
		"source", diag.Source,
	)

	return &SubscriptionStatusResult{
		IsSubscribed: u.IsSubscribed(),
		Status:       u.SubscriptionStatus().String(),
		Details:      diag.LiveSubscription,
		Stale:        diag.BillingErr != nil,
	}, nil
}
