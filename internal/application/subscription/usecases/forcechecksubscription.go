package usecases

import (
	"context"

	"github.com/kursio/kursio/internal/shared/logger"
)

type ForceCheckSubscriptionCommand struct {
	UserID string
}

type ForceCheckSubscriptionResult struct {
	Success        bool   `json:"success"`
	IsSubscribed   bool   `json:"isSubscribed"`
	PreviousStatus string `json:"previousStatus"`
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
}

// ForceCheckSubscriptionUseCase is the explicit refresh. Unlike the other
// call sites it reports soft failures to the caller through Success.
type ForceCheckSubscriptionUseCase struct {
	reconciler Reconciler
	logger     logger.Interface
}

func NewForceCheckSubscriptionUseCase(reconciler Reconciler, logger logger.Interface) *ForceCheckSubscriptionUseCase {
	return &ForceCheckSubscriptionUseCase{
		reconciler: reconciler,
		logger:     logger,
	}
}

func (uc *ForceCheckSubscriptionUseCase) Execute(ctx context.Context, cmd ForceCheckSubscriptionCommand) (*ForceCheckSubscriptionResult, error) {
	u, diag, err := uc.reconciler.Reconcile(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	result := &ForceCheckSubscriptionResult{
		Success:        true,
		IsSubscribed:   u.IsSubscribed(),
		PreviousStatus: diag.PreviousStatus.String(),
		Status:         u.SubscriptionStatus().String(),
	}

	switch {
	case diag.PersistErr != nil:
		result.Success = false
		result.Message = "subscription status could not be saved"
	case diag.BillingErr != nil:
		result.Success = false
		result.Message = "billing provider unavailable, showing last known status"
	}

	uc.logger.Infow("subscription force-checked",
		"user_id", cmd.UserID,
		"previous_status", result.PreviousStatus,
		"status", result.Status,
		"success", result.Success,
	)
	return result, nil
}
